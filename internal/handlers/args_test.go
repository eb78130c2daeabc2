package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/studio"
)

func TestParsePick(t *testing.T) {
	p, err := parsePick("products 5, 6; model 7; scene #8; pose 4; prompt arms crossed; accessory 9", catalog.Picks{Color: "red"})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, p.ProductIDs)
	assert.Equal(t, []int64{7}, p.ModelIDs)
	assert.Equal(t, int64(8), p.SceneID)
	assert.Equal(t, int64(4), p.PoseID)
	assert.Equal(t, "arms crossed", p.PosePrompt)
	assert.Equal(t, []int64{9}, p.AccessoryIDs)
	assert.Equal(t, "red", p.Color)
}

func TestParsePick_None(t *testing.T) {
	p, err := parsePick("scene none; color none; accessory none", catalog.Picks{SceneID: 3, Color: "navy", AccessoryIDs: []int64{1}})
	require.NoError(t, err)
	assert.Zero(t, p.SceneID)
	assert.Empty(t, p.Color)
	assert.Empty(t, p.AccessoryIDs)
}

func TestParsePick_Errors(t *testing.T) {
	for _, args := range []string{
		"hat 1",
		"product x",
		"product",
		"scene 1 2",
		"model 0",
	} {
		t.Run(args, func(t *testing.T) {
			_, err := parsePick(args, catalog.Picks{})
			assert.Error(t, err)
		})
	}
}

func TestParseCaption(t *testing.T) {
	kind, name, err := parseCaption("  Product  Denim jacket ")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindProduct, kind)
	assert.Equal(t, "Denim jacket", name)

	_, _, err = parseCaption("model")
	assert.Error(t, err)
	_, _, err = parseCaption("pose Leaning")
	assert.Error(t, err)
	_, _, err = parseCaption("")
	assert.Error(t, err)
}

func TestParseImageArgs(t *testing.T) {
	kind, name, desc, err := parseImageArgs("scene Rooftop: city rooftop at dusk")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindScene, kind)
	assert.Equal(t, "Rooftop", name)
	assert.Equal(t, "city rooftop at dusk", desc)

	_, _, _, err = parseImageArgs("scene Rooftop")
	assert.Error(t, err)
	_, _, _, err = parseImageArgs("scene : dusk")
	assert.Error(t, err)
}

func TestParseVideoArgs(t *testing.T) {
	n, tier, err := parseVideoArgs("2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, gemini.TierPreview, tier)

	n, tier, err = parseVideoArgs("#1 final")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, gemini.TierFinal, tier)

	_, _, err = parseVideoArgs("1 ultra")
	assert.ErrorIs(t, err, studio.ErrUnknownTier)
	_, _, err = parseVideoArgs("")
	assert.Error(t, err)
	_, _, err = parseVideoArgs("0")
	assert.Error(t, err)
}

func TestParseDelete(t *testing.T) {
	kind, id, err := parseDelete("model 12")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindModel, kind)
	assert.Equal(t, int64(12), id)

	_, _, err = parseDelete("model")
	assert.Error(t, err)
}

func TestJobAt(t *testing.T) {
	snap := studio.Snapshot{Jobs: []studio.Job{{ID: "a"}, {ID: "b"}}}

	job, err := jobAt(snap, 2)
	require.NoError(t, err)
	assert.Equal(t, "b", job.ID)

	_, err = jobAt(snap, 3)
	assert.ErrorIs(t, err, studio.ErrJobNotFound)

	assert.Equal(t, 1, jobNumber(snap, "a"))
	assert.Equal(t, 0, jobNumber(snap, "zzz"))
}
