package studio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fashion-studio/internal/gemini"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("job-%d", n)
	}
}

func TestResults_PatchKeepsMonotonicFields(t *testing.T) {
	r := newResults()
	sel := denimSelections("Ava")
	run, jobs, err := r.begin(sel, sel.Models, sequentialIDs())
	require.NoError(t, err)

	front := AngleImage{Angle: AngleFront, Image: fakeImage("front")}
	_, ok := r.patch(run, jobs[0].ID, func(j *Job) {
		j.Images = []AngleImage{front}
		j.Representative = &front
		j.VideoPrompt = "walk"
	})
	require.True(t, ok)

	side := AngleImage{Angle: AngleSide, Image: fakeImage("side")}
	job, ok := r.patch(run, jobs[0].ID, func(j *Job) {
		j.Images = nil
		j.Representative = &side
		j.VideoPrompt = ""
		j.ID = "hijacked"
	})
	require.True(t, ok)
	assert.Equal(t, jobs[0].ID, job.ID)
	assert.Equal(t, front, *job.Representative)
	assert.Equal(t, []AngleImage{front}, job.Images)
	assert.Equal(t, "walk", job.VideoPrompt)
}

func TestResults_StaleRunIsRejected(t *testing.T) {
	r := newResults()
	sel := denimSelections("Ava")
	run, jobs, err := r.begin(sel, sel.Models, sequentialIDs())
	require.NoError(t, err)

	r.reset()
	_, ok := r.patch(run, jobs[0].ID, func(j *Job) { j.Status = JobComposed })
	assert.False(t, ok)

	_, ok = r.settle(run)
	assert.False(t, ok)
	assert.Equal(t, PhaseIdle, r.snapshot().Phase)
}

func TestResults_SnapshotIsDeepCopy(t *testing.T) {
	r := newResults()
	sel := denimSelections("Ava")
	run, jobs, err := r.begin(sel, sel.Models, sequentialIDs())
	require.NoError(t, err)

	img := AngleImage{Angle: AngleFront, Image: fakeImage("front")}
	_, _ = r.patch(run, jobs[0].ID, func(j *Job) {
		j.Images = []AngleImage{img}
		j.Representative = &img
	})

	snap := r.snapshot()
	snap.Jobs[0].Images[0].Angle = AngleSide
	snap.Jobs[0].Representative.Angle = AngleSide
	snap.Selections.Products[0].Name = "changed"

	again := r.snapshot()
	assert.Equal(t, AngleFront, again.Jobs[0].Images[0].Angle)
	assert.Equal(t, AngleFront, again.Jobs[0].Representative.Angle)
	assert.Equal(t, "Denim Jacket", again.Selections.Products[0].Name)
}

func TestResults_PendingVideos(t *testing.T) {
	r := newResults()
	sel := denimSelections("Ava", "Bo")
	run, jobs, err := r.begin(sel, sel.Models, sequentialIDs())
	require.NoError(t, err)

	_, _ = r.patch(run, jobs[0].ID, func(j *Job) {
		j.Preview = VideoSlot{State: VideoPending, Operation: "op-a"}
		j.Final = VideoSlot{State: VideoDone, ResultURL: "https://v"}
	})
	_, _ = r.patch(run, jobs[1].ID, func(j *Job) {
		j.Final = VideoSlot{State: VideoPending, Operation: "op-b"}
	})

	assert.ElementsMatch(t, []pendingVideo{
		{run: run, jobID: "job-1", tier: gemini.TierPreview, operation: "op-a"},
		{run: run, jobID: "job-2", tier: gemini.TierFinal, operation: "op-b"},
	}, r.pendingVideos())
}

func TestResults_BeginRefusesWhileLoading(t *testing.T) {
	r := newResults()
	sel := denimSelections("Ava")
	_, _, err := r.begin(sel, sel.Models, sequentialIDs())
	require.NoError(t, err)

	_, _, err = r.begin(sel, sel.Models, sequentialIDs())
	require.ErrorIs(t, err, ErrBusy)
}

func TestPhase_Transitions(t *testing.T) {
	assert.True(t, PhaseIdle.CanGenerate())
	assert.False(t, PhaseLoadingImage.CanGenerate())
	assert.True(t, PhaseSuccess.CanGenerate())
	assert.True(t, PhaseError.CanGenerate())

	_, err := PhaseIdle.to(PhaseSuccess)
	require.Error(t, err)
	next, err := PhaseLoadingImage.to(PhaseSuccess)
	require.NoError(t, err)
	assert.Equal(t, PhaseSuccess, next)
	assert.True(t, next.Settled())
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, gemini.TierPreview, tier)

	tier, err = ParseTier(" FINAL ")
	require.NoError(t, err)
	assert.Equal(t, gemini.TierFinal, tier)

	_, err = ParseTier("4k")
	require.ErrorIs(t, err, ErrUnknownTier)
}

