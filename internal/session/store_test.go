package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/studio"
)

type nopBackend struct{}

func (nopBackend) ComposeImage(ctx context.Context, req gemini.ComposeRequest) (asset.Asset, error) {
	return asset.Asset{Data: []byte(req.Angle), MimeType: "image/png"}, nil
}

func (nopBackend) Cutout(ctx context.Context, img asset.Asset) (asset.Asset, error) {
	return asset.Asset{}, errors.New("no cutout")
}

func (nopBackend) DescribeForVideo(ctx context.Context, req gemini.DescribeRequest) (string, error) {
	return "", errors.New("no description")
}

func (nopBackend) StartVideo(ctx context.Context, req gemini.VideoRequest) (string, error) {
	return "", errors.New("no video")
}

func (nopBackend) PollVideo(ctx context.Context, name string) (gemini.Operation, error) {
	return gemini.Operation{}, errors.New("no video")
}

func (nopBackend) VideoURL(uri string) string { return uri }

func newTestStore(t *testing.T, onEvent func(int64, studio.Event)) *Store {
	t.Helper()
	s := NewStore(Options{
		NewStudio: func(fn func(studio.Event)) (*studio.Studio, error) {
			return studio.New(studio.Options{Backend: nopBackend{}, OnEvent: fn})
		},
		Seed: func(c *catalog.Store) error {
			c.Add(catalog.Item{Kind: catalog.KindProduct, Name: "Denim Jacket"})
			return nil
		},
		OnEvent: onEvent,
	})
	t.Cleanup(s.Close)
	return s
}

func TestStore_GetIsPerChat(t *testing.T) {
	s := newTestStore(t, nil)

	a, err := s.Get(1, "ana")
	require.NoError(t, err)
	again, err := s.Get(1, "")
	require.NoError(t, err)
	b, err := s.Get(2, "bo")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a.Studio, b.Studio)
	assert.NotSame(t, a.Catalog, b.Catalog)
	assert.Len(t, a.Catalog.List(catalog.KindProduct), 1)
	assert.Equal(t, 2, s.Len())
}

func TestStore_DeliversEventsInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		kinds []studio.EventKind
		chats []int64
	)
	s := newTestStore(t, func(chatID int64, ev studio.Event) {
		mu.Lock()
		defer mu.Unlock()
		chats = append(chats, chatID)
		kinds = append(kinds, ev.Kind)
	})

	sess, err := s.Get(7, "")
	require.NoError(t, err)

	scene := catalog.Item{Kind: catalog.KindScene, Name: "Studio"}
	pose := catalog.Item{Kind: catalog.KindPose, Name: "Standing"}
	_, err = sess.Studio.Generate(catalog.Selections{
		Products: []catalog.Item{{Kind: catalog.KindProduct, Name: "Denim Jacket"}},
		Models:   []catalog.Item{{Kind: catalog.KindModel, Name: "Ava"}},
		Scene:    &scene,
		Pose:     &pose,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) > 0 && kinds[len(kinds)-1] == studio.EventRunSettled
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, studio.EventJobComposed, kinds[0])
	for _, c := range chats {
		assert.Equal(t, int64(7), c)
	}
}

func TestStore_UpdateMenu(t *testing.T) {
	s := newTestStore(t, nil)
	assert.Equal(t, Menu{}, s.UpdateMenu(3, func(m *Menu) { m.MessageID = 9 }))

	_, err := s.Get(3, "")
	require.NoError(t, err)
	m := s.UpdateMenu(3, func(m *Menu) {
		m.MessageID = 9
		m.Kind = catalog.KindModel
	})
	assert.Equal(t, Menu{MessageID: 9, Kind: catalog.KindModel}, m)
}

func TestStore_ClosedRejectsNewSessions(t *testing.T) {
	s := newTestStore(t, nil)
	s.Close()

	_, err := s.Get(1, "")
	require.ErrorIs(t, err, ErrClosed)
}
