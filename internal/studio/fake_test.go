package studio

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
)

type fakeBackend struct {
	mu sync.Mutex

	compose  func(ctx context.Context, req gemini.ComposeRequest) (asset.Asset, error)
	cutout   func(ctx context.Context, img asset.Asset) (asset.Asset, error)
	describe func(ctx context.Context, req gemini.DescribeRequest) (string, error)
	start    func(ctx context.Context, req gemini.VideoRequest) (string, error)
	poll     func(ctx context.Context, name string) (gemini.Operation, error)

	composeReqs []gemini.ComposeRequest
	videoReqs   []gemini.VideoRequest
	polls       int
}

func fakeImage(label string) asset.Asset {
	return asset.Asset{Data: []byte(label), MimeType: "image/png"}
}

func (f *fakeBackend) ComposeImage(ctx context.Context, req gemini.ComposeRequest) (asset.Asset, error) {
	f.mu.Lock()
	f.composeReqs = append(f.composeReqs, req)
	fn := f.compose
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return fakeImage(req.Angle), nil
}

func (f *fakeBackend) Cutout(ctx context.Context, img asset.Asset) (asset.Asset, error) {
	if f.cutout != nil {
		return f.cutout(ctx, img)
	}
	return fakeImage("cutout"), nil
}

func (f *fakeBackend) DescribeForVideo(ctx context.Context, req gemini.DescribeRequest) (string, error) {
	if f.describe != nil {
		return f.describe(ctx, req)
	}
	return "The model walks toward the camera.", nil
}

func (f *fakeBackend) StartVideo(ctx context.Context, req gemini.VideoRequest) (string, error) {
	f.mu.Lock()
	f.videoReqs = append(f.videoReqs, req)
	fn := f.start
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return "operations/" + string(req.Tier), nil
}

func (f *fakeBackend) PollVideo(ctx context.Context, name string) (gemini.Operation, error) {
	f.mu.Lock()
	f.polls++
	fn := f.poll
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, name)
	}
	return gemini.Operation{Name: name, Done: true, VideoURI: "https://files/" + name}, nil
}

func (f *fakeBackend) VideoURL(uri string) string {
	if uri == "" {
		return ""
	}
	return uri + "?key=k"
}

func (f *fakeBackend) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *fakeBackend) videoCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.videoReqs)
}

func (f *fakeBackend) composeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.composeReqs)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newTestStudio(t *testing.T, backend *fakeBackend, mutate ...func(*Options)) *Studio {
	t.Helper()
	opts := Options{
		Backend:      backend,
		PollInterval: 5 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func item(kind catalog.Kind, id int64, name string) catalog.Item {
	return catalog.Item{ID: id, Kind: kind, Name: name, Image: fakeImage(strings.ToLower(name))}
}

func denimSelections(models ...string) catalog.Selections {
	scene := item(catalog.KindScene, 20, "Mountain View")
	pose := catalog.Item{ID: 30, Kind: catalog.KindPose, Name: "Standing", Prompt: "Standing upright"}
	sel := catalog.Selections{
		Products: []catalog.Item{item(catalog.KindProduct, 1, "Denim Jacket")},
		Scene:    &scene,
		Pose:     &pose,
	}
	for i, m := range models {
		sel.Models = append(sel.Models, item(catalog.KindModel, int64(10+i), m))
	}
	return sel
}

func jobByModel(t *testing.T, snap Snapshot, name string) Job {
	t.Helper()
	for _, j := range snap.Jobs {
		if j.Model.Name == name {
			return j
		}
	}
	t.Fatalf("no job for model %q", name)
	return Job{}
}
