// Package mediagroup collects the photos of a Telegram album, which arrive as
// separate updates, into a single batch.
package mediagroup

import (
	"sync"
	"time"
)

type Photo struct {
	ChatID   int64
	UserID   int64
	Username string
	AlbumID  string
	Caption  string
	FileID   string
}

// Album is a flushed batch. Caption is the last non-empty caption seen.
type Album struct {
	ChatID   int64
	UserID   int64
	Username string
	Caption  string
	FileIDs  []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Album)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Album)
	pending  map[albumKey]*pendingAlbum
	stopped  bool
}

type albumKey struct {
	chatID  int64
	albumID string
}

type pendingAlbum struct {
	album Album
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[albumKey]*pendingAlbum),
	}
}

// Add records a photo and restarts the album's quiet timer.
func (a *Aggregator) Add(p Photo) {
	if p.AlbumID == "" || p.FileID == "" {
		return
	}
	key := albumKey{chatID: p.ChatID, albumID: p.AlbumID}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	pa, ok := a.pending[key]
	if !ok {
		pa = &pendingAlbum{album: Album{
			ChatID:   p.ChatID,
			UserID:   p.UserID,
			Username: p.Username,
		}}
		a.pending[key] = pa
	}
	pa.album.FileIDs = append(pa.album.FileIDs, p.FileID)
	if p.Caption != "" {
		pa.album.Caption = p.Caption
	}

	if pa.timer != nil {
		pa.timer.Stop()
	}
	pa.timer = time.AfterFunc(a.debounce, func() { a.flush(key) })
}

func (a *Aggregator) flush(key albumKey) {
	a.mu.Lock()
	pa, ok := a.pending[key]
	if !ok || a.stopped {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	album := pa.album
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(album)
	}
}

// Stop cancels every pending album.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for key, pa := range a.pending {
		if pa.timer != nil {
			pa.timer.Stop()
		}
		delete(a.pending, key)
	}
}
