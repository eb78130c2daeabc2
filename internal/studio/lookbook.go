package studio

import (
	"slices"
	"sync"
	"time"

	"fashion-studio/internal/catalog"
)

// LookbookEntry is a saved, immutable copy of a finished run.
type LookbookEntry struct {
	ID         string
	SavedAt    time.Time
	Selections catalog.Selections
	Jobs       []Job
}

func (e LookbookEntry) clone() LookbookEntry {
	e.Selections = e.Selections.Clone()
	e.Jobs = cloneJobs(e.Jobs)
	return e
}

type lookbook struct {
	mu      sync.Mutex
	max     int
	entries []LookbookEntry
}

// add prepends entry and drops the oldest entries beyond max.
func (l *lookbook) add(entry LookbookEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = slices.Insert(l.entries, 0, entry.clone())
	if l.max > 0 && len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
}

func (l *lookbook) list() []LookbookEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LookbookEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.clone())
	}
	return out
}
