// Package session keeps one catalog and studio per chat and delivers studio
// events for each chat in order.
package session

import (
	"errors"
	"sync"
	"time"

	"fashion-studio/internal/catalog"
	"fashion-studio/internal/studio"
)

// Menu is the state of the inline picker message of a chat.
type Menu struct {
	MessageID int
	Kind      catalog.Kind
}

type Session struct {
	ChatID       int64
	Username     string
	Catalog      *catalog.Store
	Studio       *studio.Studio
	Menu         Menu
	LastActivity time.Time

	events chan studio.Event
	done   chan struct{}
}

type Options struct {
	// NewStudio builds the studio of a chat; onEvent must be passed through
	// to studio.Options.OnEvent.
	NewStudio func(onEvent func(studio.Event)) (*studio.Studio, error)
	// Seed fills a new chat catalog. Optional.
	Seed func(*catalog.Store) error
	// OnEvent receives the events of each chat in the order they happened.
	OnEvent func(chatID int64, ev studio.Event)
	// QueueSize bounds undelivered events per chat.
	QueueSize int
}

type Store struct {
	mu        sync.Mutex
	sessions  map[int64]*Session
	newStudio func(func(studio.Event)) (*studio.Studio, error)
	seed      func(*catalog.Store) error
	onEvent   func(int64, studio.Event)
	queueSize int
	closed    bool
	wg        sync.WaitGroup
}

var ErrClosed = errors.New("session store is closed")

func NewStore(opts Options) *Store {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Store{
		sessions:  make(map[int64]*Session),
		newStudio: opts.NewStudio,
		seed:      opts.Seed,
		onEvent:   opts.OnEvent,
		queueSize: queueSize,
	}
}

// Get returns the session of chatID, creating it on first use.
func (s *Store) Get(chatID int64, username string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if sess, ok := s.sessions[chatID]; ok {
		if sess.Username == "" && username != "" {
			sess.Username = username
		}
		sess.LastActivity = time.Now()
		return sess, nil
	}
	if s.newStudio == nil {
		return nil, errors.New("session store has no studio factory")
	}

	store := catalog.NewStore()
	if s.seed != nil {
		if err := s.seed(store); err != nil {
			return nil, err
		}
	}

	sess := &Session{
		ChatID:       chatID,
		Username:     username,
		Catalog:      store,
		Menu:         Menu{Kind: catalog.KindProduct},
		LastActivity: time.Now(),
		events:       make(chan studio.Event, s.queueSize),
		done:         make(chan struct{}),
	}
	st, err := s.newStudio(func(ev studio.Event) {
		select {
		case sess.events <- ev:
		case <-sess.done:
		}
	})
	if err != nil {
		return nil, err
	}
	sess.Studio = st

	s.sessions[chatID] = sess
	s.wg.Add(1)
	go s.deliver(sess)
	return sess, nil
}

func (s *Store) deliver(sess *Session) {
	defer s.wg.Done()
	for {
		select {
		case ev := <-sess.events:
			if s.onEvent != nil {
				s.onEvent(sess.ChatID, ev)
			}
		case <-sess.done:
			return
		}
	}
}

// UpdateMenu applies fn to the picker state of chatID and returns the result.
func (s *Store) UpdateMenu(chatID int64, fn func(*Menu)) Menu {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return Menu{}
	}
	fn(&sess.Menu)
	return sess.Menu
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops every studio and delivery worker. Undelivered events are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		close(sess.done)
		sess.Studio.Close()
	}
	s.wg.Wait()
}
