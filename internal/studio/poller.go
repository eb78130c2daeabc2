package studio

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// poller runs one tick at a time while any video slot is pending. It is
// armed on demand and re-arms itself after each tick; a tick that finds
// nothing pending disarms it.
type poller struct {
	interval time.Duration
	pending  func() []pendingVideo
	poll     func(pendingVideo)

	mu      sync.Mutex
	armed   bool
	stopped bool
	timer   *time.Timer
}

func (p *poller) kick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.armed || p.stopped {
		return
	}
	p.armed = true
	p.timer = time.AfterFunc(p.interval, p.tick)
}

func (p *poller) tick() {
	// Reading pending under mu keeps a concurrent kick from being lost
	// between the empty check and disarming.
	p.mu.Lock()
	targets := p.pending()
	if p.stopped || len(targets) == 0 {
		p.armed = false
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	var g errgroup.Group
	for _, t := range targets {
		g.Go(func() error {
			p.poll(t)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.armed = false
		return
	}
	p.timer = time.AfterFunc(p.interval, p.tick)
}

func (p *poller) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	p.armed = false
	if p.timer != nil {
		p.timer.Stop()
	}
}
