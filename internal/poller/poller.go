// Package poller runs a fetch on a fixed interval for as long as a view is
// active.
package poller

import (
	"context"
	"sync"
	"time"

	"battlelog/internal/logging"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 250 * time.Millisecond

// FetchFunc loads one snapshot of the polled collection.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller calls a FetchFunc immediately on Start and then once per tick,
// handing every result to the sink. Fetches never overlap; ticks that fire
// while one is running collapse into a single follow-up fetch.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	sink     func(T, error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a stopped poller. A non-positive interval means DefaultInterval.
func New[T any](name string, interval time.Duration, fetch FetchFunc[T], sink func(T, error)) *Poller[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		sink:     sink,
	}
}

// Interval returns the tick interval.
func (p *Poller[T]) Interval() time.Duration {
	return p.interval
}

// Start begins polling until ctx is done or Stop is called. Starting a
// running poller does nothing.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	logging.PollerDebug("Poller %s started (interval %s)", p.name, p.interval)
	go p.loop(ctx, p.done)
}

// Stop cancels the in-flight fetch and waits for the loop to exit.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
	logging.PollerDebug("Poller %s stopped", p.name)
}

func (p *Poller[T]) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ticks that piled up during a slow fetch are coalesced by the
			// ticker's one-slot channel.
			p.poll(ctx)
		}
	}
}

func (p *Poller[T]) poll(ctx context.Context) {
	v, err := p.fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logging.PollerWarn("Poller %s fetch failed: %v", p.name, err)
	}
	p.sink(v, err)
}
