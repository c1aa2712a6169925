// Package poller runs a fetch function on a fixed interval for as long as a
// view is active and publishes each result through an observable Store.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
)

var ErrStopped = errors.New("poller stopped")

type FetchFunc[T any] func(ctx context.Context) (T, error)

type Poller[T any] struct {
	log      *slog.Logger
	interval time.Duration
	fetch    FetchFunc[T]
	store    *Store[T]
	refresh  chan struct{}

	// gen identifies the current run. A cycle only commits its result while
	// its run is still the current one.
	gen atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New[T any](log *slog.Logger, name string, interval time.Duration, fetch FetchFunc[T]) *Poller[T] {
	return &Poller[T]{
		log:      log.With(slog.String("view", name)),
		interval: interval,
		fetch:    fetch,
		store:    NewStore[T](),
		refresh:  make(chan struct{}, 1),
	}
}

func (p *Poller[T]) Store() *Store[T] {
	return p.store
}

func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Start activates the view: one cycle right away, then one per interval
// until ctx is done or Stop is called. Starting a running poller restarts it
// from the loading state.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.store.reset()

	gen := p.gen.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.log.Info("starting view", slog.Duration("interval", p.interval))

	go p.run(runCtx, gen, done)
}

// Stop deactivates the view. In-flight fetches are cancelled and their
// results dropped. Stop returns once the loop has exited.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller[T]) stopLocked() {
	if p.cancel == nil {
		return
	}

	p.gen.Add(1)
	p.cancel()
	<-p.done

	p.cancel = nil
	p.done = nil
	p.log.Info("view stopped")
}

// Refresh asks for an immediate cycle. It never blocks; requests made while a
// cycle is pending are coalesced.
func (p *Poller[T]) Refresh() error {
	if !p.Running() {
		return ErrStopped
	}

	select {
	case p.refresh <- struct{}{}:
	default:
	}
	return nil
}

func (p *Poller[T]) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	select {
	case <-p.refresh:
	default:
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runCycle(ctx, gen)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(ctx, gen)
		case <-p.refresh:
			p.runCycle(ctx, gen)
		}
	}
}

func (p *Poller[T]) runCycle(ctx context.Context, gen uint64) {
	cycleID := uuid.New().String()

	p.store.update(func(st *State[T]) bool {
		if p.gen.Load() != gen || st.Phase != PhaseError {
			return false
		}
		st.Phase = PhaseLoading
		st.Err = nil
		return true
	})

	start := time.Now()
	data, err := p.fetch(ctx)

	if ctx.Err() != nil {
		p.log.Debug("discarding result of cancelled cycle", slog.String("cycle_id", cycleID))
		return
	}

	p.store.update(func(st *State[T]) bool {
		if p.gen.Load() != gen {
			return false
		}

		st.Cycle++
		st.CycleID = cycleID
		st.UpdatedAt = time.Now().UTC()

		if err != nil {
			var zero T
			st.Phase = PhaseError
			st.Data = zero
			st.Err = err
			return true
		}

		st.Phase = PhaseReady
		st.Data = data
		st.Err = nil
		return true
	})

	if err != nil {
		p.log.Error("cycle failed",
			slog.String("cycle_id", cycleID),
			sl.Err(err),
		)
		return
	}

	p.log.Debug("cycle completed",
		slog.String("cycle_id", cycleID),
		slog.Duration("took", time.Since(start)),
	)
}
