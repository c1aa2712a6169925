package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type KeyedFetchFunc[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Keyed is a view scoped to one entity key, such as a patient detail page.
// Activating it for a new key stops the old poller, closes its store and
// starts a fresh one, so at most one timer is live per Keyed.
type Keyed[K comparable, T any] struct {
	log      *slog.Logger
	name     string
	interval time.Duration
	fetch    KeyedFetchFunc[K, T]

	mu     sync.Mutex
	active *Poller[T]
}

func NewKeyed[K comparable, T any](log *slog.Logger, name string, interval time.Duration, fetch KeyedFetchFunc[K, T]) *Keyed[K, T] {
	return &Keyed[K, T]{
		log:      log,
		name:     name,
		interval: interval,
		fetch:    fetch,
	}
}

func (k *Keyed[K, T]) Activate(ctx context.Context, key K) *Poller[T] {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.deactivateLocked()

	p := New(k.log.With(slog.String("key", fmt.Sprint(key))), k.name, k.interval, func(ctx context.Context) (T, error) {
		return k.fetch(ctx, key)
	})
	p.Start(ctx)

	k.active = p
	return p
}

func (k *Keyed[K, T]) Deactivate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.deactivateLocked()
}

func (k *Keyed[K, T]) deactivateLocked() {
	if k.active == nil {
		return
	}

	k.active.Stop()
	k.active.Store().Close()
	k.active = nil
}
