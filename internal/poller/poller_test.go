package poller_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/speedwagon-io/vitalwatch/internal/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForPhase[T any](t *testing.T, store *poller.Store[T], phase poller.Phase) poller.State[T] {
	t.Helper()

	updates, cancel := store.Subscribe()
	defer cancel()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case st, ok := <-updates:
			require.True(t, ok, "store closed while waiting for %s", phase)
			if st.Phase == phase {
				return st
			}
		case <-timeout:
			t.Fatalf("timed out waiting for phase %s, last state %s", phase, store.Get().Phase)
		}
	}
}

func TestPoller_FirstCycleRunsImmediately(t *testing.T) {
	p := poller.New(discardLogger(), "list", time.Hour, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	assert.Equal(t, poller.PhaseLoading, p.Store().Get().Phase)

	p.Start(context.Background())
	defer p.Stop()

	st := waitForPhase(t, p.Store(), poller.PhaseReady)
	assert.Equal(t, 42, st.Data)
	assert.Equal(t, uint64(1), st.Cycle)
	assert.NotEmpty(t, st.CycleID)
	assert.NoError(t, st.Err)
}

func TestPoller_PollsOnInterval(t *testing.T) {
	var calls atomic.Int32
	p := poller.New(discardLogger(), "list", 10*time.Millisecond, func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	})

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		return p.Store().Get().Cycle >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPoller_ErrorThenRetry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	p := poller.New(discardLogger(), "dashboard", time.Hour, func(ctx context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("connection refused")
		}
		return "roster", nil
	})

	p.Start(context.Background())
	defer p.Stop()

	st := waitForPhase(t, p.Store(), poller.PhaseError)
	require.Error(t, st.Err)
	assert.Empty(t, st.Data)

	fail.Store(false)
	require.NoError(t, p.Refresh())

	st = waitForPhase(t, p.Store(), poller.PhaseReady)
	assert.Equal(t, "roster", st.Data)
	assert.NoError(t, st.Err)
}

func TestPoller_ErrorCycleGoesThroughLoading(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	release := make(chan struct{})

	p := poller.New(discardLogger(), "dashboard", time.Hour, func(ctx context.Context) (int, error) {
		if fail.Load() {
			return 0, errors.New("boom")
		}
		<-release
		return 1, nil
	})

	p.Start(context.Background())
	defer p.Stop()

	waitForPhase(t, p.Store(), poller.PhaseError)

	fail.Store(false)
	require.NoError(t, p.Refresh())

	st := waitForPhase(t, p.Store(), poller.PhaseLoading)
	assert.NoError(t, st.Err)

	close(release)
	waitForPhase(t, p.Store(), poller.PhaseReady)
}

func TestPoller_StopHaltsFetching(t *testing.T) {
	var calls atomic.Int32
	p := poller.New(discardLogger(), "list", 5*time.Millisecond, func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
	assert.ErrorIs(t, p.Refresh(), poller.ErrStopped)
}

func TestPoller_CancelledCycleIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	p := poller.New(discardLogger(), "detail", time.Hour, func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "late", nil
	})

	p.Start(context.Background())
	<-started
	p.Stop()

	st := p.Store().Get()
	assert.Equal(t, poller.PhaseLoading, st.Phase)
	assert.Empty(t, st.Data)
	assert.Zero(t, st.Cycle)
}

func TestPoller_ParentContextStopsLoop(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	p := poller.New(discardLogger(), "analytics", 5*time.Millisecond, func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})
	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, time.Millisecond)
	cancel()

	time.Sleep(20 * time.Millisecond)
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestKeyed_ActivateSwitchesKey(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	k := poller.NewKeyed(discardLogger(), "detail", 5*time.Millisecond, func(ctx context.Context, key string) (string, error) {
		mu.Lock()
		seen[key]++
		mu.Unlock()
		return "patient " + key, nil
	})

	first := k.Activate(context.Background(), "P001")
	st := waitForPhase(t, first.Store(), poller.PhaseReady)
	assert.Equal(t, "patient P001", st.Data)

	oldUpdates, _ := first.Store().Subscribe()

	second := k.Activate(context.Background(), "P002")
	assert.False(t, first.Running())

	st = waitForPhase(t, second.Store(), poller.PhaseReady)
	assert.Equal(t, "patient P002", st.Data)

	assert.True(t, second.Running())

	// the old store is closed once the key changes
	for range oldUpdates {
	}

	mu.Lock()
	before := seen["P001"]
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, before, seen["P001"])
	mu.Unlock()

	k.Deactivate()
	assert.False(t, second.Running())
}

func TestStore_SubscribersSeeLatestState(t *testing.T) {
	p := poller.New(discardLogger(), "list", 2*time.Millisecond, func(ctx context.Context) (int, error) {
		return 7, nil
	})

	updates, cancel := p.Store().Subscribe()

	first := <-updates
	assert.Equal(t, poller.PhaseLoading, first.Phase)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return p.Store().Get().Cycle >= 5 }, 2*time.Second, time.Millisecond)
	p.Stop()

	var last poller.State[int]
	require.Eventually(t, func() bool {
		select {
		case last = <-updates:
		default:
		}
		return last.Cycle == p.Store().Get().Cycle
	}, time.Second, time.Millisecond)
	assert.Equal(t, 7, last.Data)

	cancel()
	_, ok := <-updates
	assert.False(t, ok)
	cancel()
}
