package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoller_FetchesImmediatelyAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	results := make(chan int32, 16)

	p := New("test", 10*time.Millisecond, func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}, func(v int32, err error) {
		assert.NoError(t, err)
		select {
		case results <- v:
		default:
		}
	})

	p.Start(context.Background())
	defer p.Stop()

	for want := int32(1); want <= 3; want++ {
		select {
		case got := <-results:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("no result %d", want)
		}
	}
}

func TestPoller_StopCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	var delivered atomic.Bool

	p := New("slow", time.Hour, func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}, func(string, error) {
		delivered.Store(true)
	})

	p.Start(context.Background())
	<-started

	p.Stop()
	assert.False(t, delivered.Load(), "cancelled fetches are not delivered")
}

func TestPoller_ParentContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetched := make(chan struct{}, 1)

	p := New("parent", time.Millisecond, func(context.Context) (int, error) {
		select {
		case fetched <- struct{}{}:
		default:
		}
		return 0, nil
	}, func(int, error) {})

	p.Start(ctx)
	<-fetched
	cancel()
	p.Stop()
}

func TestPoller_DeliversErrors(t *testing.T) {
	boom := errors.New("backend unavailable")
	errs := make(chan error, 1)

	p := New("errors", time.Hour, func(context.Context) ([]string, error) {
		return nil, boom
	}, func(_ []string, err error) {
		errs <- err
	})

	p.Start(context.Background())
	defer p.Stop()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("error not delivered")
	}
}

func TestPoller_NoOverlappingFetches(t *testing.T) {
	var active, maxActive atomic.Int32
	var mu sync.Mutex
	count := 0
	enough := make(chan struct{})

	p := New("overlap", time.Millisecond, func(context.Context) (int, error) {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	}, func(int, error) {
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == 5 {
			close(enough)
		}
	})

	p.Start(context.Background())
	select {
	case <-enough:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not tick")
	}
	p.Stop()

	require.Equal(t, int32(1), maxActive.Load())
}

func TestPoller_StartTwiceAndStopTwice(t *testing.T) {
	p := New("idempotent", 0, func(context.Context) (int, error) { return 0, nil }, func(int, error) {})
	assert.Equal(t, DefaultInterval, p.Interval())

	p.Start(context.Background())
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
