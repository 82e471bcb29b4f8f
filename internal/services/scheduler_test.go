package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string

	purgeErr   error
	passErr    error
	purgeDelay time.Duration

	running    int32
	maxRunning int32
	delay      time.Duration
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) PurgeExpired(context.Context) (int64, error) {
	r.record("purge")
	time.Sleep(r.purgeDelay)
	if r.purgeErr != nil {
		return 0, r.purgeErr
	}
	return 2, nil
}

func (r *recorder) PurgeFullySuppressed(context.Context) (int64, error) {
	r.record("suppressed")
	return 1, nil
}

func (r *recorder) RunGenerationPass(context.Context) (PassResult, error) {
	n := atomic.AddInt32(&r.running, 1)
	defer atomic.AddInt32(&r.running, -1)
	for {
		max := atomic.LoadInt32(&r.maxRunning)
		if n <= max || atomic.CompareAndSwapInt32(&r.maxRunning, max, n) {
			break
		}
	}
	time.Sleep(r.delay)

	r.record("generate")
	return PassResult{Deadlines: 1, Created: 1}, r.passErr
}

func TestTriggerPurgesBeforeGenerating(t *testing.T) {
	rec := &recorder{}
	s := NewAlertScheduler(rec, rec, time.Hour, time.Hour, func() time.Time { return base })

	result, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"purge", "generate"}, rec.Calls())
	assert.Equal(t, int64(2), result.Purged)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, base, result.StartedAt)
}

func TestTriggerAbortsWhenPurgeFails(t *testing.T) {
	rec := &recorder{purgeErr: errors.New("store down"), purgeDelay: 2 * time.Millisecond}
	s := NewAlertScheduler(rec, rec, time.Hour, time.Hour, nil)

	result, err := s.Trigger(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"purge"}, rec.Calls())
	assert.GreaterOrEqual(t, result.Duration, 2*time.Millisecond, "duration covers the failed purge")
}

func TestZeroIntervalsFallBackToDefaults(t *testing.T) {
	rec := &recorder{}
	s := NewAlertScheduler(rec, rec, 0, -time.Second, nil)

	assert.Equal(t, DefaultAlertInterval, s.alertInterval)
	assert.Equal(t, DefaultSuppressedPurgeInterval, s.suppressedInterval)

	ctx, cancel := context.WithCancel(context.Background())
	assert.NotPanics(t, func() { s.Start(ctx) })
	assert.Eventually(t, func() bool { return len(rec.Calls()) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}

func TestTriggerReportsPassError(t *testing.T) {
	rec := &recorder{passErr: errors.New("deadlines unavailable")}
	s := NewAlertScheduler(rec, rec, time.Hour, time.Hour, nil)

	_, err := s.Trigger(context.Background())
	assert.Error(t, err)
}

func TestTriggersNeverOverlap(t *testing.T) {
	rec := &recorder{delay: 5 * time.Millisecond}
	s := NewAlertScheduler(rec, rec, time.Hour, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Trigger(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&rec.maxRunning))
	assert.Len(t, rec.Calls(), 10)
}

func TestStartRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	s := NewAlertScheduler(rec, rec, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool {
		var cycle []string
		suppressed := false
		for _, c := range rec.Calls() {
			if c == "suppressed" {
				suppressed = true
				continue
			}
			cycle = append(cycle, c)
		}
		return suppressed && len(cycle) >= 2 && cycle[0] == "purge" && cycle[1] == "generate"
	}, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Contains(t, rec.Calls(), "suppressed")
}
