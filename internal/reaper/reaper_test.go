package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePurger lets each test script cycle outcomes and observe calls.
type fakePurger struct {
	mu      sync.Mutex
	calls   int
	results []func() (int64, error)
	called  chan struct{}
}

func newFakePurger(buffer int) *fakePurger {
	return &fakePurger{called: make(chan struct{}, buffer)}
}

func (f *fakePurger) PurgeExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	select {
	case f.called <- struct{}{}:
	default:
	}

	if idx < len(f.results) {
		return f.results[idx]()
	}
	return 0, nil
}

func (f *fakePurger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitForCalls(t *testing.T, p *fakePurger, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-p.called:
		case <-deadline:
			t.Fatalf("timed out waiting for purge call %d of %d", i+1, n)
		}
	}
}

func TestReaper_RunsImmediatelyAndOnSchedule(t *testing.T) {
	purger := newFakePurger(16)
	r := New(purger, 10*time.Millisecond, nil)

	r.Start()
	defer r.Stop()

	waitForCalls(t, purger, 3)
	assert.GreaterOrEqual(t, purger.callCount(), 3)
}

func TestReaper_FailedCycleDoesNotStopSchedule(t *testing.T) {
	purger := newFakePurger(16)
	purger.results = []func() (int64, error){
		func() (int64, error) { return 0, errors.New("store unavailable") },
		func() (int64, error) { return 2, nil },
	}
	r := New(purger, 10*time.Millisecond, nil)

	r.Start()
	defer r.Stop()

	// The first cycle fails; later cycles must still run.
	waitForCalls(t, purger, 2)
	assert.GreaterOrEqual(t, purger.callCount(), 2)
}

func TestReaper_StopHaltsSchedule(t *testing.T) {
	purger := newFakePurger(16)
	r := New(purger, 5*time.Millisecond, nil)

	r.Start()
	waitForCalls(t, purger, 1)
	r.Stop()

	calls := purger.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, purger.callCount(), "no cycles may run after Stop")
}

func TestReaper_StopBeforeStartIsNoop(t *testing.T) {
	r := New(newFakePurger(1), time.Minute, nil)
	r.Stop()
}

func TestReaper_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	purger := newFakePurger(16)
	purger.results = []func() (int64, error){
		func() (int64, error) { return 3, nil },
		func() (int64, error) { return 0, errors.New("store unavailable") },
	}
	r := New(purger, 10*time.Millisecond, metrics)

	r.Start()
	waitForCalls(t, purger, 2)
	r.Stop()

	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.cycles.WithLabelValues("success")), 1.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cycles.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.reaped))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
