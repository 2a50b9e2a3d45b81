package mapview_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRunner stands in for the ambient loop.
type blockingRunner struct {
	runs    atomic.Int32
	started chan struct{}
	finish  bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 16)}
}

func (r *blockingRunner) Run(ctx context.Context) error {
	r.runs.Add(1)
	r.started <- struct{}{}
	if r.finish {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

type countingCanceler struct {
	calls atomic.Int32
}

func (c *countingCanceler) Cancel() { c.calls.Add(1) }

type transitionLog struct {
	mu  sync.Mutex
	log []mapview.State
}

func (l *transitionLog) ObserveTransition(_, to mapview.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = append(l.log, to)
}

func (l *transitionLog) states() []mapview.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]mapview.State(nil), l.log...)
}

type schedulerFixture struct {
	clock     *clockwork.FakeClock
	runner    *blockingRunner
	canceler  *countingCanceler
	observer  *transitionLog
	scheduler *mapview.IdleScheduler
	done      chan error
	cancel    context.CancelFunc
}

const testIdleDelay = 5 * time.Second

func startScheduler(t *testing.T, runner *blockingRunner) *schedulerFixture {
	t.Helper()

	f := &schedulerFixture{
		clock:    clockwork.NewFakeClock(),
		runner:   runner,
		canceler: &countingCanceler{},
		observer: &transitionLog{},
		done:     make(chan error, 1),
	}
	f.scheduler = mapview.NewIdleScheduler(runner, f.canceler, mapview.SchedulerConfig{
		Delay:    testIdleDelay,
		Clock:    f.clock,
		Observer: f.observer,
	})

	var ctx context.Context
	ctx, f.cancel = context.WithCancel(context.Background())
	go func() { f.done <- f.scheduler.Run(ctx) }()

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(waitCtx, 1), "idle timer was not armed")

	t.Cleanup(func() {
		f.scheduler.Dispose()
		f.cancel()
		<-f.done
	})
	return f
}

func (f *schedulerFixture) waitState(t *testing.T, state mapview.State) {
	t.Helper()
	require.Eventually(t, func() bool { return f.scheduler.State() == state }, 2*time.Second, time.Millisecond)
}

func (f *schedulerFixture) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-f.runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("ambient loop was not started")
	}
}

func TestIdleScheduler_StartsAfterIdleDelay(t *testing.T) {
	f := startScheduler(t, newBlockingRunner())
	assert.Equal(t, mapview.StateIdleCountdown, f.scheduler.State())

	f.clock.Advance(testIdleDelay)
	f.waitStarted(t)
	f.waitState(t, mapview.StateAnimating)

	f.clock.Advance(10 * testIdleDelay)
	assert.Never(t, func() bool { return f.runner.runs.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []mapview.State{mapview.StateAnimating}, f.observer.states())
}

func TestIdleScheduler_InputDebouncesCountdown(t *testing.T) {
	f := startScheduler(t, newBlockingRunner())

	f.clock.Advance(4 * time.Second)
	f.scheduler.Input(mapview.InputPointerMove)

	f.clock.Advance(4 * time.Second)
	assert.Never(t, func() bool { return f.scheduler.State() == mapview.StateAnimating },
		50*time.Millisecond, 5*time.Millisecond)

	f.clock.Advance(time.Second)
	f.waitStarted(t)
	f.waitState(t, mapview.StateAnimating)
}

func TestIdleScheduler_InputSuspendsAnimation(t *testing.T) {
	f := startScheduler(t, newBlockingRunner())

	f.clock.Advance(testIdleDelay)
	f.waitStarted(t)

	f.scheduler.Input(mapview.InputClick)
	assert.Equal(t, mapview.StateIdleCountdown, f.scheduler.State())

	assert.Equal(t, int32(1), f.canceler.calls.Load())
	assert.Equal(t, []mapview.State{
		mapview.StateAnimating,
		mapview.StateSuspended,
		mapview.StateIdleCountdown,
	}, f.observer.states())

	f.clock.Advance(testIdleDelay)
	f.waitStarted(t)
	assert.Equal(t, int32(2), f.runner.runs.Load())
}

func TestIdleScheduler_TriggerAndStop(t *testing.T) {
	f := startScheduler(t, newBlockingRunner())

	f.scheduler.Trigger()
	f.waitStarted(t)
	f.waitState(t, mapview.StateAnimating)

	f.scheduler.Trigger()
	assert.Equal(t, int32(1), f.runner.runs.Load())

	f.scheduler.Stop()
	assert.Equal(t, mapview.StateIdleCountdown, f.scheduler.State())
	assert.Equal(t, int32(1), f.canceler.calls.Load())
}

func TestIdleScheduler_LoopEndingReturnsToCountdown(t *testing.T) {
	runner := newBlockingRunner()
	runner.finish = true
	f := startScheduler(t, runner)

	f.scheduler.Trigger()
	f.waitStarted(t)
	require.Eventually(t, func() bool { return len(f.observer.states()) == 2 }, 2*time.Second, time.Millisecond)

	assert.Equal(t, []mapview.State{mapview.StateAnimating, mapview.StateIdleCountdown}, f.observer.states())
	assert.Equal(t, mapview.StateIdleCountdown, f.scheduler.State())
}

func TestIdleScheduler_Dispose(t *testing.T) {
	f := startScheduler(t, newBlockingRunner())

	f.scheduler.Trigger()
	f.waitStarted(t)

	f.scheduler.Dispose()
	select {
	case err := <-f.done:
		require.NoError(t, err)
		f.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Dispose")
	}
	assert.Equal(t, int32(1), f.canceler.calls.Load())

	assert.NotPanics(t, func() {
		f.scheduler.Dispose()
		f.scheduler.Input(mapview.InputKey)
		f.scheduler.Trigger()
	})
}
