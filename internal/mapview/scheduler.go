package mapview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultIdleDelay is the inactivity period before the ambient animation starts.
const DefaultIdleDelay = 5 * time.Second

// State is the IdleScheduler state.
type State int32

const (
	// StateIdleCountdown waits for the idle timer while the user may interact.
	StateIdleCountdown State = iota
	// StateAnimating runs the ambient loop.
	StateAnimating
	// StateSuspended is held while the scheduler takes the surface back from
	// the animator after user input.
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateIdleCountdown:
		return "idle_countdown"
	case StateAnimating:
		return "animating"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// InputKind identifies the user input that resets the idle countdown.
type InputKind int

const (
	InputPointerDown InputKind = iota
	InputPointerMove
	InputKey
	InputScroll
	InputTouch
	InputClick
)

// Runner is the loop run while animating. It must return once ctx is done.
type Runner interface {
	Run(ctx context.Context) error
}

// Canceler stops and clears any in-flight drawing.
type Canceler interface {
	Cancel()
}

// TransitionObserver is told about every state change.
type TransitionObserver interface {
	ObserveTransition(from, to State)
}

type commandKind int

const (
	cmdInput commandKind = iota
	cmdTrigger
	cmdStop
)

type command struct {
	kind    commandKind
	handled chan struct{}
}

// SchedulerConfig configures an IdleScheduler.
type SchedulerConfig struct {
	Delay    time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Observer TransitionObserver
}

// IdleScheduler starts the ambient loop after a period without input and
// suspends it on any input. All transitions happen on the goroutine running Run.
type IdleScheduler struct {
	loop     Runner
	animator Canceler
	cfg      SchedulerConfig

	state    atomic.Int32
	commands chan command
	disposed chan struct{}
	once     sync.Once
}

// NewIdleScheduler creates a scheduler in StateIdleCountdown. Nothing happens
// until Run is called.
func NewIdleScheduler(loop Runner, animator Canceler, cfg SchedulerConfig) *IdleScheduler {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultIdleDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &IdleScheduler{
		loop:     loop,
		animator: animator,
		cfg:      cfg,
		commands: make(chan command),
		disposed: make(chan struct{}),
	}
}

// State returns the current state.
func (s *IdleScheduler) State() State {
	return State(s.state.Load())
}

// Input reports a qualifying user input event. It returns once the event has
// been handled, so a running animation is already cancelled by then.
func (s *IdleScheduler) Input(InputKind) {
	s.send(cmdInput)
}

// Trigger starts the ambient animation now, skipping the idle wait. Triggering
// while animating does nothing.
func (s *IdleScheduler) Trigger() {
	s.send(cmdTrigger)
}

// Stop cancels a running animation and restarts the idle countdown.
func (s *IdleScheduler) Stop() {
	s.send(cmdStop)
}

// Dispose stops Run, cancelling timers and animations. It is safe to call more than once.
func (s *IdleScheduler) Dispose() {
	s.once.Do(func() { close(s.disposed) })
}

func (s *IdleScheduler) send(kind commandKind) {
	cmd := command{kind: kind, handled: make(chan struct{})}
	select {
	case s.commands <- cmd:
	case <-s.disposed:
		return
	}
	select {
	case <-cmd.handled:
	case <-s.disposed:
	}
}

// Run processes timer and input events until ctx is done or Dispose is called.
func (s *IdleScheduler) Run(ctx context.Context) error {
	defer s.Dispose()

	timer := s.cfg.Clock.NewTimer(s.cfg.Delay)
	defer timer.Stop()

	var (
		cancelLoop context.CancelFunc
		loopDone   chan error
	)

	start := func() {
		loopCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		cancelLoop, loopDone = cancel, done
		s.transition(ctx, StateAnimating)
		go func() { done <- s.loop.Run(loopCtx) }()
	}

	suspend := func() {
		if cancelLoop == nil {
			return
		}
		s.transition(ctx, StateSuspended)
		cancelLoop()
		s.animator.Cancel()
		if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
			s.cfg.Logger.WarnContext(ctx, "Ambient loop stopped with error", "error", err)
		}
		cancelLoop, loopDone = nil, nil
	}

	restartCountdown := func() {
		if !timer.Stop() {
			select {
			case <-timer.Chan():
			default:
			}
		}
		timer.Reset(s.cfg.Delay)
		s.transition(ctx, StateIdleCountdown)
	}

	for {
		select {
		case <-ctx.Done():
			suspend()
			return ctx.Err()

		case <-s.disposed:
			suspend()
			return nil

		case <-timer.Chan():
			if cancelLoop == nil {
				s.cfg.Logger.DebugContext(ctx, "Idle delay elapsed, starting ambient animation")
				start()
			}

		case err := <-loopDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.cfg.Logger.WarnContext(ctx, "Ambient loop failed", "error", err)
			}
			cancelLoop()
			cancelLoop, loopDone = nil, nil
			s.animator.Cancel()
			restartCountdown()

		case cmd := <-s.commands:
			switch cmd.kind {
			case cmdInput, cmdStop:
				suspend()
				restartCountdown()
			case cmdTrigger:
				if cancelLoop == nil {
					timer.Stop()
					s.cfg.Logger.DebugContext(ctx, "Ambient animation triggered manually")
					start()
				}
			}
			close(cmd.handled)
		}
	}
}

func (s *IdleScheduler) transition(ctx context.Context, to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	s.cfg.Logger.DebugContext(ctx, "Idle scheduler transition", "from", from, "to", to)
	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveTransition(from, to)
	}
}
