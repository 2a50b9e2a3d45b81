package mapview

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/jonboulle/clockwork"
)

// DefaultIdlePoll is how long the ambient loop sleeps when no phase can run.
const DefaultIdlePoll = 2000 * time.Millisecond

// LocationSource lists the locations of one kind in their stored order.
type LocationSource interface {
	List(kind models.Kind) []models.Location
}

// PhaseToggles reports whether a phase is enabled. It is read at the start of
// every loop iteration.
type PhaseToggles interface {
	Enabled(kind models.Kind) bool
}

// Phase is one pass over a category of locations.
type Phase struct {
	Kind  models.Kind
	Style Style
}

// AmbientConfig configures an AmbientLoop.
type AmbientConfig struct {
	Mode     Mode
	IdlePoll time.Duration
	// Prepare runs once before the first phase, e.g. to close panels and fly home.
	Prepare func(ctx context.Context) error
	Clock   clockwork.Clock
	Logger  *slog.Logger
}

// AmbientLoop is the body the IdleScheduler runs while animating. In arc mode it
// alternates the office and client phases; in route mode it flies the closed
// office circuit.
type AmbientLoop struct {
	animator *Animator
	source   LocationSource
	toggles  PhaseToggles
	phases   []Phase
	cfg      AmbientConfig
}

// NewAmbientLoop creates the ambient loop.
func NewAmbientLoop(animator *Animator, source LocationSource, toggles PhaseToggles, cfg AmbientConfig) *AmbientLoop {
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = DefaultIdlePoll
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	phases := []Phase{
		{Kind: models.KindOffice, Style: ArcStyle(OfficeColor)},
		{Kind: models.KindClient, Style: ArcStyle(ClientColor)},
	}
	if cfg.Mode == ModeRoute {
		phases = []Phase{{Kind: models.KindOffice, Style: RouteStyle(RouteColor)}}
	}

	return &AmbientLoop{
		animator: animator,
		source:   source,
		toggles:  toggles,
		phases:   phases,
		cfg:      cfg,
	}
}

// Run loops over the phases until ctx is cancelled. Phases never overlap:
// each one finishes, including its tail pause, before the next starts.
func (l *AmbientLoop) Run(ctx context.Context) error {
	if l.cfg.Prepare != nil {
		if err := l.cfg.Prepare(ctx); err != nil {
			return err
		}
	}

	for {
		ran := false
		for _, phase := range l.phases {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !l.toggles.Enabled(phase.Kind) {
				continue
			}

			tour := SortForTour(l.source.List(phase.Kind))
			if len(tour) < 2 {
				continue
			}
			ran = true

			l.cfg.Logger.DebugContext(ctx, "Starting ambient phase",
				"kind", phase.Kind, "mode", phase.Style.Mode, "stops", len(tour))
			if err := l.animator.AnimateSequence(ctx, tour, phase.Style); err != nil {
				return err
			}
			l.animator.ResetTrack()
		}

		if !ran {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.cfg.Clock.After(l.cfg.IdlePoll):
			}
		}
	}
}
