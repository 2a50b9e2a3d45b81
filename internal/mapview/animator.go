package mapview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
)

// Leg outcome labels reported to the LegObserver.
const (
	LegCompleted = "completed"
	LegSkipped   = "skipped"
	LegCancelled = "cancelled"
)

const routeSampleStep = 0.05

// LegObserver receives the outcome of every animated leg.
type LegObserver interface {
	ObserveLeg(status string)
}

// Leg is one transition between two locations. It lives from the start of the
// leg until its phase ends or the animation is cancelled.
type Leg struct {
	Start    orb.Point
	End      orb.Point
	Color    string
	Mode     Mode
	Progress float64 // Progress never decreases within a leg.
}

type routeTrack struct {
	travelled []orb.Point
	current   *Leg
	position  orb.Point
	bearing   float64
}

// Animator draws legs and sequences of legs onto a Surface.
type Animator struct {
	proj     Projection
	surface  Surface
	clock    clockwork.Clock
	log      *slog.Logger
	observer LegObserver
	frame    time.Duration

	mu      sync.Mutex
	arcs    []*Leg
	route   routeTrack
	cancels map[uint64]context.CancelFunc
	nextID  uint64

	renderMu    sync.Mutex
	unsubscribe func()
}

// Option configures an Animator.
type Option func(*Animator)

// WithClock replaces the real clock, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(a *Animator) { a.clock = clock }
}

// WithLogger sets the animator's logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Animator) { a.log = log }
}

// WithFrameInterval sets the period between rendered frames.
func WithFrameInterval(d time.Duration) Option {
	return func(a *Animator) { a.frame = d }
}

// WithObserver reports leg outcomes, typically to metrics.
func WithObserver(o LegObserver) Option {
	return func(a *Animator) { a.observer = o }
}

// NewAnimator creates an animator drawing on surface through proj. It redraws
// whenever the view changes so arcs follow user pans and zooms.
func NewAnimator(proj Projection, surface Surface, opts ...Option) *Animator {
	a := &Animator{
		proj:    proj,
		surface: surface,
		clock:   clockwork.NewRealClock(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		frame:   DefaultFrameInterval,
		cancels: make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.unsubscribe = proj.OnViewChange(a.redraw)
	return a
}

// Close detaches the animator from view-change notifications and cancels it.
func (a *Animator) Close() {
	a.unsubscribe()
	a.Cancel()
}

// AnimateLeg drives one leg from start to end over style.Duration and returns
// once progress reaches 1. Malformed coordinates fail fast with
// models.ErrInvalidCoordinates and nothing is drawn.
func (a *Animator) AnimateLeg(ctx context.Context, start, end models.Coordinates, style Style) error {
	from, err := start.Point()
	if err != nil {
		return fmt.Errorf("invalid leg start: %w", err)
	}
	to, err := end.Point()
	if err != nil {
		return fmt.Errorf("invalid leg end: %w", err)
	}

	ctx, done := a.track(ctx)
	defer done()
	if err = ctx.Err(); err != nil {
		a.observe(LegCancelled)
		return err
	}

	leg := &Leg{Start: from, End: to, Color: style.Color, Mode: style.Mode}
	a.mu.Lock()
	// Cancel may have run since the first check.
	if err = ctx.Err(); err != nil {
		a.mu.Unlock()
		a.observe(LegCancelled)
		return err
	}
	if style.Mode == ModeRoute {
		if len(a.route.travelled) == 0 {
			a.route.travelled = append(a.route.travelled, from)
		}
		a.route.current = leg
		a.route.position = from
		a.route.bearing = Bearing(from, to)
	} else {
		a.arcs = append(a.arcs, leg)
	}
	a.mu.Unlock()

	begin := a.clock.Now()
	for {
		select {
		case <-ctx.Done():
			a.observe(LegCancelled)
			return ctx.Err()
		case <-a.clock.After(a.frame):
		}
		if err = ctx.Err(); err != nil {
			a.observe(LegCancelled)
			return err
		}

		raw := 1.0
		if style.Duration > 0 {
			raw = clamp01(float64(a.clock.Since(begin)) / float64(style.Duration))
		}
		eased := style.ease(raw)

		var follow *orb.Point
		a.mu.Lock()
		if eased > leg.Progress {
			leg.Progress = eased
		}
		if style.Mode == ModeRoute && a.route.current == leg {
			pos := Interpolate(from, to, leg.Progress)
			a.route.position = pos
			if leg.Progress < 1 {
				a.route.bearing = Bearing(pos, to)
			}
			if raw >= style.FollowFrom && raw <= style.FollowTo {
				follow = &pos
			}
		}
		a.mu.Unlock()

		if follow != nil {
			if err = a.proj.PanTo(ctx, *follow, PanOptions{}); err != nil && !errors.Is(err, context.Canceled) {
				a.log.DebugContext(ctx, "Follow pan failed", "error", err)
			}
		}
		a.render()

		if raw >= 1 {
			if style.Mode == ModeRoute {
				a.mu.Lock()
				if a.route.current == leg {
					a.route.travelled = append(a.route.travelled, legSamples(from, to, 1)...)
					a.route.travelled = append(a.route.travelled, to)
				}
				a.mu.Unlock()
			}
			a.observe(LegCompleted)
			return nil
		}
	}
}

// AnimateSequence animates every consecutive pair of locations in order,
// pausing style.Pause after each leg and style.Tail after the last one.
// Sequences shorter than two locations complete immediately without drawing.
// A leg with malformed coordinates is skipped and the tour goes on.
func (a *Animator) AnimateSequence(ctx context.Context, locations []models.Location, style Style) error {
	if len(locations) < 2 {
		return nil
	}

	stops := locations
	if style.ClosedLoop {
		stops = make([]models.Location, 0, len(locations)+1)
		stops = append(stops, locations...)
		stops = append(stops, locations[0])
	}

	ctx, done := a.track(ctx)
	defer done()

	for i := 0; i < len(stops)-1; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		start, end := stops[i], stops[i+1]
		err := a.AnimateLeg(ctx, start.Coordinates, end.Coordinates, style)
		if errors.Is(err, models.ErrInvalidCoordinates) {
			a.log.WarnContext(ctx, "Skipping leg with malformed coordinates",
				"from", start.ID, "to", end.ID, "error", err)
			a.observe(LegSkipped)
			continue
		}
		if err != nil {
			return err
		}

		if err = a.wait(ctx, style.Pause); err != nil {
			return err
		}
	}

	return a.wait(ctx, style.Tail)
}

// Cancel stops every in-flight leg and sequence at the next frame boundary
// and clears the transient drawing immediately. Calling it again is a no-op.
func (a *Animator) Cancel() {
	a.mu.Lock()
	for id, cancel := range a.cancels {
		cancel()
		delete(a.cancels, id)
	}
	a.arcs = nil
	a.route = routeTrack{}
	a.mu.Unlock()

	a.renderMu.Lock()
	a.surface.Clear()
	a.surface.Flush()
	a.renderMu.Unlock()
}

// ResetTrack discards finished arcs and the travelled route, e.g. between phases.
func (a *Animator) ResetTrack() {
	a.mu.Lock()
	a.arcs = nil
	a.route = routeTrack{}
	a.mu.Unlock()
	a.render()
}

// Legs returns a copy of the legs currently on screen.
func (a *Animator) Legs() []Leg {
	a.mu.Lock()
	defer a.mu.Unlock()

	legs := make([]Leg, 0, len(a.arcs)+1)
	for _, leg := range a.arcs {
		legs = append(legs, *leg)
	}
	if a.route.current != nil {
		legs = append(legs, *a.route.current)
	}
	return legs
}

func (a *Animator) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.cancels[id] = cancel
	a.mu.Unlock()

	return ctx, func() {
		a.mu.Lock()
		delete(a.cancels, id)
		a.mu.Unlock()
		cancel()
	}
}

func (a *Animator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.clock.After(d):
		return ctx.Err()
	}
}

func (a *Animator) observe(status string) {
	if a.observer != nil {
		a.observer.ObserveLeg(status)
	}
}

func (a *Animator) redraw() {
	a.mu.Lock()
	active := len(a.arcs) > 0 || a.route.current != nil
	a.mu.Unlock()
	if active {
		a.render()
	}
}

type drawOp func(Surface)

// render re-projects every active leg and repaints the surface. When the view
// is not ready the frame is dropped and the previous drawing stays.
func (a *Animator) render() {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	a.mu.Lock()
	arcs := make([]Leg, 0, len(a.arcs))
	for _, leg := range a.arcs {
		arcs = append(arcs, *leg)
	}
	route := a.route
	var current *Leg
	if route.current != nil {
		leg := *route.current
		current = &leg
	}
	route.travelled = append([]orb.Point(nil), route.travelled...)
	a.mu.Unlock()

	ops := make([]drawOp, 0, 2*len(arcs)+2)
	for _, leg := range arcs {
		legOps, err := a.arcOps(leg)
		if err != nil {
			return
		}
		ops = append(ops, legOps...)
	}
	if current != nil {
		routeOps, err := a.routeOps(route, *current)
		if err != nil {
			return
		}
		ops = append(ops, routeOps...)
	}

	a.surface.Clear()
	for _, op := range ops {
		op(a.surface)
	}
	a.surface.Flush()
}

func (a *Animator) arcOps(leg Leg) ([]drawOp, error) {
	p0, err := a.proj.Project(leg.Start)
	if err != nil {
		return nil, err
	}
	p2, err := a.proj.Project(leg.End)
	if err != nil {
		return nil, err
	}
	p1 := ArcControlPoint(p0, p2)

	stroke := arcStroke
	stroke.Color = leg.Color
	points := SampleArc(p0, p1, p2, leg.Progress)
	ops := []drawOp{func(s Surface) { s.Polyline(points, stroke) }}

	if leg.Progress > 0 {
		tip := QuadraticBezier(p0, p1, p2, leg.Progress)
		ops = append(ops, func(s Surface) { s.Dot(tip, tipRadius, TipColor) })
	}
	return ops, nil
}

func (a *Animator) routeOps(route routeTrack, current Leg) ([]drawOp, error) {
	geoPath := make([]orb.Point, 0, len(route.travelled)+int(1/routeSampleStep)+1)
	geoPath = append(geoPath, route.travelled...)
	geoPath = append(geoPath, legSamples(current.Start, current.End, current.Progress)...)
	geoPath = append(geoPath, route.position)

	stroke := routeStroke
	stroke.Color = current.Color
	ops := make([]drawOp, 0, 2)
	var marker ScreenPoint
	for _, segment := range SplitAntimeridian(geoPath) {
		path := make([]ScreenPoint, 0, len(segment))
		for _, p := range segment {
			sp, err := a.proj.Project(p)
			if err != nil {
				return nil, err
			}
			path = append(path, sp)
		}
		marker = path[len(path)-1]
		if len(path) > 1 {
			ops = append(ops, func(s Surface) { s.Polyline(path, stroke) })
		}
	}

	bearing := route.bearing
	return append(ops, func(s Surface) { s.Heading(marker, bearing, current.Color) }), nil
}

// legSamples returns the great-circle points of a leg at every routeSampleStep
// strictly below upto.
func legSamples(from, to orb.Point, upto float64) []orb.Point {
	var samples []orb.Point
	for t := routeSampleStep; t < upto; t += routeSampleStep {
		samples = append(samples, Interpolate(from, to, t))
	}
	return samples
}
