package mapview_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
)

type surfaceOp struct {
	kind   string
	points []mapview.ScreenPoint
	color  string
}

// recordingSurface keeps every draw call in order.
type recordingSurface struct {
	mu  sync.Mutex
	ops []surfaceOp

	onFlush func() // set before drawing starts
}

func (s *recordingSurface) Clear() { s.record(surfaceOp{kind: "clear"}) }

func (s *recordingSurface) Flush() {
	s.record(surfaceOp{kind: "flush"})
	if s.onFlush != nil {
		s.onFlush()
	}
}

func (s *recordingSurface) Polyline(points []mapview.ScreenPoint, stroke mapview.Stroke) {
	s.record(surfaceOp{kind: "polyline", points: append([]mapview.ScreenPoint(nil), points...), color: stroke.Color})
}

func (s *recordingSurface) Dot(at mapview.ScreenPoint, _ float64, color string) {
	s.record(surfaceOp{kind: "dot", points: []mapview.ScreenPoint{at}, color: color})
}

func (s *recordingSurface) Heading(at mapview.ScreenPoint, _ float64, color string) {
	s.record(surfaceOp{kind: "heading", points: []mapview.ScreenPoint{at}, color: color})
}

func (s *recordingSurface) record(op surfaceOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *recordingSurface) snapshot() []surfaceOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]surfaceOp(nil), s.ops...)
}

func (s *recordingSurface) count(kind string) int {
	n := 0
	for _, op := range s.snapshot() {
		if op.kind == kind {
			n++
		}
	}
	return n
}

// lastFrame returns the draw calls between the last clear and flush.
func (s *recordingSurface) lastFrame() []surfaceOp {
	ops := s.snapshot()
	end := len(ops)
	if end > 0 && ops[end-1].kind == "flush" {
		end--
	}
	for i := end - 1; i >= 0; i-- {
		if ops[i].kind == "clear" {
			return ops[i+1 : end]
		}
	}
	return nil
}

func (s *recordingSurface) last() surfaceOp {
	ops := s.snapshot()
	if len(ops) == 0 {
		return surfaceOp{}
	}
	return ops[len(ops)-1]
}

type legRecorder struct {
	mu       sync.Mutex
	statuses []string
	onLeg    func(status string)
}

func (r *legRecorder) ObserveLeg(status string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	fn := r.onLeg
	r.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}

func (r *legRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// panRecorder is a Viewport that remembers when each PanTo was requested.
type panRecorder struct {
	*mapview.Viewport
	clock clockwork.Clock

	mu   sync.Mutex
	pans []time.Time
}

func (p *panRecorder) PanTo(ctx context.Context, target orb.Point, opts mapview.PanOptions) error {
	p.mu.Lock()
	p.pans = append(p.pans, p.clock.Now())
	p.mu.Unlock()
	return p.Viewport.PanTo(ctx, target, opts)
}

func (p *panRecorder) since(begin time.Time) []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []time.Duration
	for _, at := range p.pans {
		if !at.Before(begin) {
			out = append(out, at.Sub(begin))
		}
	}
	return out
}

const testFrame = 100 * time.Millisecond

func newTestViewport(clock clockwork.Clock) *mapview.Viewport {
	vp := mapview.NewViewport(mapview.ViewportConfig{
		Home:          orb.Point{0, 0},
		MinZoom:       0,
		MaxZoom:       5,
		Aspect:        1,
		FrameInterval: testFrame,
		Clock:         clock,
	})
	vp.Resize(360, 180)
	return vp
}

// runWithClock runs fn in a goroutine and advances the fake clock one step
// whenever something waits on it, until fn returns.
func runWithClock(t *testing.T, clock *clockwork.FakeClock, step time.Duration, fn func() error) error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("timed out driving the fake clock")
			return nil
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		if clock.BlockUntilContext(ctx, 1) == nil {
			clock.Advance(step)
		}
		cancel()
	}
}

func location(id, country, city string, lon, lat float64) models.Location {
	return models.Location{
		ID:          id,
		Kind:        models.KindOffice,
		Name:        id,
		City:        city,
		Country:     country,
		Coordinates: models.NewCoordinates(lon, lat),
	}
}
