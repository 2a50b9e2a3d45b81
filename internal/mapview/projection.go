package mapview

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
)

// ErrViewNotReady is returned by Project while the container has no size yet.
var ErrViewNotReady = errors.New("map view is not ready")

// DefaultFrameInterval is the frame period used for animated view transitions and legs.
const DefaultFrameInterval = 16 * time.Millisecond

// PanOptions controls a programmatic pan. A zero Duration jumps immediately.
type PanOptions struct {
	Duration time.Duration
}

// FitOptions controls FitBounds.
type FitOptions struct {
	Padding  float64 // Padding in container units kept free on every side.
	MaxZoom  float64 // MaxZoom caps the resulting zoom; zero means the view maximum.
	Duration time.Duration
}

// Projection converts geographic coordinates to container coordinates and
// moves the view. Screen positions are only valid until the next view change.
type Projection interface {
	Project(p orb.Point) (ScreenPoint, error)
	PanTo(ctx context.Context, p orb.Point, opts PanOptions) error
	FitBounds(ctx context.Context, points []orb.Point, opts FitOptions) error
	OnViewChange(fn func()) (unsubscribe func())
	OnSettle(fn func()) (unsubscribe func())
}

// ViewportConfig configures a Viewport.
type ViewportConfig struct {
	Home          orb.Point // Home is the initial and "go home" center.
	HomeZoom      float64
	MinZoom       float64
	MaxZoom       float64
	Aspect        float64 // Aspect scales the vertical axis (0.5 for terminal cells).
	FrameInterval time.Duration
	Clock         clockwork.Clock
}

// Viewport is an equirectangular world projection with pan and zoom.
// At zoom 0 the full 360 degrees of longitude span the container width.
type Viewport struct {
	mu     sync.RWMutex
	width  float64
	height float64
	center orb.Point
	zoom   float64

	cfg ViewportConfig

	listenersMu sync.Mutex
	nextID      int
	onChange    map[int]func()
	onSettle    map[int]func()
}

// NewViewport creates a viewport centered on cfg.Home. It reports ErrViewNotReady
// until Resize gives it a non-empty container.
func NewViewport(cfg ViewportConfig) *Viewport {
	if cfg.Aspect <= 0 {
		cfg.Aspect = 1
	}
	if cfg.MaxZoom < cfg.MinZoom {
		cfg.MaxZoom = cfg.MinZoom
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	vp := &Viewport{
		cfg:      cfg,
		onChange: make(map[int]func()),
		onSettle: make(map[int]func()),
	}
	vp.center = cfg.Home
	vp.zoom = vp.clampZoom(cfg.HomeZoom)
	return vp
}

// Resize sets the container size and notifies view-change listeners.
func (v *Viewport) Resize(width, height float64) {
	v.mu.Lock()
	v.width, v.height = width, height
	v.mu.Unlock()
	v.notify(v.changeListeners())
}

// Size returns the container size.
func (v *Viewport) Size() (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width, v.height
}

// Center returns the current view center and zoom.
func (v *Viewport) Center() (orb.Point, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.center, v.zoom
}

// Project converts a lon/lat point into container coordinates.
func (v *Viewport) Project(p orb.Point) (ScreenPoint, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.width <= 0 || v.height <= 0 {
		return ScreenPoint{}, ErrViewNotReady
	}
	scale := v.scale(v.zoom)
	return ScreenPoint{
		X: v.width/2 + (p.Lon()-v.center.Lon())*scale,
		Y: v.height/2 - (p.Lat()-v.center.Lat())*scale*v.cfg.Aspect,
	}, nil
}

// Unproject converts container coordinates back into a lon/lat point.
func (v *Viewport) Unproject(sp ScreenPoint) (orb.Point, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.width <= 0 || v.height <= 0 {
		return orb.Point{}, ErrViewNotReady
	}
	scale := v.scale(v.zoom)
	return orb.Point{
		v.center.Lon() + (sp.X-v.width/2)/scale,
		v.center.Lat() - (sp.Y-v.height/2)/(scale*v.cfg.Aspect),
	}, nil
}

// SetView moves the view immediately, as a user pan or zoom does. Settle
// listeners are not notified.
func (v *Viewport) SetView(center orb.Point, zoom float64) {
	v.mu.Lock()
	v.center = clampPoint(center)
	v.zoom = v.clampZoom(zoom)
	v.mu.Unlock()
	v.notify(v.changeListeners())
}

// ZoomBy changes the zoom level by delta around the current center.
func (v *Viewport) ZoomBy(delta float64) {
	center, zoom := v.Center()
	v.SetView(center, zoom+delta)
}

// Home animates the view back to its configured home position.
func (v *Viewport) Home(ctx context.Context, duration time.Duration) error {
	return v.flyTo(ctx, v.cfg.Home, v.cfg.HomeZoom, duration)
}

// PanTo moves the view center to p keeping the zoom. Once the move is done
// the settle listeners fire and PanTo returns.
func (v *Viewport) PanTo(ctx context.Context, p orb.Point, opts PanOptions) error {
	_, zoom := v.Center()
	return v.flyTo(ctx, p, zoom, opts.Duration)
}

// FitBounds centers the view on the bounding box of points and picks the
// largest zoom at which the whole box fits inside the padded container.
func (v *Viewport) FitBounds(ctx context.Context, points []orb.Point, opts FitOptions) error {
	if len(points) == 0 {
		return nil
	}

	bound := orb.MultiPoint(points).Bound()
	maxZoom := v.cfg.MaxZoom
	if opts.MaxZoom > 0 && opts.MaxZoom < maxZoom {
		maxZoom = opts.MaxZoom
	}

	width, height := v.Size()
	if width <= 0 || height <= 0 {
		return ErrViewNotReady
	}

	zoom := maxZoom
	availW := math.Max(width-2*opts.Padding, 1)
	availH := math.Max(height-2*opts.Padding, 1)
	base := width / 360
	spanLon, spanLat := bound.Max.Lon()-bound.Min.Lon(), bound.Max.Lat()-bound.Min.Lat()
	if spanLon > 0 {
		zoom = math.Min(zoom, math.Log2(availW/(spanLon*base)))
	}
	if spanLat > 0 {
		zoom = math.Min(zoom, math.Log2(availH/(spanLat*base*v.cfg.Aspect)))
	}

	return v.flyTo(ctx, bound.Center(), zoom, opts.Duration)
}

// OnViewChange registers fn to be called after every pan, zoom or resize.
func (v *Viewport) OnViewChange(fn func()) func() {
	return v.register(v.onChange, fn)
}

// OnSettle registers fn to be called when a programmatic transition completes.
func (v *Viewport) OnSettle(fn func()) func() {
	return v.register(v.onSettle, fn)
}

func (v *Viewport) flyTo(ctx context.Context, target orb.Point, zoom float64, duration time.Duration) error {
	target = clampPoint(target)
	zoom = v.clampZoom(zoom)

	if duration > 0 {
		startCenter, startZoom := v.Center()
		clock := v.cfg.Clock
		begin := clock.Now()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(v.cfg.FrameInterval):
			}

			t := EaseInOutCubic(float64(clock.Since(begin)) / float64(duration))
			if t >= 1 {
				break
			}
			v.mu.Lock()
			v.center = orb.Point{
				lerp(startCenter.Lon(), target.Lon(), t),
				lerp(startCenter.Lat(), target.Lat(), t),
			}
			v.zoom = lerp(startZoom, zoom, t)
			v.mu.Unlock()
			v.notify(v.changeListeners())
		}
	}

	v.mu.Lock()
	v.center = target
	v.zoom = zoom
	v.mu.Unlock()
	v.notify(v.changeListeners())
	v.notify(v.settleListeners())
	return nil
}

func (v *Viewport) scale(zoom float64) float64 {
	return v.width / 360 * math.Pow(2, zoom)
}

func (v *Viewport) clampZoom(zoom float64) float64 {
	return math.Max(v.cfg.MinZoom, math.Min(v.cfg.MaxZoom, zoom))
}

func (v *Viewport) register(set map[int]func(), fn func()) func() {
	v.listenersMu.Lock()
	defer v.listenersMu.Unlock()

	id := v.nextID
	v.nextID++
	set[id] = fn
	return func() {
		v.listenersMu.Lock()
		defer v.listenersMu.Unlock()
		delete(set, id)
	}
}

func (v *Viewport) changeListeners() []func() {
	return v.snapshot(v.onChange)
}

func (v *Viewport) settleListeners() []func() {
	return v.snapshot(v.onSettle)
}

func (v *Viewport) snapshot(set map[int]func()) []func() {
	v.listenersMu.Lock()
	defer v.listenersMu.Unlock()

	fns := make([]func(), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	return fns
}

func (v *Viewport) notify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func clampPoint(p orb.Point) orb.Point {
	return orb.Point{
		math.Max(-180, math.Min(180, p.Lon())),
		math.Max(-90, math.Min(90, p.Lat())),
	}
}
