// Package tui renders the animated world map in a terminal with tcell and
// feeds user input to the idle scheduler.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/meridian/internal/locations"
	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
)

const (
	// HomeDuration is the fly-home transition run before the ambient loop and on 'h'.
	HomeDuration = 1500 * time.Millisecond
	// HitRadius is the click tolerance around a marker, in cells.
	HitRadius = 1.5

	statusRows  = 1
	eventBuffer = 32
	panStep     = 20.0
	maxZoom     = 6
)

// ImageSource fetches stored images for the gallery preview.
type ImageSource interface {
	Image(ctx context.Context, path string) ([]byte, error)
}

// Config wires an App. Metrics, Images, Clock and Logger are optional.
type Config struct {
	Store     *locations.Store
	Details   mapview.DetailSource
	Images    ImageSource
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     clockwork.Clock
	IdleDelay time.Duration
	Mode      mapview.Mode
	Home      orb.Point
}

// App is the terminal map view.
type App struct {
	screen tcell.Screen
	cfg    Config
	log    *slog.Logger

	view      *mapview.Viewport
	canvas    *Canvas
	animator  *mapview.Animator
	markers   *mapview.MarkerLayer
	panel     *mapview.InfoPanel
	inspector *mapview.Inspector
	scheduler *mapview.IdleScheduler

	redraw chan struct{}
	drawMu sync.Mutex
	wg     sync.WaitGroup

	mu       sync.Mutex
	status   string
	previews map[string]preview
	buttons  tcell.ButtonMask
}

// New builds the map view on an initialized screen.
func New(screen tcell.Screen, cfg Config) *App {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	app := &App{
		screen:   screen,
		cfg:      cfg,
		log:      cfg.Logger,
		redraw:   make(chan struct{}, 1),
		previews: map[string]preview{},
	}

	app.view = mapview.NewViewport(mapview.ViewportConfig{
		Home:     cfg.Home,
		HomeZoom: 0,
		MinZoom:  0,
		MaxZoom:  maxZoom,
		Aspect:   0.5,
		Clock:    cfg.Clock,
	})
	app.view.OnViewChange(app.requestRedraw)
	app.canvas = NewCanvas(app.requestRedraw)

	opts := []mapview.Option{mapview.WithClock(cfg.Clock), mapview.WithLogger(cfg.Logger)}
	if cfg.Metrics != nil {
		opts = append(opts, mapview.WithObserver(cfg.Metrics))
	}
	app.animator = mapview.NewAnimator(app.view, app.canvas, opts...)

	app.markers = mapview.NewMarkerLayer(cfg.Logger)
	app.panel = mapview.NewInfoPanel()
	app.inspector = mapview.NewInspector(app.view, cfg.Details, app.panel, cfg.Logger)

	loop := mapview.NewAmbientLoop(app.animator, cfg.Store, cfg.Store, mapview.AmbientConfig{
		Mode:    cfg.Mode,
		Prepare: app.prepare,
		Clock:   cfg.Clock,
		Logger:  cfg.Logger,
	})
	app.scheduler = mapview.NewIdleScheduler(loop, app.animator, mapview.SchedulerConfig{
		Delay:    cfg.IdleDelay,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
		Observer: app,
	})
	return app
}

// Panel returns the info panel.
func (a *App) Panel() *mapview.InfoPanel {
	return a.panel
}

// State returns the idle scheduler state.
func (a *App) State() mapview.State {
	return a.scheduler.State()
}

// Status returns the last status message.
func (a *App) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// ObserveTransition records scheduler state changes and refreshes the status bar.
func (a *App) ObserveTransition(from, to mapview.State) {
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.ObserveSchedulerState(to.String())
	}
	a.log.Debug("Scheduler transition", "from", from.String(), "to", to.String())
	a.requestRedraw()
}

// Run loads the locations and processes screen events until ctx is done or
// the user quits. The caller owns the screen and finalizes it afterwards.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		a.scheduler.Dispose()
		a.wg.Wait()
		a.animator.Close()
	}()

	a.resize()
	a.refresh(ctx)

	a.spawn(ctx, func(ctx context.Context) {
		if err := a.scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.ErrorContext(ctx, "Idle scheduler stopped", "error", err)
		}
	})

	events := make(chan tcell.Event, eventBuffer)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	a.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if a.HandleEvent(ctx, ev) {
				return nil
			}
			a.Draw()
		case <-a.redraw:
			a.Draw()
		}
	}
}

// HandleEvent applies one screen event. It returns true when the user quits.
// Every key and mouse event counts as input for the idle scheduler.
func (a *App) HandleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
		a.resize()
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			return true
		}
		a.scheduler.Input(mapview.InputKey)
		a.handleKey(ctx, ev)
	case *tcell.EventMouse:
		a.handleMouse(ctx, ev)
	}
	return false
}

func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		if gallery := a.panel.Gallery(); gallery.IsOpen() {
			gallery.Close()
			return
		}
		a.panel.Close()
	case tcell.KeyUp:
		a.pan(0, 1)
	case tcell.KeyDown:
		a.pan(0, -1)
	case tcell.KeyLeft:
		a.pan(-1, 0)
	case tcell.KeyRight:
		a.pan(1, 0)
	case tcell.KeyRune:
		a.handleRune(ctx, ev.Rune())
	}
}

func (a *App) handleRune(ctx context.Context, r rune) {
	switch r {
	case 'a':
		a.scheduler.Trigger()
	case 's':
		a.scheduler.Stop()
	case 'o':
		a.toggle(models.KindOffice)
	case 'c':
		a.toggle(models.KindClient)
	case 'h':
		a.panel.Close()
		a.spawn(ctx, func(ctx context.Context) {
			if err := a.view.Home(ctx, HomeDuration); err != nil && ctx.Err() == nil {
				a.setStatus(fmt.Sprintf("Home failed: %v", err))
			}
		})
	case 'g':
		if a.panel.OpenGallery() {
			a.loadPreview(ctx)
		}
	case 'n':
		if a.panel.Gallery().Next() {
			a.loadPreview(ctx)
		}
	case 'p':
		if a.panel.Gallery().Prev() {
			a.loadPreview(ctx)
		}
	case 'r':
		a.spawn(ctx, a.refresh)
	case '+', '=':
		a.view.ZoomBy(1)
	case '-':
		a.view.ZoomBy(-1)
	}
}

func (a *App) handleMouse(ctx context.Context, ev *tcell.EventMouse) {
	buttons := ev.Buttons()
	a.mu.Lock()
	pressed := buttons&tcell.Button1 != 0 && a.buttons&tcell.Button1 == 0
	a.buttons = buttons
	a.mu.Unlock()

	switch {
	case buttons&(tcell.WheelUp|tcell.WheelDown) != 0:
		a.scheduler.Input(mapview.InputScroll)
		if buttons&tcell.WheelUp != 0 {
			a.view.ZoomBy(1)
		} else {
			a.view.ZoomBy(-1)
		}
	case pressed:
		a.scheduler.Input(mapview.InputClick)
		x, y := ev.Position()
		a.click(ctx, mapview.ScreenPoint{X: float64(x) + 0.5, Y: float64(y) + 0.5})
	case buttons&tcell.Button1 != 0:
		a.scheduler.Input(mapview.InputPointerDown)
	default:
		a.scheduler.Input(mapview.InputPointerMove)
	}
}

// click activates the marker under sp, if any. Activation pans and waits for
// the view to settle, so it runs off the event loop.
func (a *App) click(ctx context.Context, sp mapview.ScreenPoint) {
	marker, ok := a.markers.HitTest(a.view, sp, HitRadius)
	if !ok {
		return
	}
	a.spawn(ctx, func(ctx context.Context) {
		if err := a.markers.Activate(ctx, marker); err != nil && ctx.Err() == nil {
			a.log.ErrorContext(ctx, "Failed to show location", "id", marker.Location.ID, "error", err)
			a.setStatus(fmt.Sprintf("Could not load %s", marker.Location.Name))
			return
		}
		a.requestRedraw()
	})
}

// prepare runs before the ambient loop starts: open panels close and the view flies home.
func (a *App) prepare(ctx context.Context) error {
	a.panel.Close()
	return a.view.Home(ctx, HomeDuration)
}

func (a *App) refresh(ctx context.Context) {
	if err := a.cfg.Store.Refresh(ctx); err != nil {
		a.log.ErrorContext(ctx, "Failed to load locations", "error", err)
		a.setStatus("Failed to load locations")
		return
	}
	a.markers.Reset(a.cfg.Store.All(), a.inspector.Focus)
	a.setStatus(fmt.Sprintf("Loaded %d offices and %d clients",
		len(a.cfg.Store.List(models.KindOffice)), len(a.cfg.Store.List(models.KindClient))))
}

func (a *App) toggle(kind models.Kind) {
	state := "off"
	if a.cfg.Store.Toggle(kind) {
		state = "on"
	}
	a.setStatus(fmt.Sprintf("%s phase %s", kind, state))
}

func (a *App) pan(dx, dy float64) {
	center, zoom := a.view.Center()
	step := panStep / float64(int(1)<<int(zoom))
	a.view.SetView(orb.Point{center.Lon() + dx*step, center.Lat() + dy*step}, zoom)
}

func (a *App) resize() {
	width, height := a.screen.Size()
	a.view.Resize(float64(width), float64(max(height-statusRows, 0)))
}

func (a *App) setStatus(msg string) {
	a.mu.Lock()
	a.status = msg
	a.mu.Unlock()
	a.requestRedraw()
}

func (a *App) requestRedraw() {
	select {
	case a.redraw <- struct{}{}:
	default:
	}
}

func (a *App) spawn(ctx context.Context, fn func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn(ctx)
	}()
}
