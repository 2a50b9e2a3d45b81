package mapview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// FocusPanDuration is the pan duration used when a marker is activated.
const FocusPanDuration = 600 * time.Millisecond

// Detail is what the info panel shows for a location.
type Detail struct {
	Location models.Location
	Visits   []models.VisitEntry
}

// DetailSource loads the detail of a location together with its visit history.
type DetailSource interface {
	Detail(ctx context.Context, kind models.Kind, id string) (Detail, error)
}

// SizedProjection is a projection that knows its container size.
type SizedProjection interface {
	Projection
	Size() (width, height float64)
}

// Place positions a panel of panelW x panelH next to anchor inside a
// viewW x viewH container. The panel goes right of the anchor, flips left when
// it would overflow and is clamped so it never leaves the container by less
// than margin.
func Place(anchor ScreenPoint, panelW, panelH, viewW, viewH, margin float64) Rect {
	x := anchor.X + margin
	if x+panelW > viewW-margin {
		x = anchor.X - margin - panelW
	}
	y := anchor.Y - panelH/2

	return Rect{
		X: clampRange(x, margin, viewW-margin-panelW),
		Y: clampRange(y, margin, viewH-margin-panelH),
		W: panelW,
		H: panelH,
	}
}

func clampRange(v, lo, hi float64) float64 {
	if hi < lo {
		return math.Max(0, lo)
	}
	return math.Max(lo, math.Min(hi, v))
}

// InfoPanel is the side panel showing one location's detail and its gallery.
type InfoPanel struct {
	mu      sync.RWMutex
	detail  *Detail
	rect    Rect
	gallery *Gallery
}

// NewInfoPanel creates a closed panel.
func NewInfoPanel() *InfoPanel {
	return &InfoPanel{gallery: &Gallery{}}
}

// Show opens the panel with detail at rect, replacing whatever was shown.
func (p *InfoPanel) Show(detail Detail, rect Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detail = &detail
	p.rect = rect
	p.gallery.Close()
}

// Close hides the panel and its gallery.
func (p *InfoPanel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detail = nil
	p.gallery.Close()
}

// Current returns the shown detail and its placement.
func (p *InfoPanel) Current() (Detail, Rect, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.detail == nil {
		return Detail{}, Rect{}, false
	}
	return *p.detail, p.rect, true
}

// Gallery returns the lightbox attached to the panel.
func (p *InfoPanel) Gallery() *Gallery {
	return p.gallery
}

// OpenGallery opens the lightbox on the images of the shown location.
func (p *InfoPanel) OpenGallery() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.detail == nil || len(p.detail.Location.Images) == 0 {
		return false
	}
	p.gallery.Open(p.detail.Location.Images, 0)
	return true
}

// Inspector implements marker activation: pan to the location, wait for the
// view to settle, fetch its detail and show it in the panel.
type Inspector struct {
	view   SizedProjection
	source DetailSource
	panel  *InfoPanel
	log    *slog.Logger

	PanDuration time.Duration
	PanelWidth  float64
	PanelHeight float64
	Margin      float64
}

// NewInspector creates an inspector with the default pan duration.
func NewInspector(view SizedProjection, source DetailSource, panel *InfoPanel, log *slog.Logger) *Inspector {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Inspector{
		view:        view,
		source:      source,
		panel:       panel,
		log:         log,
		PanDuration: FocusPanDuration,
		PanelWidth:  40,
		PanelHeight: 12,
		Margin:      1,
	}
}

// Focus is an ActivateFunc. The detail request is only sent after the pan
// has settled, so the panel is placed at the final marker position.
func (i *Inspector) Focus(ctx context.Context, loc models.Location) error {
	point, err := loc.Coordinates.Point()
	if err != nil {
		return fmt.Errorf("failed to focus %q: %w", loc.ID, err)
	}

	settled := make(chan struct{}, 1)
	unsubscribe := i.view.OnSettle(func() {
		select {
		case settled <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err = i.view.PanTo(ctx, point, PanOptions{Duration: i.PanDuration}); err != nil {
		return fmt.Errorf("failed to pan to %q: %w", loc.ID, err)
	}
	select {
	case <-settled:
	case <-ctx.Done():
		return ctx.Err()
	}

	detail, err := i.source.Detail(ctx, loc.Kind, loc.ID)
	if err != nil {
		return fmt.Errorf("failed to load detail of %q: %w", loc.ID, err)
	}

	anchor, err := i.view.Project(point)
	if err != nil {
		return err
	}
	width, height := i.view.Size()
	i.panel.Show(detail, Place(anchor, i.PanelWidth, i.PanelHeight, width, height, i.Margin))

	i.log.DebugContext(ctx, "Showing location detail", "id", loc.ID, "kind", loc.Kind, "visits", len(detail.Visits))
	return nil
}
