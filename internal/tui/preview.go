package tui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/gdamore/tcell/v2"
)

// preview is a decoded gallery image. A nil img means it could not be shown.
type preview struct {
	img image.Image
}

// loadPreview fetches and decodes the current gallery image once per path.
func (a *App) loadPreview(ctx context.Context) {
	path, ok := a.panel.Gallery().Current()
	if !ok {
		return
	}
	a.mu.Lock()
	_, seen := a.previews[path]
	if !seen && a.cfg.Images == nil {
		a.previews[path] = preview{}
		seen = true
	}
	a.mu.Unlock()
	if seen {
		return
	}

	a.spawn(ctx, func(ctx context.Context) {
		img, err := a.fetchImage(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.WarnContext(ctx, "Image preview unavailable", "path", path, "error", err)
		}
		a.mu.Lock()
		a.previews[path] = preview{img: img}
		a.mu.Unlock()
		a.requestRedraw()
	})
}

func (a *App) fetchImage(ctx context.Context, path string) (image.Image, error) {
	data, err := a.cfg.Images.Image(ctx, path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// drawImage scales img into area with nearest-neighbour sampling. Every cell
// shows two vertical pixels as an upper half block.
func drawImage(screen tcell.Screen, img image.Image, area mapview.Rect) {
	bounds := img.Bounds()
	if bounds.Empty() || area.W < 1 || area.H < 1 {
		return
	}
	pxW, pxH := area.W, area.H*2
	scale := min(pxW/float64(bounds.Dx()), pxH/float64(bounds.Dy()))
	cols := max(int(float64(bounds.Dx())*scale), 1)
	rows := max(int(float64(bounds.Dy())*scale/2), 1)
	offsetX := int(area.X) + (int(area.W)-cols)/2
	offsetY := int(area.Y) + (int(area.H)-rows)/2

	sample := func(px, py int) tcell.Color {
		sx := bounds.Min.X + min(int(float64(px)/scale), bounds.Dx()-1)
		sy := bounds.Min.Y + min(int(float64(py)/scale), bounds.Dy()-1)
		return tcell.FromImageColor(img.At(sx, sy))
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			style := tcell.StyleDefault.Foreground(sample(col, row*2)).Background(sample(col, row*2+1))
			screen.SetContent(offsetX+col, offsetY+row, '▀', nil, style)
		}
	}
}
