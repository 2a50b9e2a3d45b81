package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Marker glyphs per location kind.
const (
	OfficeGlyph = '◆'
	ClientGlyph = '●'
)

const keyHelp = "a animate  s stop  o/c phases  h home  g/n/p gallery  esc close  r refresh  q quit"

var (
	baseStyle   = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	panelStyle  = tcell.StyleDefault.Background(tcell.GetColor("#101820")).Foreground(tcell.ColorWhite)
	mutedStyle  = panelStyle.Foreground(tcell.GetColor("#8899AA"))
	statusStyle = tcell.StyleDefault.Background(tcell.GetColor("#1B2836")).Foreground(tcell.ColorWhite)
)

// Draw renders the whole view and shows it.
func (a *App) Draw() {
	a.drawMu.Lock()
	defer a.drawMu.Unlock()

	a.screen.SetStyle(baseStyle)
	a.screen.Clear()
	width, height := a.screen.Size()
	rows := max(height-statusRows, 0)

	DrawGraticule(a.screen, a.view, rows, baseStyle)
	a.canvas.Draw(a.screen, rows, baseStyle)
	a.drawMarkers(rows)
	if detail, rect, ok := a.panel.Current(); ok {
		a.drawPanel(detail, rect)
		if a.panel.Gallery().IsOpen() {
			a.drawGallery(width, rows)
		}
	}
	a.drawStatus(width, height)
	a.screen.Show()
}

func (a *App) drawMarkers(rows int) {
	width, _ := a.screen.Size()
	selected := ""
	if detail, _, ok := a.panel.Current(); ok {
		selected = detail.Location.ID
	}

	for _, m := range a.markers.Markers() {
		at, err := a.view.Project(m.Point)
		if err != nil {
			return
		}
		x, y := int(math.Floor(at.X)), int(math.Floor(at.Y))
		if x < 0 || y < 0 || x >= width || y >= rows {
			continue
		}
		r := OfficeGlyph
		if m.Location.Kind == models.KindClient {
			r = ClientGlyph
		}
		style := baseStyle.Foreground(tcell.GetColor(m.Color))
		if m.Location.ID == selected {
			style = style.Reverse(true)
		}
		a.screen.SetContent(x, y, r, nil, style)
	}
}

func (a *App) drawPanel(detail mapview.Detail, rect mapview.Rect) {
	x, y := int(math.Round(rect.X)), int(math.Round(rect.Y))
	w, h := int(rect.W), int(rect.H)
	drawBox(a.screen, x, y, w, h, panelStyle)

	loc := detail.Location
	lines := []styledLine{
		{text: loc.Name, style: panelStyle.Foreground(tcell.GetColor(mapview.MarkerColor(loc.Kind))).Bold(true)},
		{text: joinNonEmpty(", ", loc.City, loc.Country), style: mutedStyle},
	}
	if loc.HasEmployeeCount() {
		lines = append(lines, styledLine{text: fmt.Sprintf("Employees: %d", *loc.Employees), style: panelStyle})
	}
	if loc.Established != nil {
		lines = append(lines, styledLine{text: fmt.Sprintf("Established: %d", *loc.Established), style: panelStyle})
	}
	if loc.HasIndustry() {
		lines = append(lines, styledLine{text: "Industry: " + loc.Industry, style: panelStyle})
	}
	if loc.PartnershipSince != nil {
		lines = append(lines, styledLine{text: fmt.Sprintf("Partner since: %d", *loc.PartnershipSince), style: panelStyle})
	}
	if loc.Description != "" {
		lines = append(lines, styledLine{text: loc.Description, style: mutedStyle})
	}
	if n := len(loc.Images); n > 0 {
		lines = append(lines, styledLine{text: fmt.Sprintf("Images: %d (g to view)", n), style: mutedStyle})
	}
	lines = append(lines, styledLine{text: fmt.Sprintf("Visits (%d)", len(detail.Visits)), style: panelStyle.Bold(true)})
	for _, visit := range detail.Visits {
		lines = append(lines, styledLine{text: visitLine(visit), style: panelStyle})
	}

	for i, line := range lines {
		if i >= h-2 {
			break
		}
		drawText(a.screen, x+1, y+1+i, w-2, line.text, line.style)
	}
}

func (a *App) drawGallery(width, rows int) {
	gallery := a.panel.Gallery()
	path, ok := gallery.Current()
	if !ok {
		return
	}
	w := min(width-4, 64)
	h := min(rows-2, 24)
	if w < 10 || h < 5 {
		return
	}
	x, y := (width-w)/2, (rows-h)/2
	drawBox(a.screen, x, y, w, h, panelStyle)

	index, total := gallery.Position()
	title := fmt.Sprintf("Image %d/%d", index, total)
	drawText(a.screen, x+1, y+1, w-2, title, panelStyle.Bold(true))

	nav := []string{}
	if gallery.HasPrev() {
		nav = append(nav, "p prev")
	}
	if gallery.HasNext() {
		nav = append(nav, "n next")
	}
	nav = append(nav, "esc close")
	drawText(a.screen, x+1, y+h-2, w-2, strings.Join(nav, "  "), mutedStyle)

	area := mapview.Rect{X: float64(x + 1), Y: float64(y + 2), W: float64(w - 2), H: float64(h - 4)}
	a.mu.Lock()
	pv, loaded := a.previews[path]
	a.mu.Unlock()
	switch {
	case !loaded:
		drawText(a.screen, x+1, y+3, w-2, "Loading "+path, mutedStyle)
	case pv.img == nil:
		drawText(a.screen, x+1, y+3, w-2, path, mutedStyle)
		drawText(a.screen, x+1, y+4, w-2, "Preview unavailable", mutedStyle)
	default:
		drawImage(a.screen, pv.img, area)
	}
}

func (a *App) drawStatus(width, height int) {
	if height == 0 {
		return
	}
	y := height - 1
	for x := 0; x < width; x++ {
		a.screen.SetContent(x, y, ' ', nil, statusStyle)
	}

	left := fmt.Sprintf(" meridian  %s  offices:%s  clients:%s  %s",
		a.State(), onOff(a.cfg.Store.Enabled(models.KindOffice)), onOff(a.cfg.Store.Enabled(models.KindClient)), a.Status())
	drawText(a.screen, 0, y, width, left, statusStyle)
	if free := width - runewidth.StringWidth(left) - 2; free >= runewidth.StringWidth(keyHelp) {
		drawText(a.screen, width-runewidth.StringWidth(keyHelp)-1, y, width, keyHelp, statusStyle.Dim(true))
	}
}

type styledLine struct {
	text  string
	style tcell.Style
}

func visitLine(visit models.VisitEntry) string {
	name := ""
	switch {
	case visit.Client != nil:
		name = visit.Client.Name
	case visit.Office != nil:
		name = visit.Office.Name
	}
	return joinNonEmpty("  ", visit.VisitDate.Format("2006-01-02"), name, visit.Purpose)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// drawText writes s at (x, y), cut to maxWidth cells.
func drawText(screen tcell.Screen, x, y, maxWidth int, s string, style tcell.Style) {
	col := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			w = 1
		}
		if col+w > maxWidth {
			return
		}
		screen.SetContent(x+col, y, r, nil, style)
		col += w
	}
}

func drawBox(screen tcell.Screen, x, y, w, h int, style tcell.Style) {
	if w < 2 || h < 2 {
		return
	}
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			r := ' '
			switch {
			case row == y && col == x:
				r = '┌'
			case row == y && col == x+w-1:
				r = '┐'
			case row == y+h-1 && col == x:
				r = '└'
			case row == y+h-1 && col == x+w-1:
				r = '┘'
			case row == y || row == y+h-1:
				r = '─'
			case col == x || col == x+w-1:
				r = '│'
			}
			screen.SetContent(col, row, r, nil, style)
		}
	}
}
