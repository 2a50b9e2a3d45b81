package tui

import (
	"math"
	"sync"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/gdamore/tcell/v2"
)

// Glyphs used by the animation layer.
const (
	thinGlyph  = '·'
	thickGlyph = '•'
	dotGlyph   = '●'
)

// maxSegment bounds the cells walked for one segment of a far off-screen line.
const maxSegment = 4096

var headingGlyphs = []rune("↑↗→↘↓↙←↖")

type cellPos struct {
	x int
	y int
}

type glyph struct {
	r     rune
	color tcell.Color
}

// Canvas is the terminal implementation of mapview.Surface. Drawing goes to a
// pending layer; Flush publishes it and asks the view for a redraw.
type Canvas struct {
	mu        sync.Mutex
	pending   map[cellPos]glyph
	published map[cellPos]glyph
	onFlush   func()
}

// NewCanvas creates an empty canvas. onFlush may be nil.
func NewCanvas(onFlush func()) *Canvas {
	return &Canvas{
		pending:   map[cellPos]glyph{},
		published: map[cellPos]glyph{},
		onFlush:   onFlush,
	}
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = map[cellPos]glyph{}
}

// Polyline rasterizes the segments between consecutive points.
func (c *Canvas) Polyline(points []mapview.ScreenPoint, stroke mapview.Stroke) {
	r := thinGlyph
	if stroke.Width >= 4 {
		r = thickGlyph
	}
	color := tcell.GetColor(stroke.Color)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(points) == 1 {
		c.pending[toCell(points[0])] = glyph{r: r, color: color}
		return
	}
	for i := 1; i < len(points); i++ {
		line(toCell(points[i-1]), toCell(points[i]), func(p cellPos) {
			c.pending[p] = glyph{r: r, color: color}
		})
	}
}

// Dot draws a single cell marker; a terminal cell is the smallest radius.
func (c *Canvas) Dot(at mapview.ScreenPoint, _ float64, color string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[toCell(at)] = glyph{r: dotGlyph, color: tcell.GetColor(color)}
}

// Heading draws an arrow pointing to the nearest of the eight compass directions.
func (c *Canvas) Heading(at mapview.ScreenPoint, bearing float64, color string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[toCell(at)] = glyph{r: HeadingGlyph(bearing), color: tcell.GetColor(color)}
}

func (c *Canvas) Flush() {
	c.mu.Lock()
	published := make(map[cellPos]glyph, len(c.pending))
	for p, g := range c.pending {
		published[p] = g
	}
	c.published = published
	onFlush := c.onFlush
	c.mu.Unlock()

	if onFlush != nil {
		onFlush()
	}
}

// Draw copies the published layer onto the top rows of screen, keeping the
// background of style.
func (c *Canvas) Draw(screen tcell.Screen, rows int, style tcell.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()

	width, _ := screen.Size()
	for p, g := range c.published {
		if p.x < 0 || p.y < 0 || p.x >= width || p.y >= rows {
			continue
		}
		screen.SetContent(p.x, p.y, g.r, nil, style.Foreground(g.color))
	}
}

// Len returns the number of published cells.
func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

// HeadingGlyph returns the arrow for a compass bearing in degrees.
func HeadingGlyph(bearing float64) rune {
	idx := int(math.Round(math.Mod(bearing, 360)/45)) % len(headingGlyphs)
	if idx < 0 {
		idx += len(headingGlyphs)
	}
	return headingGlyphs[idx]
}

func toCell(sp mapview.ScreenPoint) cellPos {
	return cellPos{x: int(math.Floor(sp.X)), y: int(math.Floor(sp.Y))}
}

// line walks the cells between a and b with Bresenham's algorithm.
func line(a, b cellPos, plot func(cellPos)) {
	dx := abs(b.x - a.x)
	dy := -abs(b.y - a.y)
	if dx-dy > maxSegment {
		return
	}
	sx, sy := 1, 1
	if a.x > b.x {
		sx = -1
	}
	if a.y > b.y {
		sy = -1
	}
	errAcc := dx + dy
	for {
		plot(a)
		if a == b {
			return
		}
		e2 := 2 * errAcc
		if e2 >= dy {
			errAcc += dy
			a.x += sx
		}
		if e2 <= dx {
			errAcc += dx
			a.y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
