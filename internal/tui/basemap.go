package tui

import (
	"math"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/gdamore/tcell/v2"
)

// GraticuleStep is the spacing in degrees of the drawn meridians and parallels.
const GraticuleStep = 30.0

var (
	graticuleColor = tcell.GetColor("#2E3A46")
	axisColor      = tcell.GetColor("#4A5A6A")
	edgeColor      = tcell.GetColor("#1E2A36")
)

// DrawGraticule paints the world outline with meridians and parallels every
// GraticuleStep degrees into the top rows of screen. The equator and the prime
// meridian are highlighted.
func DrawGraticule(screen tcell.Screen, view *mapview.Viewport, rows int, style tcell.Style) {
	width, _ := screen.Size()
	for y := 0; y < rows; y++ {
		top, errTop := view.Unproject(mapview.ScreenPoint{X: 0, Y: float64(y)})
		bottom, errBottom := view.Unproject(mapview.ScreenPoint{X: 0, Y: float64(y + 1)})
		if errTop != nil || errBottom != nil {
			return
		}
		// Latitude falls from top to bottom of a row.
		latHi, latLo := top.Lat(), bottom.Lat()
		if latLo > 90 || latHi < -90 {
			continue
		}
		onParallel, parallelIsAxis := crosses(latLo, latHi, -90, 90)

		for x := 0; x < width; x++ {
			left, errLeft := view.Unproject(mapview.ScreenPoint{X: float64(x), Y: float64(y)})
			right, errRight := view.Unproject(mapview.ScreenPoint{X: float64(x + 1), Y: float64(y)})
			if errLeft != nil || errRight != nil {
				return
			}
			lonLo, lonHi := left.Lon(), right.Lon()
			if lonHi < -180 || lonLo > 180 {
				continue
			}
			onMeridian, meridianIsAxis := crosses(lonLo, lonHi, -180, 180)

			var (
				r     rune
				color = graticuleColor
			)
			switch {
			case onMeridian && onParallel:
				r = '┼'
			case onMeridian:
				r = '┊'
			case onParallel:
				r = '┈'
			default:
				continue
			}
			if meridianIsAxis && onMeridian || parallelIsAxis && onParallel {
				color = axisColor
			}
			if isEdge(lonLo, lonHi, 180) || isEdge(latLo, latHi, 90) {
				color = edgeColor
			}
			screen.SetContent(x, y, r, nil, style.Foreground(color))
		}
	}
}

// crosses reports whether a multiple of GraticuleStep within [lo, hi] of the
// world range falls in [from, to), and whether that multiple is zero.
func crosses(from, to, lo, hi float64) (bool, bool) {
	mark := math.Ceil(from/GraticuleStep) * GraticuleStep
	if mark >= to || mark < lo || mark > hi {
		return false, false
	}
	return true, mark == 0
}

func isEdge(from, to, limit float64) bool {
	return (from <= limit && limit < to) || (from <= -limit && -limit < to)
}
