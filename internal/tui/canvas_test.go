package tui_test

import (
	"testing"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/UnknownOlympus/meridian/internal/tui"
	"github.com/gdamore/tcell/v2"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(width, height)
	return screen
}

func cell(screen tcell.Screen, x, y int) (rune, tcell.Color) {
	r, _, style, _ := screen.GetContent(x, y)
	fg, _, _ := style.Decompose()
	return r, fg
}

func TestCanvas_PublishesOnFlush(t *testing.T) {
	screen := newScreen(t, 20, 10)
	flushed := 0
	canvas := tui.NewCanvas(func() { flushed++ })

	canvas.Polyline([]mapview.ScreenPoint{{X: 1, Y: 1}, {X: 5, Y: 1}}, mapview.Stroke{Color: mapview.OfficeColor, Width: 3})
	assert.Zero(t, canvas.Len(), "nothing is visible before Flush")

	canvas.Flush()
	assert.Equal(t, 1, flushed)
	assert.Equal(t, 5, canvas.Len())

	canvas.Draw(screen, 10, tcell.StyleDefault)
	for x := 1; x <= 5; x++ {
		r, fg := cell(screen, x, 1)
		assert.Equal(t, '·', r)
		assert.Equal(t, tcell.GetColor(mapview.OfficeColor), fg)
	}

	canvas.Clear()
	canvas.Flush()
	assert.Zero(t, canvas.Len())
	assert.Equal(t, 2, flushed)
}

func TestCanvas_DiagonalLine(t *testing.T) {
	canvas := tui.NewCanvas(nil)
	canvas.Polyline([]mapview.ScreenPoint{{X: 0, Y: 0}, {X: 3, Y: 3}, {X: 6, Y: 3}}, mapview.Stroke{Width: 4})
	canvas.Flush()

	// The shared vertex is drawn once.
	assert.Equal(t, 7, canvas.Len())
}

func TestCanvas_DotAndHeading(t *testing.T) {
	screen := newScreen(t, 20, 10)
	canvas := tui.NewCanvas(nil)

	canvas.Dot(mapview.ScreenPoint{X: 3.7, Y: 2.2}, 4, mapview.TipColor)
	canvas.Heading(mapview.ScreenPoint{X: 8, Y: 4}, 90, mapview.RouteColor)
	canvas.Polyline([]mapview.ScreenPoint{{X: 10, Y: 9}}, mapview.Stroke{Width: 4, Color: mapview.RouteColor})
	canvas.Flush()
	canvas.Draw(screen, 9, tcell.StyleDefault)

	r, fg := cell(screen, 3, 2)
	assert.Equal(t, '●', r)
	assert.Equal(t, tcell.GetColor(mapview.TipColor), fg)

	r, _ = cell(screen, 8, 4)
	assert.Equal(t, '→', r)

	r, _ = cell(screen, 10, 9)
	assert.NotEqual(t, '•', r, "cells below the map rows are left alone")
}

func TestHeadingGlyph(t *testing.T) {
	tests := []struct {
		bearing float64
		want    rune
	}{
		{0, '↑'},
		{44, '↗'},
		{90, '→'},
		{135, '↘'},
		{180, '↓'},
		{270, '←'},
		{350, '↑'},
		{-90, '←'},
		{720, '↑'},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(tui.HeadingGlyph(tt.bearing)), "bearing %v", tt.bearing)
	}
}

func TestDrawGraticule(t *testing.T) {
	// 90 columns span 360 degrees: 4 degrees per column and, at aspect 0.5,
	// 8 degrees per row.
	screen := newScreen(t, 90, 25)
	view := mapview.NewViewport(mapview.ViewportConfig{Home: orb.Point{0, 0}, MaxZoom: 4, Aspect: 0.5})
	view.Resize(90, 24)

	screen.Clear()
	tui.DrawGraticule(screen, view, 24, tcell.StyleDefault)

	r, _ := cell(screen, 45, 11)
	assert.Equal(t, "┼", string(r), "prime meridian meets the equator")
	r, _ = cell(screen, 52, 11)
	assert.Equal(t, "┼", string(r), "30E meets the equator")
	r, _ = cell(screen, 47, 11)
	assert.Equal(t, "┈", string(r))

	r, axis := cell(screen, 45, 5)
	assert.Equal(t, "┊", string(r))
	r, plain := cell(screen, 52, 5)
	assert.Equal(t, "┊", string(r))
	assert.NotEqual(t, plain, axis, "the prime meridian is highlighted")

	r, _ = cell(screen, 47, 5)
	assert.Equal(t, " ", string(r))

	r, _ = cell(screen, 47, 24)
	assert.Equal(t, " ", string(r), "the status row is not drawn")
}

func TestDrawGraticule_NotReady(t *testing.T) {
	screen := newScreen(t, 10, 5)
	view := mapview.NewViewport(mapview.ViewportConfig{})

	screen.Clear()
	tui.DrawGraticule(screen, view, 5, tcell.StyleDefault)

	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			r, _ := cell(screen, x, y)
			require.Equal(t, " ", string(r))
		}
	}
}
