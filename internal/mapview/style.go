package mapview

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownMode is returned by ParseMode for anything but arcs or route.
var ErrUnknownMode = errors.New("unknown ambient mode")

// Mode selects how a leg is drawn.
type Mode int

const (
	// ModeArc draws a raised bezier arc that stays on screen until the phase ends.
	ModeArc Mode = iota
	// ModeRoute moves a directional marker along the great circle, draws the
	// travelled path progressively and follows it with the view.
	ModeRoute
)

func (m Mode) String() string {
	if m == ModeRoute {
		return "route"
	}
	return "arcs"
}

// ParseMode parses a configured mode name. Empty means arcs.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "arcs", "arc":
		return ModeArc, nil
	case "route":
		return ModeRoute, nil
	default:
		return ModeArc, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Style parameterizes legs and sequences.
type Style struct {
	Mode     Mode
	Color    string
	Duration time.Duration // Duration of one leg.
	Pause    time.Duration // Pause after each leg.
	Tail     time.Duration // Pause after the whole sequence.
	Easing   Easing
	// ClosedLoop returns to the first location after the last one.
	ClosedLoop bool
	// FollowFrom and FollowTo bound the linear progress window during which
	// route mode pans the view after the moving marker.
	FollowFrom float64
	FollowTo   float64
}

// ArcStyle is the ambient idle-arc style.
func ArcStyle(color string) Style {
	return Style{
		Mode:     ModeArc,
		Color:    color,
		Duration: 1000 * time.Millisecond,
		Pause:    400 * time.Millisecond,
		Tail:     2500 * time.Millisecond,
		Easing:   Linear,
	}
}

// RouteStyle is the closed-loop circuit style.
func RouteStyle(color string) Style {
	return Style{
		Mode:       ModeRoute,
		Color:      color,
		Duration:   3000 * time.Millisecond,
		Pause:      800 * time.Millisecond,
		Tail:       2500 * time.Millisecond,
		Easing:     EaseInOutCubic,
		ClosedLoop: true,
		FollowFrom: 0.15,
		FollowTo:   0.85,
	}
}

func (s Style) ease(t float64) float64 {
	if s.Easing == nil {
		return Linear(t)
	}
	return s.Easing(t)
}
