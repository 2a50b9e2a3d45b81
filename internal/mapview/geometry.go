package mapview

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ArcHeightRatio is the control point offset of an arc relative to its chord length.
const ArcHeightRatio = 0.4

// ArcSampleStep is the parameter increment used when sampling a bezier arc.
const ArcSampleStep = 0.01

// ScreenPoint is a position in container coordinates (x grows right, y grows down).
type ScreenPoint struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in container coordinates.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Bearing returns the initial compass bearing in degrees [0, 360) to travel
// from one point to another along the great circle.
func Bearing(from, to orb.Point) float64 {
	bearing := math.Mod(geo.Bearing(from, to), 360)
	if bearing < 0 {
		bearing += 360
	}
	return bearing
}

// Interpolate returns the point reached after travelling fraction t of the
// great-circle path between from and to. The longitude is kept in [-180, 180).
func Interpolate(from, to orb.Point, t float64) orb.Point {
	switch {
	case t <= 0:
		return from
	case t >= 1:
		return to
	}
	distance := geo.Distance(from, to)
	if distance == 0 {
		return from
	}
	p := geo.PointAtBearingAndDistance(from, geo.Bearing(from, to), distance*t)
	p[0] = WrapLongitude(p[0])
	return p
}

// WrapLongitude maps lon into [-180, 180).
func WrapLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// SplitAntimeridian cuts path wherever two consecutive points are more than
// 180 degrees of longitude apart, so no segment wraps across the whole map.
func SplitAntimeridian(path []orb.Point) [][]orb.Point {
	if len(path) == 0 {
		return nil
	}
	var segments [][]orb.Point
	start := 0
	for i := 1; i < len(path); i++ {
		if math.Abs(path[i].Lon()-path[i-1].Lon()) > 180 {
			segments = append(segments, path[start:i])
			start = i
		}
	}
	return append(segments, path[start:])
}

// ArcControlPoint returns the control point of a raised quadratic arc between
// p0 and p2. It sits on the chord's perpendicular through the midpoint, at a
// distance of ArcHeightRatio times the chord length, on the upper side.
func ArcControlPoint(p0, p2 ScreenPoint) ScreenPoint {
	mid := ScreenPoint{X: (p0.X + p2.X) / 2, Y: (p0.Y + p2.Y) / 2}
	dx, dy := p2.X-p0.X, p2.Y-p0.Y
	chord := math.Hypot(dx, dy)
	if chord == 0 {
		return mid
	}

	nx, ny := dy/chord, -dx/chord
	if ny > 0 || (ny == 0 && nx > 0) {
		nx, ny = -nx, -ny
	}

	height := chord * ArcHeightRatio
	return ScreenPoint{X: mid.X + nx*height, Y: mid.Y + ny*height}
}

// QuadraticBezier evaluates B(t) = (1-t)^2*P0 + 2(1-t)t*P1 + t^2*P2.
func QuadraticBezier(p0, p1, p2 ScreenPoint, t float64) ScreenPoint {
	u := 1 - t
	return ScreenPoint{
		X: u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

// SampleArc samples the bezier from t=0 up to progress at ArcSampleStep
// increments. The last sample is always B(progress).
func SampleArc(p0, p1, p2 ScreenPoint, progress float64) []ScreenPoint {
	progress = clamp01(progress)

	steps := int(math.Floor(progress/ArcSampleStep + 1e-9))
	points := make([]ScreenPoint, 0, steps+2)
	for i := 0; i <= steps; i++ {
		points = append(points, QuadraticBezier(p0, p1, p2, float64(i)*ArcSampleStep))
	}
	if progress-float64(steps)*ArcSampleStep > 1e-9 {
		points = append(points, QuadraticBezier(p0, p1, p2, progress))
	}
	return points
}

// Easing maps linear progress in [0,1] to eased progress in [0,1].
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 {
	return clamp01(t)
}

// EaseInOutCubic accelerates through the first half and decelerates through the second.
func EaseInOutCubic(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func clamp01(v float64) float64 {
	switch {
	case v < 0, math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
