package mapview

// Stroke describes how a polyline is drawn.
type Stroke struct {
	Color string
	Width float64
	Glow  float64
}

// Surface is the transient drawing layer the animator owns while active.
// Implementations must be safe for use from multiple goroutines.
type Surface interface {
	Clear()
	Polyline(points []ScreenPoint, stroke Stroke)
	Dot(at ScreenPoint, radius float64, color string)
	Heading(at ScreenPoint, bearing float64, color string)
	// Flush publishes everything drawn since the last Clear.
	Flush()
}

// Colors used by the ambient phases and the route circuit.
const (
	OfficeColor = "#00D9FF"
	ClientColor = "#FF6B9D"
	RouteColor  = "#7B61FF"
	TipColor    = "#FFFFFF"
)

var (
	arcStroke   = Stroke{Width: 3, Glow: 12}
	routeStroke = Stroke{Width: 4, Glow: 8}
)

const tipRadius = 4
