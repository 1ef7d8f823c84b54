package userlist

// DefaultScrollMargin is how far below the visible area the sentinel may
// be and still count as near.
const DefaultScrollMargin = 400

// Geometry is the scroll position of the list container. All values share
// the container's content coordinates.
type Geometry struct {
	ScrollTop      float64
	ViewportHeight float64
	// SentinelTop is the offset of the marker placed after the last row.
	SentinelTop float64
}

// Distance is how far the sentinel sits below the container's bottom edge.
// It is negative once the sentinel is visible.
func (g Geometry) Distance() float64 {
	return g.SentinelTop - (g.ScrollTop + g.ViewportHeight)
}

// Sentinel decides when the end of the list is close enough to load more.
type Sentinel struct {
	Margin float64
}

// Near reports whether the sentinel is within Margin of the bottom edge.
func (s Sentinel) Near(g Geometry) bool {
	return g.Distance() <= s.Margin
}
