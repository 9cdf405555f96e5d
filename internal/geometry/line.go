package geometry

// Point is a location on the price/time plane. TimeT carries whatever unit the
// chart engine stored for the axis; both anchors and the query point must be
// expressed in the same unit before classification.
type Point struct {
	TimeT float64
	Price float64
}

// Position classifies a point relative to a line.
type Position int

const (
	PositionBelow   Position = 0
	PositionAbove   Position = 1
	PositionUnknown Position = -1
)

// Line is the equation y = Slope*t + Intercept through two anchor points.
type Line struct {
	Slope     float64
	Intercept float64
}

// Through derives the line through a and b. Callers must guarantee
// a.TimeT != b.TimeT; equal timestamps have no computable slope.
func Through(a, b Point) Line {
	slope := (b.Price - a.Price) / (b.TimeT - a.TimeT)
	return Line{Slope: slope, Intercept: a.Price - slope*a.TimeT}
}

// ValueAt returns the extrapolated price of the line at time t.
func (l Line) ValueAt(t float64) float64 {
	return l.Slope*t + l.Intercept
}

// Classify reports whether c sits on or above the line (inclusive >=) or
// below it. Plain IEEE-754 comparison, no rounding.
func (l Line) Classify(c Point) Position {
	if c.Price >= l.ValueAt(c.TimeT) {
		return PositionAbove
	}
	return PositionBelow
}
