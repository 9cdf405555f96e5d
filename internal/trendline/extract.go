package trendline

import (
	"strings"

	"github.com/dgnsrekt/chartbridge/internal/geometry"
	"github.com/dgnsrekt/chartbridge/internal/layout"
	"github.com/dgnsrekt/chartbridge/internal/pricefeed"
	"github.com/dgnsrekt/chartbridge/internal/symbol"
)

// Side labels for a report. Unknown means the line could not be classified
// yet (missing anchors, equal anchor timestamps, or no live price); such
// lines are still reported so the UI can list them as pending.
const (
	SideAbove   = "above"
	SideBelow   = "below"
	SideUnknown = "unknown"
)

// lineToolPrefix marks drawn tools that qualify as trendlines.
const lineToolPrefix = "LineTool"

// tickTimeScale converts the tick feed's epoch seconds onto the engine's
// millisecond anchor timebase. Only the live query point is scaled; stored
// anchors already carry the engine's unit.
const tickTimeScale = 1000

// Report describes one drawn line and which side of it the current price
// sits on.
type Report struct {
	LineID    string               `json:"lineId"`
	Symbol    string               `json:"symbol,omitempty"`
	Points    []layout.AnchorPoint `json:"points"`
	Slope     float64              `json:"a"`
	Intercept float64              `json:"b"`
	Side      string               `json:"side"`
	Position  int                  `json:"position"`
	Type      string               `json:"type"`
}

// Extract runs the classification pipeline over one layout snapshot. Sources
// are filtered to LineTool objects drawn against currentSymbol (tools without
// a symbol binding always qualify), classified against the live sample, and
// reported in the engine's original order.
func Extract(l layout.Layout, currentSymbol string, sample pricefeed.Sample) []Report {
	sources := layout.Sources(l)
	want := symbol.Normalize(currentSymbol)

	reports := make([]Report, 0, len(sources))
	for _, src := range sources {
		if !strings.HasPrefix(src.Type, lineToolPrefix) {
			continue
		}
		if src.State.Symbol != "" && symbol.Normalize(src.State.Symbol) != want {
			continue
		}
		reports = append(reports, classify(src, sample))
	}
	return reports
}

func classify(src layout.LineToolSource, sample pricefeed.Sample) Report {
	r := Report{
		LineID:   src.ID,
		Symbol:   src.State.Symbol,
		Points:   src.Points,
		Side:     SideUnknown,
		Position: int(geometry.PositionUnknown),
		Type:     src.Type,
	}

	if len(src.Points) < 2 {
		return r
	}
	a := geometry.Point{TimeT: src.Points[0].ResolvedTime(), Price: src.Points[0].Price}
	b := geometry.Point{TimeT: src.Points[1].ResolvedTime(), Price: src.Points[1].Price}
	if a.TimeT == b.TimeT {
		return r
	}
	if !sample.Valid() {
		return r
	}

	line := geometry.Through(a, b)
	query := geometry.Point{TimeT: sample.TimeT * tickTimeScale, Price: sample.Price}
	pos := line.Classify(query)

	r.Slope = line.Slope
	r.Intercept = line.Intercept
	r.Position = int(pos)
	if pos == geometry.PositionAbove {
		r.Side = SideAbove
	} else {
		r.Side = SideBelow
	}
	return r
}
