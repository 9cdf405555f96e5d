package layout

import "encoding/json"

// Layout is the chart engine's serialized pane/drawing state. The engine owns
// the document shape; the host treats it as opaque except for the drawn-tool
// sources of the first pane, and replays it verbatim into either instance.
type Layout = json.RawMessage

const secondsPerDay = 86400

// AnchorPoint is one endpoint of a drawn tool. Offset is an optional
// number-of-days shift the engine applies to the stored timestamp.
type AnchorPoint struct {
	TimeT  float64 `json:"time_t"`
	Price  float64 `json:"price"`
	Offset float64 `json:"offset,omitempty"`
}

// ResolvedTime returns the timestamp with the day offset applied.
func (p AnchorPoint) ResolvedTime() float64 {
	return p.TimeT + p.Offset*secondsPerDay
}

// ToolState carries the per-tool state the host inspects. An empty Symbol
// means the tool was drawn without a symbol binding and applies everywhere.
type ToolState struct {
	Symbol string `json:"symbol,omitempty"`
}

// LineToolSource is one user-drawn tool object from the layout.
type LineToolSource struct {
	ID     string        `json:"id"`
	Type   string        `json:"type"`
	State  ToolState     `json:"state"`
	Points []AnchorPoint `json:"points"`
}

// Sources extracts charts[0].panes[0].sources from a layout snapshot. A
// missing or malformed path yields an empty result, never an error; the
// document is engine-owned and free to change shape.
func Sources(l Layout) []LineToolSource {
	if len(l) == 0 {
		return nil
	}
	var doc struct {
		Charts []struct {
			Panes []struct {
				Sources []LineToolSource `json:"sources"`
			} `json:"panes"`
		} `json:"charts"`
	}
	if err := json.Unmarshal(l, &doc); err != nil {
		return nil
	}
	if len(doc.Charts) == 0 || len(doc.Charts[0].Panes) == 0 {
		return nil
	}
	return doc.Charts[0].Panes[0].Sources
}
