package engine

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Outbound command types (host → engine).
const (
	CmdChangeSymbol  = "changeSymbol"
	CmdChangeTheme   = "changeTheme"
	CmdApplyLayout   = "applyLayout"
	CmdRequestLayout = "requestLayout"
)

// Inbound message types (engine → host). MsgTrendingLineMap is synthesized by
// the host and re-delivered on the same channel as real engine messages.
const (
	MsgTick            = "onTick"
	MsgLayout          = "layout"
	MsgChartReady      = "chartReady"
	MsgTrendingLineMap = "trendingLineMap"
)

// Command is a host → engine message. ID is a correlation id carried for
// tracing; the engine is free to ignore it.
type Command struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is an engine → host message.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TickPayload is the body of an onTick message. Time is epoch seconds.
type TickPayload struct {
	Time  float64 `json:"time"`
	Close float64 `json:"close"`
}

func newCommand(typ string, payload any) Command {
	cmd := Command{ID: uuid.NewString(), Type: typ}
	if payload != nil {
		data, _ := json.Marshal(payload)
		cmd.Payload = data
	}
	return cmd
}

// ChangeSymbol builds a changeSymbol command.
func ChangeSymbol(symbol string) Command {
	return newCommand(CmdChangeSymbol, symbol)
}

// ChangeTheme builds a changeTheme command; mode is "light" or "dark".
func ChangeTheme(mode string) Command {
	return newCommand(CmdChangeTheme, mode)
}

// ApplyLayout builds an applyLayout command replaying a layout verbatim.
func ApplyLayout(l json.RawMessage) Command {
	return Command{ID: uuid.NewString(), Type: CmdApplyLayout, Payload: l}
}

// RequestLayout builds a requestLayout command; the engine answers with a
// "layout" message.
func RequestLayout() Command {
	return newCommand(CmdRequestLayout, nil)
}
