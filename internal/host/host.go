package host

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/chartbridge/internal/engine"
	"github.com/dgnsrekt/chartbridge/internal/layout"
	"github.com/dgnsrekt/chartbridge/internal/pricefeed"
	"github.com/dgnsrekt/chartbridge/internal/relay"
	"github.com/dgnsrekt/chartbridge/internal/symbol"
	"github.com/dgnsrekt/chartbridge/internal/trendline"
)

// Engine instance names. The small instance renders the inline card; the
// full instance backs the fullscreen modal and exists only while the modal
// is open.
const (
	InstanceSmall = "small"
	InstanceFull  = "full"
)

// Instance phases.
const (
	PhaseUnmounted = "unmounted"
	PhaseLoading   = "loading"
	PhaseReady     = "ready"
)

// Theme modes accepted by SetTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Delays holds the fixed settle timers of the command sequencing rules.
type Delays struct {
	// ApplySettle is the gap between applyLayout and the follow-up
	// changeSymbol on instance attach.
	ApplySettle time.Duration
	// ModalMount is how long after fullscreen open the host waits before
	// bootstrapping a layout capture from the small instance.
	ModalMount time.Duration
	// ModalClose is how long after fullscreen close the full instance is
	// kept alive so its final layout export can arrive.
	ModalClose time.Duration
}

// DefaultDelays returns the stock sequencing delays.
func DefaultDelays() Delays {
	return Delays{
		ApplySettle: 500 * time.Millisecond,
		ModalMount:  200 * time.Millisecond,
		ModalClose:  800 * time.Millisecond,
	}
}

// Sender is the command channel to one engine instance.
type Sender interface {
	Send(cmd engine.Command) error
	Close() error
}

// LayoutStore persists the single shared chart layout.
type LayoutStore interface {
	Save(l layout.Layout)
	Load() layout.Layout
}

// CrossNotifier is told when a trendline flips sides against the live price.
type CrossNotifier interface {
	LineCrossed(sym, lineID, from, to string)
}

type instanceState struct {
	conn  Sender
	phase string
}

// Host coordinates the two chart engine instances: it replays persisted
// layouts and the active symbol into freshly attached instances, captures
// layout exports, keeps the live price sample, and synthesizes trendline
// reports. All inbound traffic is mirrored onto the SSE broker.
type Host struct {
	store    LayoutStore
	tracker  *pricefeed.Tracker
	broker   *relay.Broker
	notifier CrossNotifier
	delays   Delays

	mu         sync.Mutex
	instances  map[string]*instanceState
	symbol     string
	theme      string
	lastLayout layout.Layout
	fullscreen bool

	// syncPending marks that the next layout export from the full instance
	// must be replayed into the small one.
	syncPending bool

	// extracted latches trendline extraction to once per symbol session.
	extracted bool
	prevSides map[string]string

	timers map[*time.Timer]struct{}
	closed bool
}

// New builds a Host. The persisted layout, if any, is loaded eagerly so the
// first instance attach can replay it. notifier may be nil.
func New(store LayoutStore, tracker *pricefeed.Tracker, broker *relay.Broker, notifier CrossNotifier, sym, theme string, delays Delays) *Host {
	h := &Host{
		store:    store,
		tracker:  tracker,
		broker:   broker,
		notifier: notifier,
		delays:   delays,
		instances: map[string]*instanceState{
			InstanceSmall: {phase: PhaseUnmounted},
			InstanceFull:  {phase: PhaseUnmounted},
		},
		symbol:    symbol.Normalize(sym),
		theme:     theme,
		prevSides: make(map[string]string),
		timers:    make(map[*time.Timer]struct{}),
	}
	if store != nil {
		h.lastLayout = store.Load()
	}
	return h
}

// AttachInstance registers a freshly connected engine instance and runs the
// attach sequence: theme first, then layout replay with a settle gap before
// the symbol, or the symbol alone when no layout is stored.
func (h *Host) AttachInstance(instance string, conn Sender) error {
	h.mu.Lock()
	st, ok := h.instances[instance]
	if !ok {
		h.mu.Unlock()
		return engine.NewError(engine.CodeValidation, "unknown instance "+instance, nil)
	}
	if prev := st.conn; prev != nil {
		go prev.Close()
	}
	st.conn = conn
	st.phase = PhaseLoading

	h.post(conn, engine.ChangeTheme(h.theme))

	if len(h.lastLayout) > 0 {
		h.post(conn, engine.ApplyLayout(h.lastLayout))
		h.afterLocked(h.delays.ApplySettle, func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			// The symbol may have changed while the layout was settling;
			// send whatever is current.
			if st.conn == conn {
				h.post(conn, engine.ChangeSymbol(h.symbol))
			}
		})
	} else {
		h.post(conn, engine.ChangeSymbol(h.symbol))
	}

	slog.Info("engine instance attached", "instance", instance, "symbol", h.symbol, "theme", h.theme, "replayed_layout", len(h.lastLayout) > 0)
	h.mu.Unlock()
	return nil
}

// ConnClosed implements engine.Handler. Stale close events from a connection
// that was already replaced are ignored.
func (h *Host) ConnClosed(instance string, c *engine.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.instances[instance]
	if !ok || st.conn != Sender(c) {
		return
	}
	st.conn = nil
	st.phase = PhaseUnmounted
	slog.Info("engine instance detached", "instance", instance)
}

// HandleMessage implements engine.Handler. Every inbound message is mirrored
// onto the event broker before it is dispatched.
func (h *Host) HandleMessage(instance string, msg engine.Message) {
	h.broker.Publish(relay.Event{Type: msg.Type, Payload: string(msg.Payload)})

	switch msg.Type {
	case engine.MsgTick:
		h.handleTick(instance, msg.Payload)
	case engine.MsgLayout:
		h.handleLayout(instance, msg.Payload)
	case engine.MsgChartReady:
		h.handleChartReady(instance)
	default:
		slog.Debug("unhandled engine message", "instance", instance, "type", msg.Type)
	}
}

func (h *Host) handleTick(instance string, payload json.RawMessage) {
	var tick engine.TickPayload
	if err := json.Unmarshal(payload, &tick); err != nil {
		slog.Warn("bad tick payload", "instance", instance, "error", err)
		return
	}
	h.tracker.Update(pricefeed.Sample{TimeT: tick.Time, Price: tick.Close})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.maybeExtract()
}

func (h *Host) handleLayout(instance string, payload json.RawMessage) {
	if len(payload) == 0 {
		return
	}
	doc := layout.Layout(payload)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastLayout = doc
	if h.store != nil {
		h.store.Save(doc)
	}
	slog.Info("layout captured", "instance", instance, "bytes", len(doc))

	// Every captured layout gets a fresh extraction pass; lines without a
	// live price yet are reported as pending, not dropped.
	if h.tracker.Latest().Valid() {
		h.extracted = true
	}
	h.runExtraction()

	if h.syncPending && instance == InstanceFull {
		h.syncPending = false
		if small := h.instances[InstanceSmall].conn; small != nil {
			h.post(small, engine.ApplyLayout(doc))
			slog.Info("layout synced back to small instance", "bytes", len(doc))
		}
		h.finishClose()
	}
}

func (h *Host) handleChartReady(instance string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.instances[instance]; ok {
		st.phase = PhaseReady
	}
	// Only the always-mounted instance's ready signal arms the session
	// extraction; the modal instance reloads too often to be a trigger.
	if instance == InstanceSmall {
		h.maybeExtract()
	}
}

// maybeExtract runs trendline extraction once per symbol session, as soon as
// both a layout and a valid price sample are available. Callers hold h.mu.
func (h *Host) maybeExtract() {
	if h.extracted || len(h.lastLayout) == 0 {
		return
	}
	if !h.tracker.Latest().Valid() {
		return
	}
	h.extracted = true
	h.runExtraction()
}

// runExtraction classifies the current layout against the live sample and
// publishes the resulting map plus any side-flip alerts. Callers hold h.mu.
func (h *Host) runExtraction() {
	if len(h.lastLayout) == 0 {
		return
	}
	reports := trendline.Extract(h.lastLayout, h.symbol, h.tracker.Latest())
	if reports == nil {
		reports = []trendline.Report{}
	}
	data, err := json.Marshal(reports)
	if err != nil {
		slog.Error("marshal trendline reports", "error", err)
		return
	}
	h.broker.Publish(relay.Event{Type: engine.MsgTrendingLineMap, Payload: string(data)})
	slog.Info("trendline map published", "symbol", h.symbol, "lines", len(reports))

	for _, r := range reports {
		prev, seen := h.prevSides[r.LineID]
		if seen && prev != r.Side && prev != trendline.SideUnknown && r.Side != trendline.SideUnknown {
			evt, _ := json.Marshal(map[string]string{
				"symbol": h.symbol, "lineId": r.LineID, "from": prev, "to": r.Side,
			})
			h.broker.Publish(relay.Event{Type: "lineCrossed", Payload: string(evt)})
			if h.notifier != nil {
				go h.notifier.LineCrossed(h.symbol, r.LineID, prev, r.Side)
			}
		}
		if r.Side != trendline.SideUnknown {
			h.prevSides[r.LineID] = r.Side
		}
	}
}

// SetSymbol switches the active symbol on every attached instance. The
// command is resent even when the normalized symbol is unchanged; the
// extraction latch only resets when it actually changed.
func (h *Host) SetSymbol(sym string) error {
	norm := symbol.Normalize(sym)
	if norm == "" {
		return engine.NewError(engine.CodeValidation, "symbol is required", nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if norm != h.symbol {
		h.symbol = norm
		h.extracted = false
		h.prevSides = make(map[string]string)
		h.tracker.Reset()
	}

	for name, st := range h.instances {
		if st.conn != nil {
			h.post(st.conn, engine.ChangeSymbol(h.symbol))
			slog.Debug("symbol pushed", "instance", name, "symbol", h.symbol)
		}
	}
	return nil
}

// SetTheme switches the color theme on every attached instance.
func (h *Host) SetTheme(mode string) error {
	if mode != ThemeLight && mode != ThemeDark {
		return engine.NewError(engine.CodeValidation, "theme must be light or dark", nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.theme = mode
	for _, st := range h.instances {
		if st.conn != nil {
			h.post(st.conn, engine.ChangeTheme(mode))
		}
	}
	return nil
}

// OpenFullscreen marks the modal open. The full instance attaches on its own
// once its page loads; if no layout has ever been captured, the small
// instance is asked for one after the modal mount delay so drawings made
// inline survive into the modal.
func (h *Host) OpenFullscreen() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.fullscreen {
		return nil
	}
	h.fullscreen = true
	slog.Info("fullscreen opened")

	h.afterLocked(h.delays.ModalMount, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.fullscreen || len(h.lastLayout) > 0 {
			return
		}
		if small := h.instances[InstanceSmall].conn; small != nil {
			h.post(small, engine.RequestLayout())
			slog.Debug("bootstrap layout requested from small instance")
		}
	})
	return nil
}

// CloseFullscreen starts the modal teardown: the full instance is asked for
// a final layout export and kept alive, modal still visible, until either the
// export lands (and is replayed into the small instance) or the close delay
// expires. The modal state flips off only in finishClose.
func (h *Host) CloseFullscreen() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.fullscreen || h.syncPending {
		return nil
	}
	h.syncPending = true

	if full := h.instances[InstanceFull].conn; full != nil {
		h.post(full, engine.RequestLayout())
	}

	h.afterLocked(h.delays.ModalClose, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.finishClose()
	})
	slog.Info("fullscreen closing", "teardown_in", h.delays.ModalClose)
	return nil
}

// finishClose flips the modal off and tears the full instance down.
// Idempotent; callers hold h.mu.
func (h *Host) finishClose() {
	if !h.fullscreen {
		return
	}
	h.fullscreen = false
	h.syncPending = false
	st := h.instances[InstanceFull]
	if st.conn != nil {
		go st.conn.Close()
		st.conn = nil
	}
	st.phase = PhaseUnmounted
	slog.Info("full instance torn down")
}

// RequestLayout asks an attached instance for a layout export. The export
// arrives asynchronously as a "layout" message. The full instance is
// preferred while the modal is open since it has the freshest drawings.
func (h *Host) RequestLayout() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	target := h.instances[InstanceSmall].conn
	if h.fullscreen && h.instances[InstanceFull].conn != nil {
		target = h.instances[InstanceFull].conn
	}
	if target == nil {
		return engine.NewError(engine.CodeEngineUnavailable, "no engine instance attached", nil)
	}
	h.post(target, engine.RequestLayout())
	return nil
}

// Layout returns the current in-memory layout, or nil when none was ever
// captured.
func (h *Host) Layout() layout.Layout {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastLayout
}

// Trendlines recomputes the trendline map on demand against the live price
// sample. Unlike the latched session extraction it can be called repeatedly.
func (h *Host) Trendlines() ([]trendline.Report, error) {
	h.mu.Lock()
	doc := h.lastLayout
	sym := h.symbol
	h.mu.Unlock()

	if len(doc) == 0 {
		return []trendline.Report{}, nil
	}
	reports := trendline.Extract(doc, sym, h.tracker.Latest())
	if reports == nil {
		reports = []trendline.Report{}
	}
	return reports, nil
}

// Snapshot is a point-in-time view of the host state.
type Snapshot struct {
	Symbol     string            `json:"symbol"`
	Theme      string            `json:"theme"`
	Fullscreen bool              `json:"fullscreen"`
	HasLayout  bool              `json:"hasLayout"`
	Extracted  bool              `json:"extracted"`
	Instances  map[string]string `json:"instances"`
	LastTick   *pricefeed.Sample `json:"lastTick,omitempty"`
}

// State returns a snapshot of the host.
func (h *Host) State() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := Snapshot{
		Symbol:     h.symbol,
		Theme:      h.theme,
		Fullscreen: h.fullscreen,
		HasLayout:  len(h.lastLayout) > 0,
		Extracted:  h.extracted,
		Instances:  make(map[string]string, len(h.instances)),
	}
	for name, st := range h.instances {
		snap.Instances[name] = st.phase
	}
	if sample := h.tracker.Latest(); sample.Valid() {
		snap.LastTick = &sample
	}
	return snap
}

// Close stops all pending timers and tears down every instance channel.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for t := range h.timers {
		t.Stop()
	}
	h.timers = make(map[*time.Timer]struct{})

	for _, st := range h.instances {
		if st.conn != nil {
			go st.conn.Close()
			st.conn = nil
		}
		st.phase = PhaseUnmounted
	}
}

// post fires a command and logs failures; delivery is best effort and errors
// never propagate to the caller. Callers hold h.mu.
func (h *Host) post(conn Sender, cmd engine.Command) {
	if err := conn.Send(cmd); err != nil {
		slog.Warn("engine command dropped", "type", cmd.Type, "error", err)
	}
}

// afterLocked schedules fn on a tracked one-shot timer. Callers hold h.mu.
func (h *Host) afterLocked(d time.Duration, fn func()) {
	if h.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		fn()
		h.mu.Lock()
		delete(h.timers, t)
		h.mu.Unlock()
	})
	h.timers[t] = struct{}{}
}
