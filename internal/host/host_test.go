package host

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/chartbridge/internal/engine"
	"github.com/dgnsrekt/chartbridge/internal/layout"
	"github.com/dgnsrekt/chartbridge/internal/pricefeed"
	"github.com/dgnsrekt/chartbridge/internal/relay"
)

const testLayout = `{"charts":[{"panes":[{"sources":[{"id":"L1","type":"LineToolTrendLine","state":{"symbol":"VNM"},"points":[{"time_t":0,"price":10},{"time_t":100000,"price":20}]}]}]}]}`

type fakeSender struct {
	mu     sync.Mutex
	cmds   []engine.Command
	closed bool
}

func (f *fakeSender) Send(cmd engine.Command) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cmds))
	for i, c := range f.cmds {
		out[i] = c.Type
	}
	return out
}

func (f *fakeSender) last() engine.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cmds[len(f.cmds)-1]
}

type memStore struct {
	mu  sync.Mutex
	doc layout.Layout
}

func (m *memStore) Save(l layout.Layout) {
	m.mu.Lock()
	m.doc = l
	m.mu.Unlock()
}

func (m *memStore) Load() layout.Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}

func testDelays() Delays {
	return Delays{
		ApplySettle: 10 * time.Millisecond,
		ModalMount:  10 * time.Millisecond,
		ModalClose:  50 * time.Millisecond,
	}
}

func newTestHost(t *testing.T, store *memStore) *Host {
	t.Helper()
	h := New(store, pricefeed.NewTracker(), relay.NewBroker(), nil, "VNM", ThemeLight, testDelays())
	t.Cleanup(h.Close)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func deliverTick(h *Host, instance string, timeT, price float64) {
	payload, _ := json.Marshal(engine.TickPayload{Time: timeT, Close: price})
	h.HandleMessage(instance, engine.Message{Type: engine.MsgTick, Payload: payload})
}

func TestAttachReplaysStoredLayoutBeforeSymbol(t *testing.T) {
	store := &memStore{doc: layout.Layout(testLayout)}
	h := newTestHost(t, store)

	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}

	waitFor(t, "settled changeSymbol", func() bool { return len(conn.types()) == 3 })
	want := []string{engine.CmdChangeTheme, engine.CmdApplyLayout, engine.CmdChangeSymbol}
	for i, typ := range conn.types() {
		if typ != want[i] {
			t.Fatalf("command[%d] = %s; want sequence %v", i, typ, want)
		}
	}

	var sym string
	if err := json.Unmarshal(conn.last().Payload, &sym); err != nil || sym != "VNM" {
		t.Fatalf("settled changeSymbol payload = %s; want \"VNM\"", conn.last().Payload)
	}
}

func TestAttachWithoutLayoutSendsSymbolImmediately(t *testing.T) {
	h := newTestHost(t, &memStore{})

	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}

	got := conn.types()
	want := []string{engine.CmdChangeTheme, engine.CmdChangeSymbol}
	if len(got) != len(want) {
		t.Fatalf("commands = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("commands = %v; want %v", got, want)
		}
	}
}

func TestAttachRejectsUnknownInstance(t *testing.T) {
	h := newTestHost(t, &memStore{})
	if err := h.AttachInstance("medium", &fakeSender{}); err == nil {
		t.Fatal("AttachInstance accepted unknown instance name")
	}
}

func drainMaps(t *testing.T, events <-chan relay.Event) (int, []struct {
	LineID string `json:"lineId"`
	Side   string `json:"side"`
}) {
	t.Helper()
	maps := 0
	var reports []struct {
		LineID string `json:"lineId"`
		Side   string `json:"side"`
	}
	for {
		select {
		case evt := <-events:
			if evt.Type == engine.MsgTrendingLineMap {
				maps++
				if err := json.Unmarshal([]byte(evt.Payload), &reports); err != nil {
					t.Fatalf("bad trendingLineMap payload %s: %v", evt.Payload, err)
				}
			}
		case <-time.After(100 * time.Millisecond):
			return maps, reports
		}
	}
}

func TestExtractionLatchFiresOncePerSymbolSession(t *testing.T) {
	store := &memStore{doc: layout.Layout(testLayout)}
	h := newTestHost(t, store)

	_, events := h.broker.Subscribe()

	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}

	deliverTick(h, InstanceSmall, 50, 16)
	deliverTick(h, InstanceSmall, 51, 14)
	h.HandleMessage(InstanceSmall, engine.Message{Type: engine.MsgChartReady})

	maps, reports := drainMaps(t, events)
	if maps != 1 {
		t.Fatalf("trendingLineMap published %d times; want exactly once", maps)
	}
	if len(reports) != 1 || reports[0].LineID != "L1" || reports[0].Side != "above" {
		t.Fatalf("reports = %+v; want single L1 above", reports)
	}
}

func TestEveryLayoutMessageTriggersExtraction(t *testing.T) {
	h := newTestHost(t, &memStore{})
	_, events := h.broker.Subscribe()

	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}

	deliverTick(h, InstanceSmall, 50, 16)
	h.HandleMessage(InstanceSmall, engine.Message{Type: engine.MsgLayout, Payload: json.RawMessage(testLayout)})
	h.HandleMessage(InstanceSmall, engine.Message{Type: engine.MsgLayout, Payload: json.RawMessage(testLayout)})

	maps, reports := drainMaps(t, events)
	if maps != 2 {
		t.Fatalf("trendingLineMap published %d times; want once per layout capture", maps)
	}
	if len(reports) != 1 || reports[0].Side != "above" {
		t.Fatalf("reports = %+v; want single L1 above", reports)
	}
}

func TestSymbolChangeResetsExtractionLatch(t *testing.T) {
	h := newTestHost(t, &memStore{})
	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}

	h.HandleMessage(InstanceSmall, engine.Message{Type: engine.MsgLayout, Payload: json.RawMessage(testLayout)})
	deliverTick(h, InstanceSmall, 50, 16)
	if !h.State().Extracted {
		t.Fatal("extraction latch not armed after layout + tick")
	}

	if err := h.SetSymbol("hose:hpg"); err != nil {
		t.Fatalf("SetSymbol failed: %v", err)
	}
	if h.State().Extracted {
		t.Fatal("latch survived a symbol change")
	}
	if h.State().Symbol != "HPG" {
		t.Fatalf("symbol = %q; want normalized HPG", h.State().Symbol)
	}

	var sym string
	if err := json.Unmarshal(conn.last().Payload, &sym); err != nil || sym != "HPG" {
		t.Fatalf("changeSymbol payload = %s; want \"HPG\"", conn.last().Payload)
	}

	deliverTick(h, InstanceSmall, 60, 17)
	if !h.State().Extracted {
		t.Fatal("latch did not re-arm after new symbol tick")
	}
}

func TestSetSymbolUnchangedStillResends(t *testing.T) {
	h := newTestHost(t, &memStore{})
	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}

	h.HandleMessage(InstanceSmall, engine.Message{Type: engine.MsgLayout, Payload: json.RawMessage(testLayout)})
	deliverTick(h, InstanceSmall, 50, 16)

	before := len(conn.types())
	if err := h.SetSymbol("HOSE:VNM"); err != nil {
		t.Fatalf("SetSymbol failed: %v", err)
	}
	if got := conn.types(); len(got) != before+1 || got[len(got)-1] != engine.CmdChangeSymbol {
		t.Fatalf("commands after same-symbol set = %v; want one more changeSymbol", got)
	}
	if !h.State().Extracted {
		t.Fatal("same-symbol set must not reset the extraction latch")
	}
}

func TestCloseFullscreenSyncsLayoutBack(t *testing.T) {
	h := newTestHost(t, &memStore{})
	small := &fakeSender{}
	full := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, small); err != nil {
		t.Fatalf("attach small: %v", err)
	}
	if err := h.OpenFullscreen(); err != nil {
		t.Fatalf("OpenFullscreen failed: %v", err)
	}
	if err := h.AttachInstance(InstanceFull, full); err != nil {
		t.Fatalf("attach full: %v", err)
	}

	if err := h.CloseFullscreen(); err != nil {
		t.Fatalf("CloseFullscreen failed: %v", err)
	}
	if got := full.last(); got.Type != engine.CmdRequestLayout {
		t.Fatalf("full instance got %s on close; want requestLayout", got.Type)
	}

	h.HandleMessage(InstanceFull, engine.Message{Type: engine.MsgLayout, Payload: json.RawMessage(testLayout)})

	got := small.last()
	if got.Type != engine.CmdApplyLayout || string(got.Payload) != testLayout {
		t.Fatalf("small instance got %s; want applyLayout with exported bytes", got.Type)
	}

	waitFor(t, "full instance teardown", func() bool {
		return h.State().Instances[InstanceFull] == PhaseUnmounted
	})
	full.mu.Lock()
	closed := full.closed
	full.mu.Unlock()
	if !closed {
		t.Fatal("full instance channel not closed after modal teardown")
	}
}

func TestOpenFullscreenBootstrapsLayoutFromSmall(t *testing.T) {
	h := newTestHost(t, &memStore{})
	small := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, small); err != nil {
		t.Fatalf("attach small: %v", err)
	}

	if err := h.OpenFullscreen(); err != nil {
		t.Fatalf("OpenFullscreen failed: %v", err)
	}
	waitFor(t, "bootstrap requestLayout", func() bool {
		types := small.types()
		return len(types) > 0 && types[len(types)-1] == engine.CmdRequestLayout
	})
}

func TestSetThemeValidatesMode(t *testing.T) {
	h := newTestHost(t, &memStore{})
	if err := h.SetTheme("sepia"); err == nil {
		t.Fatal("SetTheme accepted an unknown mode")
	}

	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}
	if err := h.SetTheme(ThemeDark); err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}
	if got := conn.last(); got.Type != engine.CmdChangeTheme || string(got.Payload) != `"dark"` {
		t.Fatalf("got %s %s; want changeTheme \"dark\"", got.Type, got.Payload)
	}
	if h.State().Theme != ThemeDark {
		t.Fatalf("theme = %q; want dark", h.State().Theme)
	}
}

func TestLayoutCapturePersistsToStore(t *testing.T) {
	store := &memStore{}
	h := newTestHost(t, store)
	conn := &fakeSender{}
	if err := h.AttachInstance(InstanceSmall, conn); err != nil {
		t.Fatalf("AttachInstance failed: %v", err)
	}

	h.HandleMessage(InstanceSmall, engine.Message{Type: engine.MsgLayout, Payload: json.RawMessage(testLayout)})

	if string(store.Load()) != testLayout {
		t.Fatalf("store holds %s; want captured layout", store.Load())
	}
	if string(h.Layout()) != testLayout {
		t.Fatalf("Layout() = %s; want captured layout", h.Layout())
	}
}

func TestTrendlinesOnDemandWithoutLayout(t *testing.T) {
	h := newTestHost(t, &memStore{})
	reports, err := h.Trendlines()
	if err != nil {
		t.Fatalf("Trendlines failed: %v", err)
	}
	if reports == nil || len(reports) != 0 {
		t.Fatalf("Trendlines() = %v; want empty non-nil slice", reports)
	}
}
