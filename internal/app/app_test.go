package app

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indoor-nav.klederson.com/internal/bluetooth"
	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
	"indoor-nav.klederson.com/internal/ranging"
)

var base = time.Unix(1_700_000_000, 0)

func TestTrails(t *testing.T) {
	t.Parallel()

	ranged := func(id string, d float64) engine.BeaconState {
		return engine.BeaconState{Beacon: engine.Beacon{ID: id}, Ranged: true, Distance: d, HasDistance: true}
	}

	t.Run("keeps the newest estimates", func(t *testing.T) {
		tr := NewTrails(3)
		assert.Nil(t, tr.Of("a"))
		_, ok := tr.Latest("a")
		assert.False(t, ok)

		for _, d := range []float64{1, 2, 3, 4} {
			tr.Record(engine.Snapshot{Beacons: []engine.BeaconState{ranged("a", d)}})
		}
		assert.Equal(t, []float64{2, 3, 4}, tr.Of("a"))
		last, ok := tr.Latest("a")
		require.True(t, ok)
		assert.Equal(t, 4.0, last)
	})

	t.Run("unranged beacons keep their trail", func(t *testing.T) {
		tr := NewTrails(5)
		tr.Record(engine.Snapshot{Beacons: []engine.BeaconState{ranged("a", 2), ranged("b", 6)}})
		tr.Record(engine.Snapshot{Beacons: []engine.BeaconState{{Beacon: engine.Beacon{ID: "a"}}, ranged("b", 7)}})
		assert.Equal(t, []float64{2}, tr.Of("a"))
		assert.Equal(t, []float64{6, 7}, tr.Of("b"))
	})

	t.Run("removed beacons are dropped", func(t *testing.T) {
		tr := NewTrails(5)
		tr.Record(engine.Snapshot{Beacons: []engine.BeaconState{ranged("a", 2), ranged("b", 6)}})
		tr.Record(engine.Snapshot{Beacons: []engine.BeaconState{ranged("b", 5)}})
		assert.Equal(t, map[string][]float64{"b": {6, 5}}, tr.All())
	})

	t.Run("copies are detached", func(t *testing.T) {
		tr := NewTrails(0)
		tr.Record(engine.Snapshot{Beacons: []engine.BeaconState{ranged("a", 7)}})
		tr.Record(engine.Snapshot{Beacons: []engine.BeaconState{ranged("a", 8)}})
		got := tr.Of("a")
		assert.Equal(t, []float64{8}, got)
		got[0] = 99
		assert.Equal(t, []float64{8}, tr.All()["a"])
	})
}

func newModel(t *testing.T, opts Options) (AppModel, *engine.Engine) {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Alpha = 1
	eng, err := engine.New(pathfind.Open(10, 10), cfg)
	require.NoError(t, err)
	for _, b := range []engine.Beacon{
		{ID: "beacon-1", Position: positioning.Point{X: 0, Y: 0}, RefPowerAt1m: -59, PathLossExp: 2},
		{ID: "beacon-2", Position: positioning.Point{X: 9, Y: 0}, RefPowerAt1m: -59, PathLossExp: 2},
		{ID: "beacon-3", Position: positioning.Point{X: 0, Y: 9}, RefPowerAt1m: -59, PathLossExp: 2},
	} {
		require.NoError(t, eng.AddBeacon(b))
	}
	return New(eng, opts), eng
}

func update(t *testing.T, m AppModel, msg tea.Msg) AppModel {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(AppModel)
	require.True(t, ok)
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// feed sends one reading per beacon as seen from (x, y) and ticks.
func feed(t *testing.T, m AppModel, eng *engine.Engine, x, y float64, at time.Time) AppModel {
	t.Helper()
	for _, b := range eng.Beacons() {
		d := math.Hypot(b.Position.X-x, b.Position.Y-y)
		rssi := ranging.SignalAt(d, b.RefPowerAt1m, b.PathLossExp)
		m = update(t, m, bluetooth.ReadingMsg{Reading: ranging.Reading{BeaconID: b.ID, RSSI: rssi, Timestamp: at}})
	}
	return update(t, m, RecomputeMsg(at))
}

func TestReadingsMoveTheReceiver(t *testing.T) {
	t.Parallel()
	m, eng := newModel(t, Options{})

	m = feed(t, m, eng, 3, 4, base)
	assert.InDelta(t, 3, m.snapshot.Position.X, 0.05)
	assert.InDelta(t, 4, m.snapshot.Position.Y, 0.05)
	assert.Equal(t, 3, m.snapshot.Ranged())
	last, ok := m.shared.trails.Latest("beacon-1")
	require.True(t, ok)
	assert.InDelta(t, 5, last, 0.01)

	t.Run("paused model ignores readings", func(t *testing.T) {
		paused := update(t, m, key("p"))
		assert.False(t, paused.scanning)
		before := eng.Snapshot().Beacons[0].Samples
		paused = update(t, paused, bluetooth.ReadingMsg{Reading: ranging.Reading{BeaconID: "beacon-1", RSSI: -70, Timestamp: base}})
		assert.Equal(t, before, eng.Snapshot().Beacons[0].Samples)
		assert.True(t, update(t, paused, key("s")).scanning)
	})
}

func TestNavigation(t *testing.T) {
	t.Parallel()
	m, eng := newModel(t, Options{})
	_, err := eng.AddPOI(engine.POI{Name: "Desk", Cell: pathfind.Cell{Row: 4, Col: 3}})
	require.NoError(t, err)
	_, err = eng.AddPOI(engine.POI{Name: "Far", Cell: pathfind.Cell{Row: 9, Col: 9}})
	require.NoError(t, err)

	m = feed(t, m, eng, 3, 4, base)
	require.Len(t, m.pois, 2)

	t.Run("enter without a pick", func(t *testing.T) {
		got := update(t, m, key("enter"))
		assert.Nil(t, got.target)
		assert.True(t, got.errMsg)
	})

	t.Run("arrived at the nearby place", func(t *testing.T) {
		got := update(t, m, key("tab"))
		assert.Equal(t, 0, got.poiIndex)
		got = update(t, got, key("enter"))
		require.NotNil(t, got.target)
		assert.Equal(t, "Desk", got.poiName)
		assert.True(t, got.arrived)
	})

	t.Run("routes to the far place", func(t *testing.T) {
		got := update(t, update(t, update(t, m, key("tab")), key("tab")), key("enter"))
		assert.Equal(t, "Far", got.poiName)
		assert.False(t, got.arrived)
		require.NotEmpty(t, got.path)
		assert.Equal(t, pathfind.Cell{Row: 4, Col: 3}, got.path[0])
		assert.Equal(t, pathfind.Cell{Row: 9, Col: 9}, got.path[len(got.path)-1])
		assert.Equal(t, "routing to Far", got.message)

		// Moving replans from the new cell once the old samples age out.
		got = feed(t, got, eng, 6, 6, base.Add(4*time.Second))
		require.NotEmpty(t, got.path)
		assert.Equal(t, pathfind.Cell{Row: 6, Col: 6}, got.path[0])

		cleared := update(t, got, key("x"))
		assert.Nil(t, cleared.target)
		assert.Empty(t, cleared.path)
		assert.Equal(t, -1, cleared.poiIndex)
	})

	t.Run("map mark", func(t *testing.T) {
		got := update(t, m, key("right"))
		require.NotNil(t, got.mapMark)
		assert.Equal(t, pathfind.Cell{Row: 4, Col: 4}, *got.mapMark)
		got = update(t, got, key("l"))
		assert.Equal(t, pathfind.Cell{Row: 4, Col: 5}, *got.mapMark)

		got = update(t, got, key("enter"))
		require.NotNil(t, got.target)
		assert.Empty(t, got.poiName)
		require.NotEmpty(t, got.path)
		assert.Equal(t, pathfind.Cell{Row: 4, Col: 5}, got.path[len(got.path)-1])
	})
}

func TestCalibrateKey(t *testing.T) {
	t.Parallel()

	m, _ := newModel(t, Options{})
	got := update(t, m, key("c"))
	assert.True(t, got.errMsg)
	assert.Equal(t, 1.0, got.snapshot.Scale)

	m, _ = newModel(t, Options{CalibrateMeters: 4.5})
	got = update(t, m, key("c"))
	assert.False(t, got.errMsg)
	assert.InDelta(t, 2, got.snapshot.Scale, 1e-9)
}

func TestScanErrorAndTruth(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t, Options{})

	got := update(t, m, bluetooth.ScanErrorMsg{Err: errors.New("adapter gone")})
	assert.Equal(t, "adapter gone", got.message)
	assert.True(t, got.errMsg)

	got = update(t, got, bluetooth.TruthMsg{Position: positioning.Point{X: 2, Y: 2}})
	require.NotNil(t, got.truth)
	assert.Equal(t, positioning.Point{X: 2, Y: 2}, *got.truth)
}

func TestView(t *testing.T) {
	t.Parallel()
	m, eng := newModel(t, Options{Source: "demo"})

	assert.Equal(t, "Initializing indoor navigation...", m.View())

	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = feed(t, m, eng, 3, 4, base)
	m = update(t, m, key("pgdown"))
	assert.Equal(t, 1, m.cursor)

	view := m.View()
	assert.Contains(t, view, "BEACONS")
	assert.Contains(t, view, "DESTINATION")
	assert.Contains(t, view, "Source: demo")
	assert.GreaterOrEqual(t, len(strings.Split(view, "\n")), 40)
}

type stubScanner struct {
	started, stopped bool
}

func (s *stubScanner) Start(bluetooth.Sender) error { s.started = true; return nil }
func (s *stubScanner) Stop()                        { s.stopped = true }

func TestScannerLifecycle(t *testing.T) {
	t.Parallel()
	sc := &stubScanner{}
	m, _ := newModel(t, Options{Scanner: sc})

	require.NoError(t, m.StartScanner(bluetooth.SenderFunc(func(tea.Msg) {})))
	assert.True(t, sc.started)

	_, cmd := m.Update(key("q"))
	assert.True(t, sc.stopped)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
