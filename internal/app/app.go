package app

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"indoor-nav.klederson.com/internal/bluetooth"
	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/floor"
	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
	"indoor-nav.klederson.com/internal/ui"
)

// Options configures the TUI.
type Options struct {
	Source          string            // shown in the menu bar
	Scanner         bluetooth.Scanner // nil when readings are injected by the caller
	Recompute       time.Duration     // engine tick cadence
	ArrivalRadius   float64           // meters
	CalibrateMeters float64           // known distance between the first two beacons, 0 to disable
	Logger          logrus.FieldLogger
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	engine  *engine.Engine
	pulse   *floor.Pulse
	scanner bluetooth.Scanner
	trails  *Trails
	log     logrus.FieldLogger
}

// AppModel is the root Bubble Tea model for indoor navigation.
type AppModel struct {
	width  int
	height int

	scanning bool
	opts     Options
	cursor   int // beacon list

	// Navigation
	poiIndex int            // selected POI, -1 for none
	mapMark  *pathfind.Cell // free destination picked on the map
	target   *pathfind.Cell
	poiName  string // set when target is a POI
	path     []pathfind.Cell
	lastCell pathfind.Cell
	arrived  bool

	message string
	errMsg  bool

	shared *shared

	// Cached per recompute
	snapshot engine.Snapshot
	pois     []engine.POI
	truth    *positioning.Point
}

// New creates a model driving eng.
func New(eng *engine.Engine, opts Options) AppModel {
	if opts.Recompute <= 0 {
		opts.Recompute = config.RecomputeInterval
	}
	if opts.ArrivalRadius <= 0 {
		opts.ArrivalRadius = config.ArrivalRadius
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return AppModel{
		scanning: true,
		opts:     opts,
		poiIndex: -1,
		shared: &shared{
			engine:  eng,
			pulse:   floor.NewPulse(),
			scanner: opts.Scanner,
			trails:  NewTrails(config.HistoryLen),
			log:     log,
		},
		snapshot: eng.Snapshot(),
		pois:     eng.POIs(),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		recomputeCmd(m.opts.Recompute),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.shared.pulse.Update(time.Time(msg))
		return m, tickCmd()

	case RecomputeMsg:
		if m.scanning {
			m.shared.engine.Tick(time.Time(msg))
		}
		m = m.refresh()
		return m, recomputeCmd(m.opts.Recompute)

	case bluetooth.ReadingMsg:
		if m.scanning {
			if err := m.shared.engine.Ingest(msg.Reading); err != nil {
				m.shared.log.WithError(err).WithField("beacon", msg.BeaconID).Debug("reading rejected")
			}
		}
		return m, nil

	case bluetooth.TruthMsg:
		p := msg.Position
		m.truth = &p
		return m, nil

	case bluetooth.ScanErrorMsg:
		m.message = msg.Err.Error()
		m.errMsg = true
		return m, nil
	}

	return m, nil
}

// refresh pulls a fresh snapshot, feeds the sparklines and re-plans the route when the
// receiver has moved to another cell.
func (m AppModel) refresh() AppModel {
	eng := m.shared.engine
	m.snapshot = eng.Snapshot()
	m.pois = eng.POIs()

	m.shared.trails.Record(m.snapshot)

	if m.target == nil {
		return m
	}
	if cell := engine.CellOf(m.snapshot.Position); cell != m.lastCell {
		m = m.plan()
	}
	m.arrived = eng.Within(*m.target, m.opts.ArrivalRadius)
	return m
}

// plan recomputes the route to the current target.
func (m AppModel) plan() AppModel {
	eng := m.shared.engine
	m.lastCell = engine.CellOf(eng.Position())
	if m.poiName != "" {
		path, err := eng.RouteToPOI(m.poiName)
		if err != nil {
			m.message, m.errMsg = err.Error(), true
			m.target, m.poiName, m.path = nil, "", nil
			return m
		}
		m.path = path
	} else {
		m.path = eng.Route(*m.target)
	}
	m.shared.log.WithFields(logrus.Fields{"target": m.label(), "path_len": len(m.path)}).Debug("route updated")
	return m
}

func (m AppModel) label() string {
	if m.poiName != "" {
		return m.poiName
	}
	return "cursor"
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.stopScanner()
		return m, tea.Quit

	case "s", "S":
		m.scanning = true

	case "p", "P":
		m.scanning = false

	case "up", "k":
		m = m.moveMark(-1, 0)
	case "down", "j":
		m = m.moveMark(1, 0)
	case "left", "h":
		m = m.moveMark(0, -1)
	case "right", "l":
		m = m.moveMark(0, 1)

	case "pgup":
		if m.cursor > 0 {
			m.cursor--
		}
	case "pgdown":
		if m.cursor < len(m.snapshot.Beacons)-1 {
			m.cursor++
		}

	case "tab":
		if len(m.pois) > 0 {
			m.poiIndex = (m.poiIndex + 1) % len(m.pois)
			m.mapMark = nil
		}

	case "enter":
		m = m.navigate()

	case "x", "X":
		m.target, m.poiName, m.path, m.mapMark = nil, "", nil, nil
		m.poiIndex = -1
		m.arrived = false
		m.message, m.errMsg = "route cleared", false

	case "c", "C":
		m = m.calibrate()
	}

	return m, nil
}

// moveMark nudges the map destination, starting from the receiver's cell.
func (m AppModel) moveMark(dr, dc int) AppModel {
	grid := m.shared.engine.Grid()
	if grid == nil {
		return m
	}
	c := engine.CellOf(m.snapshot.Position)
	if m.mapMark != nil {
		c = *m.mapMark
	}
	c = grid.Clamp(pathfind.Cell{Row: c.Row + dr, Col: c.Col + dc})
	m.mapMark = &c
	m.poiIndex = -1
	return m
}

// navigate routes to the map mark if one is set, else to the selected POI.
func (m AppModel) navigate() AppModel {
	switch {
	case m.mapMark != nil:
		t := *m.mapMark
		m.target, m.poiName = &t, ""
	case m.poiIndex >= 0 && m.poiIndex < len(m.pois):
		p := m.pois[m.poiIndex]
		t := p.Cell
		m.target, m.poiName = &t, p.Name
	default:
		m.message, m.errMsg = "pick a place with tab or the arrow keys", true
		return m
	}

	m = m.plan()
	if m.target == nil {
		return m
	}
	m.arrived = m.shared.engine.Within(*m.target, m.opts.ArrivalRadius)
	if len(m.path) == 0 {
		m.message, m.errMsg = fmt.Sprintf("no route to %s", m.label()), true
	} else {
		m.message, m.errMsg = fmt.Sprintf("routing to %s", m.label()), false
	}
	return m
}

func (m AppModel) calibrate() AppModel {
	if m.opts.CalibrateMeters <= 0 {
		m.message, m.errMsg = "set --calibrate-meters to calibrate", true
		return m
	}
	scale, err := m.shared.engine.CalibrateFirstPair(m.opts.CalibrateMeters)
	if err != nil {
		m.message, m.errMsg = err.Error(), true
		return m
	}
	m.snapshot = m.shared.engine.Snapshot()
	m.message, m.errMsg = fmt.Sprintf("scale %.2f units/m", scale), false
	return m
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing indoor navigation..."
	}

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 10 {
		bodyH = 10
	}

	sideW := m.width / 3
	if sideW < 32 {
		sideW = 32
	}
	mapW := m.width - sideW
	if mapW < 20 {
		mapW = 20
	}

	menuBar := ui.RenderMenuBar(m.width, m.opts.Source, m.scanning)

	innerW := mapW - 4
	innerH := bodyH - 4
	if innerW < 5 {
		innerW = 5
	}
	if innerH < 3 {
		innerH = 3
	}
	scene := floor.Scene{
		Grid:     m.shared.engine.Grid(),
		Position: m.snapshot.Position,
		Truth:    m.truth,
		Beacons:  m.snapshot.Beacons,
		POIs:     m.pois,
		Path:     m.path,
		Cursor:   m.mapMark,
	}
	mapContent := floor.Render(innerW, innerH, scene, m.shared.pulse)
	mapPanel := ui.RenderMapPanel(mapW, bodyH, mapContent, floor.RenderLegend(innerW))

	destH := len(m.pois) + 9
	if destH > bodyH/2 {
		destH = bodyH / 2
	}
	beaconList := ui.RenderBeaconList(m.snapshot.Beacons, m.shared.trails.All(), sideW, bodyH-destH, m.cursor)
	destination := ui.RenderDestination(ui.Destination{
		POIs:     m.pois,
		Selected: m.poiIndex,
		Target:   m.target,
		Label:    m.label(),
		Path:     m.path,
		Scale:    m.snapshot.Scale,
		Arrived:  m.arrived,
	}, sideW, destH)

	statusBar := ui.RenderStatusBar(m.width, ui.Status{
		Scanning: m.scanning,
		Position: m.snapshot.Position,
		Scale:    m.snapshot.Scale,
		Ranged:   m.snapshot.Ranged(),
		Beacons:  len(m.snapshot.Beacons),
		Strategy: m.snapshot.Strategy,
		Message:  m.message,
		Error:    m.errMsg,
	})

	return ui.ComposeLayout(menuBar, mapPanel, beaconList, destination, statusBar)
}

// StartScanner starts the configured reading source. Must be called before p.Run().
func (m *AppModel) StartScanner(out bluetooth.Sender) error {
	if m.shared.scanner == nil {
		return nil
	}
	return m.shared.scanner.Start(out)
}

func (m *AppModel) stopScanner() {
	if m.shared.scanner != nil {
		m.shared.scanner.Stop()
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func recomputeCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return RecomputeMsg(t)
	})
}
