// Package engine owns the positioning pipeline: beacon registry, per-beacon sample
// filtering, multilateration, smoothing, calibration and routing. Hosts feed it readings
// and drive it with explicit ticks; it never starts timers or goroutines of its own.
package engine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
	"indoor-nav.klederson.com/internal/ranging"
)

var (
	ErrEmptyID         = errors.New("id must not be empty")
	ErrDuplicateBeacon = errors.New("beacon already registered")
	ErrUnknownBeacon   = errors.New("beacon not registered")
	ErrInvalidBeacon   = errors.New("beacon position and reference power must be finite")
	ErrTooFewBeacons   = errors.New("calibration needs two registered beacons")
	ErrDuplicatePOI    = errors.New("point of interest already exists")
	ErrUnknownPOI      = errors.New("point of interest not found")
	ErrInvalidConfig   = errors.New("invalid engine config")
)

// Config holds the engine tuning knobs.
type Config struct {
	Window     time.Duration // sample age bound per beacon
	MaxSamples int           // sample count bound per beacon
	StaleAfter time.Duration // beacons silent for longer stop counting as ranged; 0 disables
	Alpha      float64       // smoothing factor in (0, 1]
	Strategy   positioning.Strategy
	Start      positioning.Point // position held until the first estimate
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Window:     config.SampleWindow,
		MaxSamples: config.MaxSamples,
		StaleAfter: config.StaleAfter,
		Alpha:      config.SmoothingAlpha,
		Strategy:   positioning.StrategyPairwise,
	}
}

func (c Config) validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("%w: max samples must be positive, got %d", ErrInvalidConfig, c.MaxSamples)
	}
	if c.StaleAfter < 0 {
		return fmt.Errorf("%w: stale timeout must not be negative, got %s", ErrInvalidConfig, c.StaleAfter)
	}
	return nil
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger routes engine logs to l. Without it the engine is silent.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine is safe for concurrent use. Readings for one beacon must be ingested in
// arrival order.
type Engine struct {
	mu  sync.RWMutex
	log logrus.FieldLogger
	cfg Config

	grid      *pathfind.Grid
	beacons   *registry
	pois      *poiCatalog
	filter    *ranging.Filter
	estimator *positioning.Estimator
	smoother  *positioning.Smoother
	scale     float64
	lastTick  time.Time
}

// New creates an engine over grid. A nil grid disables routing.
func New(grid *pathfind.Grid, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !cfg.Start.Finite() {
		cfg.Start = positioning.Point{}
	}
	smoother, err := positioning.NewSmoother(cfg.Alpha, cfg.Start)
	if err != nil {
		return nil, err
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		log:       discard,
		cfg:       cfg,
		grid:      grid,
		beacons:   newRegistry(),
		pois:      newPOICatalog(),
		filter:    ranging.NewFilter(cfg.Window, cfg.MaxSamples),
		estimator: positioning.NewEstimator(cfg.Strategy, cfg.Start),
		smoother:  smoother,
		scale:     positioning.DefaultScale,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Grid returns the walkability grid, nil when routing is disabled.
func (e *Engine) Grid() *pathfind.Grid { return e.grid }

// Config returns the engine tuning.
func (e *Engine) Config() Config { return e.cfg }

// AddBeacon registers a beacon.
func (e *Engine) AddBeacon(b Beacon) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.beacons.add(b); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"beacon": b.ID, "x": b.Position.X, "y": b.Position.Y}).Info("beacon registered")
	return nil
}

// UpdateBeacon replaces a registered beacon's position and path-loss parameters.
// Its sample history is kept.
func (e *Engine) UpdateBeacon(b Beacon) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.beacons.update(b); err != nil {
		return err
	}
	e.log.WithField("beacon", b.ID).Info("beacon updated")
	return nil
}

// MoveBeacon changes only a beacon's fixed position.
func (e *Engine) MoveBeacon(id string, pos positioning.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.beacons.get(id)
	if !ok {
		return fmt.Errorf("move %s: %w", id, ErrUnknownBeacon)
	}
	b.Position = pos
	if err := e.beacons.update(b); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"beacon": id, "x": pos.X, "y": pos.Y}).Info("beacon moved")
	return nil
}

// RemoveBeacon unregisters a beacon and drops its samples.
func (e *Engine) RemoveBeacon(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.beacons.remove(id); err != nil {
		return err
	}
	e.filter.Forget(id)
	e.log.WithField("beacon", id).Info("beacon removed")
	return nil
}

// Beacon returns a registered beacon.
func (e *Engine) Beacon(id string) (Beacon, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.beacons.get(id)
}

// Beacons lists registered beacons in registration order.
func (e *Engine) Beacons() []Beacon {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.beacons.list()
}

// Ingest feeds one reading into its beacon's sample window. Readings from beacons that
// are not registered are ignored; scanners hear far more devices than the floor uses.
func (e *Engine) Ingest(r ranging.Reading) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.beacons.get(r.BeaconID)
	if !ok {
		e.log.WithField("beacon", r.BeaconID).Trace("reading from unregistered beacon dropped")
		return nil
	}
	if err := e.filter.Ingest(r, b.params()); err != nil {
		e.log.WithError(err).WithField("beacon", r.BeaconID).Debug("reading rejected")
		return err
	}
	return nil
}

// Tick runs one recompute: ages out samples, estimates a raw position from the beacons
// ranged at now and advances the smoothed position. It returns the smoothed position.
func (e *Engine) Tick(now time.Time) positioning.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter.Evict(now)
	e.lastTick = now

	anchors := e.anchorsLocked(now)
	raw := e.estimator.Estimate(anchors, e.scale)
	pos := e.smoother.Step(raw)

	e.log.WithFields(logrus.Fields{
		"ranged": len(anchors),
		"raw_x":  raw.X,
		"raw_y":  raw.Y,
		"x":      pos.X,
		"y":      pos.Y,
	}).Trace("position recomputed")
	return pos
}

// anchorsLocked collects beacons with a usable distance that were heard recently.
func (e *Engine) anchorsLocked(now time.Time) []positioning.Anchor {
	var anchors []positioning.Anchor
	for _, b := range e.beacons.list() {
		if d, ok := e.rangeLocked(b.ID, now); ok {
			anchors = append(anchors, positioning.Anchor{ID: b.ID, Pos: b.Position, Distance: d})
		}
	}
	return anchors
}

func (e *Engine) rangeLocked(id string, now time.Time) (float64, bool) {
	d, ok := e.filter.AverageDistance(id)
	if !ok || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	if e.cfg.StaleAfter > 0 {
		seen, _ := e.filter.LastSeen(id)
		if now.Sub(seen) > e.cfg.StaleAfter {
			return 0, false
		}
	}
	return d, true
}

// Position returns the smoothed position in grid units.
func (e *Engine) Position() positioning.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.smoother.Position()
}

// RawPosition returns the latest unsmoothed estimate in grid units.
func (e *Engine) RawPosition() positioning.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.estimator.Last()
}

// Distances returns the filtered distance in meters of every beacon that has one.
func (e *Engine) Distances() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]float64, e.beacons.len())
	for _, b := range e.beacons.list() {
		if d, ok := e.filter.AverageDistance(b.ID); ok {
			out[b.ID] = d
		}
	}
	return out
}

// ScaleFactor returns grid units per meter.
func (e *Engine) ScaleFactor() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scale
}

// Calibrate sets the scale factor from two registered beacons that are metersKnown
// apart. On error the factor is left unchanged.
func (e *Engine) Calibrate(idA, idB string, metersKnown float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.beacons.get(idA)
	if !ok {
		return e.scale, fmt.Errorf("calibrate %s: %w", idA, ErrUnknownBeacon)
	}
	b, ok := e.beacons.get(idB)
	if !ok {
		return e.scale, fmt.Errorf("calibrate %s: %w", idB, ErrUnknownBeacon)
	}
	return e.calibrateLocked(a, b, metersKnown)
}

// CalibrateFirstPair calibrates against the first two beacons in registration order.
func (e *Engine) CalibrateFirstPair(metersKnown float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.beacons.list()
	if len(list) < 2 {
		return e.scale, fmt.Errorf("calibrate: %w (have %d)", ErrTooFewBeacons, len(list))
	}
	return e.calibrateLocked(list[0], list[1], metersKnown)
}

func (e *Engine) calibrateLocked(a, b Beacon, metersKnown float64) (float64, error) {
	scale, err := positioning.Calibrate(a.Position, b.Position, metersKnown)
	if err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{"a": a.ID, "b": b.ID}).Warn("calibration rejected")
		return e.scale, err
	}
	e.scale = scale
	e.log.WithFields(logrus.Fields{"a": a.ID, "b": b.ID, "meters": metersKnown, "scale": scale}).Info("calibrated")
	return scale, nil
}

// CellOf converts a grid-unit position to the cell it falls in: row from y, col from x.
func CellOf(p positioning.Point) pathfind.Cell {
	return pathfind.Cell{Row: int(math.Round(p.Y)), Col: int(math.Round(p.X))}
}

// Route plans a path from the smoothed position to goal. Both endpoints are clamped
// onto the grid. The path is empty when the goal cannot be reached.
func (e *Engine) Route(goal pathfind.Cell) []pathfind.Cell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.routeLocked(goal)
}

func (e *Engine) routeLocked(goal pathfind.Cell) []pathfind.Cell {
	if e.grid == nil {
		return nil
	}
	start := e.grid.Clamp(CellOf(e.smoother.Position()))
	goal = e.grid.Clamp(goal)
	path := pathfind.FindPath(e.grid, start, goal)
	e.log.WithFields(logrus.Fields{
		"from":     start,
		"to":       goal,
		"path_len": len(path),
	}).Debug("route planned")
	return path
}

// AddPOI adds a named destination. A POI without an ID is given one.
func (e *Engine) AddPOI(p POI) (POI, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pois.add(p)
}

// RemovePOI deletes a destination by name.
func (e *Engine) RemovePOI(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pois.remove(name)
}

// POI looks a destination up by name, ignoring case.
func (e *Engine) POI(name string) (POI, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pois.get(name)
}

// POIs lists destinations sorted by name.
func (e *Engine) POIs() []POI {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pois.list()
}

// RouteToPOI plans a path to a named destination. A destination on a blocked cell is
// moved to its first walkable neighbour; if there is none the path is empty.
func (e *Engine) RouteToPOI(name string) ([]pathfind.Cell, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pois.get(name)
	if !ok {
		return nil, fmt.Errorf("route to %q: %w", name, ErrUnknownPOI)
	}
	if e.grid == nil {
		return nil, nil
	}
	goal, ok := walkableGoal(e.grid, e.grid.Clamp(p.Cell))
	if !ok {
		e.log.WithField("poi", p.Name).Debug("destination has no walkable cell nearby")
		return nil, nil
	}
	return e.routeLocked(goal), nil
}

// Within reports whether the smoothed position is closer than meters to cell.
func (e *Engine) Within(cell pathfind.Cell, meters float64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	target := positioning.Point{X: float64(cell.Col), Y: float64(cell.Row)}
	return positioning.Dist(e.smoother.Position(), target)/e.scale < meters
}
