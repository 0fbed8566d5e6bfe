package bluetooth

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
	"indoor-nav.klederson.com/internal/ranging"
)

// TruthMsg carries the simulated receiver's real position, for demo displays.
type TruthMsg struct {
	Position positioning.Point
}

// Walker moves along a looping polyline at constant speed.
type Walker struct {
	points []positioning.Point
	cum    []float64 // cumulative length at each point
	speed  float64   // grid units per second
}

// NewWalker builds a walk that visits each waypoint in turn over walkable cells and
// returns to the first. Legs that cannot be routed are skipped.
func NewWalker(grid *pathfind.Grid, waypoints []pathfind.Cell, speed float64) *Walker {
	w := &Walker{speed: speed}
	if len(waypoints) == 0 {
		w.points = []positioning.Point{{}}
		w.cum = []float64{0}
		return w
	}
	add := func(c pathfind.Cell) {
		p := positioning.Point{X: float64(c.Col), Y: float64(c.Row)}
		if n := len(w.points); n > 0 {
			if w.points[n-1] == p {
				return
			}
			w.cum = append(w.cum, w.cum[n-1]+positioning.Dist(w.points[n-1], p))
		} else {
			w.cum = append(w.cum, 0)
		}
		w.points = append(w.points, p)
	}

	add(waypoints[0])
	from := waypoints[0]
	for i := 1; i <= len(waypoints) && len(waypoints) > 1; i++ {
		to := waypoints[i%len(waypoints)]
		leg := pathfind.FindPath(grid, from, to)
		if len(leg) == 0 {
			continue
		}
		for _, c := range leg[1:] {
			add(c)
		}
		from = to
	}
	return w
}

// Length returns the length of one lap in grid units.
func (w *Walker) Length() float64 { return w.cum[len(w.cum)-1] }

// At returns the position after walking for elapsed.
func (w *Walker) At(elapsed time.Duration) positioning.Point {
	total := w.Length()
	if total == 0 || w.speed <= 0 {
		return w.points[0]
	}
	s := math.Mod(elapsed.Seconds()*w.speed, total)
	i := 1
	for i < len(w.cum)-1 && w.cum[i] < s {
		i++
	}
	seg := w.cum[i] - w.cum[i-1]
	f := (s - w.cum[i-1]) / seg
	a, b := w.points[i-1], w.points[i]
	return positioning.Point{X: a.X + (b.X-a.X)*f, Y: a.Y + (b.Y-a.Y)*f}
}

// SimOptions tunes the simulator.
type SimOptions struct {
	Scale    float64 // grid units per meter on the simulated floor
	NoiseDBm float64 // std dev of gaussian RSSI noise
	DropRate float64 // fraction of readings lost
	Interval time.Duration
	Seed     int64
}

// DefaultSimOptions returns the demo mode settings.
func DefaultSimOptions() SimOptions {
	return SimOptions{
		Scale:    1,
		NoiseDBm: config.DemoNoiseDBm,
		DropRate: config.DemoDropRate,
		Interval: 200 * time.Millisecond,
		Seed:     time.Now().UnixNano(),
	}
}

// Simulator fakes a receiver walking the floor, for demo mode. Signal strengths are
// derived from each beacon's own path-loss parameters.
type Simulator struct {
	beacons []engine.Beacon
	walker  *Walker
	opts    SimOptions

	mu    sync.Mutex
	rng   *rand.Rand
	start time.Time

	running atomic.Bool
	cancel  context.CancelFunc
}

// NewSimulator creates a simulator. The walk starts at start.
func NewSimulator(beacons []engine.Beacon, walker *Walker, opts SimOptions, start time.Time) *Simulator {
	if !(opts.Scale > 0) {
		opts.Scale = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = 200 * time.Millisecond
	}
	return &Simulator{
		beacons: beacons,
		walker:  walker,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		start:   start,
	}
}

// Truth returns where the simulated receiver is at now.
func (s *Simulator) Truth(now time.Time) positioning.Point {
	return s.walker.At(now.Sub(s.start))
}

// Readings returns what the receiver hears at now.
func (s *Simulator) Readings(now time.Time) []ReadingMsg {
	s.mu.Lock()
	defer s.mu.Unlock()

	truth := s.Truth(now)
	out := make([]ReadingMsg, 0, len(s.beacons))
	for _, b := range s.beacons {
		if s.opts.DropRate > 0 && s.rng.Float64() < s.opts.DropRate {
			continue
		}
		meters := positioning.Dist(b.Position, truth) / s.opts.Scale
		rssi := ranging.SignalAt(meters, b.RefPowerAt1m, b.PathLossExp)
		if s.opts.NoiseDBm > 0 {
			rssi += s.rng.NormFloat64() * s.opts.NoiseDBm
		}
		out = append(out, ReadingMsg{
			Reading: ranging.Reading{BeaconID: b.ID, RSSI: rssi, Timestamp: now},
			Name:    "sim " + b.ID,
		})
	}
	return out
}

// Start begins emitting readings.
func (s *Simulator) Start(out Sender) error {
	s.running.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.loop(ctx, out)
	return nil
}

func (s *Simulator) loop(ctx context.Context, out Sender) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.running.Load() {
				return
			}
			for _, msg := range s.Readings(now) {
				out.Send(msg)
			}
			out.Send(TruthMsg{Position: s.Truth(now)})
		}
	}
}

// Stop halts the simulator.
func (s *Simulator) Stop() {
	s.running.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
}
