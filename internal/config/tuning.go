package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
)

//go:embed default_floor.txt
var defaultFloor string

// Tuning is the optional JSON configuration file. Every field may be omitted; the Get*
// methods fall back to the constants in this package.
type Tuning struct {
	// Path loss
	RefPower    *float64 `json:"ref_power,omitempty"`
	PathLossExp *float64 `json:"path_loss_exp,omitempty"`

	// Sample filtering
	SampleWindow *string `json:"sample_window,omitempty"` // duration string like "3s"
	MaxSamples   *int    `json:"max_samples,omitempty"`
	StaleAfter   *string `json:"stale_after,omitempty"` // duration string like "10s"

	// Positioning
	SmoothingAlpha    *float64 `json:"smoothing_alpha,omitempty"`
	RecomputeInterval *string  `json:"recompute_interval,omitempty"` // duration string like "500ms"
	Strategy          *string  `json:"strategy,omitempty"`
	ArrivalRadius     *float64 `json:"arrival_radius,omitempty"`
	CalibrateMeters   *float64 `json:"calibrate_meters,omitempty"`

	// Floor
	Floor   *string      `json:"floor,omitempty"` // text grid path, relative to the config file
	Beacons []BeaconSpec `json:"beacons,omitempty"`
	POIs    []POISpec    `json:"pois,omitempty"`

	dir string
}

// BeaconSpec places a beacon on the floor. Path loss fields default to the file-wide values.
type BeaconSpec struct {
	ID          string   `json:"id"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	RefPower    *float64 `json:"ref_power,omitempty"`
	PathLossExp *float64 `json:"path_loss_exp,omitempty"`
}

// POISpec names a destination cell.
type POISpec struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
}

// LoadTuning loads a Tuning from a JSON file. An empty path yields the defaults.
// The file must have a .json extension and be under 1MB.
func LoadTuning(path string) (*Tuning, error) {
	if path == "" {
		return &Tuning{}, nil
	}
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Tuning{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.dir = filepath.Dir(cleanPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Tuning) Validate() error {
	if c.PathLossExp != nil && !(*c.PathLossExp > 0) {
		return fmt.Errorf("path_loss_exp must be positive, got %f", *c.PathLossExp)
	}
	if c.SmoothingAlpha != nil && !(*c.SmoothingAlpha > 0 && *c.SmoothingAlpha <= 1) {
		return fmt.Errorf("smoothing_alpha must be in (0, 1], got %f", *c.SmoothingAlpha)
	}
	if c.MaxSamples != nil && *c.MaxSamples <= 0 {
		return fmt.Errorf("max_samples must be positive, got %d", *c.MaxSamples)
	}
	if c.ArrivalRadius != nil && !(*c.ArrivalRadius > 0) {
		return fmt.Errorf("arrival_radius must be positive, got %f", *c.ArrivalRadius)
	}
	if c.CalibrateMeters != nil && *c.CalibrateMeters < 0 {
		return fmt.Errorf("calibrate_meters must not be negative, got %f", *c.CalibrateMeters)
	}
	for name, v := range map[string]*string{
		"sample_window":      c.SampleWindow,
		"stale_after":        c.StaleAfter,
		"recompute_interval": c.RecomputeInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Strategy != nil {
		if _, err := positioning.ParseStrategy(*c.Strategy); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(c.Beacons))
	for i, b := range c.Beacons {
		if b.ID == "" {
			return fmt.Errorf("beacons[%d]: id is required", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("beacons[%d]: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = true
		if b.PathLossExp != nil && !(*b.PathLossExp > 0) {
			return fmt.Errorf("beacons[%d]: path_loss_exp must be positive, got %f", i, *b.PathLossExp)
		}
	}
	for i, p := range c.POIs {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("pois[%d]: name is required", i)
		}
	}
	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// GetRefPower returns the default RSSI at 1 meter.
func (c *Tuning) GetRefPower() float64 { return floatOr(c.RefPower, MeasuredPower) }

// GetPathLossExp returns the default path-loss exponent.
func (c *Tuning) GetPathLossExp() float64 { return floatOr(c.PathLossExp, PathLossExp) }

// GetSampleWindow returns the per-beacon sample age bound.
func (c *Tuning) GetSampleWindow() time.Duration { return durationOr(c.SampleWindow, SampleWindow) }

// GetMaxSamples returns the per-beacon sample count bound.
func (c *Tuning) GetMaxSamples() int {
	if c.MaxSamples == nil {
		return MaxSamples
	}
	return *c.MaxSamples
}

// GetStaleAfter returns how long a silent beacon keeps counting as ranged.
func (c *Tuning) GetStaleAfter() time.Duration { return durationOr(c.StaleAfter, StaleAfter) }

// GetSmoothingAlpha returns the EMA factor.
func (c *Tuning) GetSmoothingAlpha() float64 { return floatOr(c.SmoothingAlpha, SmoothingAlpha) }

// GetRecomputeInterval returns the estimate and smoothing cadence.
func (c *Tuning) GetRecomputeInterval() time.Duration {
	return durationOr(c.RecomputeInterval, RecomputeInterval)
}

// GetStrategy returns the multilateration solver.
func (c *Tuning) GetStrategy() positioning.Strategy {
	name := Strategy
	if c.Strategy != nil {
		name = *c.Strategy
	}
	s, err := positioning.ParseStrategy(name)
	if err != nil {
		return positioning.StrategyPairwise
	}
	return s
}

// GetArrivalRadius returns the distance in meters that counts as reaching a destination.
func (c *Tuning) GetArrivalRadius() float64 { return floatOr(c.ArrivalRadius, ArrivalRadius) }

// GetCalibrateMeters returns the real distance between the first two beacons, 0 if unknown.
func (c *Tuning) GetCalibrateMeters() float64 { return floatOr(c.CalibrateMeters, CalibrateMeters) }

// GetBeacons returns the configured beacons with path loss defaults filled in. With none
// configured it returns the beacons of the built-in floor.
func (c *Tuning) GetBeacons() []BeaconSpec {
	specs := c.Beacons
	if len(specs) == 0 {
		specs = DefaultBeacons()
	}
	out := make([]BeaconSpec, len(specs))
	for i, b := range specs {
		if b.RefPower == nil {
			v := c.GetRefPower()
			b.RefPower = &v
		}
		if b.PathLossExp == nil {
			v := c.GetPathLossExp()
			b.PathLossExp = &v
		}
		out[i] = b
	}
	return out
}

// GetPOIs returns the configured destinations, or those of the built-in floor.
func (c *Tuning) GetPOIs() []POISpec {
	if len(c.POIs) == 0 {
		return DefaultPOIs()
	}
	out := make([]POISpec, len(c.POIs))
	copy(out, c.POIs)
	return out
}

// LoadFloor reads the configured floor grid, or the built-in one when none is set.
func (c *Tuning) LoadFloor() (*pathfind.Grid, error) {
	if c.Floor == nil || *c.Floor == "" {
		return pathfind.ParseGrid(strings.NewReader(defaultFloor))
	}
	path := *c.Floor
	if !filepath.IsAbs(path) && c.dir != "" {
		path = filepath.Join(c.dir, path)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open floor: %w", err)
	}
	defer f.Close()
	g, err := pathfind.ParseGrid(f)
	if err != nil {
		return nil, fmt.Errorf("floor %s: %w", path, err)
	}
	return g, nil
}

// DefaultBeacons are placed in the corners and hallway of the built-in floor.
func DefaultBeacons() []BeaconSpec {
	return []BeaconSpec{
		{ID: "beacon-1", X: 1, Y: 1},
		{ID: "beacon-2", X: 38, Y: 1},
		{ID: "beacon-3", X: 1, Y: 18},
		{ID: "beacon-4", X: 38, Y: 18},
		{ID: "beacon-5", X: 20, Y: 8},
	}
}

// DefaultPOIs are the named rooms of the built-in floor.
func DefaultPOIs() []POISpec {
	return []POISpec{
		{Name: "Cafe", Row: 2, Col: 5},
		{Name: "Office", Row: 3, Col: 20},
		{Name: "Library", Row: 13, Col: 5},
		{Name: "Meeting Room", Row: 12, Col: 19},
		{Name: "Lab", Row: 16, Col: 33},
		{Name: "Entrance", Row: 18, Col: 19},
	}
}
