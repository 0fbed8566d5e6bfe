package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultTuning(t *testing.T) {
	cfg, err := LoadTuning("")
	require.NoError(t, err)

	assert.Equal(t, MeasuredPower, cfg.GetRefPower())
	assert.Equal(t, PathLossExp, cfg.GetPathLossExp())
	assert.Equal(t, 3*time.Second, cfg.GetSampleWindow())
	assert.Equal(t, 30, cfg.GetMaxSamples())
	assert.Equal(t, 10*time.Second, cfg.GetStaleAfter())
	assert.Equal(t, 0.95, cfg.GetSmoothingAlpha())
	assert.Equal(t, 500*time.Millisecond, cfg.GetRecomputeInterval())
	assert.Equal(t, positioning.StrategyPairwise, cfg.GetStrategy())
	assert.Equal(t, 1.0, cfg.GetArrivalRadius())
	assert.Zero(t, cfg.GetCalibrateMeters())

	beacons := cfg.GetBeacons()
	require.Len(t, beacons, len(DefaultBeacons()))
	for _, b := range beacons {
		require.NotNil(t, b.RefPower)
		require.NotNil(t, b.PathLossExp)
		assert.Equal(t, MeasuredPower, *b.RefPower)
	}
}

func TestDefaultFloorFitsDefaults(t *testing.T) {
	cfg := &Tuning{}
	g, err := cfg.LoadFloor()
	require.NoError(t, err)
	assert.Equal(t, 20, g.Rows())
	assert.Equal(t, 40, g.Cols())

	for _, b := range DefaultBeacons() {
		c := pathfind.Cell{Row: int(b.Y), Col: int(b.X)}
		assert.True(t, g.Walkable(c), "beacon %s at %v", b.ID, c)
	}
	for _, p := range DefaultPOIs() {
		c := pathfind.Cell{Row: p.Row, Col: p.Col}
		assert.True(t, g.Walkable(c), "poi %s at %v", p.Name, c)
		assert.NotEmpty(t, pathfind.FindPath(g, pathfind.Cell{Row: 1, Col: 1}, c), "poi %s unreachable", p.Name)
	}
}

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "floor.txt", "....\n.##.\n....\n")
	path := writeFile(t, dir, "site.json", `{
  "path_loss_exp": 3.1,
  "sample_window": "5s",
  "max_samples": 12,
  "smoothing_alpha": 0.5,
  "recompute_interval": "250ms",
  "strategy": "least-squares",
  "calibrate_meters": 4.5,
  "floor": "floor.txt",
  "beacons": [
    {"id": "aa:bb", "x": 0, "y": 0},
    {"id": "cc:dd", "x": 3, "y": 2, "ref_power": -65}
  ],
  "pois": [{"name": "Desk", "row": 2, "col": 3}]
}`)

	cfg, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 3.1, cfg.GetPathLossExp())
	assert.Equal(t, 5*time.Second, cfg.GetSampleWindow())
	assert.Equal(t, 12, cfg.GetMaxSamples())
	assert.Equal(t, 10*time.Second, cfg.GetStaleAfter())
	assert.Equal(t, 0.5, cfg.GetSmoothingAlpha())
	assert.Equal(t, 250*time.Millisecond, cfg.GetRecomputeInterval())
	assert.Equal(t, positioning.StrategyLeastSquares, cfg.GetStrategy())
	assert.Equal(t, 4.5, cfg.GetCalibrateMeters())

	beacons := cfg.GetBeacons()
	require.Len(t, beacons, 2)
	assert.Equal(t, MeasuredPower, *beacons[0].RefPower)
	assert.Equal(t, 3.1, *beacons[0].PathLossExp)
	assert.Equal(t, -65.0, *beacons[1].RefPower)

	assert.Equal(t, []POISpec{{Name: "Desk", Row: 2, Col: 3}}, cfg.GetPOIs())

	g, err := cfg.LoadFloor()
	require.NoError(t, err)
	assert.Equal(t, 3, g.Rows())
	assert.False(t, g.Walkable(pathfind.Cell{Row: 1, Col: 1}))
}

func TestLoadTuningRejects(t *testing.T) {
	dir := t.TempDir()

	t.Run("wrong extension", func(t *testing.T) {
		_, err := LoadTuning(writeFile(t, dir, "site.yaml", "{}"))
		assert.ErrorContains(t, err, ".json extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTuning(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := LoadTuning(writeFile(t, dir, "broken.json", "{"))
		assert.ErrorContains(t, err, "parse")
	})

	cases := map[string]string{
		"zero exponent":     `{"path_loss_exp": 0}`,
		"alpha above one":   `{"smoothing_alpha": 1.5}`,
		"alpha zero":        `{"smoothing_alpha": 0}`,
		"bad duration":      `{"sample_window": "soon"}`,
		"negative duration": `{"stale_after": "-1s"}`,
		"no samples":        `{"max_samples": 0}`,
		"unknown strategy":  `{"strategy": "kalman"}`,
		"negative meters":   `{"calibrate_meters": -2}`,
		"beacon without id": `{"beacons": [{"x": 1, "y": 1}]}`,
		"duplicate beacon":  `{"beacons": [{"id": "a"}, {"id": "a"}]}`,
		"beacon exponent":   `{"beacons": [{"id": "a", "path_loss_exp": -1}]}`,
		"unnamed poi":       `{"pois": [{"row": 1, "col": 1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTuning(writeFile(t, dir, "case.json", body))
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestLoadFloorMissing(t *testing.T) {
	missing := "does-not-exist.txt"
	cfg := &Tuning{Floor: &missing, dir: t.TempDir()}
	_, err := cfg.LoadFloor()
	assert.Error(t, err)
}
