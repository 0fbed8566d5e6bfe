package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"indoor-nav.klederson.com/internal/app"
	"indoor-nav.klederson.com/internal/bluetooth"
	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
)

var (
	flagConfig    string
	flagLogFile   string
	flagLogLevel  string
	flagDemo      bool
	flagAdapter   string
	flagCalibrate float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "indoor-nav",
		Short: "Indoor Nav - BLE beacon positioning and wayfinding in the terminal",
		Long: `Indoor Nav estimates your position on a floor plan from the signal strength
of fixed BLE beacons, smooths it, and routes you to a chosen place.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth scanning.
Use --demo flag for a simulated walk without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Tuning file (.json) with floor, beacons and places")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Simulate a walk instead of scanning (no Bluetooth required)")
	rootCmd.PersistentFlags().Float64Var(&flagCalibrate, "calibrate-meters", 0, "Known distance between the first two beacons, in meters")
	rootCmd.Flags().StringVar(&flagAdapter, "adapter", "hci0", "Bluetooth adapter to use")

	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal; logs only go to a file.
	log, closeLog, err := newLogger(flagLogFile, flagLogLevel, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	tuning, eng, err := setup(cmd, log)
	if err != nil {
		return err
	}
	meters, err := calibrateMeters(cmd, tuning)
	if err != nil {
		return err
	}

	source, scanner := newSource(tuning, eng, log)
	if !flagDemo {
		source = flagAdapter
	}

	model := app.New(eng, app.Options{
		Source:          source,
		Scanner:         scanner,
		Recompute:       tuning.GetRecomputeInterval(),
		ArrivalRadius:   tuning.GetArrivalRadius(),
		CalibrateMeters: meters,
		Logger:          log,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)

	// Start the reading source with reference to the tea program
	if err := model.StartScanner(p); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
		fmt.Fprintln(os.Stderr, "Bluetooth scanning requires elevated permissions.")
		fmt.Fprintln(os.Stderr, "Try one of:")
		fmt.Fprintln(os.Stderr, "  sudo ./indoor-nav")
		fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./indoor-nav")
		fmt.Fprintln(os.Stderr, "  ./indoor-nav --demo    (simulated walk, no hardware needed)")
		return err
	}

	_, err = p.Run()
	return err
}

// newLogger builds the process logger. Without a log file it writes to fallback.
func newLogger(path, level string, fallback io.Writer) (*logrus.Logger, func(), error) {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if path == "" {
		log.SetOutput(fallback)
		return log, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	log.SetOutput(f)
	return log, func() { f.Close() }, nil
}

// setup loads the tuning file and builds an engine with its floor, beacons and places.
func setup(cmd *cobra.Command, log logrus.FieldLogger) (*config.Tuning, *engine.Engine, error) {
	tuning, err := config.LoadTuning(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	meters, err := calibrateMeters(cmd, tuning)
	if err != nil {
		return nil, nil, err
	}
	grid, err := tuning.LoadFloor()
	if err != nil {
		return nil, nil, err
	}

	cfg := engine.DefaultConfig()
	cfg.Window = tuning.GetSampleWindow()
	cfg.MaxSamples = tuning.GetMaxSamples()
	cfg.StaleAfter = tuning.GetStaleAfter()
	cfg.Alpha = tuning.GetSmoothingAlpha()
	cfg.Strategy = tuning.GetStrategy()
	cfg.Start = positioning.Point{X: float64(grid.Cols() / 2), Y: float64(grid.Rows() / 2)}

	eng, err := engine.New(grid, cfg, engine.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	for _, b := range tuning.GetBeacons() {
		err := eng.AddBeacon(engine.Beacon{
			ID:           b.ID,
			Position:     positioning.Point{X: b.X, Y: b.Y},
			RefPowerAt1m: *b.RefPower,
			PathLossExp:  *b.PathLossExp,
		})
		if err != nil {
			return nil, nil, err
		}
	}
	for _, p := range tuning.GetPOIs() {
		if _, err := eng.AddPOI(engine.POI{ID: p.ID, Name: p.Name, Cell: pathfind.Cell{Row: p.Row, Col: p.Col}}); err != nil {
			return nil, nil, err
		}
	}

	if meters > 0 {
		if _, err := eng.CalibrateFirstPair(meters); err != nil {
			return nil, nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"beacons":  len(eng.Beacons()),
		"pois":     len(eng.POIs()),
		"strategy": cfg.Strategy,
		"scale":    eng.ScaleFactor(),
	}).Info("engine ready")
	return tuning, eng, nil
}

// calibrateMeters prefers the flag over the tuning file. A flag that is set must be
// a positive distance.
func calibrateMeters(cmd *cobra.Command, t *config.Tuning) (float64, error) {
	if cmd.Flags().Changed("calibrate-meters") {
		if !(flagCalibrate > 0) {
			return 0, fmt.Errorf("--calibrate-meters %g: %w", flagCalibrate, positioning.ErrInvalidDistance)
		}
		return flagCalibrate, nil
	}
	return t.GetCalibrateMeters(), nil
}

// newSource returns the reading source: a simulated walk through every place in demo
// mode, otherwise the BLE scanner listening for the configured beacons.
func newSource(t *config.Tuning, eng *engine.Engine, log logrus.FieldLogger) (string, bluetooth.Scanner) {
	beacons := eng.Beacons()
	if !flagDemo {
		ids := make([]string, 0, len(beacons))
		for _, b := range beacons {
			ids = append(ids, b.ID)
		}
		return "ble", bluetooth.NewBLEScanner(ids)
	}

	var stops []pathfind.Cell
	for _, p := range eng.POIs() {
		stops = append(stops, p.Cell)
	}
	walker := bluetooth.NewWalker(eng.Grid(), stops, config.DemoSpeed*eng.ScaleFactor())

	opts := bluetooth.DefaultSimOptions()
	opts.Scale = eng.ScaleFactor()
	log.WithFields(logrus.Fields{"stops": len(stops), "loop": walker.Length()}).Info("demo walk ready")
	return "demo", bluetooth.NewSimulator(beacons, walker, opts, time.Now())
}
