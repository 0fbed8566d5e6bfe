package config

import "time"

const (
	// Path loss defaults for beacons that do not set their own
	MeasuredPower = -59.0 // RSSI at 1 meter (dBm)
	PathLossExp   = 2.5   // Path loss exponent (N)

	// Sample filtering
	SampleWindow = 3 * time.Second  // Samples older than this are dropped
	MaxSamples   = 30               // Per-beacon sample cap
	StaleAfter   = 10 * time.Second // Beacons silent this long stop counting as ranged

	// Positioning
	SmoothingAlpha    = 0.95                   // EMA factor (95% new, 5% old)
	RecomputeInterval = 500 * time.Millisecond // Estimate + smooth cadence
	Strategy          = "pairwise"             // Multilateration solver
	ArrivalRadius     = 1.0                    // Meters from a destination that count as arrived
	CalibrateMeters   = 0.0                    // Real distance between the first two beacons; 0 skips

	// Floor display
	AspectRatio = 0.5                     // Terminal char aspect correction (chars are ~2:1 tall)
	TargetFPS   = 30                      // Target frames per second
	PulsePeriod = 1200 * time.Millisecond // Position marker pulse cycle
	HistoryLen  = 32                      // Distance samples kept per beacon for sparklines

	// Scanner
	ScanInterval = 100 * time.Millisecond // BLE scan callback throttle

	// Demo mode
	DemoSpeed    = 1.5  // Walker speed in meters per second
	DemoNoiseDBm = 2.0  // Std dev of simulated RSSI noise
	DemoDropRate = 0.15 // Fraction of simulated readings lost

	// Feed
	FeedAddr = ":8080"

	// App
	AppName    = "INDOOR-NAV"
	AppVersion = "1.0"
)
