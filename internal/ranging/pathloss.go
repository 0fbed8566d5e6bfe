package ranging

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidExponent is returned when a path-loss exponent is not strictly positive.
var ErrInvalidExponent = errors.New("path-loss exponent must be > 0")

// Distance estimates range in meters from signal strength using the log-distance path loss model.
// Formula: d = 10^((refAt1m - rssi) / (10 * n))
//
// A stronger signal never yields a larger distance. Extreme inputs are not clamped; that is
// left to the consumer.
func Distance(rssi, refAt1m, exponent float64) (float64, error) {
	if !(exponent > 0) {
		return 0, fmt.Errorf("distance for rssi %.1f: %w (got %v)", rssi, ErrInvalidExponent, exponent)
	}
	return math.Pow(10, (refAt1m-rssi)/(10*exponent)), nil
}

// SignalAt inverts Distance: the signal strength expected at the given range.
// Used by the simulator to synthesise readings. Ranges below 1cm are treated as 1cm.
func SignalAt(meters, refAt1m, exponent float64) float64 {
	if meters < 0.01 {
		meters = 0.01
	}
	return refAt1m - 10*exponent*math.Log10(meters)
}
