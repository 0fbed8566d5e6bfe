package positioning

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidDistance is returned when the asserted real-world distance is not positive.
	ErrInvalidDistance = errors.New("known distance must be > 0 meters")
	// ErrCoincidentBeacons is returned when both calibration beacons share a position.
	ErrCoincidentBeacons = errors.New("calibration beacons share a position")
)

// DefaultScale is the grid-units-per-meter factor before any calibration.
const DefaultScale = 1.0

// Calibrate returns the grid-units-per-meter factor implied by two beacon positions
// that are metersKnown apart in the real world.
func Calibrate(a, b Point, metersKnown float64) (float64, error) {
	if !(metersKnown > 0) || math.IsInf(metersKnown, 0) {
		return 0, fmt.Errorf("calibrate: %w (got %v)", ErrInvalidDistance, metersKnown)
	}
	grid := Dist(a, b)
	if !(grid > 0) {
		return 0, fmt.Errorf("calibrate: %w", ErrCoincidentBeacons)
	}
	return grid / metersKnown, nil
}
