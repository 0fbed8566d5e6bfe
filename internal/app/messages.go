package app

import "time"

// TickMsg triggers a frame update for animation.
type TickMsg time.Time

// RecomputeMsg triggers a position estimate and route refresh.
type RecomputeMsg time.Time
