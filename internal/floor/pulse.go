package floor

import (
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"

	"indoor-nav.klederson.com/internal/config"
)

// Pulse animates the receiver marker.
type Pulse struct {
	Phase     float64 // position in the current cycle [0, 1)
	StartTime time.Time
}

// NewPulse creates a pulse starting at its dimmest point.
func NewPulse() *Pulse {
	return &Pulse{StartTime: time.Now()}
}

// Update advances the phase to now.
func (p *Pulse) Update(now time.Time) {
	elapsed := now.Sub(p.StartTime).Seconds()
	p.Phase = math.Mod(elapsed/config.PulsePeriod.Seconds(), 1)
	if p.Phase < 0 {
		p.Phase += 1
	}
}

// Intensity returns the glow [0, 1]: rising through the first half of the cycle and
// falling through the second.
func (p *Pulse) Intensity() float64 {
	return 1 - math.Abs(2*p.Phase-1)
}

func pulseColor(intensity float64) lipgloss.Color {
	if intensity > 0.8 {
		return lipgloss.Color("#FFFFFF")
	}
	if intensity > 0.5 {
		return lipgloss.Color("#AAFFCC")
	}
	if intensity > 0.3 {
		return lipgloss.Color("#00FF41")
	}
	return lipgloss.Color("#00CC33")
}
