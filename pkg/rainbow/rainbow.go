// Package rainbow maps positions on the screen to colors and renders them as
// SGR foreground sequences.
package rainbow

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// DefaultFrequency controls how fast the hue changes per unit of position
	DefaultFrequency = 0.1

	// DefaultSpread divides the column so a line changes hue slower than rows do
	DefaultSpread = 3.0

	// MaxOffset bounds the random per-session offset
	MaxOffset = 255.0
)

// RGB is a 24-bit color
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as #rrggbb
func (c RGB) Hex() string {
	return c.Colorful().Hex()
}

// Colorful converts the color for use with go-colorful and termenv
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// Rainbow returns the color at position for the given frequency. Each channel
// is a sine wave shifted by a third of a turn, so every channel stays in [1,255].
func Rainbow(frequency, position float64) RGB {
	x := frequency * position
	return RGB{
		R: channel(x),
		G: channel(x + 2*math.Pi/3),
		B: channel(x + 4*math.Pi/3),
	}
}

func channel(x float64) uint8 {
	return uint8(int(math.Sin(x)*127 + 128))
}

// Phase holds the tuning of the gradient for one session
type Phase struct {
	Frequency float64 `json:"frequency"`
	Spread    float64 `json:"spread"`
	Offset    float64 `json:"offset"`
}

// DefaultPhase returns a phase with the default tuning and a zero offset
func DefaultPhase() Phase {
	return Phase{
		Frequency: DefaultFrequency,
		Spread:    DefaultSpread,
	}
}

// Validate checks if the phase is usable
func (p Phase) Validate() error {
	if p.Frequency <= 0 || math.IsNaN(p.Frequency) || math.IsInf(p.Frequency, 0) {
		return fmt.Errorf("frequency must be a positive number, got: %v", p.Frequency)
	}

	if p.Spread <= 0 || math.IsNaN(p.Spread) || math.IsInf(p.Spread, 0) {
		return fmt.Errorf("spread must be a positive number, got: %v", p.Spread)
	}

	if math.IsNaN(p.Offset) || math.IsInf(p.Offset, 0) {
		return fmt.Errorf("offset must be finite, got: %v", p.Offset)
	}

	return nil
}

// Position returns the scalar fed to Rainbow for a cursor position
func (p Phase) Position(row, column int) float64 {
	return p.Offset + float64(row) + float64(column)/p.Spread
}

// At returns the color of the glyph printed at row, column
func (p Phase) At(row, column int) RGB {
	return Rainbow(p.Frequency, p.Position(row, column))
}

// NewOffset picks a random offset in [0, MaxOffset). A nil source uses the
// package-level generator.
func NewOffset(r *rand.Rand) float64 {
	if r == nil {
		return rand.Float64() * MaxOffset
	}
	return r.Float64() * MaxOffset
}
