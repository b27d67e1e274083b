package rainbow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// Reset clears all SGR attributes
const Reset = "\x1b[0m"

// Profile selects how colors are encoded
type Profile int

const (
	ProfileTrueColor Profile = iota
	ProfileANSI256
)

// String returns the string representation of Profile
func (p Profile) String() string {
	switch p {
	case ProfileTrueColor:
		return "truecolor"
	case ProfileANSI256:
		return "256"
	default:
		return "unknown"
	}
}

// ParseProfile parses a color mode name. "auto" and "" detect the profile
// from the environment.
func ParseProfile(name string) (Profile, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return DetectProfile(), nil
	case "truecolor", "24bit", "24-bit":
		return ProfileTrueColor, nil
	case "256", "8bit", "8-bit", "ansi256":
		return ProfileANSI256, nil
	default:
		return ProfileTrueColor, fmt.Errorf("unknown color mode: %s", name)
	}
}

// DetectProfile asks termenv what the terminal supports. Only an explicit
// 256 or 16 color terminal is downgraded; everything else gets truecolor.
func DetectProfile() Profile {
	switch termenv.EnvColorProfile() {
	case termenv.ANSI256, termenv.ANSI:
		return ProfileANSI256
	default:
		return ProfileTrueColor
	}
}

// Emitter renders colors as foreground escape sequences
type Emitter struct {
	profile Profile
}

// NewEmitter creates an emitter for the given profile
func NewEmitter(profile Profile) *Emitter {
	return &Emitter{profile: profile}
}

// Profile returns the profile of the emitter
func (e *Emitter) Profile() Profile {
	return e.profile
}

// AppendColor appends the foreground sequence for c to dst
func (e *Emitter) AppendColor(dst []byte, c RGB) []byte {
	if e.profile == ProfileANSI256 {
		dst = append(dst, "\x1b[38;5;"...)
		dst = strconv.AppendInt(dst, int64(ansi256(c)), 10)
		return append(dst, 'm')
	}

	dst = append(dst, "\x1b[38;2;"...)
	dst = strconv.AppendInt(dst, int64(c.R), 10)
	dst = append(dst, ';')
	dst = strconv.AppendInt(dst, int64(c.G), 10)
	dst = append(dst, ';')
	dst = strconv.AppendInt(dst, int64(c.B), 10)
	return append(dst, 'm')
}

// Color returns the foreground sequence for c
func (e *Emitter) Color(c RGB) string {
	return string(e.AppendColor(nil, c))
}

// AppendReset appends the reset sequence to dst
func (e *Emitter) AppendReset(dst []byte) []byte {
	return append(dst, Reset...)
}

// ansi256 returns the nearest xterm palette index
func ansi256(c RGB) int {
	if idx, ok := termenv.ANSI256.FromColor(c.Colorful()).(termenv.ANSI256Color); ok {
		return int(idx)
	}

	// 6x6x6 cube fallback
	r := int(c.R) * 6 / 256
	g := int(c.G) * 6 / 256
	b := int(c.B) * 6 / 256
	return 16 + 36*r + 6*g + b
}
