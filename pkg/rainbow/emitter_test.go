package rainbow

import (
	"strconv"
	"strings"
	"testing"
)

func TestProfile_String(t *testing.T) {
	tests := []struct {
		profile  Profile
		expected string
	}{
		{ProfileTrueColor, "truecolor"},
		{ProfileANSI256, "256"},
		{Profile(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.profile.String(); got != tt.expected {
				t.Errorf("Profile.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		input    string
		expected Profile
		wantErr  bool
	}{
		{"truecolor", ProfileTrueColor, false},
		{"24bit", ProfileTrueColor, false},
		{"256", ProfileANSI256, false},
		{"8bit", ProfileANSI256, false},
		{"ANSI256", ProfileANSI256, false},
		{"sixteen", ProfileTrueColor, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProfile(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProfile(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("ParseProfile(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseProfile_Auto(t *testing.T) {
	t.Setenv("COLORTERM", "truecolor")

	if _, err := ParseProfile("auto"); err != nil {
		t.Errorf("ParseProfile(auto) error = %v", err)
	}
}

func TestEmitter_TrueColor(t *testing.T) {
	e := NewEmitter(ProfileTrueColor)

	got := e.Color(RGB{R: 1, G: 128, B: 255})
	if got != "\x1b[38;2;1;128;255m" {
		t.Errorf("Emitter.Color() = %q, want %q", got, "\x1b[38;2;1;128;255m")
	}

	buf := e.AppendColor([]byte("x"), RGB{R: 10, G: 20, B: 30})
	if string(buf) != "x\x1b[38;2;10;20;30m" {
		t.Errorf("Emitter.AppendColor() = %q", buf)
	}
}

func TestEmitter_ANSI256(t *testing.T) {
	e := NewEmitter(ProfileANSI256)

	if got := e.Color(RGB{R: 255, G: 0, B: 0}); got != "\x1b[38;5;196m" {
		t.Errorf("Emitter.Color(red) = %q, want %q", got, "\x1b[38;5;196m")
	}

	for i := 0; i < 256; i += 15 {
		seq := e.Color(Rainbow(DefaultFrequency, float64(i)))
		if !strings.HasPrefix(seq, "\x1b[38;5;") || !strings.HasSuffix(seq, "m") {
			t.Fatalf("Emitter.Color() = %q, want 256-color sequence", seq)
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(seq, "\x1b[38;5;"), "m"))
		if err != nil || n < 0 || n > 255 {
			t.Errorf("Emitter.Color() palette index = %q, want 0-255", seq)
		}
	}
}

func TestEmitter_Reset(t *testing.T) {
	e := NewEmitter(ProfileTrueColor)
	if got := string(e.AppendReset(nil)); got != "\x1b[0m" {
		t.Errorf("Emitter.AppendReset() = %q, want %q", got, "\x1b[0m")
	}
}
