// Package terminal classifies the byte stream of a child program and paints
// every visible glyph while passing control sequences through untouched.
package terminal

import (
	"io"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"rainbowterm/pkg/rainbow"
)

// DefaultMaxSequenceLength bounds how many bytes of an unterminated escape
// sequence are held before they are given up on and written verbatim.
const DefaultMaxSequenceLength = 4096

// State is the classifier state
type State int

const (
	StateText State = iota
	StateEscape
	StateMultibyte
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateText:
		return "text"
	case StateEscape:
		return "escape"
	case StateMultibyte:
		return "multibyte"
	default:
		return "unknown"
	}
}

// Options configures a Classifier
type Options struct {
	Phase             rainbow.Phase
	Emitter           *rainbow.Emitter
	MaxSequenceLength int

	// WideGlyphs advances the column by the display width of a multi-byte
	// glyph instead of by one.
	WideGlyphs bool
}

// Classifier is a streaming state machine over the child's output. Bytes
// that make up escape sequences are forwarded unmodified; printable bytes and
// complete UTF-8 glyphs get a color prefix computed from the tracked cursor.
//
// A Classifier is not safe for concurrent use.
type Classifier struct {
	out     io.Writer
	phase   rainbow.Phase
	emitter *rainbow.Emitter
	maxSeq  int
	wide    bool

	state State
	seq   []byte
	need  int
	// esc is the held escape sequence without the C0 controls executed
	// inside it
	esc []byte

	cursor    Cursor
	altCursor Cursor
	altSaved  bool

	pending []byte
}

// NewClassifier creates a classifier writing to out
func NewClassifier(out io.Writer, opts Options) *Classifier {
	if opts.Emitter == nil {
		opts.Emitter = rainbow.NewEmitter(rainbow.ProfileTrueColor)
	}
	if opts.MaxSequenceLength <= 0 {
		opts.MaxSequenceLength = DefaultMaxSequenceLength
	}
	if opts.Phase.Spread == 0 {
		opts.Phase.Spread = rainbow.DefaultSpread
	}

	return &Classifier{
		out:     out,
		phase:   opts.Phase,
		emitter: opts.Emitter,
		maxSeq:  opts.MaxSequenceLength,
		wide:    opts.WideGlyphs,
		seq:     make([]byte, 0, 64),
		esc:     make([]byte, 0, 64),
		cursor:  Home(),
		pending: make([]byte, 0, 8192),
	}
}

// Write classifies p and writes the result to the underlying writer in a
// single call. Incomplete sequences at the end of p are held for the next
// call.
func (c *Classifier) Write(p []byte) (int, error) {
	c.pending = c.pending[:0]
	for _, b := range p {
		c.step(b)
	}

	if err := c.writePending(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush writes any held partial sequence verbatim and returns to text
func (c *Classifier) Flush() error {
	c.pending = c.pending[:0]
	if len(c.seq) > 0 {
		c.abandon()
	}
	return c.writePending()
}

// Reset drops held bytes and returns the cursor home
func (c *Classifier) Reset() {
	c.toText()
	c.cursor = Home()
	c.altSaved = false
}

// Cursor returns the tracked cursor position
func (c *Classifier) Cursor() Cursor {
	return c.cursor
}

// State returns the current state
func (c *Classifier) State() State {
	return c.state
}

// Pending returns the number of held bytes
func (c *Classifier) Pending() int {
	return len(c.seq)
}

func (c *Classifier) writePending() error {
	if len(c.pending) == 0 {
		return nil
	}
	_, err := c.out.Write(c.pending)
	return err
}

func (c *Classifier) step(b byte) {
	switch c.state {
	case StateText:
		c.text(b)
	case StateEscape:
		c.escape(b)
	case StateMultibyte:
		c.multibyte(b)
	}
}

func (c *Classifier) text(b byte) {
	switch {
	case b == 0x1b:
		c.begin(StateEscape, b)
		return
	case b >= 0x80:
		n := leadLength(b)
		if n == 0 {
			// Stray continuation or invalid lead byte
			c.pending = append(c.pending, b)
			return
		}
		c.need = n
		c.begin(StateMultibyte, b)
		return
	case b == '\n':
		c.cursor.Row++
		c.cursor.Column = 1
	case b == '\b':
		c.cursor.Column--
	case b == '\r':
		c.cursor.Column = 1
	case b == '\t':
		c.cursor.Column += 8 - c.cursor.Column%8
	default:
		c.cursor.Column++
	}

	c.cursor.clamp()
	c.paint()
	c.pending = append(c.pending, b)
}

func (c *Classifier) multibyte(b byte) {
	if b&0xc0 != 0x80 {
		c.abandon()
		c.text(b)
		return
	}

	c.seq = append(c.seq, b)
	if len(c.seq) < c.need {
		return
	}

	c.cursor.Column += c.glyphWidth()
	c.cursor.clamp()
	c.paint()
	c.pending = append(c.pending, c.seq...)
	c.toText()
}

func (c *Classifier) glyphWidth() int {
	if !c.wide {
		return 1
	}
	r, _ := utf8.DecodeRune(c.seq)
	if r == utf8.RuneError {
		return 1
	}
	return runewidth.RuneWidth(r)
}

func (c *Classifier) escape(b byte) {
	if b == 0x1b && !c.inString() {
		// A new escape aborts the one in progress
		c.abandon()
		c.begin(StateEscape, b)
		return
	}

	c.seq = append(c.seq, b)
	if b < 0x20 && !c.inString() {
		// Terminals execute C0 controls met inside a sequence
		c.control(b)
	} else {
		c.esc = append(c.esc, b)
		if c.complete(b) {
			c.apply()
			c.pending = append(c.pending, c.seq...)
			c.toText()
			return
		}
	}

	if len(c.seq) >= c.maxSeq {
		c.abandon()
	}
}

// control moves the cursor for a control byte held inside a sequence
func (c *Classifier) control(b byte) {
	switch b {
	case '\n':
		c.cursor.Row++
		c.cursor.Column = 1
	case '\b':
		c.cursor.Column--
	case '\r':
		c.cursor.Column = 1
	case '\t':
		c.cursor.Column += 8 - c.cursor.Column%8
	}
	c.cursor.clamp()
}

// inString reports whether the held sequence is a string that may contain ESC
// as the first half of its terminator.
func (c *Classifier) inString() bool {
	if len(c.esc) < 2 {
		return false
	}
	return isStringIntroducer(c.esc[1])
}

// complete reports whether b terminates the held escape sequence
func (c *Classifier) complete(b byte) bool {
	n := len(c.esc)
	if n < 2 {
		return false
	}

	intro := c.esc[1]
	switch {
	case intro == '[':
		return n >= 3 && b >= 0x40 && b <= 0x7e
	case intro == ']':
		return b == 0x07 || endsWithST(c.esc)
	case isStringIntroducer(intro):
		return endsWithST(c.esc)
	case intro >= 0x20 && intro <= 0x2f:
		// ESC ( B, ESC ) 0, ESC # 8 and friends
		return n >= 3 && b >= 0x30 && b <= 0x7e
	default:
		// ESC = ESC > ESC 7 ESC 8 ESC H ESC M ESC c and a bare ESC \
		return true
	}
}

// apply performs the cursor side effects of a complete sequence
func (c *Classifier) apply() {
	switch c.esc[1] {
	case '[':
		c.applyCSI()
	case 'c':
		c.cursor = Home()
	}
}

func (c *Classifier) paint() {
	c.pending = c.emitter.AppendColor(c.pending, c.phase.At(c.cursor.Row, c.cursor.Column))
}

func (c *Classifier) begin(state State, b byte) {
	c.seq = append(c.seq[:0], b)
	if state == StateEscape {
		c.esc = append(c.esc[:0], b)
	}
	c.state = state
}

// abandon writes the held bytes without color and returns to text
func (c *Classifier) abandon() {
	c.pending = append(c.pending, c.seq...)
	c.toText()
}

func (c *Classifier) toText() {
	c.seq = c.seq[:0]
	c.esc = c.esc[:0]
	c.need = 0
	c.state = StateText
}

func (c *Classifier) enterAltScreen() {
	if c.altSaved {
		return
	}
	c.altCursor = c.cursor
	c.altSaved = true
}

func (c *Classifier) exitAltScreen() {
	if !c.altSaved {
		return
	}
	c.cursor = c.altCursor
	c.altSaved = false
}

// leadLength returns the encoded length implied by a UTF-8 lead byte, or 0
// when b cannot start a sequence.
func leadLength(b byte) int {
	switch {
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	default:
		return 0
	}
}

// isStringIntroducer reports whether ESC b starts a string ended by ST:
// DCS, SOS, PM, APC, OSC and the screen title ESC k.
func isStringIntroducer(b byte) bool {
	switch b {
	case ']', 'P', 'X', '^', '_', 'k':
		return true
	}
	return false
}

func endsWithST(seq []byte) bool {
	n := len(seq)
	return n >= 4 && seq[n-2] == 0x1b && seq[n-1] == '\\'
}
