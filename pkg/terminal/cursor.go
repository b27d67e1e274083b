package terminal

import "fmt"

// Cursor is an estimate of the child's cursor, 1-based. It drifts on
// sequences the classifier does not interpret.
type Cursor struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Home returns the top-left position
func Home() Cursor {
	return Cursor{Row: 1, Column: 1}
}

// String returns the string representation of Cursor
func (c Cursor) String() string {
	return fmt.Sprintf("%d,%d", c.Row, c.Column)
}

func (c *Cursor) clamp() {
	if c.Row < 1 {
		c.Row = 1
	}
	if c.Column < 1 {
		c.Column = 1
	}
}

// alternate screen private modes
var altScreenModes = map[int]bool{
	47:   true,
	1047: true,
	1049: true,
}

// applyCSI updates the cursor for a complete ESC [ ... final sequence
func (c *Classifier) applyCSI() {
	body := c.esc[2 : len(c.esc)-1]
	final := c.esc[len(c.esc)-1]

	if len(body) > 0 && body[0] >= '<' && body[0] <= '?' {
		if body[0] == '?' && (final == 'h' || final == 'l') {
			c.applyPrivateMode(body[1:], final == 'h')
		}
		return
	}

	for _, b := range body {
		if b >= 0x20 && b <= 0x2f {
			// Intermediate bytes change the meaning of the final byte
			return
		}
	}

	n, m := parseParams(body)
	cur := &c.cursor
	switch final {
	case 'A':
		cur.Row -= n
	case 'B':
		cur.Row += n
	case 'C':
		cur.Column += n
	case 'D':
		cur.Column -= n
	case 'E':
		cur.Row += n
		cur.Column = 1
	case 'F':
		cur.Row -= n
		cur.Column = 1
	case 'G':
		cur.Column = n
	case 'H', 'f':
		cur.Row = n
		cur.Column = m
	}
	cur.clamp()
}

func (c *Classifier) applyPrivateMode(body []byte, set bool) {
	for _, mode := range parseAllParams(body) {
		if !altScreenModes[mode] {
			continue
		}
		if set {
			c.enterAltScreen()
		} else {
			c.exitAltScreen()
		}
		return
	}
}

// parseParams returns the first two parameters with absent and zero values
// normalized to 1.
func parseParams(body []byte) (int, int) {
	params := [2]int{}
	idx := 0
	for _, b := range body {
		switch {
		case b >= '0' && b <= '9':
			if params[idx] < 1<<20 {
				params[idx] = params[idx]*10 + int(b-'0')
			}
		case b == ';':
			idx++
		}
		if idx >= len(params) {
			break
		}
	}

	for i := range params {
		if params[i] == 0 {
			params[i] = 1
		}
	}
	return params[0], params[1]
}

// parseAllParams returns every semicolon separated parameter, absent ones as 0
func parseAllParams(body []byte) []int {
	params := make([]int, 0, 4)
	current := 0
	for _, b := range body {
		switch {
		case b >= '0' && b <= '9':
			if current < 1<<20 {
				current = current*10 + int(b-'0')
			}
		case b == ';':
			params = append(params, current)
			current = 0
		}
	}
	return append(params, current)
}
