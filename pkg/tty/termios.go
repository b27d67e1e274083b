//go:build unix

package tty

import (
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// State is a snapshot of a terminal's attributes
type State struct {
	termios unix.Termios
}

// Equal reports whether two snapshots hold the same attributes
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.termios == other.termios
}

// Raw reports whether the snapshot has canonical mode and echo disabled
func (s *State) Raw() bool {
	return s.termios.Lflag&(unix.ICANON|unix.ECHO) == 0
}

// IsTerminal reports whether fd refers to a terminal
func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// GetState captures the attributes of the terminal fd
func GetState(fd int) (*State, error) {
	t, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, &OpError{Op: "tcgetattr", Kind: ErrAttributeQuery, Err: err}
	}
	return &State{termios: *t}, nil
}

// MakeRaw puts fd into raw mode and returns the previous state. The new
// attributes are applied after pending output drains and pending input is
// discarded.
func MakeRaw(fd int) (*State, error) {
	old, err := GetState(fd)
	if err != nil {
		return nil, err
	}

	raw := old.termios
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Oflag &^= unix.OPOST
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlWriteTermiosFlush, &raw); err != nil {
		return nil, &OpError{Op: "tcsetattr", Err: err}
	}

	return old, nil
}

// Restore reapplies a captured state
func Restore(fd int, s *State) error {
	if s == nil {
		return nil
	}

	t := s.termios
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermiosFlush, &t); err != nil {
		return &OpError{Op: "tcsetattr", Err: err}
	}
	return nil
}
