//go:build unix

package tty

import (
	"os"

	"github.com/creack/pty"
)

// CopySize copies the window dimensions of from onto to
func CopySize(from, to *os.File) error {
	if err := pty.InheritSize(from, to); err != nil {
		return &OpError{Op: "copy window size", Err: err}
	}
	return nil
}

// Size returns the window dimensions of f
func Size(f *os.File) (rows, cols int, err error) {
	rows, cols, err = pty.Getsize(f)
	if err != nil {
		return 0, 0, &OpError{Op: "get window size", Err: err}
	}
	return rows, cols, nil
}

// SetSize sets the window dimensions of f
func SetSize(f *os.File, rows, cols int) error {
	if err := pty.Setsize(f, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return &OpError{Op: "set window size", Err: err}
	}
	return nil
}
