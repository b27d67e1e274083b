//go:build unix

// Package tty allocates pseudo-terminals and controls the line discipline of
// the real terminal.
package tty

import (
	"errors"
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

var (
	// ErrDeviceUnavailable means no pseudo-terminal could be created
	ErrDeviceUnavailable = errors.New("no pseudo-terminal available")

	// ErrPermissionDenied means the pseudo-terminal device could not be accessed
	ErrPermissionDenied = errors.New("pseudo-terminal permission denied")

	// ErrPathResolution means the slave device could not be resolved or opened
	ErrPathResolution = errors.New("pseudo-terminal slave path resolution failed")

	// ErrAttributeQuery means terminal attributes could not be read
	ErrAttributeQuery = errors.New("terminal attribute query failed")
)

// OpError records the failing operation, the error class and the system error
type OpError struct {
	Op   string
	Kind error
	Err  error
}

// Error implements the error interface
func (e *OpError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the class and the underlying error to errors.Is
func (e *OpError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// Pair is one pseudo-terminal: the master stays with the session, the slave
// becomes the child's terminal.
type Pair struct {
	Master *os.File
	Slave  *os.File
}

// Allocate opens a new pseudo-terminal pair. There are no retries.
func Allocate() (*Pair, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, &OpError{Op: "allocate", Kind: classify(err), Err: err}
	}

	return &Pair{Master: master, Slave: slave}, nil
}

// SlaveName returns the device path of the slave
func (p *Pair) SlaveName() string {
	if p.Slave == nil {
		return ""
	}
	return p.Slave.Name()
}

// CloseSlave closes the parent's handle on the slave. It is safe to call more
// than once.
func (p *Pair) CloseSlave() error {
	if p.Slave == nil {
		return nil
	}
	err := p.Slave.Close()
	p.Slave = nil
	return err
}

// Close closes both ends
func (p *Pair) Close() error {
	slaveErr := p.CloseSlave()

	var masterErr error
	if p.Master != nil {
		masterErr = p.Master.Close()
		p.Master = nil
	}

	return errors.Join(masterErr, slaveErr)
}

func classify(err error) error {
	switch {
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, pty.ErrUnsupported),
		errors.Is(err, unix.ENOENT),
		errors.Is(err, unix.ENODEV),
		errors.Is(err, unix.ENXIO),
		errors.Is(err, unix.ENOSPC),
		errors.Is(err, unix.EAGAIN),
		errors.Is(err, unix.EMFILE),
		errors.Is(err, unix.ENFILE):
		return ErrDeviceUnavailable
	default:
		return ErrPathResolution
	}
}
