//go:build unix

// Package app runs a rainbow session: a child program on a pseudo-terminal
// whose output is painted on its way to the real terminal.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	"rainbowterm/pkg/history"
	"rainbowterm/pkg/logging"
	"rainbowterm/pkg/rainbow"
	"rainbowterm/pkg/terminal"
	"rainbowterm/pkg/tty"
)

// resetAttempts bounds how often the final color reset is retried
const resetAttempts = 3

// Options configures a Session
type Options struct {
	// Command is the resolved path of the program to run
	Command string
	Args    []string
	// Env is forwarded to the child; nil means the current environment
	Env []string
	Dir string

	Stdin  *os.File
	Stdout io.Writer

	Phase             rainbow.Phase
	Profile           rainbow.Profile
	MaxSequenceLength int
	WideGlyphs        bool

	Recorder history.Recorder
	Logger   *clog.Logger
}

// Validate checks if the options are usable
func (o Options) Validate() error {
	if o.Command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if o.Stdin == nil {
		return fmt.Errorf("stdin cannot be nil")
	}
	if o.Stdout == nil {
		return fmt.Errorf("stdout cannot be nil")
	}
	if err := o.Phase.Validate(); err != nil {
		return fmt.Errorf("invalid color phase: %w", err)
	}
	return nil
}

// Stats holds session statistics
type Stats struct {
	BytesIn  int64         `json:"bytes_in"`
	BytesOut int64         `json:"bytes_out"`
	Written  int64         `json:"written"`
	Resizes  int           `json:"resizes"`
	Duration time.Duration `json:"duration"`
}

// Session represents one run of a child program
type Session struct {
	id     string
	opts   Options
	logger *clog.Logger

	mu        sync.RWMutex
	started   bool
	startTime time.Time
	endTime   time.Time
	stats     Stats
	exitCode  int
}

// NewSession creates a session
func NewSession(opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Session{
		id:       id,
		opts:     opts,
		logger:   logger.With("session", id),
		exitCode: -1,
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// ExitCode returns the child's exit code, or -1 if it has not been collected
func (s *Session) ExitCode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.exitCode
}

// Stats returns session statistics
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	switch {
	case s.startTime.IsZero():
	case s.endTime.IsZero():
		stats.Duration = time.Since(s.startTime)
	default:
		stats.Duration = s.endTime.Sub(s.startTime)
	}
	return stats
}

func (s *Session) addIn(n int) {
	s.mu.Lock()
	s.stats.BytesIn += int64(n)
	s.mu.Unlock()
}

func (s *Session) addOut(n int) {
	s.mu.Lock()
	s.stats.BytesOut += int64(n)
	s.mu.Unlock()
}

func (s *Session) addWritten(n int) {
	s.mu.Lock()
	s.stats.Written += int64(n)
	s.mu.Unlock()
}

func (s *Session) addResize() {
	s.mu.Lock()
	s.stats.Resizes++
	s.mu.Unlock()
}

// Run executes the session and blocks until the child is gone. The child
// exiting is a normal end and returns nil; ctx cancellation hangs up the child
// and returns the context error. The real terminal is restored and a color
// reset is written on every path once the child has started.
func (s *Session) Run(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session %s already started", s.id)
	}
	s.started = true
	s.startTime = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.endTime = time.Now()
		s.mu.Unlock()
	}()

	pair, err := tty.Allocate()
	if err != nil {
		return err
	}
	defer pair.Close()
	s.logger.Debug("pseudo-terminal allocated", "slave", pair.SlaveName())

	// Armed before the fork so an early exit is not missed
	notify, err := newNotifier(ctx)
	if err != nil {
		return fmt.Errorf("install signal handlers: %w", err)
	}
	defer notify.close()

	stdinFd := int(s.opts.Stdin.Fd())
	interactive := tty.IsTerminal(stdinFd)
	if interactive {
		s.resize(s.opts.Stdin, pair.Master)
	}

	child, err := startChild(s.opts, pair.Slave)
	if err != nil {
		return fmt.Errorf("start %s: %w", s.opts.Command, err)
	}
	s.logger.Info("child started", "command", s.opts.Command, "pid", child.Pid)

	defer func() {
		if !child.Exited() {
			if werr := child.Wait(); werr != nil {
				err = errors.Join(err, werr)
			}
		}
		s.mu.Lock()
		s.exitCode = child.ExitCode()
		s.mu.Unlock()
		s.logger.Info("child exited", "pid", child.Pid, "code", child.ExitCode())
	}()

	if err := pair.CloseSlave(); err != nil {
		child.Signal(syscall.SIGHUP)
		return fmt.Errorf("close slave: %w", err)
	}

	classifier := terminal.NewClassifier(&countingWriter{w: s.opts.Stdout, add: s.addWritten}, terminal.Options{
		Phase:             s.opts.Phase,
		Emitter:           rainbow.NewEmitter(s.opts.Profile),
		MaxSequenceLength: s.opts.MaxSequenceLength,
		WideGlyphs:        s.opts.WideGlyphs,
	})

	defer func() {
		if ferr := classifier.Flush(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("flush output: %w", ferr))
		}
		if rerr := s.writeReset(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	if interactive {
		state, rerr := tty.MakeRaw(stdinFd)
		if rerr != nil {
			child.Signal(syscall.SIGHUP)
			return fmt.Errorf("enter raw mode: %w", rerr)
		}
		defer func() {
			if rerr := tty.Restore(stdinFd, state); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore terminal: %w", rerr))
			}
		}()
	}

	l := &loop{
		session:     s,
		master:      pair.Master,
		stdin:       s.opts.Stdin,
		interactive: interactive,
		notify:      notify,
		child:       child,
		classifier:  classifier,
	}
	if err := l.run(); err != nil {
		child.Signal(syscall.SIGHUP)
		return err
	}

	if l.cancelled {
		child.Signal(syscall.SIGHUP)
		return ctx.Err()
	}
	return nil
}

// resize copies the window size of the real terminal onto the master
func (s *Session) resize(from, to *os.File) {
	if err := tty.CopySize(from, to); err != nil {
		s.logger.Warn("window size not propagated", "err", err)
		return
	}
	s.addResize()

	if rows, cols, err := tty.Size(to); err == nil {
		s.logger.Debug("window resized", "rows", rows, "cols", cols)
	}
}

// writeReset writes the final attribute reset, retrying a failed write a
// bounded number of times.
func (s *Session) writeReset() error {
	var err error
	for attempt := 0; attempt < resetAttempts; attempt++ {
		if _, err = io.WriteString(s.opts.Stdout, rainbow.Reset); err == nil {
			return nil
		}
		s.logger.Debug("reset write failed", "attempt", attempt+1, "err", err)
	}
	return fmt.Errorf("write reset: %w", err)
}

// countingWriter reports the number of bytes written through it
type countingWriter struct {
	w   io.Writer
	add func(int)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.add(n)
	return n, err
}
