//go:build unix

package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creack/goselect"
	"golang.org/x/sys/unix"

	"rainbowterm/pkg/history"
	"rainbowterm/pkg/terminal"
)

const (
	inputBufferSize  = 4 * 1024
	outputBufferSize = 32 * 1024

	// drainLimit bounds the reads made after the child is reaped, in case a
	// leftover process keeps the slave open and busy.
	drainLimit = 256

	// veof is the default end-of-file character of a fresh slave
	veof byte = 0x04

	blockForever time.Duration = -1
)

// loop is the single-threaded select loop that moves bytes between the real
// terminal and the pseudo-terminal master.
type loop struct {
	session     *Session
	master      *os.File
	stdin       *os.File
	interactive bool
	notify      *notifier
	child       *ChildHandle
	classifier  *terminal.Classifier

	masterFd int
	stdinFd  int
	inBuf    []byte
	outBuf   []byte

	cancelled bool
}

func (l *loop) run() error {
	l.masterFd = int(l.master.Fd())
	l.stdinFd = int(l.stdin.Fd())
	l.inBuf = make([]byte, inputBufferSize)
	l.outBuf = make([]byte, outputBufferSize)

	stdinOpen := true
	rfds := &goselect.FDSet{}

	for {
		rfds.Zero()
		rfds.Set(uintptr(l.masterFd))
		rfds.Set(uintptr(l.notify.readFd))
		maxFd := max(l.masterFd, l.notify.readFd)
		if stdinOpen {
			rfds.Set(uintptr(l.stdinFd))
			maxFd = max(maxFd, l.stdinFd)
		}

		if err := goselect.Select(maxFd+1, rfds, nil, nil, blockForever); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("select: %w", err)
		}

		if rfds.IsSet(uintptr(l.notify.readFd)) {
			done, err := l.handleNotifications()
			if err != nil || done {
				return err
			}
		}

		if stdinOpen && rfds.IsSet(uintptr(l.stdinFd)) {
			open, err := l.forwardInput()
			if err != nil {
				return err
			}
			stdinOpen = open
		}

		if rfds.IsSet(uintptr(l.masterFd)) {
			more, err := l.readOutput()
			if err != nil || !more {
				return err
			}
		}
	}
}

// handleNotifications acts on queued signals and reports whether the loop
// should end.
func (l *loop) handleNotifications() (bool, error) {
	resize, child, cancel, err := l.notify.drain()
	if err != nil {
		return true, err
	}

	if resize && l.interactive {
		l.session.resize(l.stdin, l.master)
	}

	if cancel {
		l.session.logger.Info("session cancelled")
		l.cancelled = true
		return true, nil
	}

	if child {
		exited, err := l.child.Reap()
		if err != nil {
			return true, err
		}
		if exited {
			l.session.logger.Debug("child reaped", "pid", l.child.Pid)
			return true, l.drainOutput()
		}
	}

	return false, nil
}

// forwardInput copies keystrokes to the master verbatim. It reports false
// once stdin is exhausted.
func (l *loop) forwardInput() (bool, error) {
	n, err := unix.Read(l.stdinFd, l.inBuf)
	switch {
	case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("read stdin: %w", err)
	case n == 0:
		l.session.logger.Debug("stdin closed")
		if !l.interactive {
			// Let a child reading the terminal see end of file too
			if err := l.writeMaster([]byte{veof}); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	data := l.inBuf[:n]
	l.session.addIn(n)
	l.record(data, history.DirectionInput)

	if err := l.writeMaster(data); err != nil {
		return false, err
	}
	return true, nil
}

// writeMaster writes all of p. EIO means the child side is gone, which the
// next master read reports.
func (l *loop) writeMaster(p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(l.masterFd, p)
		switch {
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
			continue
		case errors.Is(err, unix.EIO):
			return nil
		case err != nil:
			return fmt.Errorf("write master: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// readOutput paints one chunk of child output. It reports false when the
// child has closed its end.
func (l *loop) readOutput() (bool, error) {
	n, err := unix.Read(l.masterFd, l.outBuf)
	switch {
	case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
		return true, nil
	case errors.Is(err, unix.EIO):
		l.session.logger.Debug("master closed", "err", err)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read master: %w", err)
	case n == 0:
		return false, nil
	}

	data := l.outBuf[:n]
	l.session.addOut(n)
	l.record(data, history.DirectionOutput)

	if _, err := l.classifier.Write(data); err != nil {
		return false, fmt.Errorf("write output: %w", err)
	}
	return true, nil
}

// drainOutput paints whatever the child left in the master after it exited,
// without blocking.
func (l *loop) drainOutput() error {
	rfds := &goselect.FDSet{}
	for i := 0; i < drainLimit; i++ {
		rfds.Zero()
		rfds.Set(uintptr(l.masterFd))
		if err := goselect.Select(l.masterFd+1, rfds, nil, nil, 0); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("select: %w", err)
		}
		if !rfds.IsSet(uintptr(l.masterFd)) {
			return nil
		}

		more, err := l.readOutput()
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func (l *loop) record(data []byte, direction history.Direction) {
	if l.session.opts.Recorder == nil {
		return
	}
	if err := l.session.opts.Recorder.Write(data, direction); err != nil {
		l.session.logger.Warn("recording failed", "err", err)
	}
}
