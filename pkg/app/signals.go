//go:build unix

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Notification bytes written into the self-pipe
const (
	notifyResize byte = 'w'
	notifyChild  byte = 'c'
	notifyCancel byte = 'x'
)

// notifier moves asynchronous events into the event loop. Signals and context
// cancellation are turned into single bytes on a non-blocking pipe whose read
// end sits in the select set next to stdin and the master.
type notifier struct {
	readFd  int
	writeFd int
	signals chan os.Signal
	done    chan struct{}
	stopped chan struct{}
}

func newNotifier(ctx context.Context) (*notifier, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, fmt.Errorf("set nonblock: %w", err)
		}
	}

	n := &notifier{
		readFd:  fds[0],
		writeFd: fds[1],
		signals: make(chan os.Signal, 8),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	signal.Notify(n.signals, syscall.SIGWINCH, syscall.SIGCHLD)

	go n.forward(ctx)
	return n, nil
}

func (n *notifier) forward(ctx context.Context) {
	defer close(n.stopped)

	for {
		select {
		case <-n.done:
			return
		case <-ctx.Done():
			n.post(notifyCancel)
			return
		case sig := <-n.signals:
			switch sig {
			case syscall.SIGWINCH:
				n.post(notifyResize)
			case syscall.SIGCHLD:
				n.post(notifyChild)
			}
		}
	}
}

// post never blocks; a full pipe already holds a pending wakeup
func (n *notifier) post(b byte) {
	for {
		_, err := unix.Write(n.writeFd, []byte{b})
		if !errors.Is(err, unix.EINTR) {
			return
		}
	}
}

// drain returns the notifications queued since the last call
func (n *notifier) drain() (resize, child, cancel bool, err error) {
	var buf [64]byte
	for {
		r, rerr := unix.Read(n.readFd, buf[:])
		switch {
		case errors.Is(rerr, unix.EINTR):
			continue
		case errors.Is(rerr, unix.EAGAIN):
			return resize, child, cancel, nil
		case rerr != nil:
			return resize, child, cancel, fmt.Errorf("read signal pipe: %w", rerr)
		case r == 0:
			return resize, child, cancel, nil
		}

		for _, b := range buf[:r] {
			switch b {
			case notifyResize:
				resize = true
			case notifyChild:
				child = true
			case notifyCancel:
				cancel = true
			}
		}
	}
}

// close disarms the handlers and releases the pipe
func (n *notifier) close() {
	signal.Stop(n.signals)
	close(n.done)
	<-n.stopped
	unix.Close(n.readFd)
	unix.Close(n.writeFd)
}
