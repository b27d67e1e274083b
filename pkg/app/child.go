//go:build unix

package app

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ChildHandle tracks the program running on the pseudo-terminal slave
type ChildHandle struct {
	Pid    int
	Status unix.WaitStatus

	process *os.Process
	exited  bool
}

// startChild starts the program in a new session with the slave as its
// controlling terminal and standard streams.
func startChild(opts Options, slave *os.File) (*ChildHandle, error) {
	cmd := &exec.Cmd{
		Path:   opts.Command,
		Args:   append([]string{opts.Command}, opts.Args...),
		Env:    opts.Env,
		Dir:    opts.Dir,
		Stdin:  slave,
		Stdout: slave,
		Stderr: slave,
		SysProcAttr: &syscall.SysProcAttr{
			Setsid:  true,
			Setctty: true,
		},
	}
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &ChildHandle{Pid: cmd.Process.Pid, process: cmd.Process}, nil
}

// Exited reports whether the child has been reaped
func (c *ChildHandle) Exited() bool {
	return c.exited
}

// Reap collects the child's status without blocking. It reports true once
// the child has terminated; later calls keep reporting true.
func (c *ChildHandle) Reap() (bool, error) {
	return c.wait(unix.WNOHANG)
}

// Wait blocks until the child terminates
func (c *ChildHandle) Wait() error {
	_, err := c.wait(0)
	return err
}

func (c *ChildHandle) wait(options int) (bool, error) {
	if c.exited {
		return true, nil
	}

	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(c.Pid, &status, options, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			// Collected elsewhere, nothing left to wait for
			c.markExited(status)
			return true, nil
		case err != nil:
			return false, fmt.Errorf("wait4: %w", err)
		case pid == 0:
			return false, nil
		}

		if status.Exited() || status.Signaled() {
			c.markExited(status)
			return true, nil
		}
		if options&unix.WNOHANG != 0 {
			return false, nil
		}
	}
}

func (c *ChildHandle) markExited(status unix.WaitStatus) {
	c.Status = status
	c.exited = true
	if c.process != nil {
		c.process.Release()
	}
}

// ExitCode returns the exit status, 128+n for a child killed by signal n and
// -1 while the child is running.
func (c *ChildHandle) ExitCode() int {
	switch {
	case !c.exited:
		return -1
	case c.Status.Exited():
		return c.Status.ExitStatus()
	case c.Status.Signaled():
		return 128 + int(c.Status.Signal())
	default:
		return 0
	}
}

// Signal sends sig to the child unless it has already been reaped
func (c *ChildHandle) Signal(sig syscall.Signal) error {
	if c.exited {
		return nil
	}
	if err := unix.Kill(c.Pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill: %w", err)
	}
	return nil
}
