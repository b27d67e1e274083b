//go:build unix

package tty

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func allocateOrSkip(t *testing.T) *Pair {
	t.Helper()
	pair, err := Allocate()
	if err != nil {
		t.Skipf("pseudo-terminal not available: %v", err)
	}
	t.Cleanup(func() { pair.Close() })
	return pair
}

func TestAllocate(t *testing.T) {
	pair := allocateOrSkip(t)

	if pair.Master == nil || pair.Slave == nil {
		t.Fatal("Allocate() returned a pair with a nil end")
	}
	if pair.SlaveName() == "" {
		t.Error("SlaveName() is empty")
	}
	if !IsTerminal(int(pair.Slave.Fd())) {
		t.Error("IsTerminal(slave) = false, want true")
	}
}

func TestPair_CloseSlave(t *testing.T) {
	pair := allocateOrSkip(t)

	if err := pair.CloseSlave(); err != nil {
		t.Fatalf("CloseSlave() error = %v", err)
	}
	if err := pair.CloseSlave(); err != nil {
		t.Errorf("second CloseSlave() error = %v, want nil", err)
	}
	if pair.SlaveName() != "" {
		t.Errorf("SlaveName() after close = %q, want empty", pair.SlaveName())
	}
	if err := pair.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestMakeRawAndRestore(t *testing.T) {
	pair := allocateOrSkip(t)
	fd := int(pair.Slave.Fd())

	before, err := GetState(fd)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if before.Raw() {
		t.Fatal("fresh pseudo-terminal is already raw")
	}

	saved, err := MakeRaw(fd)
	if err != nil {
		t.Fatalf("MakeRaw() error = %v", err)
	}
	if !saved.Equal(before) {
		t.Error("MakeRaw() did not return the previous state")
	}

	raw, err := GetState(fd)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !raw.Raw() {
		t.Error("state after MakeRaw() has canonical mode or echo enabled")
	}
	if raw.termios.Lflag&unix.ISIG != 0 {
		t.Error("state after MakeRaw() still generates signals")
	}
	if raw.termios.Oflag&unix.OPOST != 0 {
		t.Error("state after MakeRaw() still post-processes output")
	}

	if err := Restore(fd, saved); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	after, err := GetState(fd)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !after.Equal(before) {
		t.Error("state after Restore() differs from the original")
	}
}

func TestRestore_Idempotent(t *testing.T) {
	pair := allocateOrSkip(t)
	fd := int(pair.Slave.Fd())

	saved, err := GetState(fd)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := Restore(fd, saved); err != nil {
			t.Fatalf("Restore() #%d error = %v", i, err)
		}
	}
	got, err := GetState(fd)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !got.Equal(saved) {
		t.Error("Restore() of a just-captured state changed the terminal")
	}

	if err := Restore(fd, nil); err != nil {
		t.Errorf("Restore(nil) error = %v, want nil", err)
	}
}

func TestGetState_NotATerminal(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatalf("Pipe() error = %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if IsTerminal(fds[0]) {
		t.Error("IsTerminal(pipe) = true, want false")
	}

	_, err := GetState(fds[0])
	if err == nil {
		t.Fatal("GetState(pipe) error = nil, want error")
	}
	if !errors.Is(err, ErrAttributeQuery) {
		t.Errorf("GetState(pipe) error = %v, want ErrAttributeQuery", err)
	}
	if !errors.Is(err, unix.ENOTTY) {
		t.Errorf("GetState(pipe) error = %v, want ENOTTY", err)
	}
}

func TestCopySize(t *testing.T) {
	src := allocateOrSkip(t)
	dst := allocateOrSkip(t)

	if err := SetSize(src.Slave, 30, 100); err != nil {
		t.Fatalf("SetSize() error = %v", err)
	}
	if err := CopySize(src.Slave, dst.Master); err != nil {
		t.Fatalf("CopySize() error = %v", err)
	}

	rows, cols, err := Size(dst.Slave)
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if rows != 30 || cols != 100 {
		t.Errorf("Size() = %dx%d, want 30x100", rows, cols)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access", unix.EACCES, ErrPermissionDenied},
		{"permission", unix.EPERM, ErrPermissionDenied},
		{"no device", unix.ENODEV, ErrDeviceUnavailable},
		{"missing", unix.ENOENT, ErrDeviceUnavailable},
		{"exhausted", unix.ENOSPC, ErrDeviceUnavailable},
		{"not a tty", unix.ENOTTY, ErrPathResolution},
		{"invalid", unix.EINVAL, ErrPathResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOpError(t *testing.T) {
	err := &OpError{Op: "allocate", Kind: ErrDeviceUnavailable, Err: unix.ENOSPC}

	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Error("errors.Is(err, ErrDeviceUnavailable) = false")
	}
	if !errors.Is(err, unix.ENOSPC) {
		t.Error("errors.Is(err, ENOSPC) = false")
	}

	plain := &OpError{Op: "tcsetattr", Err: unix.EIO}
	if errors.Is(plain, ErrAttributeQuery) {
		t.Error("unclassified error matched ErrAttributeQuery")
	}
	if plain.Error() != "tcsetattr: "+unix.EIO.Error() {
		t.Errorf("Error() = %q", plain.Error())
	}
}
