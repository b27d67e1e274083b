package app

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultShell is used when neither $SHELL nor the configuration names one
const DefaultShell = "/bin/sh"

// ErrCommandNotFound means the program to run could not be resolved
var ErrCommandNotFound = errors.New("command not found")

// ResolveCommand returns the path of the program to run. With no name the
// user's shell is used: $SHELL, then fallbackShell, then DefaultShell. A name
// containing a slash is used as given; anything else is looked up on $PATH.
func ResolveCommand(name, fallbackShell string) (string, error) {
	if name == "" {
		name = os.Getenv("SHELL")
	}
	if name == "" {
		name = fallbackShell
	}
	if name == "" {
		name = DefaultShell
	}

	if strings.Contains(name, "/") {
		info, err := os.Stat(name)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrCommandNotFound, name, err)
		}
		if info.IsDir() || info.Mode().Perm()&0111 == 0 {
			return "", fmt.Errorf("%w: %s: not executable", ErrCommandNotFound, name)
		}
		return name, nil
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	return path, nil
}
