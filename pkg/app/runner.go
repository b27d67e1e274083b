//go:build unix

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	clog "github.com/charmbracelet/log"

	"rainbowterm/pkg/config"
	"rainbowterm/pkg/history"
	"rainbowterm/pkg/logging"
	"rainbowterm/pkg/rainbow"
)

// RunOptions contains runtime options that are not part of the saved
// configuration
type RunOptions struct {
	// Offset fixes the color offset; a negative value picks a random one
	Offset float64

	Stdin  *os.File
	Stdout io.Writer
	Env    []string
}

// Runner provides a high-level interface to run one session from a
// configuration
type Runner struct {
	config  config.Config
	command string
	args    []string
	opts    RunOptions

	session  *Session
	recorder *history.RingRecorder
	logger   *clog.Logger
}

// NewRunner creates a runner for an already resolved command
func NewRunner(cfg config.Config, command string, args []string, opts RunOptions) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	return &Runner{
		config:  cfg,
		command: command,
		args:    args,
		opts:    opts,
	}, nil
}

// Run starts the session and blocks until it ends. It returns the child's
// exit code. SIGTERM and SIGHUP end the session the same way a cancelled
// context does.
func (r *Runner) Run(ctx context.Context) (int, error) {
	logger, closer, err := logging.Open(r.config.LogFile, r.config.LogLevel)
	if err != nil {
		return 1, err
	}
	defer closer.Close()
	r.logger = logger

	profile, err := rainbow.ParseProfile(r.config.ColorMode)
	if err != nil {
		return 1, err
	}

	offset := r.opts.Offset
	if offset < 0 {
		offset = rainbow.NewOffset(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}

	opts := Options{
		Command:           r.command,
		Args:              r.args,
		Env:               r.opts.Env,
		Stdin:             r.opts.Stdin,
		Stdout:            r.opts.Stdout,
		Phase:             r.config.Phase(offset),
		Profile:           profile,
		MaxSequenceLength: r.config.MaxSequenceLength,
		WideGlyphs:        r.config.WideGlyphs,
		Logger:            logger,
	}

	session, err := NewSession(opts)
	if err != nil {
		return 1, fmt.Errorf("failed to create session: %w", err)
	}
	r.session = session

	if r.config.RecordFile != "" {
		r.recorder = history.NewRingRecorder(history.DefaultMaxSize, session.ID())
		session.opts.Recorder = r.recorder
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	logger.Info("session starting",
		"session", session.ID(),
		"command", r.command,
		"profile", profile,
		"offset", offset)

	runErr := session.Run(ctx)

	if err := r.saveRecording(); err != nil {
		logger.Error("failed to save recording", "err", err)
		if runErr == nil {
			runErr = err
		}
	}

	r.logSessionSummary()

	if errors.Is(runErr, context.Canceled) {
		// Hung up on request; the child's status says how it ended
		runErr = nil
	}
	if runErr != nil {
		return 1, runErr
	}

	code := session.ExitCode()
	if code < 0 {
		code = 1
	}
	return code, nil
}

func (r *Runner) saveRecording() error {
	if r.recorder == nil {
		return nil
	}

	format, err := history.ParseFileFormat(r.config.RecordFormat)
	if err != nil {
		return err
	}

	return r.recorder.SaveToFile(r.config.RecordFile, format)
}

// logSessionSummary logs a summary of the session
func (r *Runner) logSessionSummary() {
	if r.session == nil {
		return
	}

	stats := r.session.Stats()
	r.logger.Info("session summary",
		"session", r.session.ID(),
		"duration", stats.Duration,
		"bytes_in", stats.BytesIn,
		"bytes_out", stats.BytesOut,
		"written", stats.Written,
		"resizes", stats.Resizes,
		"exit_code", r.session.ExitCode())
}

// Session returns the session of the last Run
func (r *Runner) Session() *Session {
	return r.session
}
