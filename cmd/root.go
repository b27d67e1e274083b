package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rainbowterm/pkg/app"
	"rainbowterm/pkg/config"
)

const version = "1.0.0"

var (
	// Color flags, shared with filter and replay
	flagFrequency   float64
	flagSpread      float64
	flagOffset      float64
	flagColor       string
	flagMaxSequence int
	flagWide        bool
	flagConfigDir   string
	flagPreset      string

	// Session flags
	flagRecord       string
	flagRecordFormat string
	flagLogFile      string
	flagLogLevel     string

	// exitCode is the child's exit code after a session
	exitCode int

	// Root command
	rootCmd = &cobra.Command{
		Use:   "rainbowterm [flags] [--] [command [args...]]",
		Short: "Run a program with its output painted in rainbow colors",
		Long: `Run a program on a pseudo-terminal and paint every character it prints
with a color taken from a rainbow that flows across rows and columns.

Escape sequences pass through untouched, so full-screen programs keep
working. Without a command the shell from $SHELL is started.

Flags must come before the command; everything after it is passed to the
program. Use -- to run a program named like a subcommand.

Examples:
  rainbowterm
  rainbowterm htop
  rainbowterm --frequency 0.3 -- ls -la`,
		Version:           version,
		Args:              cobra.ArbitraryArgs,
		RunE:              runSession,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.Float64VarP(&flagFrequency, "frequency", "f", config.DefaultConfig().Frequency, "how fast the colors cycle")
	pflags.Float64VarP(&flagSpread, "spread", "s", config.DefaultConfig().Spread, "columns per color step")
	pflags.Float64Var(&flagOffset, "offset", -1, "fixed rainbow offset (negative picks a random one)")
	pflags.StringVarP(&flagColor, "color", "c", config.DefaultConfig().ColorMode, "color mode: auto, truecolor or 256")
	pflags.IntVar(&flagMaxSequence, "max-sequence", config.DefaultConfig().MaxSequenceLength, "longest escape sequence held before it is passed through")
	pflags.BoolVarP(&flagWide, "wide", "w", false, "advance the column by the display width of wide glyphs")
	pflags.StringVar(&flagConfigDir, "config", "", "configuration directory (default $XDG_CONFIG_HOME/rainbowterm)")
	pflags.StringVarP(&flagPreset, "preset", "p", "", "use a saved preset instead of the default configuration")

	flags := rootCmd.Flags()
	flags.StringVarP(&flagRecord, "record", "r", "", "record the session to a file")
	flags.StringVar(&flagRecordFormat, "record-format", config.DefaultConfig().RecordFormat, "recording format: plain, timestamped or json")
	flags.StringVar(&flagLogFile, "log-file", "", "write logs to a file")
	flags.StringVar(&flagLogLevel, "log-level", config.DefaultConfig().LogLevel, "log level: debug, info, warn or error")

	// Everything after the command belongs to the command
	flags.SetInterspersed(false)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadConfig reads the stored configuration or preset and applies the flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	manager := config.NewFileConfigManager(flagConfigDir)

	cfg, err := manager.Load()
	if err != nil {
		return config.Config{}, err
	}

	if flagPreset != "" {
		cfg, err = manager.LoadPreset(flagPreset)
		if err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("frequency") {
		cfg.Frequency = flagFrequency
	}
	if flags.Changed("spread") {
		cfg.Spread = flagSpread
	}
	if flags.Changed("color") {
		cfg.ColorMode = flagColor
	}
	if flags.Changed("max-sequence") {
		cfg.MaxSequenceLength = flagMaxSequence
	}
	if flags.Changed("wide") {
		cfg.WideGlyphs = flagWide
	}
	if flags.Lookup("record") != nil {
		if flags.Changed("record") {
			cfg.RecordFile = flagRecord
		}
		if flags.Changed("record-format") {
			cfg.RecordFormat = flagRecordFormat
		}
		if flags.Changed("log-file") {
			cfg.LogFile = flagLogFile
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// runSession runs the command, or the shell, on a pseudo-terminal
func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var name string
	var childArgs []string
	if len(args) > 0 {
		name, childArgs = args[0], args[1:]
	}

	path, err := app.ResolveCommand(name, cfg.Shell)
	if err != nil {
		return err
	}

	runner, err := app.NewRunner(cfg, path, childArgs, app.RunOptions{Offset: flagOffset})
	if err != nil {
		return err
	}

	code, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	exitCode = code
	return nil
}
