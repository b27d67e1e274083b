package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"rainbowterm/pkg/history"
	"rainbowterm/pkg/rainbow"
)

var (
	flagRealtime bool
	flagMaxDelay time.Duration
)

// replayCmd paints a recorded session again
var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Replay a session recorded in JSON format",
	Long: `Replay the output of a session recorded with --record-format json,
painted with the current color settings.

Example:
  rainbowterm --record session.json --record-format json htop
  rainbowterm replay --realtime session.json`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&flagRealtime, "realtime", false, "keep the original timing between output chunks")
	replayCmd.Flags().DurationVar(&flagMaxDelay, "max-delay", time.Second, "longest pause in realtime mode")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	_, entries, err := history.LoadFromFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	classifier, err := newClassifier(cfg, out)
	if err != nil {
		return err
	}

	var last time.Time
	for _, entry := range entries {
		if entry.Direction != history.DirectionOutput {
			continue
		}

		if flagRealtime && !last.IsZero() {
			if err := pause(cmd, min(entry.Timestamp.Sub(last), flagMaxDelay)); err != nil {
				break
			}
		}
		last = entry.Timestamp

		if _, err := classifier.Write(entry.Data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if err := classifier.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err = io.WriteString(out, rainbow.Reset)
	return err
}

// pause sleeps for d unless the command is cancelled first
func pause(cmd *cobra.Command, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	case <-timer.C:
		return nil
	}
}
