package cmd

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"rainbowterm/pkg/config"
	"rainbowterm/pkg/rainbow"
	"rainbowterm/pkg/terminal"
)

var flagPlain bool

// filterCmd paints files or standard input without a pseudo-terminal
var filterCmd = &cobra.Command{
	Use:   "filter [files...]",
	Short: "Paint files or standard input",
	Long: `Run files, or standard input when none are given, through the same
painter a session uses and write the result to standard output.

The cursor is tracked from the start of the input, so the colors match what
a session would show for the same bytes printed at the top of the screen.

Examples:
  ls -la | rainbowterm filter
  rainbowterm filter --offset 10 README.md`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().BoolVar(&flagPlain, "plain", false, "copy the input without color")
}

// newClassifier builds a painter for the configuration and the offset flag
func newClassifier(cfg config.Config, out io.Writer) (*terminal.Classifier, error) {
	profile, err := rainbow.ParseProfile(cfg.ColorMode)
	if err != nil {
		return nil, err
	}

	offset := flagOffset
	if offset < 0 {
		offset = rainbow.NewOffset(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}

	return terminal.NewClassifier(out, terminal.Options{
		Phase:             cfg.Phase(offset),
		Emitter:           rainbow.NewEmitter(profile),
		MaxSequenceLength: cfg.MaxSequenceLength,
		WideGlyphs:        cfg.WideGlyphs,
	}), nil
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		args = []string{"-"}
	}

	if flagPlain {
		for _, name := range args {
			if err := copyInput(cmd, name, out); err != nil {
				return err
			}
		}
		return nil
	}

	classifier, err := newClassifier(cfg, out)
	if err != nil {
		return err
	}

	var copyErr error
	for _, name := range args {
		if copyErr = copyInput(cmd, name, classifier); copyErr != nil {
			break
		}
	}

	if err := classifier.Flush(); err != nil && copyErr == nil {
		copyErr = err
	}
	if _, err := io.WriteString(out, rainbow.Reset); err != nil && copyErr == nil {
		copyErr = err
	}
	return copyErr
}

// copyInput copies a named file, or standard input for "-", to w
func copyInput(cmd *cobra.Command, name string, w io.Writer) error {
	if name == "-" {
		if _, err := io.Copy(w, cmd.InOrStdin()); err != nil {
			return fmt.Errorf("filter stdin: %w", err)
		}
		return nil
	}

	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("filter %s: %w", name, err)
	}
	return nil
}
