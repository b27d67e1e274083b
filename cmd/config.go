package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rainbowterm/pkg/config"
)

var (
	// Config command flags
	flagSaveDefault bool
	flagDescription string
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration and saved presets",
	Long: `Manage the configuration file and named presets.

The default configuration applies to every run. Presets are named sets of
color settings selected with --preset. Flags given on the command line
override both.`,
}

// pathCmd prints the configuration file path
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.NewFileConfigManager(flagConfigDir).Path())
		return nil
	},
}

// initCmd writes a default configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file with default values",
	Args:  cobra.NoArgs,
	RunE:  runInitConfig,
}

// showCmd shows the effective configuration
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runShowConfig,
}

// saveCmd saves the effective configuration
var saveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Save the effective configuration as a preset",
	Long: `Save the configuration built from the file and the given flags as a
named preset, or as the default configuration with --default.

Example:
  rainbowterm --frequency 0.05 --spread 6 config save calm`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSaveConfig,
}

// listCmd lists saved presets
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	Args:  cobra.NoArgs,
	RunE:  runListPresets,
}

// deleteCmd deletes a preset
var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Short:   "Delete a saved preset",
	Aliases: []string{"rm", "remove"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.NewFileConfigManager(flagConfigDir).DeletePreset(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Preset '%s' deleted.\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(pathCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(saveCmd)
	configCmd.AddCommand(listCmd)
	configCmd.AddCommand(deleteCmd)

	saveCmd.Flags().BoolVar(&flagSaveDefault, "default", false, "save as the default configuration")
	saveCmd.Flags().StringVarP(&flagDescription, "description", "d", "", "preset description")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	manager := config.NewFileConfigManager(flagConfigDir)
	if manager.Exists() {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at %s\n", manager.Path())
		return nil
	}

	if err := manager.Initialize(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", manager.Path())
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, string(data))
	fmt.Fprintf(out, "Palette:     %s\n", palette(cfg, 8))
	return nil
}

// palette lists the colors of the first n columns of row 1 at offset 0
func palette(cfg config.Config, n int) string {
	phase := cfg.Phase(0)
	colors := make([]string, 0, n)
	for col := 1; col <= n; col++ {
		colors = append(colors, phase.At(1, col).Hex())
	}
	return strings.Join(colors, " ")
}

func runSaveConfig(cmd *cobra.Command, args []string) error {
	if flagSaveDefault == (len(args) == 1) {
		return fmt.Errorf("give either a preset name or --default")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manager := config.NewFileConfigManager(flagConfigDir)
	out := cmd.OutOrStdout()

	if flagSaveDefault {
		if err := manager.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "Default configuration saved to %s\n", manager.Path())
		return nil
	}

	name := args[0]
	if err := manager.SavePreset(name, cfg, flagDescription); err != nil {
		return err
	}

	fmt.Fprintf(out, "Preset '%s' saved.\n", name)
	fmt.Fprintf(out, "  Frequency: %v\n", cfg.Frequency)
	fmt.Fprintf(out, "  Spread:    %v\n", cfg.Spread)
	fmt.Fprintf(out, "  Color:     %s\n", cfg.ColorMode)
	return nil
}

func runListPresets(cmd *cobra.Command, args []string) error {
	presets, err := config.NewFileConfigManager(flagConfigDir).ListPresets()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(presets) == 0 {
		fmt.Fprintln(out, "No saved presets found.")
		fmt.Fprintln(out, "\nUse 'rainbowterm [flags] config save <name>' to save one.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFREQUENCY\tSPREAD\tCOLOR\tLAST USED\tDESCRIPTION")
	fmt.Fprintln(w, "----\t---------\t------\t-----\t---------\t-----------")

	for _, p := range presets {
		fmt.Fprintf(w, "%s\t%v\t%v\t%s\t%s\t%s\n",
			p.Name,
			p.Config.Frequency,
			p.Config.Spread,
			p.Config.ColorMode,
			p.LastUsedAt.Format(time.DateTime),
			p.Description)
	}

	return w.Flush()
}
