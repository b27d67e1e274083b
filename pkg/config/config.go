// Package config provides configuration management functionality
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rainbowterm/pkg/history"
	"rainbowterm/pkg/rainbow"
	"rainbowterm/pkg/terminal"
)

const (
	// MinSequenceLength is the smallest accepted escape sequence bound
	MinSequenceLength = 16
	// MaxSequenceLength is the largest accepted escape sequence bound
	MaxSequenceLength = 1 << 20

	storageVersion = "1.0"
)

// Config contains the user settings for a rainbow session
type Config struct {
	Frequency         float64 `json:"frequency"`
	Spread            float64 `json:"spread"`
	ColorMode         string  `json:"color_mode"`
	MaxSequenceLength int     `json:"max_sequence_length"`
	WideGlyphs        bool    `json:"wide_glyphs"`
	Shell             string  `json:"shell,omitempty"`
	LogFile           string  `json:"log_file,omitempty"`
	LogLevel          string  `json:"log_level"`
	RecordFile        string  `json:"record_file,omitempty"`
	RecordFormat      string  `json:"record_format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Frequency:         rainbow.DefaultFrequency,
		Spread:            rainbow.DefaultSpread,
		ColorMode:         "auto",
		MaxSequenceLength: terminal.DefaultMaxSequenceLength,
		LogLevel:          "info",
		RecordFormat:      "timestamped",
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if err := c.Phase(0).Validate(); err != nil {
		return err
	}

	switch c.ColorMode {
	case "auto", "truecolor", "256":
	default:
		return fmt.Errorf("invalid color mode: %q (want auto, truecolor or 256)", c.ColorMode)
	}

	if c.MaxSequenceLength < MinSequenceLength || c.MaxSequenceLength > MaxSequenceLength {
		return fmt.Errorf("max sequence length must be between %d and %d, got %d",
			MinSequenceLength, MaxSequenceLength, c.MaxSequenceLength)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}

	if _, err := history.ParseFileFormat(c.RecordFormat); err != nil {
		return fmt.Errorf("invalid record format: %w", err)
	}

	return nil
}

// Phase returns the color phase described by the configuration
func (c Config) Phase(offset float64) rainbow.Phase {
	return rainbow.Phase{
		Frequency: c.Frequency,
		Spread:    c.Spread,
		Offset:    offset,
	}
}

// PresetInfo is a named, saved configuration
type PresetInfo struct {
	Name        string    `json:"name"`
	Config      Config    `json:"config"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
	Description string    `json:"description,omitempty"`
}

// Validate checks if the preset is valid
func (p PresetInfo) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}

	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("invalid preset config: %w", err)
	}

	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created_at timestamp cannot be zero")
	}

	return nil
}

// ConfigStorage represents the storage format of the configuration file
type ConfigStorage struct {
	Default Config                `json:"default"`
	Presets map[string]PresetInfo `json:"presets,omitempty"`
	Version string                `json:"version"`
}

// FileConfigManager stores the configuration as JSON in a directory
type FileConfigManager struct {
	configDir  string
	configFile string
}

// NewFileConfigManager creates a new file-based configuration manager. An
// empty directory selects DefaultConfigDir.
func NewFileConfigManager(configDir string) *FileConfigManager {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return &FileConfigManager{
		configDir:  configDir,
		configFile: "config.json",
	}
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/rainbowterm, falling back to
// ~/.config/rainbowterm.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "rainbowterm")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "rainbowterm")
	}
	return ".rainbowterm"
}

// Path returns the full path to the configuration file
func (fcm *FileConfigManager) Path() string {
	return filepath.Join(fcm.configDir, fcm.configFile)
}

// Exists reports whether the configuration file exists
func (fcm *FileConfigManager) Exists() bool {
	_, err := os.Stat(fcm.Path())
	return err == nil
}

// Initialize creates the configuration directory and a default file if needed
func (fcm *FileConfigManager) Initialize() error {
	if err := os.MkdirAll(fcm.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if fcm.Exists() {
		return nil
	}

	storage := ConfigStorage{
		Default: DefaultConfig(),
		Version: storageVersion,
	}
	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to initialize config file: %w", err)
	}

	return nil
}

// Load returns the stored default configuration. A missing file yields
// DefaultConfig.
func (fcm *FileConfigManager) Load() (Config, error) {
	storage, err := fcm.loadStorage()
	if err != nil {
		return Config{}, err
	}

	if err := storage.Default.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in %s: %w", fcm.Path(), err)
	}

	return storage.Default, nil
}

// Save replaces the stored default configuration
func (fcm *FileConfigManager) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := fcm.Initialize(); err != nil {
		return err
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return err
	}

	storage.Default = cfg
	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	return nil
}

// SavePreset saves cfg under name, keeping the creation time of an existing
// preset.
func (fcm *FileConfigManager) SavePreset(name string, cfg Config, description string) error {
	if name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := fcm.Initialize(); err != nil {
		return err
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return err
	}

	now := time.Now()
	preset := PresetInfo{
		Name:        name,
		Config:      cfg,
		CreatedAt:   now,
		LastUsedAt:  now,
		Description: description,
	}

	if existing, exists := storage.Presets[name]; exists {
		preset.CreatedAt = existing.CreatedAt
		if description == "" {
			preset.Description = existing.Description
		}
	}

	storage.Presets[name] = preset

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save preset: %w", err)
	}

	return nil
}

// LoadPreset returns the preset with the given name
func (fcm *FileConfigManager) LoadPreset(name string) (Config, error) {
	if name == "" {
		return Config{}, fmt.Errorf("preset name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return Config{}, err
	}

	preset, exists := storage.Presets[name]
	if !exists {
		return Config{}, fmt.Errorf("preset '%s' not found", name)
	}

	// Last used time is informational, a failed update is not an error
	preset.LastUsedAt = time.Now()
	storage.Presets[name] = preset
	fcm.saveStorage(storage)

	return preset.Config, nil
}

// ListPresets returns all presets sorted by name
func (fcm *FileConfigManager) ListPresets() ([]PresetInfo, error) {
	storage, err := fcm.loadStorage()
	if err != nil {
		return nil, err
	}

	presets := make([]PresetInfo, 0, len(storage.Presets))
	for _, preset := range storage.Presets {
		presets = append(presets, preset)
	}
	sort.Slice(presets, func(i, j int) bool {
		return presets[i].Name < presets[j].Name
	})

	return presets, nil
}

// DeletePreset deletes the preset with the given name
func (fcm *FileConfigManager) DeletePreset(name string) error {
	if name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return err
	}

	if _, exists := storage.Presets[name]; !exists {
		return fmt.Errorf("preset '%s' not found", name)
	}

	delete(storage.Presets, name)

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configuration after deletion: %w", err)
	}

	return nil
}

// loadStorage reads the configuration file. Fields absent from the file keep
// their default values.
func (fcm *FileConfigManager) loadStorage() (ConfigStorage, error) {
	storage := ConfigStorage{
		Default: DefaultConfig(),
		Version: storageVersion,
	}

	data, err := os.ReadFile(fcm.Path())
	if err != nil {
		if os.IsNotExist(err) {
			storage.Presets = make(map[string]PresetInfo)
			return storage, nil
		}
		return ConfigStorage{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &storage); err != nil {
		return ConfigStorage{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if storage.Presets == nil {
		storage.Presets = make(map[string]PresetInfo)
	}

	return storage, nil
}

// saveStorage writes the configuration file through a temporary file
func (fcm *FileConfigManager) saveStorage(storage ConfigStorage) error {
	configPath := fcm.Path()

	data, err := json.MarshalIndent(storage, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config data: %w", err)
	}

	tempPath := configPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary config file: %w", err)
	}

	return nil
}
