package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.Frequency != 0.1 {
		t.Errorf("DefaultConfig() Frequency = %v, want 0.1", cfg.Frequency)
	}
	if cfg.Spread != 3.0 {
		t.Errorf("DefaultConfig() Spread = %v, want 3.0", cfg.Spread)
	}
	if cfg.MaxSequenceLength != 4096 {
		t.Errorf("DefaultConfig() MaxSequenceLength = %d, want 4096", cfg.MaxSequenceLength)
	}
	if cfg.ColorMode != "auto" {
		t.Errorf("DefaultConfig() ColorMode = %q, want auto", cfg.ColorMode)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero frequency", func(c *Config) { c.Frequency = 0 }, true},
		{"negative spread", func(c *Config) { c.Spread = -1 }, true},
		{"NaN frequency", func(c *Config) { c.Frequency = math.NaN() }, true},
		{"infinite frequency", func(c *Config) { c.Frequency = math.Inf(1) }, true},
		{"NaN spread", func(c *Config) { c.Spread = math.NaN() }, true},
		{"infinite spread", func(c *Config) { c.Spread = math.Inf(1) }, true},
		{"truecolor", func(c *Config) { c.ColorMode = "truecolor" }, false},
		{"256", func(c *Config) { c.ColorMode = "256" }, false},
		{"unknown color mode", func(c *Config) { c.ColorMode = "16" }, true},
		{"sequence bound too small", func(c *Config) { c.MaxSequenceLength = 8 }, true},
		{"sequence bound minimum", func(c *Config) { c.MaxSequenceLength = MinSequenceLength }, false},
		{"sequence bound too large", func(c *Config) { c.MaxSequenceLength = MaxSequenceLength + 1 }, true},
		{"debug level", func(c *Config) { c.LogLevel = "debug" }, false},
		{"unknown level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"json records", func(c *Config) { c.RecordFormat = "json" }, false},
		{"unknown record format", func(c *Config) { c.RecordFormat = "csv" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Phase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frequency = 0.3
	cfg.Spread = 5

	p := cfg.Phase(17)
	if p.Frequency != 0.3 || p.Spread != 5 || p.Offset != 17 {
		t.Errorf("Config.Phase(17) = %+v", p)
	}
}

func TestPresetInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		preset  PresetInfo
		wantErr bool
	}{
		{"valid", PresetInfo{Name: "calm", Config: DefaultConfig(), CreatedAt: time.Now()}, false},
		{"empty name", PresetInfo{Config: DefaultConfig(), CreatedAt: time.Now()}, true},
		{"invalid config", PresetInfo{Name: "calm", Config: Config{}, CreatedAt: time.Now()}, true},
		{"zero created at", PresetInfo{Name: "calm", Config: DefaultConfig()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.preset.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("PresetInfo.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewFileConfigManager(t *testing.T) {
	configDir := "/test/config"
	manager := NewFileConfigManager(configDir)

	if manager.configDir != configDir {
		t.Errorf("NewFileConfigManager() configDir = %s, want %s", manager.configDir, configDir)
	}
	if manager.Path() != filepath.Join(configDir, "config.json") {
		t.Errorf("Path() = %s", manager.Path())
	}
}

func TestDefaultConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultConfigDir(); got != filepath.Join("/xdg", "rainbowterm") {
		t.Errorf("DefaultConfigDir() = %s, want /xdg/rainbowterm", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	if got := DefaultConfigDir(); got != filepath.Join("/home/tester", ".config", "rainbowterm") {
		t.Errorf("DefaultConfigDir() = %s, want /home/tester/.config/rainbowterm", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg2")
	if got := NewFileConfigManager("").configDir; got != filepath.Join("/xdg2", "rainbowterm") {
		t.Errorf("NewFileConfigManager(\"\") configDir = %s", got)
	}
}

func TestFileConfigManager_LoadMissing(t *testing.T) {
	manager := NewFileConfigManager(t.TempDir())

	if manager.Exists() {
		t.Fatal("Exists() = true before anything was written")
	}

	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestFileConfigManager_Initialize(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "rainbowterm")
	manager := NewFileConfigManager(dir)

	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !manager.Exists() {
		t.Error("Exists() = false after Initialize()")
	}

	// A second call leaves the file alone
	cfg := DefaultConfig()
	cfg.Spread = 9
	if err := manager.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	loaded, _ := manager.Load()
	if loaded.Spread != 9 {
		t.Errorf("Initialize() overwrote the existing file, Spread = %v", loaded.Spread)
	}
}

func TestFileConfigManager_SaveAndLoad(t *testing.T) {
	manager := NewFileConfigManager(t.TempDir())

	cfg := DefaultConfig()
	cfg.Frequency = 0.25
	cfg.ColorMode = "256"
	cfg.WideGlyphs = true
	cfg.Shell = "/bin/zsh"

	if err := manager.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != cfg {
		t.Errorf("Load() = %+v, want %+v", loaded, cfg)
	}

	if _, err := os.Stat(manager.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after Save()")
	}
}

func TestFileConfigManager_SaveInvalid(t *testing.T) {
	manager := NewFileConfigManager(t.TempDir())

	if err := manager.Save(Config{}); err == nil {
		t.Error("Save() of an invalid config should return error")
	}
	if manager.Exists() {
		t.Error("Save() of an invalid config created the file")
	}
}

func TestFileConfigManager_PartialFile(t *testing.T) {
	dir := t.TempDir()
	manager := NewFileConfigManager(dir)

	content := `{"default": {"spread": 6}, "version": "1.0"}`
	if err := os.WriteFile(manager.Path(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Spread != 6 {
		t.Errorf("Load() Spread = %v, want 6", cfg.Spread)
	}
	if cfg.Frequency != DefaultConfig().Frequency {
		t.Errorf("Load() Frequency = %v, want the default", cfg.Frequency)
	}
}

func TestFileConfigManager_InvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"not json", "{broken", "failed to parse"},
		{"invalid values", `{"default": {"frequency": -1}}`, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewFileConfigManager(t.TempDir())
			os.WriteFile(manager.Path(), []byte(tt.content), 0644)

			_, err := manager.Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestFileConfigManager_Presets(t *testing.T) {
	manager := NewFileConfigManager(t.TempDir())

	calm := DefaultConfig()
	calm.Frequency = 0.02
	loud := DefaultConfig()
	loud.Frequency = 0.9

	if err := manager.SavePreset("loud", loud, "fast cycling"); err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}
	if err := manager.SavePreset("calm", calm, ""); err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}

	got, err := manager.LoadPreset("calm")
	if err != nil {
		t.Fatalf("LoadPreset() error = %v", err)
	}
	if got != calm {
		t.Errorf("LoadPreset() = %+v, want %+v", got, calm)
	}

	presets, err := manager.ListPresets()
	if err != nil {
		t.Fatalf("ListPresets() error = %v", err)
	}
	if len(presets) != 2 || presets[0].Name != "calm" || presets[1].Name != "loud" {
		t.Fatalf("ListPresets() = %+v, want calm then loud", presets)
	}
	if presets[1].Description != "fast cycling" {
		t.Errorf("preset description = %q", presets[1].Description)
	}

	// Presets do not touch the default configuration
	def, _ := manager.Load()
	if def != DefaultConfig() {
		t.Errorf("Load() after SavePreset() = %+v, want defaults", def)
	}
}

func TestFileConfigManager_PresetUpdateKeepsMetadata(t *testing.T) {
	manager := NewFileConfigManager(t.TempDir())

	if err := manager.SavePreset("p", DefaultConfig(), "first"); err != nil {
		t.Fatal(err)
	}
	before, _ := manager.ListPresets()

	updated := DefaultConfig()
	updated.Spread = 1.5
	if err := manager.SavePreset("p", updated, ""); err != nil {
		t.Fatal(err)
	}
	after, _ := manager.ListPresets()

	if !after[0].CreatedAt.Equal(before[0].CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", before[0].CreatedAt, after[0].CreatedAt)
	}
	if after[0].Description != "first" {
		t.Errorf("Description = %q, want first", after[0].Description)
	}
	if after[0].Config.Spread != 1.5 {
		t.Errorf("Config.Spread = %v, want 1.5", after[0].Config.Spread)
	}
}

func TestFileConfigManager_PresetErrors(t *testing.T) {
	manager := NewFileConfigManager(t.TempDir())

	if err := manager.SavePreset("", DefaultConfig(), ""); err == nil {
		t.Error("SavePreset(\"\") should return error")
	}
	if err := manager.SavePreset("bad", Config{}, ""); err == nil {
		t.Error("SavePreset() of an invalid config should return error")
	}
	if _, err := manager.LoadPreset(""); err == nil {
		t.Error("LoadPreset(\"\") should return error")
	}
	if _, err := manager.LoadPreset("absent"); err == nil {
		t.Error("LoadPreset() of a missing preset should return error")
	}
	if err := manager.DeletePreset("absent"); err == nil {
		t.Error("DeletePreset() of a missing preset should return error")
	}
	if err := manager.DeletePreset(""); err == nil {
		t.Error("DeletePreset(\"\") should return error")
	}
}

func TestFileConfigManager_DeletePreset(t *testing.T) {
	manager := NewFileConfigManager(t.TempDir())

	manager.SavePreset("gone", DefaultConfig(), "")
	if err := manager.DeletePreset("gone"); err != nil {
		t.Fatalf("DeletePreset() error = %v", err)
	}

	presets, _ := manager.ListPresets()
	if len(presets) != 0 {
		t.Errorf("ListPresets() after delete = %+v, want empty", presets)
	}
}
