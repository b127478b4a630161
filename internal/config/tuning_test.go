package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	// Test that defaults are set via pointers
	if cfg.MaxPlausibleSpeedMPS == nil || *cfg.MaxPlausibleSpeedMPS != 100.0 {
		t.Errorf("Expected MaxPlausibleSpeedMPS 100.0, got %v", cfg.MaxPlausibleSpeedMPS)
	}
	if cfg.CrossingDebounce == nil || *cfg.CrossingDebounce != "10s" {
		t.Errorf("Expected CrossingDebounce '10s', got %v", cfg.CrossingDebounce)
	}
	if cfg.GlitchSpeedFloorMPS == nil || *cfg.GlitchSpeedFloorMPS != 1.0 {
		t.Errorf("Expected GlitchSpeedFloorMPS 1.0, got %v", cfg.GlitchSpeedFloorMPS)
	}
	if cfg.GlitchMaxRun == nil || *cfg.GlitchMaxRun != 3 {
		t.Errorf("Expected GlitchMaxRun 3, got %v", cfg.GlitchMaxRun)
	}
	if cfg.GForceWindow == nil || *cfg.GForceWindow != 5 {
		t.Errorf("Expected GForceWindow 5, got %v", cfg.GForceWindow)
	}

	// Explicit defaults must validate
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultTuningConfig does not validate: %v", err)
	}
}

func TestEmptyConfigAccessorsMatchDefaults(t *testing.T) {
	empty := EmptyTuningConfig()
	full := DefaultTuningConfig()

	if empty.GetMaxPlausibleSpeedMPS() != *full.MaxPlausibleSpeedMPS {
		t.Errorf("GetMaxPlausibleSpeedMPS() = %f, want %f", empty.GetMaxPlausibleSpeedMPS(), *full.MaxPlausibleSpeedMPS)
	}
	if empty.GetCrossingDebounce() != 10*time.Second {
		t.Errorf("GetCrossingDebounce() = %v, want 10s", empty.GetCrossingDebounce())
	}
	if empty.GetGlitchSpeedFloorMPS() != *full.GlitchSpeedFloorMPS {
		t.Errorf("GetGlitchSpeedFloorMPS() = %f, want %f", empty.GetGlitchSpeedFloorMPS(), *full.GlitchSpeedFloorMPS)
	}
	if empty.GetGlitchMaxRun() != *full.GlitchMaxRun {
		t.Errorf("GetGlitchMaxRun() = %d, want %d", empty.GetGlitchMaxRun(), *full.GlitchMaxRun)
	}
	if empty.GetGForceWindow() != *full.GForceWindow {
		t.Errorf("GetGForceWindow() = %d, want %d", empty.GetGForceWindow(), *full.GForceWindow)
	}
	if empty.GetSmoothStrength() != *full.SmoothStrength {
		t.Errorf("GetSmoothStrength() = %d, want %d", empty.GetSmoothStrength(), *full.SmoothStrength)
	}
	if empty.GetDisplayUnits() != *full.DisplayUnits {
		t.Errorf("GetDisplayUnits() = %s, want %s", empty.GetDisplayUnits(), *full.DisplayUnits)
	}
	if empty.GetDisplayTimezone() != "UTC" {
		t.Errorf("GetDisplayTimezone() = %s, want UTC", empty.GetDisplayTimezone())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	// Partial config: unset fields keep defaults via accessors.
	testJSON := `{
  "max_plausible_speed_mps": 90.0,
  "crossing_debounce": "5s",
  "glitch_max_run": 2,
  "display_units": "mph"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetMaxPlausibleSpeedMPS() != 90.0 {
		t.Errorf("GetMaxPlausibleSpeedMPS() = %f, want 90.0", cfg.GetMaxPlausibleSpeedMPS())
	}
	if cfg.GetCrossingDebounce() != 5*time.Second {
		t.Errorf("GetCrossingDebounce() = %v, want 5s", cfg.GetCrossingDebounce())
	}
	if cfg.GetGlitchMaxRun() != 2 {
		t.Errorf("GetGlitchMaxRun() = %d, want 2", cfg.GetGlitchMaxRun())
	}
	if cfg.GetDisplayUnits() != "mph" {
		t.Errorf("GetDisplayUnits() = %s, want mph", cfg.GetDisplayUnits())
	}
	// Unset field falls back
	if cfg.GetGForceWindow() != 5 {
		t.Errorf("GetGForceWindow() = %d, want default 5", cfg.GetGForceWindow())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigBadExtension(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TuningConfig)
		wantErr bool
	}{
		{"empty is valid", func(c *TuningConfig) {}, false},
		{"zero speed ceiling", func(c *TuningConfig) { c.MaxPlausibleSpeedMPS = ptrFloat64(0) }, true},
		{"negative speed ceiling", func(c *TuningConfig) { c.MaxPlausibleSpeedMPS = ptrFloat64(-10) }, true},
		{"bad debounce string", func(c *TuningConfig) { c.CrossingDebounce = ptrString("soon") }, true},
		{"negative debounce", func(c *TuningConfig) { c.CrossingDebounce = ptrString("-3s") }, true},
		{"negative glitch floor", func(c *TuningConfig) { c.GlitchSpeedFloorMPS = ptrFloat64(-1) }, true},
		{"negative glitch run", func(c *TuningConfig) { c.GlitchMaxRun = ptrInt(-1) }, true},
		{"tiny gforce window", func(c *TuningConfig) { c.GForceWindow = ptrInt(1) }, true},
		{"strength over 100", func(c *TuningConfig) { c.SmoothStrength = ptrInt(101) }, true},
		{"bogus units", func(c *TuningConfig) { c.DisplayUnits = ptrString("furlongs") }, true},
		{"bogus timezone", func(c *TuningConfig) { c.DisplayTimezone = ptrString("Mars/Olympus") }, true},
		{"valid overrides", func(c *TuningConfig) {
			c.MaxPlausibleSpeedMPS = ptrFloat64(80)
			c.CrossingDebounce = ptrString("2s")
			c.DisplayUnits = ptrString("mph")
			c.DisplayTimezone = ptrString("Europe/Rome")
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EmptyTuningConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want := DefaultTuningConfig()

	// The shipped defaults file and DefaultTuningConfig must agree; a drift
	// between them means one of the two was edited alone.
	if cfg.GetMaxPlausibleSpeedMPS() != want.GetMaxPlausibleSpeedMPS() {
		t.Errorf("GetMaxPlausibleSpeedMPS() = %f, want %f", cfg.GetMaxPlausibleSpeedMPS(), want.GetMaxPlausibleSpeedMPS())
	}
	if cfg.GetCrossingDebounce() != want.GetCrossingDebounce() {
		t.Errorf("GetCrossingDebounce() = %v, want %v", cfg.GetCrossingDebounce(), want.GetCrossingDebounce())
	}
	if cfg.GetGlitchSpeedFloorMPS() != want.GetGlitchSpeedFloorMPS() {
		t.Errorf("GetGlitchSpeedFloorMPS() = %f, want %f", cfg.GetGlitchSpeedFloorMPS(), want.GetGlitchSpeedFloorMPS())
	}
	if cfg.GetGlitchMaxRun() != want.GetGlitchMaxRun() {
		t.Errorf("GetGlitchMaxRun() = %d, want %d", cfg.GetGlitchMaxRun(), want.GetGlitchMaxRun())
	}
	if cfg.GetGForceWindow() != want.GetGForceWindow() {
		t.Errorf("GetGForceWindow() = %d, want %d", cfg.GetGForceWindow(), want.GetGForceWindow())
	}
	if cfg.GetSmoothStrength() != want.GetSmoothStrength() {
		t.Errorf("GetSmoothStrength() = %d, want %d", cfg.GetSmoothStrength(), want.GetSmoothStrength())
	}
	if cfg.GetDisplayUnits() != want.GetDisplayUnits() {
		t.Errorf("GetDisplayUnits() = %s, want %s", cfg.GetDisplayUnits(), want.GetDisplayUnits())
	}
	if cfg.GetDisplayTimezone() != want.GetDisplayTimezone() {
		t.Errorf("GetDisplayTimezone() = %s, want %s", cfg.GetDisplayTimezone(), want.GetDisplayTimezone())
	}
}
