package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex-data/laptrace/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for analysis tuning
// parameters. The schema matches the /api/config endpoint so the same JSON
// can be used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Ingest params
	MaxPlausibleSpeedMPS *float64 `json:"max_plausible_speed_mps,omitempty"`

	// Segmenter params
	CrossingDebounce *string `json:"crossing_debounce,omitempty"` // duration string like "10s"

	// Signal conditioning params
	GlitchSpeedFloorMPS *float64 `json:"glitch_speed_floor_mps,omitempty"`
	GlitchMaxRun        *int     `json:"glitch_max_run,omitempty"`
	GForceWindow        *int     `json:"gforce_window,omitempty"`
	SmoothStrength      *int     `json:"smooth_strength,omitempty"` // percent 0-100

	// Display params
	DisplayUnits    *string `json:"display_units,omitempty"`
	DisplayTimezone *string `json:"display_timezone,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// The Get* accessors supply defaults for nil fields, so an empty config
// behaves identically to DefaultTuningConfig.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field explicitly set
// to its default. Used to serve the full schema over /api/config and to seed
// the defaults file.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		MaxPlausibleSpeedMPS: ptrFloat64(100.0),
		CrossingDebounce:     ptrString("10s"),
		GlitchSpeedFloorMPS:  ptrFloat64(1.0),
		GlitchMaxRun:         ptrInt(3),
		GForceWindow:         ptrInt(5),
		SmoothStrength:       ptrInt(25),
		DisplayUnits:         ptrString(units.KPH),
		DisplayTimezone:      ptrString("UTC"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MaxPlausibleSpeedMPS != nil {
		if *c.MaxPlausibleSpeedMPS <= 0 {
			return fmt.Errorf("max_plausible_speed_mps must be positive, got %f", *c.MaxPlausibleSpeedMPS)
		}
	}

	if c.CrossingDebounce != nil && *c.CrossingDebounce != "" {
		d, err := time.ParseDuration(*c.CrossingDebounce)
		if err != nil {
			return fmt.Errorf("invalid crossing_debounce '%s': %w", *c.CrossingDebounce, err)
		}
		if d < 0 {
			return fmt.Errorf("crossing_debounce must be non-negative, got %s", d)
		}
	}

	if c.GlitchSpeedFloorMPS != nil {
		if *c.GlitchSpeedFloorMPS < 0 {
			return fmt.Errorf("glitch_speed_floor_mps must be non-negative, got %f", *c.GlitchSpeedFloorMPS)
		}
	}

	if c.GlitchMaxRun != nil {
		if *c.GlitchMaxRun < 0 {
			return fmt.Errorf("glitch_max_run must be non-negative, got %d", *c.GlitchMaxRun)
		}
	}

	if c.GForceWindow != nil {
		if *c.GForceWindow < 2 {
			return fmt.Errorf("gforce_window must be at least 2, got %d", *c.GForceWindow)
		}
	}

	if c.SmoothStrength != nil {
		if *c.SmoothStrength < 0 || *c.SmoothStrength > 100 {
			return fmt.Errorf("smooth_strength must be between 0 and 100, got %d", *c.SmoothStrength)
		}
	}

	if c.DisplayUnits != nil {
		if !units.IsValid(*c.DisplayUnits) {
			return fmt.Errorf("invalid display_units '%s', valid units are: %s", *c.DisplayUnits, units.GetValidUnitsString())
		}
	}

	if c.DisplayTimezone != nil {
		if !units.IsTimezoneValid(*c.DisplayTimezone) {
			return fmt.Errorf("invalid display_timezone '%s'", *c.DisplayTimezone)
		}
	}

	return nil
}

// GetMaxPlausibleSpeedMPS returns the teleportation-filter speed ceiling or the default.
func (c *TuningConfig) GetMaxPlausibleSpeedMPS() float64 {
	if c.MaxPlausibleSpeedMPS == nil {
		return 100.0 // default, ~360 km/h
	}
	return *c.MaxPlausibleSpeedMPS
}

// GetCrossingDebounce parses and returns the CrossingDebounce as a time.Duration.
func (c *TuningConfig) GetCrossingDebounce() time.Duration {
	if c.CrossingDebounce == nil || *c.CrossingDebounce == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.CrossingDebounce)
	if err != nil {
		return 10 * time.Second // default on parse error
	}
	return d
}

// GetGlitchSpeedFloorMPS returns the glitch_speed_floor_mps value or the default.
func (c *TuningConfig) GetGlitchSpeedFloorMPS() float64 {
	if c.GlitchSpeedFloorMPS == nil {
		return 1.0 // default
	}
	return *c.GlitchSpeedFloorMPS
}

// GetGlitchMaxRun returns the glitch_max_run value or the default.
func (c *TuningConfig) GetGlitchMaxRun() int {
	if c.GlitchMaxRun == nil {
		return 3 // default
	}
	return *c.GlitchMaxRun
}

// GetGForceWindow returns the gforce_window value or the default.
func (c *TuningConfig) GetGForceWindow() int {
	if c.GForceWindow == nil {
		return 5 // default
	}
	return *c.GForceWindow
}

// GetSmoothStrength returns the smooth_strength value or the default.
func (c *TuningConfig) GetSmoothStrength() int {
	if c.SmoothStrength == nil {
		return 25 // default
	}
	return *c.SmoothStrength
}

// GetDisplayUnits returns the display_units value or the default.
func (c *TuningConfig) GetDisplayUnits() string {
	if c.DisplayUnits == nil {
		return units.KPH // default
	}
	return *c.DisplayUnits
}

// GetDisplayTimezone returns the display_timezone value or the default.
func (c *TuningConfig) GetDisplayTimezone() string {
	if c.DisplayTimezone == nil {
		return "UTC" // default
	}
	return *c.DisplayTimezone
}
