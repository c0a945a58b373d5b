// Package config loads chart tuning parameters from JSON. The schema
// uses pointer fields so partial files are safe: fields omitted from the
// JSON keep their defaults via the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file,
// the single source of truth for default chart parameters.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for chart tuning. All fields
// are optional; the Get* accessors supply defaults for absent values.
type TuningConfig struct {
	// Shewhart params
	LimitWidth   *float64 `json:"limit_width,omitempty"`
	SubgroupSize *int     `json:"subgroup_size,omitempty"`

	// EWMA params
	EWMALambda     *float64  `json:"ewma_lambda,omitempty"`
	EWMALambdaGrid []float64 `json:"ewma_lambda_grid,omitempty"`

	// CUSUM params (in process-sigma units)
	CusumK *float64 `json:"cusum_k,omitempty"`
	CusumH *float64 `json:"cusum_h,omitempty"`

	// Comparator params
	MaxFalseSignalRate *float64 `json:"max_false_signal_rate,omitempty"`
	MinReferencePoints *int     `json:"min_reference_points,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset. Use
// LoadTuningConfig to load actual values from a defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must
// carry a .json extension and the file must be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory. Panics
// if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/*
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that configured values are in range.
func (c *TuningConfig) Validate() error {
	if c.LimitWidth != nil && *c.LimitWidth <= 0 {
		return fmt.Errorf("limit_width must be > 0, got %g", *c.LimitWidth)
	}
	if c.SubgroupSize != nil && *c.SubgroupSize < 2 {
		return fmt.Errorf("subgroup_size must be >= 2, got %d", *c.SubgroupSize)
	}
	if c.EWMALambda != nil && (*c.EWMALambda <= 0 || *c.EWMALambda > 1) {
		return fmt.Errorf("ewma_lambda must be in (0,1], got %g", *c.EWMALambda)
	}
	for _, lambda := range c.EWMALambdaGrid {
		if lambda <= 0 || lambda > 1 {
			return fmt.Errorf("ewma_lambda_grid entry %g must be in (0,1]", lambda)
		}
	}
	if c.CusumK != nil && *c.CusumK < 0 {
		return fmt.Errorf("cusum_k must be >= 0, got %g", *c.CusumK)
	}
	if c.CusumH != nil && *c.CusumH <= 0 {
		return fmt.Errorf("cusum_h must be > 0, got %g", *c.CusumH)
	}
	if c.MaxFalseSignalRate != nil && (*c.MaxFalseSignalRate < 0 || *c.MaxFalseSignalRate > 1) {
		return fmt.Errorf("max_false_signal_rate must be between 0 and 1, got %g", *c.MaxFalseSignalRate)
	}
	if c.MinReferencePoints != nil && *c.MinReferencePoints < 2 {
		return fmt.Errorf("min_reference_points must be >= 2, got %d", *c.MinReferencePoints)
	}
	return nil
}

// GetLimitWidth returns the limit_width value or the 3-sigma default.
func (c *TuningConfig) GetLimitWidth() float64 {
	if c.LimitWidth == nil {
		return 3.0
	}
	return *c.LimitWidth
}

// GetSubgroupSize returns the subgroup_size value or the default.
func (c *TuningConfig) GetSubgroupSize() int {
	if c.SubgroupSize == nil {
		return 5
	}
	return *c.SubgroupSize
}

// GetEWMALambda returns the ewma_lambda value or the default.
func (c *TuningConfig) GetEWMALambda() float64 {
	if c.EWMALambda == nil {
		return 0.2
	}
	return *c.EWMALambda
}

// GetEWMALambdaGrid returns the lambda candidates for tuning sweeps.
func (c *TuningConfig) GetEWMALambdaGrid() []float64 {
	if len(c.EWMALambdaGrid) == 0 {
		return []float64{0.05, 0.10, 0.15, 0.20, 0.25, 0.30, 0.40}
	}
	return c.EWMALambdaGrid
}

// GetCusumK returns the cusum_k value (sigma units) or the default.
func (c *TuningConfig) GetCusumK() float64 {
	if c.CusumK == nil {
		return 0.5
	}
	return *c.CusumK
}

// GetCusumH returns the cusum_h value (sigma units) or the default.
func (c *TuningConfig) GetCusumH() float64 {
	if c.CusumH == nil {
		return 5.0
	}
	return *c.CusumH
}

// GetMaxFalseSignalRate returns the max_false_signal_rate or the default.
func (c *TuningConfig) GetMaxFalseSignalRate() float64 {
	if c.MaxFalseSignalRate == nil {
		return 0.02
	}
	return *c.MaxFalseSignalRate
}

// GetMinReferencePoints returns the min_reference_points or the default.
func (c *TuningConfig) GetMinReferencePoints() int {
	if c.MinReferencePoints == nil {
		return 20
	}
	return *c.MinReferencePoints
}
