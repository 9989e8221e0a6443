// Package config holds the externally supplied tuning of a diagnostics
// run. Threshold values and baseline policy are configuration, never
// constants baked into the core.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/flightmill_go/internal/analysis"
)

// DetectorConfig tunes trough detection and trajectory cleaning.
type DetectorConfig struct {
	ArmRadiusM float64 `yaml:"arm_radius_m"`  // mill arm radius, metres
	MinSpeedMS float64 `yaml:"min_speed_ms"`  // coasting cutoff
	MaxSpeedMS float64 `yaml:"max_speed_ms"`  // false-reading cutoff
	MaxGapS    float64 `yaml:"max_gap_s"`     // bout-splitting gap
}

// ThresholdConfig is the small/large relative-deviation banding.
type ThresholdConfig struct {
	SmallBand float64 `yaml:"small_band"`
	LargeBand float64 `yaml:"large_band"`
}

// BaselineConfig selects the classification reference.
type BaselineConfig struct {
	Policy    string `yaml:"policy"`     // "self" or "set-median"
	MinTrials int    `yaml:"min_trials"` // minimum set size for a median
}

// StandardizeConfig tunes voltage-trace trough standardization.
type StandardizeConfig struct {
	MinDev    float64   `yaml:"min_dev"`
	MaxDev    float64   `yaml:"max_dev"`
	SweepDevs []float64 `yaml:"sweep_devs"` // deviation grid for sensitivity sweeps
}

// Config is the full diagnostics-run configuration.
type Config struct {
	Detector    DetectorConfig    `yaml:"detector"`
	Thresholds  ThresholdConfig   `yaml:"thresholds"`
	Baseline    BaselineConfig    `yaml:"baseline"`
	Standardize StandardizeConfig `yaml:"standardize"`
	Workers     int               `yaml:"workers"` // 0 = one per CPU
}

// Default returns the reference-mill configuration (10 cm arm, the
// deviation grid used for standardization tuning).
func Default() Config {
	return Config{
		Detector: DetectorConfig{
			ArmRadiusM: 0.1,
			MinSpeedMS: 0.1,
			MaxSpeedMS: 0.75,
			MaxGapS:    7,
		},
		Thresholds: ThresholdConfig{SmallBand: 0.1, LargeBand: 0.5},
		Baseline: BaselineConfig{
			Policy:    string(analysis.BaselineSetMedian),
			MinTrials: analysis.DefaultMinTrials,
		},
		Standardize: StandardizeConfig{
			MinDev:    0.1,
			MaxDev:    0.1,
			SweepDevs: []float64{0.02, 0.04, 0.06, 0.08, 0.1},
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for physically meaningless values.
func (c Config) Validate() error {
	if c.Detector.ArmRadiusM <= 0 {
		return fmt.Errorf("detector.arm_radius_m must be positive, got %g", c.Detector.ArmRadiusM)
	}
	if c.Detector.MinSpeedMS < 0 || c.Detector.MaxSpeedMS <= c.Detector.MinSpeedMS {
		return fmt.Errorf("detector speed window [%g, %g] is empty", c.Detector.MinSpeedMS, c.Detector.MaxSpeedMS)
	}
	if c.Detector.MaxGapS <= 0 {
		return fmt.Errorf("detector.max_gap_s must be positive, got %g", c.Detector.MaxGapS)
	}
	if c.Thresholds.SmallBand < 0 || c.Thresholds.LargeBand <= c.Thresholds.SmallBand {
		return fmt.Errorf("threshold bands [%g, %g] are not ordered", c.Thresholds.SmallBand, c.Thresholds.LargeBand)
	}
	if !analysis.BaselinePolicy(c.Baseline.Policy).Valid() {
		return fmt.Errorf("baseline.policy must be %q or %q, got %q",
			analysis.BaselineSelf, analysis.BaselineSetMedian, c.Baseline.Policy)
	}
	if c.Baseline.MinTrials < analysis.DefaultMinTrials {
		return fmt.Errorf("baseline.min_trials must be at least %d, got %d", analysis.DefaultMinTrials, c.Baseline.MinTrials)
	}
	if c.Standardize.MinDev <= 0 || c.Standardize.MaxDev <= 0 {
		return fmt.Errorf("standardize deviations must be positive, got min=%g max=%g", c.Standardize.MinDev, c.Standardize.MaxDev)
	}
	for i, d := range c.Standardize.SweepDevs {
		if d <= 0 {
			return fmt.Errorf("standardize.sweep_devs[%d] must be positive, got %g", i, d)
		}
		if i > 0 && d <= c.Standardize.SweepDevs[i-1] {
			return fmt.Errorf("standardize.sweep_devs must be strictly increasing")
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}
