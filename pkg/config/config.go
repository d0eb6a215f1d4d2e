// Package config provides configuration loading and management for grindsize.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"

	"grindsize/internal/models"
)

// Analysis holds the tunables of the segmentation and measurement pipeline
type Analysis struct {
	// BgSigma is the background blur sigma for lighting normalization
	BgSigma float64 `yaml:"bgSigma"`

	// AdaptiveBlockSize is the side of the local thresholding window (odd)
	AdaptiveBlockSize int `yaml:"adaptiveBlockSize"`

	// AdaptiveC is subtracted from the local mean before thresholding
	AdaptiveC float64 `yaml:"adaptiveC"`

	// DarkMean and DarkPixel tune the dark-region rule of the thresholder
	DarkMean  float64 `yaml:"darkMean"`
	DarkPixel int     `yaml:"darkPixel"`

	// MinAreaPx drops components smaller than this many pixels
	MinAreaPx int `yaml:"minAreaPx"`

	// MaxAreaMm2 drops particles larger than this physical area; 0 disables
	MaxAreaMm2 float64 `yaml:"maxAreaMm2"`

	// EllipseScale is the moment-to-axis factor of the ellipse fit
	EllipseScale float64 `yaml:"ellipseScale"`

	// SplitOverlaps enables watershed separation of touching particles
	SplitOverlaps bool `yaml:"splitOverlaps"`

	// SplitSensitivity in [0,1]; higher values produce fewer splits
	SplitSensitivity float64 `yaml:"splitSensitivity"`

	// ContourTracer names the boundary tracer ("none", "moore", "opencv")
	ContourTracer string `yaml:"contourTracer"`
}

// Distribution controls histogram and summary output
type Distribution struct {
	Bins       int    `yaml:"bins"`
	BinSpacing string `yaml:"binSpacing"`
	Weighting  string `yaml:"weighting"`
	Metric     string `yaml:"metric"`

	// MinDiameterUm and MaxDiameterUm fix the bin range; both 0 selects
	// the observed range
	MinDiameterUm float64 `yaml:"minDiameterUm"`
	MaxDiameterUm float64 `yaml:"maxDiameterUm"`
}

// Profile overrides analysis settings for a class of samples. Zero fields
// leave the base value unchanged.
type Profile struct {
	BgSigma           float64 `yaml:"bgSigma,omitempty"`
	AdaptiveBlockSize int     `yaml:"adaptiveBlockSize,omitempty"`
	AdaptiveC         float64 `yaml:"adaptiveC,omitempty"`
	MinAreaPx         int     `yaml:"minAreaPx,omitempty"`
	EllipseScale      float64 `yaml:"ellipseScale,omitempty"`
	SplitSensitivity  float64 `yaml:"splitSensitivity,omitempty"`
	Bins              int     `yaml:"bins,omitempty"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many images are analysed in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	Analysis Analysis `yaml:"analysis"`

	Distribution Distribution `yaml:"distribution"`

	// Calibration parameters
	Calibration struct {
		// FallbackPixelsPerMM is used when no calibrator succeeds
		FallbackPixelsPerMM float64 `yaml:"fallbackPixelsPerMM"`
	} `yaml:"calibration"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where stage images are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Profiles are named presets applied over Analysis
	Profiles map[string]Profile `yaml:"profiles"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()

	cfg.Analysis = Analysis{
		BgSigma:           35,
		AdaptiveBlockSize: 201,
		AdaptiveC:         4,
		DarkMean:          50,
		DarkPixel:         128,
		MinAreaPx:         8,
		EllipseScale:      8,
		SplitOverlaps:     false,
		SplitSensitivity:  0.5,
		ContourTracer:     "none",
	}

	cfg.Distribution = Distribution{
		Bins:          40,
		BinSpacing:    "log",
		Weighting:     "count",
		Metric:        "diameter",
		MinDiameterUm: 10,
		MaxDiameterUm: 3000,
	}

	cfg.Calibration.FallbackPixelsPerMM = 20

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.Verbose = false

	cfg.Profiles = map[string]Profile{
		"standard": {EllipseScale: 8},
		"fine":     {EllipseScale: 5, MinAreaPx: 4},
		"coarse":   {EllipseScale: 8, MinAreaPx: 30, BgSigma: 60},
	}

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks ranges and enumerations. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if c.Processing.NumCores < 1 {
		errs = append(errs, fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores))
	}

	a := c.Analysis
	if a.BgSigma <= 0 {
		errs = append(errs, fmt.Errorf("analysis.bgSigma must be positive, got %g", a.BgSigma))
	}
	if a.AdaptiveBlockSize < 1 {
		errs = append(errs, fmt.Errorf("analysis.adaptiveBlockSize must be at least 1, got %d", a.AdaptiveBlockSize))
	}
	if a.DarkPixel < 0 || a.DarkPixel > 255 {
		errs = append(errs, fmt.Errorf("analysis.darkPixel must be in [0,255], got %d", a.DarkPixel))
	}
	if a.MinAreaPx < 1 {
		errs = append(errs, fmt.Errorf("analysis.minAreaPx must be at least 1, got %d", a.MinAreaPx))
	}
	if a.MaxAreaMm2 < 0 {
		errs = append(errs, fmt.Errorf("analysis.maxAreaMm2 must not be negative, got %g", a.MaxAreaMm2))
	}
	if a.EllipseScale <= 0 {
		errs = append(errs, fmt.Errorf("analysis.ellipseScale must be positive, got %g", a.EllipseScale))
	}
	if a.SplitSensitivity < 0 || a.SplitSensitivity > 1 {
		errs = append(errs, fmt.Errorf("analysis.splitSensitivity must be in [0,1], got %g", a.SplitSensitivity))
	}

	d := c.Distribution
	if d.Bins < 1 {
		errs = append(errs, fmt.Errorf("distribution.bins must be at least 1, got %d", d.Bins))
	}
	if _, err := models.ParseSpacing(d.BinSpacing); err != nil {
		errs = append(errs, fmt.Errorf("distribution.binSpacing: %w", err))
	}
	if _, err := models.ParseWeighting(d.Weighting); err != nil {
		errs = append(errs, fmt.Errorf("distribution.weighting: %w", err))
	}
	if _, err := models.ParseMetric(d.Metric); err != nil {
		errs = append(errs, fmt.Errorf("distribution.metric: %w", err))
	}
	if d.MinDiameterUm < 0 || d.MaxDiameterUm < d.MinDiameterUm {
		errs = append(errs, fmt.Errorf("distribution diameter range [%g, %g] is invalid", d.MinDiameterUm, d.MaxDiameterUm))
	}

	if c.Calibration.FallbackPixelsPerMM <= 0 {
		errs = append(errs, fmt.Errorf("calibration.fallbackPixelsPerMM must be positive, got %g", c.Calibration.FallbackPixelsPerMM))
	}

	return errors.Join(errs...)
}

// ApplyProfile overlays the named profile onto the analysis and
// distribution settings. An empty name is a no-op.
func (c *Config) ApplyProfile(name string) error {
	if name == "" {
		return nil
	}
	p, ok := c.Profiles[name]
	if !ok {
		return fmt.Errorf("unknown profile %q (available: %v)", name, c.ProfileNames())
	}

	if p.BgSigma > 0 {
		c.Analysis.BgSigma = p.BgSigma
	}
	if p.AdaptiveBlockSize > 0 {
		c.Analysis.AdaptiveBlockSize = p.AdaptiveBlockSize
	}
	if p.AdaptiveC != 0 {
		c.Analysis.AdaptiveC = p.AdaptiveC
	}
	if p.MinAreaPx > 0 {
		c.Analysis.MinAreaPx = p.MinAreaPx
	}
	if p.EllipseScale > 0 {
		c.Analysis.EllipseScale = p.EllipseScale
	}
	if p.SplitSensitivity > 0 {
		c.Analysis.SplitSensitivity = p.SplitSensitivity
	}
	if p.Bins > 0 {
		c.Distribution.Bins = p.Bins
	}
	return nil
}

// ProfileNames lists the configured profiles in sorted order
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
