package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
	if cfg.Analysis.EllipseScale != 8 {
		t.Errorf("Expected default ellipse scale 8, got %g", cfg.Analysis.EllipseScale)
	}
	if cfg.Processing.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", cfg.Processing.NumCores)
	}
	if cfg.Output.Verbose {
		t.Error("Debug logging should be off by default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Distribution.Bins != DefaultConfig().Distribution.Bins {
		t.Error("Missing file should yield the defaults")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "grindsize.yaml")

	cfg := DefaultConfig()
	cfg.Analysis.SplitOverlaps = true
	cfg.Analysis.MaxAreaMm2 = 2.5
	cfg.Distribution.Weighting = "volume"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !loaded.Analysis.SplitOverlaps || loaded.Analysis.MaxAreaMm2 != 2.5 {
		t.Errorf("Analysis settings not preserved: %+v", loaded.Analysis)
	}
	if loaded.Distribution.Weighting != "volume" {
		t.Errorf("Expected weighting volume, got %q", loaded.Distribution.Weighting)
	}
	if _, ok := loaded.Profiles["fine"]; !ok {
		t.Error("Profiles not preserved")
	}
}

func TestLoadConfigPartialOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "analysis:\n  minAreaPx: 12\ndistribution:\n  binSpacing: linear\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Analysis.MinAreaPx != 12 || cfg.Distribution.BinSpacing != "linear" {
		t.Errorf("Overrides not applied: %+v %+v", cfg.Analysis, cfg.Distribution)
	}
	if cfg.Analysis.AdaptiveBlockSize != 201 {
		t.Errorf("Unset fields should keep defaults, got block size %d", cfg.Analysis.AdaptiveBlockSize)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "analysis: [", "error parsing"},
		{"bad weighting", "distribution:\n  weighting: weight\n", "distribution.weighting"},
		{"bad sensitivity", "analysis:\n  splitSensitivity: 2\n", "splitSensitivity"},
		{"bad scale", "calibration:\n  fallbackPixelsPerMM: 0\n", "fallbackPixelsPerMM"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyProfile(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ApplyProfile("fine"); err != nil {
		t.Fatalf("ApplyProfile failed: %v", err)
	}
	if cfg.Analysis.EllipseScale != 5 || cfg.Analysis.MinAreaPx != 4 {
		t.Errorf("Profile not applied: %+v", cfg.Analysis)
	}
	if cfg.Analysis.BgSigma != 35 {
		t.Errorf("Unset profile fields must not change the base, got bgSigma %g", cfg.Analysis.BgSigma)
	}

	if err := cfg.ApplyProfile("espresso"); err == nil {
		t.Error("Expected an error for an unknown profile")
	}
	if err := cfg.ApplyProfile(""); err != nil {
		t.Errorf("Empty profile should be a no-op, got %v", err)
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"analysis:", "bgSigma:", "profiles:", "fallbackPixelsPerMM:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("Expected %q in the default config file", key)
		}
	}
}
