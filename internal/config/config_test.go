package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/joythm/internal/keys"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.AccelXThreshold != 2500 || cfg.GyroYThreshold != 2000 {
		t.Errorf("unexpected thresholds %d/%d", cfg.AccelXThreshold, cfg.GyroYThreshold)
	}
	if cfg.Key() != keys.KeySpace {
		t.Errorf("default key = %d, want space", cfg.Key())
	}
	if cfg.Policy() != keys.EverySample {
		t.Errorf("default policy = %v, want every-sample", cfg.Policy())
	}
	if cfg.DisconnectAtExit {
		t.Error("disconnect_at_exit should default to false")
	}
	if cfg.ScanTimeout != 0 {
		t.Error("scan_timeout should default to unbounded")
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
accel_x_threshold: 3000
gyro_y_threshold: 1800
air_key: enter
disconnect_at_exit: true
emission_policy: on-change
scan_interval: 250ms
scan_timeout: 30s
tick_rate: 60
status_addr: "127.0.0.1:8765"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AccelXThreshold != 3000 || cfg.GyroYThreshold != 1800 {
		t.Errorf("thresholds = %d/%d, want 3000/1800", cfg.AccelXThreshold, cfg.GyroYThreshold)
	}
	if cfg.Key() != keys.KeyEnter {
		t.Errorf("key = %d, want enter", cfg.Key())
	}
	if !cfg.DisconnectAtExit {
		t.Error("disconnect_at_exit should be true")
	}
	if cfg.Policy() != keys.OnChange {
		t.Errorf("policy = %v, want on-change", cfg.Policy())
	}
	if cfg.ScanInterval != 250*time.Millisecond || cfg.ScanTimeout != 30*time.Second {
		t.Errorf("scan interval/timeout = %v/%v", cfg.ScanInterval, cfg.ScanTimeout)
	}
	if cfg.TickInterval() != time.Second/60 {
		t.Errorf("tick interval = %v", cfg.TickInterval())
	}
	if cfg.StatusAddr != "127.0.0.1:8765" {
		t.Errorf("status addr = %q", cfg.StatusAddr)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("air_key: a\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AccelXThreshold != DefaultAccelXThreshold || cfg.TickRate != DefaultTickRate {
		t.Errorf("unset fields should keep defaults, got %+v", cfg)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "accel_x_threshold: [",
		"negative accel": "accel_x_threshold: -1",
		"unknown key":    "air_key: nosuchkey",
		"bad policy":     "emission_policy: sometimes",
		"zero tick rate": "tick_rate: 0",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestApplySettings(t *testing.T) {
	cfg, err := Default().ApplySettings(map[string]string{
		"accel_x_threshold":  "2700",
		"disconnect_at_exit": "true",
		"scan_timeout":       "1m",
		"emission_policy":    "on-change",
	})
	if err != nil {
		t.Fatalf("ApplySettings() error = %v", err)
	}
	if cfg.AccelXThreshold != 2700 || !cfg.DisconnectAtExit || cfg.ScanTimeout != time.Minute {
		t.Errorf("settings not applied: %+v", cfg)
	}
	if cfg.Policy() != keys.OnChange {
		t.Errorf("policy = %v, want on-change", cfg.Policy())
	}
}

func TestApplySettings_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown":            "1",
		"gyro_y_threshold":   "lots",
		"tick_rate":          "-5",
		"air_key":            "nosuchkey",
		"disconnect_at_exit": "maybe",
	}
	for key, value := range tests {
		if err := CheckSetting(key, value); !errors.Is(err, ErrInvalid) {
			t.Errorf("CheckSetting(%q, %q) error = %v, want ErrInvalid", key, value, err)
		}
	}
}
