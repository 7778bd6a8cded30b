package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/joythm/internal/joycon"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "settings_db: " + filepath.Join(dir, "data", "joythm.db") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	cfg := writeTestConfig(t)

	if _, err := execute(t, "--config", cfg, "config", "set", "air_key", "enter"); err != nil {
		t.Fatalf("config set error = %v", err)
	}

	out, err := execute(t, "--config", cfg, "config", "get", "air_key")
	if err != nil {
		t.Fatalf("config get error = %v", err)
	}
	if strings.TrimSpace(out) != "enter" {
		t.Errorf("config get = %q, want enter", out)
	}

	out, err = execute(t, "--config", cfg, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "air_key: enter") {
		t.Errorf("effective config should include the override:\n%s", out)
	}

	out, err = execute(t, "--config", cfg, "config", "list")
	if err != nil {
		t.Fatalf("config list error = %v", err)
	}
	if out != "air_key=enter\n" {
		t.Errorf("config list = %q", out)
	}

	if _, err := execute(t, "--config", cfg, "config", "unset", "air_key"); err != nil {
		t.Fatalf("config unset error = %v", err)
	}
	if _, err := execute(t, "--config", cfg, "config", "get", "air_key"); err == nil {
		t.Error("config get should fail after unset")
	}
}

func TestConfigSet_RejectsInvalid(t *testing.T) {
	cfg := writeTestConfig(t)

	if _, err := execute(t, "--config", cfg, "config", "set", "tick_rate", "fast"); err == nil {
		t.Error("expected an error for an invalid value")
	}
	if _, err := execute(t, "--config", cfg, "config", "set", "camera", "0"); err == nil {
		t.Error("expected an error for an unknown key")
	}

	out, err := execute(t, "--config", cfg, "config", "list")
	if err != nil {
		t.Fatalf("config list error = %v", err)
	}
	if out != "" {
		t.Errorf("nothing should be stored, got %q", out)
	}
}

func TestDevicesCommand(t *testing.T) {
	searchControllers = func() ([]joycon.HIDInfo, error) {
		return []joycon.HIDInfo{
			{Path: "/dev/hidraw3", ProductID: joycon.ProductLeft, Serial: "98:b6:e9:00:00:01"},
		}, nil
	}
	t.Cleanup(func() { searchControllers = nil })

	out, err := execute(t, "devices")
	if err != nil {
		t.Fatalf("devices error = %v", err)
	}
	if !strings.Contains(out, "L\t98:B6:E9:00:00:01\t/dev/hidraw3") {
		t.Errorf("missing identity in %q", out)
	}
	if !strings.Contains(out, "Pair incomplete") {
		t.Errorf("expected an incomplete pair in %q", out)
	}
}

func TestInjectorKeys_AdvertisesNumericAirKey(t *testing.T) {
	path := writeTestConfig(t)
	if _, err := execute(t, "--config", path, "config", "set", "air_key", "200"); err != nil {
		t.Fatalf("config set error = %v", err)
	}
	cfg, st, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	defer st.Close()

	found := false
	for _, c := range injectorKeys(cfg) {
		if c == 200 {
			found = true
		}
	}
	if !found {
		t.Error("virtual keyboard would not advertise air key 200")
	}
}
