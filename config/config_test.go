package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	if cfg.Pool.Capacity <= 0 {
		t.Errorf("expected positive pool capacity, got %d", cfg.Pool.Capacity)
	}
	if w, h := cfg.ViewportSize(); w != cfg.Screen.Width || h != cfg.Screen.Height {
		t.Errorf("viewport should default to screen size, got %dx%d", w, h)
	}
	if cfg.Emitters.RemovePolicy != "orphan" {
		t.Errorf("expected orphan remove policy, got %q", cfg.Emitters.RemovePolicy)
	}
	if len(cfg.Emitters.Initial) == 0 {
		t.Error("expected default emitters")
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("pool:\n  capacity: 64\nphysics:\n  max_radius: 5\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Pool.Capacity != 64 {
		t.Errorf("capacity = %d, want 64", cfg.Pool.Capacity)
	}
	if cfg.Physics.MaxRadius != 5 {
		t.Errorf("max_radius = %g, want 5", cfg.Physics.MaxRadius)
	}
	// Untouched field keeps the embedded default
	if cfg.Screen.Width != 1280 {
		t.Errorf("screen width = %d, want default 1280", cfg.Screen.Width)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero capacity", "pool:\n  capacity: 0\n"},
		{"negative radius", "physics:\n  max_radius: -1\n"},
		{"bad policy", "emitters:\n  remove_policy: recycle\n"},
		{"zero particle mass", "particle:\n  mass: 0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCellSize(t *testing.T) {
	tests := []struct {
		name     string
		explicit float64
		factor   float64
		maxR     float64
		want     float64
	}{
		{"explicit wins", 20, 3, 4, 20},
		{"factor times radius", 0, 3, 4, 12},
		{"factor floored at two", 0, 1, 4, 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{}
			c.Physics.GridCellSize = tc.explicit
			c.Physics.CellSizeFactor = tc.factor
			c.Physics.MaxRadius = tc.maxR
			if got := c.CellSize(); got != tc.want {
				t.Errorf("CellSize() = %g, want %g", got, tc.want)
			}
		})
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if loaded.Pool.Capacity != cfg.Pool.Capacity {
		t.Errorf("capacity = %d, want %d", loaded.Pool.Capacity, cfg.Pool.Capacity)
	}
}
