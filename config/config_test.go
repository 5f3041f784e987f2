package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaultLoads verifies the embedded defaults are valid and derived
// values are computed.
func TestDefaultLoads(t *testing.T) {
	cfg := Default()

	if cfg.Grain.Initial != 900 || cfg.Grain.Min != 200 || cfg.Grain.Max != 1400 {
		t.Errorf("grain range = %d [%d, %d], want 900 [200, 1400]", cfg.Grain.Initial, cfg.Grain.Min, cfg.Grain.Max)
	}
	if math.Abs(cfg.Derived.ConeSlope-0.73) > 1e-12 {
		t.Errorf("ConeSlope = %v, want 0.73", cfg.Derived.ConeSlope)
	}
	if math.Abs(cfg.Derived.InvCellSize-20) > 1e-9 {
		t.Errorf("InvCellSize = %v, want 20", cfg.Derived.InvCellSize)
	}
	if cfg.Derived.Diameter != 2*cfg.Grain.Radius {
		t.Errorf("Diameter = %v, want %v", cfg.Derived.Diameter, 2*cfg.Grain.Radius)
	}
}

// TestLoadMergesUserFile verifies user values override defaults and
// omitted keys keep them.
func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	data := "flow:\n  factor: 0.03\ngrain:\n  initial: 500\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Flow.Factor != 0.03 {
		t.Errorf("Flow.Factor = %v, want 0.03", cfg.Flow.Factor)
	}
	if cfg.Grain.Initial != 500 {
		t.Errorf("Grain.Initial = %d, want 500", cfg.Grain.Initial)
	}
	if cfg.Flow.Constant != 2 {
		t.Errorf("Flow.Constant = %v, want default 2", cfg.Flow.Constant)
	}
}

// TestLoadRejectsInvalid verifies Validate failures surface from Load.
func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"neck wider than body", "vessel:\n  neck_radius: 0.9\n", "neck_radius"},
		{"grain too large", "grain:\n  radius: 0.05\n", "fit through the neck"},
		{"inverted range", "grain:\n  min: 2000\n", "grain range"},
		{"cell smaller than grain", "collision:\n  cell_size: 0.01\n", "cell_size"},
		{"zero push", "collision:\n  push: 0\n", "push"},
		{"bad frame range", "simulation:\n  min_frame_dt: 0.1\n", "frame dt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

// TestLoadMissingFile verifies a missing path is an error.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

// TestTierValue verifies tier lookup order and fallback.
func TestTierValue(t *testing.T) {
	tiers := []Tier{{MaxGrains: 400, Value: 3}, {MaxGrains: 700, Value: 2}, {MaxGrains: 980, Value: 1}}

	tests := []struct {
		count int
		want  int
	}{
		{0, 3},
		{400, 3},
		{401, 2},
		{980, 1},
		{981, 0},
	}
	for _, tt := range tests {
		if got := TierValue(tiers, tt.count, 0); got != tt.want {
			t.Errorf("TierValue(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

// TestClampCount verifies grain requests are clamped to the range.
func TestClampCount(t *testing.T) {
	cfg := Default()
	for _, tt := range []struct{ in, want int }{{-5, 200}, {200, 200}, {1000, 1000}, {1400, 1400}, {5000, 1400}} {
		if got := cfg.ClampCount(tt.in); got != tt.want {
			t.Errorf("ClampCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestInitGlobal verifies Init populates Cfg.
func TestInitGlobal(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Cfg().Grain.Radius != 0.017 {
		t.Errorf("Cfg().Grain.Radius = %v, want 0.017", Cfg().Grain.Radius)
	}
}
