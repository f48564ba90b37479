package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/padplane/internal/errs"
	"github.com/banshee-data/padplane/internal/fsutil"
)

func TestDefaultDigitizerConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if cfg.NPadX == nil || *cfg.NPadX != 64 {
		t.Errorf("Expected NPadX 64, got %v", cfg.NPadX)
	}
	if cfg.DriftVelocityUnit == nil || *cfg.DriftVelocityUnit != "mm/ns" {
		t.Errorf("Expected DriftVelocityUnit mm/ns, got %v", cfg.DriftVelocityUnit)
	}

	// The defaults file and the Get* fallbacks must agree.
	empty := EmptyDigitizerConfig()
	if cfg.GetNPadX() != empty.GetNPadX() || cfg.GetNPadY() != empty.GetNPadY() {
		t.Errorf("pad counts differ: file %dx%d, fallback %dx%d",
			cfg.GetNPadX(), cfg.GetNPadY(), empty.GetNPadX(), empty.GetNPadY())
	}
	if cfg.GetGainMean() != empty.GetGainMean() {
		t.Errorf("GetGainMean() file %f, fallback %f", cfg.GetGainMean(), empty.GetGainMean())
	}
	if cfg.GetPruneFactor() != empty.GetPruneFactor() {
		t.Errorf("GetPruneFactor() file %f, fallback %f", cfg.GetPruneFactor(), empty.GetPruneFactor())
	}
	if cfg.GetDriftVelocity() != empty.GetDriftVelocity() {
		t.Errorf("GetDriftVelocity() file %f, fallback %f", cfg.GetDriftVelocity(), empty.GetDriftVelocity())
	}
	if cfg.GetMeanEnergyPerIonPair() != 26.0 {
		t.Errorf("GetMeanEnergyPerIonPair() = %f, want 26", cfg.GetMeanEnergyPerIonPair())
	}
}

func TestLoadDigitizerConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "n_pad_x": 4,
  "n_pad_y": 4,
  "pad_plane_width": 40,
  "pad_plane_height": 40,
  "center_offset": {"x": 1, "y": 2, "z": 3},
  "drift_velocity": 5,
  "drift_velocity_unit": "cm/us",
  "seed": 42
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadDigitizerConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetNPadX() != 4 || cfg.GetNPadY() != 4 {
		t.Errorf("pad counts = %dx%d, want 4x4", cfg.GetNPadX(), cfg.GetNPadY())
	}
	if got := cfg.GetCenterOffset(); got != (Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("GetCenterOffset() = %+v", got)
	}
	if got := cfg.GetDriftVelocity(); got < 0.0499999 || got > 0.0500001 {
		t.Errorf("GetDriftVelocity() = %f, want 0.05 mm/ns", got)
	}
	if cfg.GetSeed() != 42 {
		t.Errorf("GetSeed() = %d, want 42", cfg.GetSeed())
	}
	// Omitted fields fall back.
	if cfg.GetGainTheta() != 1.0 {
		t.Errorf("GetGainTheta() = %f, want default 1.0", cfg.GetGainTheta())
	}
}

func TestLoadDigitizerConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadDigitizerConfig("/nonexistent/path/to/config.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}

	yamlPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(yamlPath, []byte("n_pad_x: 4"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDigitizerConfig(yamlPath); err == nil {
		t.Error("Expected error for non-.json extension")
	}

	badPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(badPath, []byte(`{"n_pad_x": "four"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDigitizerConfig(badPath); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}

	invalidPath := filepath.Join(tmpDir, "invalid.json")
	if err := os.WriteFile(invalidPath, []byte(`{"n_pad_x": 0}`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadDigitizerConfig(invalidPath)
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestReadDigitizerConfigUsesFileSystem(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.MkdirAll("/etc/padsim", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := fsys.WriteFile("/etc/padsim/small.json", []byte(`{"n_pad_x": 4, "seed": 11}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadDigitizerConfig(fsys, "/etc/padsim/small.json")
	if err != nil {
		t.Fatalf("ReadDigitizerConfig failed: %v", err)
	}
	if cfg.GetNPadX() != 4 || cfg.GetSeed() != 11 || cfg.GetNPadY() != 64 {
		t.Errorf("got n_pad_x=%d n_pad_y=%d seed=%d", cfg.GetNPadX(), cfg.GetNPadY(), cfg.GetSeed())
	}

	if _, err := ReadDigitizerConfig(fsys, "/etc/padsim/missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	big := make([]byte, 1024*1024+1)
	if err := fsys.WriteFile("/etc/padsim/big.json", big, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDigitizerConfig(fsys, "/etc/padsim/big.json"); err == nil {
		t.Error("expected an error for an oversized file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *DigitizerConfig
		wantErr bool
	}{
		{"empty config is valid", &DigitizerConfig{}, false},
		{"defaults are valid", MustLoadDefaultConfig(), false},
		{"zero pads x", &DigitizerConfig{NPadX: ptrInt(0)}, true},
		{"negative pads y", &DigitizerConfig{NPadY: ptrInt(-3)}, true},
		{"zero width", &DigitizerConfig{PadPlaneWidth: ptrFloat64(0)}, true},
		{"negative height", &DigitizerConfig{PadPlaneHeight: ptrFloat64(-1)}, true},
		{"negative margin", &DigitizerConfig{PadMargin: ptrFloat64(-0.1)}, true},
		{"efficiency above one", &DigitizerConfig{CollectionEfficiency: ptrFloat64(1.5)}, true},
		{"zero efficiency", &DigitizerConfig{CollectionEfficiency: ptrFloat64(0)}, true},
		{"zero gain", &DigitizerConfig{GainMean: ptrFloat64(0)}, true},
		{"theta at minus one", &DigitizerConfig{GainTheta: ptrFloat64(-1)}, true},
		{"theta just above minus one", &DigitizerConfig{GainTheta: ptrFloat64(-0.99)}, false},
		{"negative transverse diffusion", &DigitizerConfig{TransverseDiffusionCoef: ptrFloat64(-1)}, true},
		{"zero longitudinal diffusion", &DigitizerConfig{LongitudinalDiffusionCoef: ptrFloat64(0)}, false},
		{"zero drift velocity", &DigitizerConfig{DriftVelocity: ptrFloat64(0)}, true},
		{"unknown velocity unit", &DigitizerConfig{DriftVelocityUnit: ptrString("mph")}, true},
		{"zero W value", &DigitizerConfig{MeanEnergyPerIonPair: ptrFloat64(0)}, true},
		{"zero prune factor", &DigitizerConfig{PruneFactor: ptrFloat64(0)}, true},
		{"hit threshold of one", &DigitizerConfig{HitFractionThreshold: ptrFloat64(1)}, true},
		{"strict set", &DigitizerConfig{Strict: ptrBool(true)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrConfiguration) {
				t.Errorf("Validate() error %v does not wrap ErrConfiguration", err)
			}
		})
	}
}
