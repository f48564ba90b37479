package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/padplane/internal/errs"
	"github.com/banshee-data/padplane/internal/fsutil"
	"github.com/banshee-data/padplane/internal/units"
)

// DefaultConfigPath is the path to the canonical digitizer defaults file.
const DefaultConfigPath = "config/digitizer.defaults.json"

// Vec3 is a JSON-friendly world position in millimetres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DigitizerConfig is the setup-time configuration of the pad-plane
// digitizer. Fields omitted from the JSON fall back to the Get* defaults, so
// partial configs are safe. Lengths are millimetres, energies electronvolts,
// and the drift velocity is in DriftVelocityUnit (default mm/ns).
type DigitizerConfig struct {
	// Pad plane geometry
	NPadX          *int     `json:"n_pad_x,omitempty"`
	NPadY          *int     `json:"n_pad_y,omitempty"`
	PadPlaneWidth  *float64 `json:"pad_plane_width,omitempty"`
	PadPlaneHeight *float64 `json:"pad_plane_height,omitempty"`
	PadMargin      *float64 `json:"pad_margin,omitempty"`
	CenterOffset   *Vec3    `json:"center_offset,omitempty"`

	// Amplification
	CollectionEfficiency *float64 `json:"collection_efficiency,omitempty"`
	GainMean             *float64 `json:"gain_mean,omitempty"`
	GainTheta            *float64 `json:"gain_theta,omitempty"`

	// Gas properties
	IntrinsicDiffusionStd     *float64 `json:"intrinsic_diffusion_std,omitempty"`
	TransverseDiffusionCoef   *float64 `json:"transverse_diffusion_coef,omitempty"`
	LongitudinalDiffusionCoef *float64 `json:"longitudinal_diffusion_coef,omitempty"`
	DriftVelocity             *float64 `json:"drift_velocity,omitempty"`
	DriftVelocityUnit         *string  `json:"drift_velocity_unit,omitempty"`
	MeanEnergyPerIonPair      *float64 `json:"mean_energy_per_ion_pair,omitempty"`

	// Digitizer tuning
	PruneFactor          *float64 `json:"prune_factor,omitempty"`
	HitFractionThreshold *float64 `json:"hit_fraction_threshold,omitempty"`
	Seed                 *uint64  `json:"seed,omitempty"`
	Strict               *bool    `json:"strict,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyDigitizerConfig returns a DigitizerConfig with all fields nil.
func EmptyDigitizerConfig() *DigitizerConfig {
	return &DigitizerConfig{}
}

// LoadDigitizerConfig loads a DigitizerConfig from a JSON file on disk.
// The file must have a .json extension and be under 1MB.
func LoadDigitizerConfig(path string) (*DigitizerConfig, error) {
	return ReadDigitizerConfig(fsutil.OSFileSystem{}, path)
}

// ReadDigitizerConfig is LoadDigitizerConfig reading through fsys.
func ReadDigitizerConfig(fsys fsutil.FileSystem, path string) (*DigitizerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", len(data), maxFileSize)
	}

	cfg := EmptyDigitizerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *DigitizerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from cmd/padsim/ and internal/config/
		"../../../" + DefaultConfigPath,    // from internal/storage/sqlite/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadDigitizerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set. Every failure wraps
// errs.ErrConfiguration.
func (c *DigitizerConfig) Validate() error {
	if c.NPadX != nil && *c.NPadX <= 0 {
		return errs.Configf("n_pad_x must be positive, got %d", *c.NPadX)
	}
	if c.NPadY != nil && *c.NPadY <= 0 {
		return errs.Configf("n_pad_y must be positive, got %d", *c.NPadY)
	}
	if c.PadPlaneWidth != nil && *c.PadPlaneWidth <= 0 {
		return errs.Configf("pad_plane_width must be positive, got %f", *c.PadPlaneWidth)
	}
	if c.PadPlaneHeight != nil && *c.PadPlaneHeight <= 0 {
		return errs.Configf("pad_plane_height must be positive, got %f", *c.PadPlaneHeight)
	}
	if c.PadMargin != nil && *c.PadMargin < 0 {
		return errs.Configf("pad_margin must be non-negative, got %f", *c.PadMargin)
	}
	if c.CollectionEfficiency != nil {
		if *c.CollectionEfficiency <= 0 || *c.CollectionEfficiency > 1 {
			return errs.Configf("collection_efficiency must be in (0, 1], got %f", *c.CollectionEfficiency)
		}
	}
	if c.GainMean != nil && *c.GainMean <= 0 {
		return errs.Configf("gain_mean must be positive, got %f", *c.GainMean)
	}
	if c.GainTheta != nil && *c.GainTheta <= -1 {
		return errs.Configf("gain_theta must be greater than -1, got %f", *c.GainTheta)
	}
	if c.IntrinsicDiffusionStd != nil && *c.IntrinsicDiffusionStd < 0 {
		return errs.Configf("intrinsic_diffusion_std must be non-negative, got %f", *c.IntrinsicDiffusionStd)
	}
	if c.TransverseDiffusionCoef != nil && *c.TransverseDiffusionCoef < 0 {
		return errs.Configf("transverse_diffusion_coef must be non-negative, got %f", *c.TransverseDiffusionCoef)
	}
	if c.LongitudinalDiffusionCoef != nil && *c.LongitudinalDiffusionCoef < 0 {
		return errs.Configf("longitudinal_diffusion_coef must be non-negative, got %f", *c.LongitudinalDiffusionCoef)
	}
	if c.DriftVelocity != nil && *c.DriftVelocity <= 0 {
		return errs.Configf("drift_velocity must be positive, got %f", *c.DriftVelocity)
	}
	if c.DriftVelocityUnit != nil && !units.IsValidVelocity(*c.DriftVelocityUnit) {
		return errs.Configf("drift_velocity_unit %q is not one of mm/ns, cm/us, mm/us", *c.DriftVelocityUnit)
	}
	if c.MeanEnergyPerIonPair != nil && *c.MeanEnergyPerIonPair <= 0 {
		return errs.Configf("mean_energy_per_ion_pair must be positive, got %f", *c.MeanEnergyPerIonPair)
	}
	if c.PruneFactor != nil && *c.PruneFactor <= 0 {
		return errs.Configf("prune_factor must be positive, got %f", *c.PruneFactor)
	}
	if c.HitFractionThreshold != nil {
		if *c.HitFractionThreshold < 0 || *c.HitFractionThreshold >= 1 {
			return errs.Configf("hit_fraction_threshold must be in [0, 1), got %g", *c.HitFractionThreshold)
		}
	}
	return nil
}

// GetNPadX returns the n_pad_x value or the default.
func (c *DigitizerConfig) GetNPadX() int {
	if c.NPadX == nil {
		return 64
	}
	return *c.NPadX
}

// GetNPadY returns the n_pad_y value or the default.
func (c *DigitizerConfig) GetNPadY() int {
	if c.NPadY == nil {
		return 64
	}
	return *c.NPadY
}

// GetPadPlaneWidth returns the pad_plane_width value or the default.
func (c *DigitizerConfig) GetPadPlaneWidth() float64 {
	if c.PadPlaneWidth == nil {
		return 128.0
	}
	return *c.PadPlaneWidth
}

// GetPadPlaneHeight returns the pad_plane_height value or the default.
func (c *DigitizerConfig) GetPadPlaneHeight() float64 {
	if c.PadPlaneHeight == nil {
		return 128.0
	}
	return *c.PadPlaneHeight
}

// GetPadMargin returns the pad_margin value or the default.
func (c *DigitizerConfig) GetPadMargin() float64 {
	if c.PadMargin == nil {
		return 0
	}
	return *c.PadMargin
}

// GetCenterOffset returns the center_offset value or the origin.
func (c *DigitizerConfig) GetCenterOffset() Vec3 {
	if c.CenterOffset == nil {
		return Vec3{}
	}
	return *c.CenterOffset
}

// GetCollectionEfficiency returns the collection_efficiency value or the default.
func (c *DigitizerConfig) GetCollectionEfficiency() float64 {
	if c.CollectionEfficiency == nil {
		return 1.0
	}
	return *c.CollectionEfficiency
}

// GetGainMean returns the gain_mean value or the default.
func (c *DigitizerConfig) GetGainMean() float64 {
	if c.GainMean == nil {
		return 1000.0
	}
	return *c.GainMean
}

// GetGainTheta returns the gain_theta value or the default.
func (c *DigitizerConfig) GetGainTheta() float64 {
	if c.GainTheta == nil {
		return 1.0
	}
	return *c.GainTheta
}

// GetIntrinsicDiffusionStd returns the intrinsic_diffusion_std value or the default.
func (c *DigitizerConfig) GetIntrinsicDiffusionStd() float64 {
	if c.IntrinsicDiffusionStd == nil {
		return 0.1
	}
	return *c.IntrinsicDiffusionStd
}

// GetTransverseDiffusionCoef returns the transverse_diffusion_coef value or the default.
func (c *DigitizerConfig) GetTransverseDiffusionCoef() float64 {
	if c.TransverseDiffusionCoef == nil {
		return 0.16
	}
	return *c.TransverseDiffusionCoef
}

// GetLongitudinalDiffusionCoef returns the longitudinal_diffusion_coef value or the default.
func (c *DigitizerConfig) GetLongitudinalDiffusionCoef() float64 {
	if c.LongitudinalDiffusionCoef == nil {
		return 0.12
	}
	return *c.LongitudinalDiffusionCoef
}

// GetDriftVelocity returns the drift velocity converted to mm/ns.
func (c *DigitizerConfig) GetDriftVelocity() float64 {
	v := 0.05 // 5 cm/us
	if c.DriftVelocity != nil {
		v = *c.DriftVelocity
	}
	unit := units.MMPerNS
	if c.DriftVelocityUnit != nil {
		unit = *c.DriftVelocityUnit
	}
	return units.ToMillimetresPerNanosecond(v, unit)
}

// GetMeanEnergyPerIonPair returns the mean_energy_per_ion_pair value or the default.
func (c *DigitizerConfig) GetMeanEnergyPerIonPair() float64 {
	if c.MeanEnergyPerIonPair == nil {
		return 26.0 // argon W value in eV
	}
	return *c.MeanEnergyPerIonPair
}

// GetPruneFactor returns the prune_factor value or the default.
func (c *DigitizerConfig) GetPruneFactor() float64 {
	if c.PruneFactor == nil {
		return 10.0
	}
	return *c.PruneFactor
}

// GetHitFractionThreshold returns the hit_fraction_threshold value or the default.
func (c *DigitizerConfig) GetHitFractionThreshold() float64 {
	if c.HitFractionThreshold == nil {
		return 1e-6
	}
	return *c.HitFractionThreshold
}

// GetSeed returns the seed value or the default.
func (c *DigitizerConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetStrict returns the strict value or the default.
func (c *DigitizerConfig) GetStrict() bool {
	if c.Strict == nil {
		return false
	}
	return *c.Strict
}
