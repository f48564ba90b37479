package digitizer

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/padplane/internal/config"
	"github.com/banshee-data/padplane/internal/errs"
	"github.com/banshee-data/padplane/internal/padplane"
)

// Config holds the amplification and digitization parameters of a
// Digitizer. Geometry lives in padplane.Grid and gas properties come from the
// GasProperties collaborator.
type Config struct {
	CollectionEfficiency  float64 // fraction of primary electrons reaching the plane (default: 1)
	GainMean              float64 // mean avalanche gain (default: 1000)
	GainTheta             float64 // Polya shape parameter (default: 1)
	IntrinsicDiffusionStd float64 // spread before drift, mm (default: 0.1)
	PruneFactor           float64 // pads farther than this many sigma are skipped (default: 10)
	HitFractionThreshold  float64 // share of the step charge that marks a pad hit (default: 1e-6)
	Seed                  uint64  // seed of the default sampler (default: 1)
	Strict                bool    // reject negative drift lengths instead of clamping
}

// DefaultConfig returns a Config loaded from the canonical defaults file.
// Panics if the file cannot be found; intended for tests and binaries that
// have already validated config availability.
func DefaultConfig() *Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded DigitizerConfig.
func ConfigFromTuning(cfg *config.DigitizerConfig) *Config {
	return &Config{
		CollectionEfficiency:  cfg.GetCollectionEfficiency(),
		GainMean:              cfg.GetGainMean(),
		GainTheta:             cfg.GetGainTheta(),
		IntrinsicDiffusionStd: cfg.GetIntrinsicDiffusionStd(),
		PruneFactor:           cfg.GetPruneFactor(),
		HitFractionThreshold:  cfg.GetHitFractionThreshold(),
		Seed:                  cfg.GetSeed(),
		Strict:                cfg.GetStrict(),
	}
}

// GridFromTuning builds the pad plane described by cfg.
func GridFromTuning(cfg *config.DigitizerConfig) (*padplane.Grid, error) {
	c := cfg.GetCenterOffset()
	return padplane.New(cfg.GetNPadX(), cfg.GetNPadY(),
		cfg.GetPadPlaneWidth(), cfg.GetPadPlaneHeight(),
		r3.Vec{X: c.X, Y: c.Y, Z: c.Z}, cfg.GetPadMargin())
}

// Validate checks if the configuration is valid. Errors wrap
// errs.ErrConfiguration.
func (c *Config) Validate() error {
	if c.CollectionEfficiency <= 0 || c.CollectionEfficiency > 1 {
		return errs.Configf("CollectionEfficiency must be in (0, 1], got %f", c.CollectionEfficiency)
	}
	if c.GainMean <= 0 {
		return errs.Configf("GainMean must be positive, got %f", c.GainMean)
	}
	if c.GainTheta <= -1 {
		return errs.Configf("GainTheta must be greater than -1, got %f", c.GainTheta)
	}
	if c.IntrinsicDiffusionStd < 0 {
		return errs.Configf("IntrinsicDiffusionStd must be non-negative, got %f", c.IntrinsicDiffusionStd)
	}
	if c.PruneFactor <= 0 {
		return errs.Configf("PruneFactor must be positive, got %f", c.PruneFactor)
	}
	if c.HitFractionThreshold < 0 || c.HitFractionThreshold >= 1 {
		return errs.Configf("HitFractionThreshold must be in [0, 1), got %g", c.HitFractionThreshold)
	}
	return nil
}

// GainStd returns the standard deviation of the single-electron gain,
// GainMean/sqrt(GainTheta+1).
func (c *Config) GainStd() float64 {
	return c.GainMean / math.Sqrt(c.GainTheta+1)
}

// WithGain sets the gain mean and Polya shape parameter.
func (c *Config) WithGain(mean, theta float64) *Config {
	c.GainMean = mean
	c.GainTheta = theta
	return c
}

// WithCollectionEfficiency sets the collection efficiency.
func (c *Config) WithCollectionEfficiency(f float64) *Config {
	c.CollectionEfficiency = f
	return c
}

// WithIntrinsicDiffusionStd sets the spread present before drift.
func (c *Config) WithIntrinsicDiffusionStd(std float64) *Config {
	c.IntrinsicDiffusionStd = std
	return c
}

// WithPruneFactor sets the pruning radius in units of sigma.
func (c *Config) WithPruneFactor(f float64) *Config {
	c.PruneFactor = f
	return c
}

// WithHitFractionThreshold sets the share of the step charge that marks a hit.
func (c *Config) WithHitFractionThreshold(f float64) *Config {
	c.HitFractionThreshold = f
	return c
}

// WithSeed sets the seed of the default sampler.
func (c *Config) WithSeed(seed uint64) *Config {
	c.Seed = seed
	return c
}

// WithStrict enables strict argument checking.
func (c *Config) WithStrict(strict bool) *Config {
	c.Strict = strict
	return c
}
