package digitizer

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws the Gaussian fluctuations of gain and drift length.
type Sampler interface {
	Normal(mean, std float64) float64
}

// GaussianSampler draws from a seeded PCG stream. Two samplers with the same
// seed produce identical sequences.
type GaussianSampler struct {
	src rand.Source
}

// NewGaussianSampler returns a sampler seeded with seed.
func NewGaussianSampler(seed uint64) *GaussianSampler {
	return &GaussianSampler{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// Normal returns a draw from N(mean, std). A non-positive std returns mean
// without consuming the stream.
func (s *GaussianSampler) Normal(mean, std float64) float64 {
	if !(std > 0) {
		return mean
	}
	return distuv.Normal{Mu: mean, Sigma: std, Src: s.src}.Rand()
}
