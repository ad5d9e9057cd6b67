package workload

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// minIAT keeps two spawns on one lane from sharing an instant.
const minIAT = 1e-3

// ArrivalSampler generates inter-arrival times of vehicles.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in seconds.
	// Always returns a positive value.
	SampleIAT(rng *rand.Rand) float64
}

// PoissonSampler generates exponentially-distributed inter-arrival times (CV=1).
type PoissonSampler struct {
	rate float64 // vehicles per second
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) float64 {
	return math.Max(rng.ExpFloat64()/s.rate, minIAT)
}

// ConstantSampler spaces vehicles evenly.
type ConstantSampler struct {
	iat float64
}

func (s *ConstantSampler) SampleIAT(_ *rand.Rand) float64 { return s.iat }

// GammaSampler generates Gamma-distributed inter-arrival times.
// CV > 1 produces platoon-like bursts.
type GammaSampler struct {
	shape float64 // 1/CV²
	rate  float64 // vehicles per second / CV², the Gamma rate parameter
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) float64 {
	g := distuv.Gamma{Alpha: s.shape, Beta: s.rate, Src: rng}
	return math.Max(g.Rand(), minIAT)
}

// ValidArrivalProcesses is the set of recognized arrival process names.
var ValidArrivalProcesses = map[string]bool{"": true, "poisson": true, "constant": true, "gamma": true}

// NewArrivalSampler creates a sampler for process at rate vehicles per second.
// Empty process defaults to Poisson. Panics on unrecognized names.
func NewArrivalSampler(process string, cv, rate float64) ArrivalSampler {
	if !ValidArrivalProcesses[process] {
		panic("unknown arrival process " + process)
	}
	if rate < 1e-12 {
		rate = 1e-12
	}
	switch process {
	case "constant":
		return &ConstantSampler{iat: 1.0 / rate}
	case "gamma":
		if cv <= 0 {
			cv = 1.0
		}
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{rate: rate}
		}
		return &GammaSampler{shape: shape, rate: rate / (cv * cv)}
	default:
		return &PoissonSampler{rate: rate}
	}
}
