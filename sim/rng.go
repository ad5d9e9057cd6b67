package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey seeds a run. Equal keys and equal configs replay the same
// vehicles, decisions and metrics.
type SimulationKey int64

func NewSimulationKey(seed int64) SimulationKey { return SimulationKey(seed) }

// RNG subsystems. Each draws from its own stream so that, for example,
// enabling cancellations does not shift the generated traffic.
const (
	SubsystemWorkload = "workload" // vehicle streams; seeded with the key itself
	SubsystemCancel   = "cancel"   // cancellation timing
)

// PartitionedRNG hands out one *rand.Rand per subsystem. A subsystem's seed
// is the key XOR the fnv-1a hash of its name, except SubsystemWorkload,
// which uses the key unchanged so a seed means the same traffic everywhere.
// Not thread-safe.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the subsystem's stream, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(p.seedFor(name)))
	p.streams[name] = r
	return r
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemWorkload {
		return int64(p.key)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(p.key) ^ int64(h.Sum64())
}

func (p *PartitionedRNG) Key() SimulationKey { return p.key }
