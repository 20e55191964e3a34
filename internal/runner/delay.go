package runner

import (
	"math/rand/v2"
	"time"
)

// DelaySource picks the pause between two runs.
type DelaySource interface {
	// NextDelay returns a duration in [0, max].
	NextDelay(max time.Duration) time.Duration
}

// Sleeper blocks for the given duration.
type Sleeper func(time.Duration)

// UniformDelay draws whole seconds uniformly from [0, max], both ends included.
type UniformDelay struct {
	rng *rand.Rand
}

// NewUniformDelay returns a seeded UniformDelay.
func NewUniformDelay(seed uint64) *UniformDelay {
	return &UniformDelay{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (u *UniformDelay) NextDelay(max time.Duration) time.Duration {
	secs := int64(max / time.Second)
	if secs <= 0 {
		return 0
	}
	return time.Duration(u.rng.Int64N(secs+1)) * time.Second
}

var _ DelaySource = (*UniformDelay)(nil)
