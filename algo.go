package garage

import (
	"github.com/unixpickle/anyrl"
)

// An Algorithm improves a policy from batches of
// rollouts.
type Algorithm interface {
	// Agent returns the policy being trained and the
	// baseline used to judge its actions.
	Agent() (*Policy, *LinearFeatureBaseline)

	// EpisodeCap is the maximum number of timesteps in an
	// episode, or 0 for no limit.
	EpisodeCap() int

	// Discount is the reward discount factor.
	Discount() float64

	// TrainOnce performs one epoch of optimization.
	TrainOnce(epoch int, r *anyrl.RolloutSet) (TrainStats, error)
}

// A Stat is a named scalar produced during training.
type Stat struct {
	Name  string
	Value float64
}

// TrainStats is an ordered list of statistics.
type TrainStats []Stat

// Get finds a stat by name.
func (t TrainStats) Get(name string) (float64, bool) {
	for _, s := range t {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}
