package garage

import (
	"math"

	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyrl/anypg"
)

// A BaselineJudger uses a LinearFeatureBaseline to
// compute action advantages.
// It can be used to reduce variance during training.
type BaselineJudger struct {
	Baseline *LinearFeatureBaseline

	// Discount is the reward discount factor.
	Discount float64

	// Lambda is the GAE parameter.
	// A lambda of 0 is high-bias and low-variance.
	// A lambda of 1 is low-bias and high-variance.
	//
	// For more on GAE, see:
	// https://arxiv.org/abs/1506.02438.
	Lambda float64

	// Center, if true, standardizes the advantages to
	// have zero mean and unit variance.
	Center bool
}

// JudgeActions produces advantage estimations.
func (b *BaselineJudger) JudgeActions(r *anyrl.RolloutSet) anyrl.Rewards {
	judger := &anypg.GAEJudger{
		ValueFunc: b.Baseline.ValueFunc,
		Discount:  b.Discount,
		Lambda:    b.Lambda,
	}
	advantages := judger.JudgeActions(r)
	if b.Center {
		centerAdvantages(advantages)
	}
	return advantages
}

// centerAdvantages standardizes the advantages in place.
// If every advantage is the same, they are all set to 0.
func centerAdvantages(r anyrl.Rewards) {
	var count int
	var sum float64
	heterogeneous := false
	var first float64
	for _, seq := range r {
		for _, x := range seq {
			if count == 0 {
				first = x
			} else if x != first {
				heterogeneous = true
			}
			sum += x
			count++
		}
	}
	if count == 0 {
		return
	}
	if !heterogeneous {
		for _, seq := range r {
			for i := range seq {
				seq[i] = 0
			}
		}
		return
	}
	mean := sum / float64(count)
	var sqSum float64
	for _, seq := range r {
		for _, x := range seq {
			sqSum += (x - mean) * (x - mean)
		}
	}
	scale := 1 / (math.Sqrt(sqSum/float64(count)) + normalizeEpsilon)
	for _, seq := range r {
		for i, x := range seq {
			seq[i] = (x - mean) * scale
		}
	}
}
