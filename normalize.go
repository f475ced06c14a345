package garage

import (
	"math"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Default settings for NormalizeOptions.
const (
	DefaultObsAlpha            = 0.001
	DefaultRewardAlpha         = 0.001
	DefaultExpectedActionScale = 1.0
)

const normalizeEpsilon = 1e-8

// NormalizeOptions configures a NormalizedEnv.
type NormalizeOptions struct {
	// NormalizeObs enables observation standardization
	// using running estimates of the mean and variance.
	NormalizeObs bool

	// NormalizeReward enables reward scaling using a
	// running estimate of the reward variance.
	NormalizeReward bool

	// ObsAlpha and RewardAlpha are the update rates of
	// the running estimates.
	//
	// If 0, DefaultObsAlpha and DefaultRewardAlpha are
	// used.
	ObsAlpha    float64
	RewardAlpha float64

	// ExpectedActionScale is the magnitude of the actions
	// a policy is expected to emit.
	// Actions in [-scale, scale] are mapped onto the
	// bounds of a continuous action space.
	//
	// If 0, DefaultExpectedActionScale is used.
	ExpectedActionScale float64
}

func (n NormalizeOptions) obsAlpha() float64 {
	if n.ObsAlpha == 0 {
		return DefaultObsAlpha
	}
	return n.ObsAlpha
}

func (n NormalizeOptions) rewardAlpha() float64 {
	if n.RewardAlpha == 0 {
		return DefaultRewardAlpha
	}
	return n.RewardAlpha
}

func (n NormalizeOptions) actionScale() float64 {
	if n.ExpectedActionScale == 0 {
		return DefaultExpectedActionScale
	}
	return n.ExpectedActionScale
}

// A NormalizedEnv rescales actions into the bounds of a
// continuous action space and optionally standardizes
// observations and rewards.
type NormalizedEnv struct {
	Env     Env
	Options NormalizeOptions

	obsMean    []float64
	obsVar     []float64
	rewardMean float64
	rewardVar  float64
}

// Normalize wraps an environment.
// Discrete actions are passed through unchanged.
func Normalize(e Env, opts NormalizeOptions) *NormalizedEnv {
	return &NormalizedEnv{
		Env:       e,
		Options:   opts,
		rewardVar: 1,
	}
}

// Spec returns the spec of the wrapped environment.
func (n *NormalizedEnv) Spec() *EnvSpec {
	return n.Env.Spec()
}

// Reset resets the wrapped environment.
func (n *NormalizedEnv) Reset() (obs anyvec.Vector, err error) {
	defer essentials.AddCtxTo("reset normalized env", &err)
	obs, err = n.Env.Reset()
	if err != nil {
		return nil, err
	}
	return n.processObs(obs), nil
}

// Step scales the action and steps the wrapped
// environment.
func (n *NormalizedEnv) Step(action anyvec.Vector) (obs anyvec.Vector,
	reward float64, done bool, err error) {
	defer essentials.AddCtxTo("step normalized env", &err)
	spec := n.Spec()
	if !spec.Discrete {
		scaled := ScaleAction(vecToFloats(action), spec.Low, spec.High,
			n.Options.actionScale())
		action = floatsToVec(action.Creator(), scaled)
	}
	obs, reward, done, err = n.Env.Step(action)
	if err != nil {
		return
	}
	obs = n.processObs(obs)
	reward = n.processReward(reward)
	return
}

// Close closes the wrapped environment.
func (n *NormalizedEnv) Close() error {
	return n.Env.Close()
}

// Clone clones the wrapped environment.
// The clone has the same options but fresh statistics.
func (n *NormalizedEnv) Clone() (Env, error) {
	inner, err := n.Env.Clone()
	if err != nil {
		return nil, essentials.AddCtx("clone normalized env", err)
	}
	return Normalize(inner, n.Options), nil
}

// ObsStats returns the running observation mean and
// variance.
// Both are nil before the first observation or when
// observation normalization is disabled.
func (n *NormalizedEnv) ObsStats() (mean, variance []float64) {
	return append([]float64(nil), n.obsMean...), append([]float64(nil), n.obsVar...)
}

func (n *NormalizedEnv) processObs(obs anyvec.Vector) anyvec.Vector {
	if !n.Options.NormalizeObs || obs == nil {
		return obs
	}
	values := vecToFloats(obs)
	if n.obsMean == nil {
		n.obsMean = make([]float64, len(values))
		n.obsVar = make([]float64, len(values))
		for i := range n.obsVar {
			n.obsVar[i] = 1
		}
	}
	alpha := n.Options.obsAlpha()
	for i, x := range values {
		n.obsMean[i] = (1-alpha)*n.obsMean[i] + alpha*x
		diff := x - n.obsMean[i]
		n.obsVar[i] = (1-alpha)*n.obsVar[i] + alpha*diff*diff
		values[i] = diff / (math.Sqrt(n.obsVar[i]) + normalizeEpsilon)
	}
	return floatsToVec(obs.Creator(), values)
}

func (n *NormalizedEnv) processReward(reward float64) float64 {
	if !n.Options.NormalizeReward {
		return reward
	}
	alpha := n.Options.rewardAlpha()
	n.rewardMean = (1-alpha)*n.rewardMean + alpha*reward
	diff := reward - n.rewardMean
	n.rewardVar = (1-alpha)*n.rewardVar + alpha*diff*diff
	return reward / (math.Sqrt(n.rewardVar) + normalizeEpsilon)
}

// ScaleAction maps an action from [-scale, scale] onto
// [low, high] and clips the result to the bounds.
func ScaleAction(action, low, high []float64, scale float64) []float64 {
	res := make([]float64, len(action))
	for i, x := range action {
		y := low[i] + (x+scale)*(0.5*(high[i]-low[i])/scale)
		res[i] = math.Max(low[i], math.Min(high[i], y))
	}
	return res
}
