package garage

import (
	"log"

	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyrl/anypg"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Default settings for TRPO.
const (
	DefaultTRPODiscount         = 0.99
	DefaultTRPOGAELambda        = 0.98
	DefaultTRPOMaxKLStep        = 0.01
	DefaultTRPOCGIters          = 10
	DefaultTRPOMaxEpisodeLength = 500
)

// TRPO trains a policy with Trust Region Policy
// Optimization, using a linear baseline for advantage
// estimation.
//
// See https://arxiv.org/abs/1502.05477.
type TRPO struct {
	Policy   *Policy
	Baseline *LinearFeatureBaseline

	// MaxEpisodeLength caps episode lengths.
	//
	// If 0, DefaultTRPOMaxEpisodeLength is used.
	// If negative, episodes are not capped.
	MaxEpisodeLength int

	// DiscountFactor is the reward discount factor.
	//
	// If 0, DefaultTRPODiscount is used.
	DiscountFactor float64

	// GAELambda is the GAE parameter.
	//
	// If 0, DefaultTRPOGAELambda is used.
	GAELambda float64

	// MaxKLStep is the KL divergence bound of each step.
	//
	// If 0, DefaultTRPOMaxKLStep is used.
	MaxKLStep float64

	// CGIters is the number of conjugate gradient steps.
	//
	// If 0, DefaultTRPOCGIters is used.
	CGIters int

	// UncenteredAdv disables advantage standardization.
	UncenteredAdv bool

	// LogLineSearch enables a log line per line search
	// iteration.
	LogLineSearch bool
}

// Agent returns the policy and the baseline.
func (t *TRPO) Agent() (*Policy, *LinearFeatureBaseline) {
	return t.Policy, t.Baseline
}

// EpisodeCap returns the episode length limit.
func (t *TRPO) EpisodeCap() int {
	if t.MaxEpisodeLength == 0 {
		return DefaultTRPOMaxEpisodeLength
	} else if t.MaxEpisodeLength < 0 {
		return 0
	}
	return t.MaxEpisodeLength
}

// Discount returns the reward discount factor.
func (t *TRPO) Discount() float64 {
	if t.DiscountFactor == 0 {
		return DefaultTRPODiscount
	}
	return t.DiscountFactor
}

// TrainOnce takes a trust-region step on the policy and
// then refits the baseline.
func (t *TRPO) TrainOnce(epoch int, r *anyrl.RolloutSet) (stats TrainStats, err error) {
	defer essentials.AddCtxTo("TRPO epoch", &err)

	var searchSteps int
	var meanKL, improvement float64
	trpo := &anypg.TRPO{
		NaturalPG: anypg.NaturalPG{
			Policy:       t.Policy.Block,
			Params:       t.Policy.Parameters(),
			ActionSpace:  t.Policy.ActionSpace,
			ActionJudger: t.judger(),
			Iters:        t.cgIters(),
		},
		TargetKL: t.maxKLStep(),
		LogLineSearch: func(kl, imp anyvec.Numeric) {
			searchSteps++
			meanKL, improvement = numToFloat(kl), numToFloat(imp)
			if t.LogLineSearch {
				log.Printf("epoch %d: line search %d: kl=%f improvement=%f",
					epoch, searchSteps, meanKL, improvement)
			}
		},
	}
	grad := trpo.Run(r)
	grad.AddToVars()

	if err := t.Baseline.FitRollouts(r, t.Discount()); err != nil {
		return nil, err
	}

	return TrainStats{
		{Name: "MeanKL", Value: meanKL},
		{Name: "SurrogateImprovement", Value: improvement},
		{Name: "LineSearchSteps", Value: float64(searchSteps)},
	}, nil
}

func (t *TRPO) judger() *BaselineJudger {
	lambda := t.GAELambda
	if lambda == 0 {
		lambda = DefaultTRPOGAELambda
	}
	return &BaselineJudger{
		Baseline: t.Baseline,
		Discount: t.Discount(),
		Lambda:   lambda,
		Center:   !t.UncenteredAdv,
	}
}

func (t *TRPO) maxKLStep() float64 {
	if t.MaxKLStep == 0 {
		return DefaultTRPOMaxKLStep
	}
	return t.MaxKLStep
}

func (t *TRPO) cgIters() int {
	if t.CGIters == 0 {
		return DefaultTRPOCGIters
	}
	return t.CGIters
}
