package garage

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyrl/anypg"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/lazyseq"
)

// Default settings for PPO.
const (
	DefaultPPODiscount              = 0.99
	DefaultPPOGAELambda             = 1
	DefaultPPOLRClipRange           = 0.2
	DefaultPPOLearningRate          = 1e-3
	DefaultPPOBatchSize             = 32
	DefaultPPOMaxOptimizationEpochs = 10
	DefaultPPOMaxEpisodeLength      = 500
)

// OptimizerArgs configures the first-order optimizer
// used by PPO.
type OptimizerArgs struct {
	// BatchSize is the approximate number of timesteps
	// in each minibatch.
	// Minibatches are made of whole episodes.
	//
	// If 0, DefaultPPOBatchSize is used.
	BatchSize int

	// MaxOptimizationEpochs is the number of minibatch
	// steps per training epoch.
	//
	// If 0, DefaultPPOMaxOptimizationEpochs is used.
	MaxOptimizationEpochs int

	// LearningRate scales the Adam step.
	//
	// If 0, DefaultPPOLearningRate is used.
	LearningRate float64

	// MaxEpisodeLength is recorded with the optimizer
	// settings but does not cap sampled episodes.
	MaxEpisodeLength int
}

// PPO trains a policy with Proximal Policy Optimization,
// using a linear baseline as the critic.
//
// See https://arxiv.org/abs/1707.06347.
type PPO struct {
	Name string

	Policy   *Policy
	Baseline *LinearFeatureBaseline

	// MaxEpisodeLength caps episode lengths.
	//
	// If 0, DefaultPPOMaxEpisodeLength is used.
	// If negative, episodes are not capped.
	MaxEpisodeLength int

	// DiscountFactor is the reward discount factor.
	//
	// If 0, DefaultPPODiscount is used.
	DiscountFactor float64

	// GAELambda is the GAE parameter.
	//
	// If 0, DefaultPPOGAELambda is used.
	GAELambda float64

	// LRClipRange bounds the probability ratio.
	//
	// If 0, DefaultPPOLRClipRange is used.
	LRClipRange float64

	// PolicyEntCoeff is the weight of the entropy bonus.
	PolicyEntCoeff float64

	OptimizerArgs OptimizerArgs

	transformer *anysgd.Adam
}

// Agent returns the policy and the baseline.
func (p *PPO) Agent() (*Policy, *LinearFeatureBaseline) {
	return p.Policy, p.Baseline
}

// EpisodeCap returns the episode length limit.
func (p *PPO) EpisodeCap() int {
	switch {
	case p.MaxEpisodeLength < 0:
		return 0
	case p.MaxEpisodeLength > 0:
		return p.MaxEpisodeLength
	default:
		return DefaultPPOMaxEpisodeLength
	}
}

// Discount returns the reward discount factor.
func (p *PPO) Discount() float64 {
	if p.DiscountFactor == 0 {
		return DefaultPPODiscount
	}
	return p.DiscountFactor
}

// TrainOnce runs several minibatch steps of the clipped
// surrogate objective and then refits the baseline.
func (p *PPO) TrainOnce(epoch int, r *anyrl.RolloutSet) (stats TrainStats, err error) {
	defer essentials.AddCtxTo("PPO epoch", &err)

	if p.transformer == nil {
		p.transformer = &anysgd.Adam{}
	}
	c := p.Policy.Creator()
	ppo := p.objective()

	frac := 1.0
	if steps := r.NumSteps(); steps > 0 {
		frac = math.Min(1, float64(p.batchSize())/float64(steps))
	}
	reducer := &anyrl.FracReducer{Frac: frac}

	var stepNorm float64
	for i := 0; i < p.optimizationEpochs(); i++ {
		minibatch := r
		if frac < 1 {
			minibatch = reducer.Reduce(r)
		}
		grad := ppo.Run(minibatch)
		step := p.transformer.Transform(grad)
		step.Scale(c.MakeNumeric(p.learningRate()))
		stepNorm = gradNorm(step)
		step.AddToVars()
	}

	if err := p.Baseline.FitRollouts(r, p.Discount()); err != nil {
		return nil, err
	}

	return TrainStats{
		{Name: "MinibatchFrac", Value: frac},
		{Name: "LastStepNorm", Value: stepNorm},
	}, nil
}

func (p *PPO) objective() *anypg.PPO {
	lambda := p.GAELambda
	if lambda == 0 {
		lambda = DefaultPPOGAELambda
	}
	clip := p.LRClipRange
	if clip == 0 {
		clip = DefaultPPOLRClipRange
	}
	block := p.Policy.Block
	ppo := &anypg.PPO{
		Params: p.Policy.Parameters(),
		Actor: func(in lazyseq.Rereader) lazyseq.Rereader {
			return lazyseq.Lazify(anyrnn.Map(lazyseq.Unlazify(in), block))
		},
		Critic:      p.Baseline.Critic,
		ActionSpace: p.Policy.ActionSpace,
		Discount:    p.Discount(),
		Lambda:      lambda,
		Epsilon:     clip,
	}
	if p.PolicyEntCoeff != 0 {
		ppo.Regularizer = &anypg.EntropyReg{
			Entropyer: p.Policy.ActionSpace,
			Coeff:     p.PolicyEntCoeff,
		}
	}
	return ppo
}

func (p *PPO) batchSize() int {
	if p.OptimizerArgs.BatchSize == 0 {
		return DefaultPPOBatchSize
	}
	return p.OptimizerArgs.BatchSize
}

func (p *PPO) optimizationEpochs() int {
	if p.OptimizerArgs.MaxOptimizationEpochs == 0 {
		return DefaultPPOMaxOptimizationEpochs
	}
	return p.OptimizerArgs.MaxOptimizationEpochs
}

func (p *PPO) learningRate() float64 {
	if p.OptimizerArgs.LearningRate == 0 {
		return DefaultPPOLearningRate
	}
	return p.OptimizerArgs.LearningRate
}

func gradNorm(g anydiff.Grad) float64 {
	var sum float64
	for _, vec := range g {
		sum += numToFloat(vec.Dot(vec))
	}
	return math.Sqrt(sum)
}
