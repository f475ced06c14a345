package benchmarks

import (
	"context"

	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/essentials"
)

// PPOHyperParameters configures the categorical MLP
// policy benchmark.
type PPOHyperParameters struct {
	Name           string  `json:"name"`
	Discount       float64 `json:"discount"`
	GAELambda      float64 `json:"gae_lambda"`
	LRClipRange    float64 `json:"lr_clip_range"`
	PolicyEntCoeff float64 `json:"policy_ent_coeff"`

	OptimizerBatchSize        int     `json:"optimizer_batch_size"`
	OptimizerMaxEpisodeLength int     `json:"optimizer_max_episode_length"`
	OptimizerLearningRate     float64 `json:"optimizer_learning_rate"`

	NEnvs     int `json:"n_envs"`
	NEpochs   int `json:"n_epochs"`
	BatchSize int `json:"batch_size"`
}

// DefaultPPOHyperParameters are the published settings
// of the categorical MLP policy benchmark.
var DefaultPPOHyperParameters = PPOHyperParameters{
	Name:           "CategoricalMLPPolicyBenchmark",
	Discount:       0.99,
	GAELambda:      0.95,
	LRClipRange:    0.2,
	PolicyEntCoeff: 0,

	OptimizerBatchSize:        32,
	OptimizerMaxEpisodeLength: 10,
	OptimizerLearningRate:     1e-3,

	NEnvs:     12,
	NEpochs:   5,
	BatchSize: 2048,
}

// CategoricalMLPPolicy trains a categorical MLP policy
// with PPO, using the default hyperparameters.
func CategoricalMLPPolicy(ctx context.Context, ctxt *garage.ExperimentContext,
	envID string, seed int64) error {
	return CategoricalMLPPolicyWith(ctx, ctxt, envID, seed, DefaultPPOHyperParameters)
}

// CategoricalMLPPolicyWith trains a categorical MLP
// policy with PPO.
func CategoricalMLPPolicyWith(ctx context.Context, ctxt *garage.ExperimentContext,
	envID string, seed int64, hp PPOHyperParameters) error {
	garage.SetSeed(seed)
	trial, err := NewPPOTrial(ctxt, envID, hp)
	if err != nil {
		return err
	}
	return trial.Run(ctx, ctxt)
}

// NewPPOTrial builds the environment, policy, baseline,
// and algorithm of the categorical MLP policy benchmark.
func NewPPOTrial(ctxt *garage.ExperimentContext, envID string,
	hp PPOHyperParameters) (trial *Trial, err error) {
	defer essentials.AddCtxTo("PPO trial", &err)
	rawEnv, err := ctxt.NewEnv(envID)
	if err != nil {
		return nil, err
	}
	env := garage.Normalize(rawEnv, garage.NormalizeOptions{})

	policy, err := garage.NewCategoricalMLPPolicy(ctxt.Creator, env.Spec(),
		garage.CategoricalMLPConfig{
			Name:               "policy",
			HiddenNonlinearity: anynet.Tanh,
		})
	if err != nil {
		env.Close()
		return nil, err
	}
	baseline := garage.NewLinearFeatureBaseline(env.Spec())

	algo := &garage.PPO{
		Name:           hp.Name,
		Policy:         policy,
		Baseline:       baseline,
		DiscountFactor: hp.Discount,
		GAELambda:      hp.GAELambda,
		LRClipRange:    hp.LRClipRange,
		PolicyEntCoeff: hp.PolicyEntCoeff,
		OptimizerArgs: garage.OptimizerArgs{
			BatchSize:        hp.OptimizerBatchSize,
			MaxEpisodeLength: hp.OptimizerMaxEpisodeLength,
			LearningRate:     hp.OptimizerLearningRate,
		},
	}
	return &Trial{
		Algorithm:   algo,
		Env:         env,
		SamplerArgs: garage.SamplerArgs{NEnvs: hp.NEnvs},
		NEpochs:     hp.NEpochs,
		BatchSize:   hp.BatchSize,
	}, nil
}
