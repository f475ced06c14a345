package benchmarks

import (
	"context"

	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/essentials"
)

// TRPOHyperParameters configures the TRPO benchmark.
type TRPOHyperParameters struct {
	HiddenSizes      []int   `json:"hidden_sizes"`
	MaxKL            float64 `json:"max_kl"`
	GAELambda        float64 `json:"gae_lambda"`
	Discount         float64 `json:"discount"`
	MaxEpisodeLength int     `json:"max_episode_length"`
	NEpochs          int     `json:"n_epochs"`
	BatchSize        int     `json:"batch_size"`
}

// DefaultTRPOHyperParameters are the published settings
// of the TRPO benchmark.
var DefaultTRPOHyperParameters = TRPOHyperParameters{
	HiddenSizes:      []int{32, 32},
	MaxKL:            0.01,
	GAELambda:        0.97,
	Discount:         0.99,
	MaxEpisodeLength: 100,
	NEpochs:          999,
	BatchSize:        1024,
}

// TRPOGarageTF trains a Gaussian MLP policy with TRPO,
// using the default hyperparameters.
func TRPOGarageTF(ctx context.Context, ctxt *garage.ExperimentContext, envID string,
	seed int64) error {
	return TRPOGarage(ctx, ctxt, envID, seed, DefaultTRPOHyperParameters)
}

// TRPOGarage trains a Gaussian MLP policy with TRPO.
func TRPOGarage(ctx context.Context, ctxt *garage.ExperimentContext, envID string,
	seed int64, hp TRPOHyperParameters) error {
	garage.SetSeed(seed)
	trial, err := NewTRPOTrial(ctxt, envID, hp)
	if err != nil {
		return err
	}
	return trial.Run(ctx, ctxt)
}

// NewTRPOTrial builds the environment, policy, baseline,
// and algorithm of the TRPO benchmark.
func NewTRPOTrial(ctxt *garage.ExperimentContext, envID string,
	hp TRPOHyperParameters) (trial *Trial, err error) {
	defer essentials.AddCtxTo("TRPO trial", &err)
	rawEnv, err := ctxt.NewEnv(envID)
	if err != nil {
		return nil, err
	}
	env := garage.Normalize(rawEnv, garage.NormalizeOptions{})

	policy, err := garage.NewGaussianMLPPolicy(ctxt.Creator, env.Spec(),
		garage.GaussianMLPConfig{
			Name:               "policy",
			HiddenSizes:        hp.HiddenSizes,
			HiddenNonlinearity: anynet.Tanh,
		})
	if err != nil {
		env.Close()
		return nil, err
	}
	baseline := garage.NewLinearFeatureBaseline(env.Spec())

	algo := &garage.TRPO{
		Policy:           policy,
		Baseline:         baseline,
		MaxEpisodeLength: hp.MaxEpisodeLength,
		DiscountFactor:   hp.Discount,
		GAELambda:        hp.GAELambda,
		MaxKLStep:        hp.MaxKL,
	}
	return &Trial{
		Algorithm: algo,
		Env:       env,
		NEpochs:   hp.NEpochs,
		BatchSize: hp.BatchSize,
	}, nil
}
