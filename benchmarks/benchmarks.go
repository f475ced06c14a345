// Package benchmarks defines reproducible training runs
// and runs them over sets of environments and seeds.
package benchmarks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// An Experiment trains on one environment with one seed.
type Experiment func(ctx context.Context, ctxt *garage.ExperimentContext, envID string,
	seed int64) error

// Benchmarks maps benchmark names to experiments.
var Benchmarks = map[string]Experiment{
	"trpo_garage_tf":         TRPOGarageTF,
	"categorical_mlp_policy": CategoricalMLPPolicy,
}

// Variants maps benchmark names to the hyperparameters
// recorded for each trial.
var Variants = map[string]interface{}{
	"trpo_garage_tf":         DefaultTRPOHyperParameters,
	"categorical_mlp_policy": DefaultPPOHyperParameters,
}

// Names returns the sorted benchmark names.
func Names() []string {
	var res []string
	for name := range Benchmarks {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// A Trial is a fully constructed training run.
type Trial struct {
	Algorithm   garage.Algorithm
	Env         garage.Env
	SamplerArgs garage.SamplerArgs
	NEpochs     int
	BatchSize   int
}

// Run trains the trial's algorithm with a LocalRunner.
//
// The runner owns the environment once Run is called.
func (t *Trial) Run(ctx context.Context, ctxt *garage.ExperimentContext) (err error) {
	runner := garage.NewLocalRunner(ctxt)
	defer func() {
		if closeErr := runner.Close(); err == nil {
			err = closeErr
		}
	}()
	if err := runner.Setup(t.Algorithm, t.Env, t.SamplerArgs); err != nil {
		t.Env.Close()
		return err
	}
	_, err = runner.Train(ctx, t.NEpochs, t.BatchSize)
	return err
}

// Options configures Run.
type Options struct {
	// LogDir is the parent of every experiment directory.
	LogDir string

	SnapshotMode garage.SnapshotMode
	SnapshotGap  int

	MakeEnv garage.EnvMaker

	// Creator is passed to garage.ExperimentConfig.
	Creator anyvec.Creator
}

// Run runs a benchmark once for every environment and
// seed.
//
// Each trial gets its own experiment directory, named
// after the benchmark, the environment, and the seed.
func Run(ctx context.Context, name string, envIDs []string, seeds []int64,
	opts Options) (err error) {
	defer essentials.AddCtxTo("run benchmark "+name, &err)
	experiment, ok := Benchmarks[name]
	if !ok {
		return errors.New("unknown benchmark")
	}
	if len(envIDs) == 0 || len(seeds) == 0 {
		return errors.New("no environments or seeds")
	}
	for _, envID := range envIDs {
		for _, seed := range seeds {
			log.Printf("Running %s on %s with seed %d", name, envID, seed)
			cfg := garage.ExperimentConfig{
				Name:         fmt.Sprintf("%s_%s_%d", name, envID, seed),
				LogDir:       opts.LogDir,
				SnapshotMode: opts.SnapshotMode,
				SnapshotGap:  opts.SnapshotGap,
				MakeEnv:      opts.MakeEnv,
				Creator:      opts.Creator,
				Variant:      Variants[name],
			}
			err := garage.WrapExperiment(cfg, func(ctxt *garage.ExperimentContext) error {
				return experiment(ctx, ctxt, envID, seed)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
