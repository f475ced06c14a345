package garage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/unixpickle/essentials"
	"golang.org/x/sync/errgroup"
)

// ProgressFileName is the name of the per-epoch CSV log
// inside an experiment directory.
const ProgressFileName = "progress.csv"

// SamplerArgs configures how a LocalRunner samples.
type SamplerArgs struct {
	// NEnvs is the number of environments stepped in
	// parallel.
	//
	// If 0, 1 is used.
	NEnvs int
}

// A LocalRunner trains an Algorithm in the current
// process, sampling from a set of environment copies.
type LocalRunner struct {
	ctxt *ExperimentContext

	algo    Algorithm
	envs    []Env
	roller  *Roller
	snapper *Snapshotter
	tabular *TabularLog

	startEpoch    int
	totalEnvSteps int
}

// NewLocalRunner creates a runner that writes its
// outputs to the experiment directory.
//
// If ctxt is nil, nothing is written to disk.
func NewLocalRunner(ctxt *ExperimentContext) *LocalRunner {
	return &LocalRunner{ctxt: ctxt}
}

// Setup attaches an algorithm and an environment.
//
// The runner takes ownership of env, creating clones of
// it for extra samplers.
func (l *LocalRunner) Setup(algo Algorithm, env Env, args SamplerArgs) (err error) {
	defer essentials.AddCtxTo("setup runner", &err)
	if l.algo != nil {
		return errors.New("runner is already set up")
	}
	policy, baseline := algo.Agent()
	if policy == nil || baseline == nil {
		return errors.New("algorithm has no policy or baseline")
	}
	if err := checkSpecs(policy.Spec, env.Spec()); err != nil {
		return err
	}

	numEnvs := args.NEnvs
	if numEnvs <= 0 {
		numEnvs = 1
	}
	envs := make([]Env, numEnvs)
	envs[0] = env
	var g errgroup.Group
	for i := 1; i < numEnvs; i++ {
		i := i
		g.Go(func() error {
			clone, err := env.Clone()
			if err != nil {
				return err
			}
			envs[i] = clone
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, e := range envs[1:] {
			if e != nil {
				e.Close()
			}
		}
		return err
	}
	for i, e := range envs {
		envs[i] = CapEpisodes(e, algo.EpisodeCap())
	}

	l.algo = algo
	l.envs = envs
	l.roller = &Roller{Policy: policy}
	if l.ctxt != nil {
		l.snapper = &Snapshotter{
			Dir:  l.ctxt.SnapshotDir,
			Mode: l.ctxt.SnapshotMode,
			Gap:  l.ctxt.SnapshotGap,
		}
	}
	return nil
}

// Restore loads the latest snapshot from a directory and
// continues from the epoch after it.
//
// It must be called after Setup.
func (l *LocalRunner) Restore(dir string) (err error) {
	defer essentials.AddCtxTo("restore runner", &err)
	if l.algo == nil {
		return errors.New("runner is not set up")
	}
	snap, err := LoadSnapshot(dir)
	if err != nil {
		return err
	}
	policy, baseline := l.algo.Agent()
	if err := snap.RestorePolicy(policy); err != nil {
		return err
	}
	if err := baseline.SetCoeffs(snap.BaselineCoeffs); err != nil {
		return err
	}
	l.startEpoch = snap.Epoch + 1
	l.totalEnvSteps = snap.TotalEnvSteps
	log.Printf("Restored epoch %d from %s", snap.Epoch, dir)
	return nil
}

// Train runs nEpochs epochs, each gathering at least
// batchSize timesteps.
//
// It returns the mean undiscounted return of the last
// epoch.
func (l *LocalRunner) Train(ctx context.Context, nEpochs, batchSize int) (lastReturn float64,
	err error) {
	defer essentials.AddCtxTo("train", &err)
	if l.algo == nil {
		return 0, errors.New("runner is not set up")
	}
	if nEpochs <= 0 || batchSize <= 0 {
		return 0, errors.New("epoch count and batch size must be positive")
	}
	if l.ctxt != nil && l.tabular == nil {
		tab, err := CreateTabularLog(filepath.Join(l.ctxt.SnapshotDir, ProgressFileName))
		if err != nil {
			return 0, err
		}
		l.tabular = tab
	}

	policy, baseline := l.algo.Agent()
	endEpoch := l.startEpoch + nEpochs
	for epoch := l.startEpoch; epoch < endEpoch; epoch++ {
		if err := ctx.Err(); err != nil {
			return lastReturn, err
		}
		rollouts, entropy, err := GatherRollouts(ctx, l.roller, l.envs, batchSize)
		if err != nil {
			return lastReturn, err
		}
		returns := ComputeReturnStats(rollouts, l.algo.Discount())
		l.totalEnvSteps += returns.NumSteps
		lastReturn = returns.Mean

		algoStats, err := l.algo.TrainOnce(epoch, rollouts)
		if err != nil {
			return lastReturn, err
		}

		stats := TrainStats{
			{Name: "Epoch", Value: float64(epoch)},
			{Name: "TotalEnvSteps", Value: float64(l.totalEnvSteps)},
			{Name: "NumEpisodes", Value: float64(returns.NumEpisodes)},
			{Name: "AverageReturn", Value: returns.Mean},
			{Name: "StdReturn", Value: returns.Std},
			{Name: "MaxReturn", Value: returns.Max},
			{Name: "MinReturn", Value: returns.Min},
			{Name: "AverageDiscountedReturn", Value: returns.Discounted},
			{Name: "Entropy", Value: entropy},
		}
		stats = append(stats, algoStats...)
		log.Printf("epoch %d: %s", epoch, formatStats(stats[1:]))

		if l.tabular != nil {
			if err := l.tabular.Record(stats); err != nil {
				return lastReturn, err
			}
		}
		if l.snapper != nil {
			snap := &Snapshot{
				SnapshotMeta: SnapshotMeta{
					Epoch:          epoch,
					TotalEnvSteps:  l.totalEnvSteps,
					AverageReturn:  returns.Mean,
					BaselineCoeffs: baseline.Coeffs(),
				},
				Policy: policy.Block,
			}
			if err := l.snapper.Save(snap); err != nil {
				return lastReturn, err
			}
		}
		l.startEpoch = epoch + 1
	}
	return lastReturn, nil
}

// Close closes the environments and the progress log.
func (l *LocalRunner) Close() error {
	var firstErr error
	for _, e := range l.envs {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.envs = nil
	if l.tabular != nil {
		if err := l.tabular.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		l.tabular = nil
	}
	return firstErr
}

func checkSpecs(policySpec, envSpec *EnvSpec) error {
	if err := envSpec.Validate(); err != nil {
		return err
	}
	if policySpec.ObservationSize != envSpec.ObservationSize ||
		policySpec.ActionSize != envSpec.ActionSize ||
		policySpec.Discrete != envSpec.Discrete {
		return errors.New("policy does not match environment spaces")
	}
	return nil
}

func formatStats(stats TrainStats) string {
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = fmt.Sprintf("%s=%g", s.Name, s.Value)
	}
	return strings.Join(parts, " ")
}
