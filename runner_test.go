package garage

import (
	"context"
	"errors"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestLocalRunnerTRPO(t *testing.T) {
	SetSeed(1337)
	env := newLineEnv(false, 100)
	algo := testingTRPO(t, env.Spec())
	algo.MaxEpisodeLength = 4

	runner := NewLocalRunner(nil)
	defer runner.Close()
	if err := runner.Setup(algo, env, SamplerArgs{NEnvs: 2}); err != nil {
		t.Fatal(err)
	}
	if *env.clones != 1 {
		t.Errorf("expected 1 clone but got %d", *env.clones)
	}

	rollouts, _, err := GatherRollouts(context.Background(), &Roller{Policy: algo.Policy},
		runner.envs, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, seq := range rollouts.Rewards {
		if len(seq) != 4 {
			t.Fatalf("expected capped episodes of length 4, got %d", len(seq))
		}
	}

	ret, err := runner.Train(context.Background(), 2, 16)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(ret) || ret >= 0 {
		t.Errorf("unexpected mean return: %f", ret)
	}
	if algo.Baseline.Coeffs() == nil {
		t.Error("baseline should be fit")
	}
}

func TestLocalRunnerPPO(t *testing.T) {
	SetSeed(1337)
	c := anyvec64.DefaultCreator{}
	env := newLineEnv(true, 6)
	policy, err := NewCategoricalMLPPolicy(c, env.Spec(), CategoricalMLPConfig{
		HiddenSizes: []int{8},
	})
	if err != nil {
		t.Fatal(err)
	}
	oldParams := vecToFloats(policy.Parameters()[0].Vector)
	algo := &PPO{
		Name:           "test",
		Policy:         policy,
		Baseline:       NewLinearFeatureBaseline(env.Spec()),
		GAELambda:      0.95,
		PolicyEntCoeff: 0.01,
		OptimizerArgs: OptimizerArgs{
			BatchSize:             12,
			MaxOptimizationEpochs: 3,
		},
	}
	runner := NewLocalRunner(nil)
	defer runner.Close()
	if err := runner.Setup(algo, env, SamplerArgs{NEnvs: 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Train(context.Background(), 2, 30); err != nil {
		t.Fatal(err)
	}
	newParams := vecToFloats(policy.Parameters()[0].Vector)
	changed := false
	for i, x := range oldParams {
		if x != newParams[i] {
			changed = true
		}
	}
	if !changed {
		t.Error("policy parameters did not change")
	}
}

func TestLocalRunnerSeedRepeats(t *testing.T) {
	run := func() (float64, []float64) {
		SetSeed(42)
		env := newLineEnv(false, 100)
		algo := testingTRPO(t, env.Spec())
		runner := NewLocalRunner(nil)
		defer runner.Close()
		if err := runner.Setup(algo, env, SamplerArgs{NEnvs: 1}); err != nil {
			t.Fatal(err)
		}
		ret, err := runner.Train(context.Background(), 2, 20)
		if err != nil {
			t.Fatal(err)
		}
		var params []float64
		for _, p := range algo.Policy.Parameters() {
			params = append(params, vecToFloats(p.Vector)...)
		}
		return ret, params
	}
	ret1, params1 := run()
	ret2, params2 := run()
	if ret1 != ret2 {
		t.Errorf("returns differ: %f and %f", ret1, ret2)
	}
	if len(params1) != len(params2) {
		t.Fatalf("parameter counts differ: %d and %d", len(params1), len(params2))
	}
	for i, x := range params1 {
		if x != params2[i] {
			t.Fatalf("parameter %d differs: %f and %f", i, x, params2[i])
		}
	}
}

func TestLocalRunnerErrors(t *testing.T) {
	env := newLineEnv(false, 5)
	algo := testingTRPO(t, env.Spec())

	runner := NewLocalRunner(nil)
	if _, err := runner.Train(context.Background(), 1, 10); err == nil {
		t.Error("expected error before setup")
	}
	if err := runner.Setup(algo, newLineEnv(true, 5), SamplerArgs{}); err == nil {
		t.Error("expected spec mismatch error")
	}
	if err := runner.Setup(algo, env, SamplerArgs{}); err != nil {
		t.Fatal(err)
	}
	if err := runner.Setup(algo, env, SamplerArgs{}); err == nil {
		t.Error("expected error for second setup")
	}
	if _, err := runner.Train(context.Background(), 0, 10); err == nil {
		t.Error("expected error for zero epochs")
	}
	if _, err := runner.Train(context.Background(), 1, 0); err == nil {
		t.Error("expected error for zero batch size")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Train(ctx, 1, 10); err == nil {
		t.Error("expected error for canceled context")
	}
	if err := runner.Close(); err != nil {
		t.Fatal(err)
	}
	if *env.closed != 1 {
		t.Errorf("expected 1 close but got %d", *env.closed)
	}
	if err := runner.Close(); err != nil {
		t.Error(err)
	}

	failing := newLineEnv(false, 5)
	failing.cloneErr = errors.New("no more envs")
	runner = NewLocalRunner(nil)
	if err := runner.Setup(testingTRPO(t, failing.Spec()), failing,
		SamplerArgs{NEnvs: 3}); err == nil {
		t.Error("expected clone error")
	}
}

func TestLocalRunnerSnapshots(t *testing.T) {
	SetSeed(1337)
	logDir := t.TempDir()
	var savedParams []float64
	var expDir string
	err := WrapExperiment(ExperimentConfig{
		Name:         "trpo_line",
		LogDir:       logDir,
		SnapshotMode: SnapshotAll,
		Creator:      anyvec64.DefaultCreator{},
		MakeEnv: func(c anyvec.Creator, id string) (Env, error) {
			return newLineEnv(false, 5), nil
		},
		Variant: map[string]int{"batch_size": 10},
	}, func(ctxt *ExperimentContext) error {
		expDir = ctxt.SnapshotDir
		env, err := ctxt.NewEnv("Line-v0")
		if err != nil {
			return err
		}
		algo := testingTRPO(t, env.Spec())
		runner := NewLocalRunner(ctxt)
		defer runner.Close()
		if err := runner.Setup(algo, env, SamplerArgs{}); err != nil {
			return err
		}
		if _, err := runner.Train(context.Background(), 2, 10); err != nil {
			return err
		}
		for _, p := range anynet.AllParameters(algo.Policy.Block) {
			savedParams = append(savedParams, vecToFloats(p.Vector)...)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"params_0", "params_1", "params_1.json", "variant.json",
		"debug.log"} {
		if _, err := os.Stat(filepath.Join(expDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	progress, err := ioutil.ReadFile(filepath.Join(expDir, ProgressFileName))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(progress)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Epoch,TotalEnvSteps,") {
		t.Errorf("unexpected progress file: %q", progress)
	}

	env := newLineEnv(false, 5)
	algo := testingTRPO(t, env.Spec())
	runner := NewLocalRunner(&ExperimentContext{
		Name:         "trpo_line",
		SnapshotDir:  expDir,
		SnapshotMode: SnapshotNone,
		SnapshotGap:  1,
	})
	defer runner.Close()
	if err := runner.Setup(algo, env, SamplerArgs{}); err != nil {
		t.Fatal(err)
	}
	if err := runner.Restore(expDir); err != nil {
		t.Fatal(err)
	}
	if runner.startEpoch != 2 {
		t.Errorf("expected to resume at epoch 2, got %d", runner.startEpoch)
	}
	var restored []float64
	for _, p := range anynet.AllParameters(algo.Policy.Block) {
		restored = append(restored, vecToFloats(p.Vector)...)
	}
	for i, x := range savedParams {
		if math.Abs(restored[i]-x) > 1e-6 {
			t.Fatal("restored parameters do not match")
		}
	}
	if algo.Baseline.Coeffs() == nil {
		t.Error("baseline coefficients were not restored")
	}

	if _, err := runner.Train(context.Background(), 1, 10); err != nil {
		t.Fatal(err)
	}
	progress, err = ioutil.ReadFile(filepath.Join(expDir, ProgressFileName))
	if err != nil {
		t.Fatal(err)
	}
	lines = strings.Split(strings.TrimSpace(string(progress)), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[3], "2,") {
		t.Errorf("resumed epoch should be appended: %q", progress)
	}
}

func testingTRPO(t *testing.T, spec *EnvSpec) *TRPO {
	policy, err := NewGaussianMLPPolicy(anyvec64.DefaultCreator{}, spec,
		GaussianMLPConfig{HiddenSizes: []int{8}})
	if err != nil {
		t.Fatal(err)
	}
	return &TRPO{
		Policy:           policy,
		Baseline:         NewLinearFeatureBaseline(spec),
		MaxEpisodeLength: 5,
		GAELambda:        0.97,
	}
}
