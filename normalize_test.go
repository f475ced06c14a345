package garage

import (
	"math"
	"testing"
)

func TestScaleAction(t *testing.T) {
	low := []float64{-2, 0}
	high := []float64{2, 10}
	actual := ScaleAction([]float64{0.5, -3}, low, high, 1)
	expected := []float64{1, 0}
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-12 {
			t.Fatalf("expected %v but got %v", expected, actual)
		}
	}
	actual = ScaleAction([]float64{2, 1}, low, high, 2)
	expected = []float64{2, 7.5}
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-12 {
			t.Fatalf("expected %v but got %v", expected, actual)
		}
	}
}

func TestNormalizedEnvActions(t *testing.T) {
	inner := newLineEnv(false, 10)
	env := Normalize(inner, NormalizeOptions{ExpectedActionScale: 2})
	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	// An action of 1 at scale 2 maps to 0.5 in [-1, 1].
	obs, _, _, err := env.Step(inner.Creator.MakeVectorData([]float64{1}))
	if err != nil {
		t.Fatal(err)
	}
	if x := vecToFloats(obs)[0]; math.Abs(x-1.5) > 1e-12 {
		t.Errorf("expected position 1.5 but got %f", x)
	}
}

func TestNormalizedEnvObs(t *testing.T) {
	inner := newLineEnv(true, 10)
	env := Normalize(inner, NormalizeOptions{NormalizeObs: true, ObsAlpha: 0.5})
	obs, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	// Mean becomes 0.5, variance becomes 0.5*1 + 0.5*0.25.
	expected := 0.5 / math.Sqrt(0.625)
	if x := vecToFloats(obs)[0]; math.Abs(x-expected) > 1e-6 {
		t.Errorf("expected %f but got %f", expected, x)
	}
	mean, variance := env.ObsStats()
	if math.Abs(mean[0]-0.5) > 1e-12 || math.Abs(variance[0]-0.625) > 1e-12 {
		t.Errorf("unexpected stats: %v %v", mean, variance)
	}

	clone, err := env.Clone()
	if err != nil {
		t.Fatal(err)
	}
	mean, _ = clone.(*NormalizedEnv).ObsStats()
	if len(mean) != 0 {
		t.Error("clone should start with fresh statistics")
	}
}

func TestNormalizedEnvReward(t *testing.T) {
	inner := newLineEnv(true, 10)
	env := Normalize(inner, NormalizeOptions{NormalizeReward: true, RewardAlpha: 0.5})
	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	_, rew, _, err := env.Step(inner.Creator.MakeVectorData([]float64{0, 1}))
	if err != nil {
		t.Fatal(err)
	}
	// Mean becomes -1 and variance becomes 0.5*1 + 0.5*1.
	if math.Abs(rew+2) > 1e-6 {
		t.Errorf("unexpected reward: %f", rew)
	}
}
