package experiments

import (
	"testing"

	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

type counterEnv struct {
	count float64
}

func (c *counterEnv) Reset() (anyvec.Vector, error) {
	c.count = 0
	return c.obs(), nil
}

func (c *counterEnv) Step(action anyvec.Vector) (anyvec.Vector, float64, bool, error) {
	c.count++
	return c.obs(), 1, false, nil
}

func (c *counterEnv) Close() error {
	return nil
}

func (c *counterEnv) Spec() *garage.EnvSpec {
	return &garage.EnvSpec{ObservationSize: 1, ActionSize: 2, Discrete: true}
}

func (c *counterEnv) Clone() (garage.Env, error) {
	return &counterEnv{}, nil
}

func (c *counterEnv) obs() anyvec.Vector {
	return anyvec64.DefaultCreator{}.MakeVectorData([]float64{c.count})
}

func TestHistoryEnv(t *testing.T) {
	env := newHistoryEnv(&counterEnv{})
	if env.Spec().ObservationSize != 2 {
		t.Errorf("expected observation size 2 but got %d", env.Spec().ObservationSize)
	}
	obs, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	expected := [][]float64{{0, 0}, {0, 1}, {1, 2}}
	for i, exp := range expected {
		actual := obs.Data().([]float64)
		if actual[0] != exp[0] || actual[1] != exp[1] {
			t.Fatalf("step %d: expected %v but got %v", i, exp, actual)
		}
		obs, _, _, err = env.Step(nil)
		if err != nil {
			t.Fatal(err)
		}
	}

	clone, err := env.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if clone.Spec().ObservationSize != 2 {
		t.Error("clone should keep history")
	}
}
