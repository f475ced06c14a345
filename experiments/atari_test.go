package experiments

import (
	"math"
	"testing"

	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

type constEnv struct {
	id    string
	size  int
	value float64
}

func (c *constEnv) Reset() (anyvec.Vector, error) {
	return c.obs(), nil
}

func (c *constEnv) Step(action anyvec.Vector) (anyvec.Vector, float64, bool, error) {
	return c.obs(), 1, false, nil
}

func (c *constEnv) Close() error {
	return nil
}

func (c *constEnv) Spec() *garage.EnvSpec {
	return &garage.EnvSpec{ID: c.id, ObservationSize: c.size, ActionSize: 6, Discrete: true}
}

func (c *constEnv) Clone() (garage.Env, error) {
	res := *c
	return &res, nil
}

func (c *constEnv) obs() anyvec.Vector {
	data := make([]float64, c.size)
	for i := range data {
		data[i] = c.value
	}
	return anyvec64.DefaultCreator{}.MakeVectorData(data)
}

func TestAtariEnvRAM(t *testing.T) {
	env, err := newAtariEnv(&constEnv{id: "Pong-ram-v0", size: 128, value: 51})
	if err != nil {
		t.Fatal(err)
	}
	if env.Spec().ObservationSize != 128 {
		t.Errorf("unexpected observation size: %d", env.Spec().ObservationSize)
	}
	obs, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range obs.Data().([]float64) {
		if math.Abs(x-0.2) > 1e-12 {
			t.Fatalf("expected 0.2 but got %f", x)
		}
	}
}

func TestAtariEnvScreen(t *testing.T) {
	env, err := newAtariEnv(&constEnv{id: "Breakout-v0", size: 210 * 160 * 3, value: 102})
	if err != nil {
		t.Fatal(err)
	}
	if env.Spec().ObservationSize != 80*105 {
		t.Errorf("unexpected observation size: %d", env.Spec().ObservationSize)
	}
	obs, _, _, err := env.Step(nil)
	if err != nil {
		t.Fatal(err)
	}
	data := obs.Data().([]float64)
	if len(data) != 80*105 {
		t.Fatalf("expected %d components but got %d", 80*105, len(data))
	}
	for _, x := range data {
		if math.Abs(x-0.4) > 1e-12 {
			t.Fatalf("expected 0.4 but got %f", x)
		}
	}

	clone, err := env.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if clone.Spec().ObservationSize != 80*105 {
		t.Error("clone should be preprocessed")
	}

	if _, err := newAtariEnv(&constEnv{id: "Pong-v0", size: 10}); err == nil {
		t.Error("expected screen size error")
	}
}

func TestIsAtariID(t *testing.T) {
	for _, id := range []string{"Pong-v0", "Breakout-ram-v4", "MsPacman-ram-v0"} {
		if !isAtariID(id) {
			t.Errorf("%s should be an Atari id", id)
		}
	}
	for _, id := range []string{"CartPole-v1", "Pendulum-v0", "PongNoFrameskip"} {
		if isAtariID(id) {
			t.Errorf("%s should not be an Atari id", id)
		}
	}
}
