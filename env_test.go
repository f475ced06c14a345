package garage

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

// lineEnv is a point on a line which the agent tries to
// keep at the origin.
type lineEnv struct {
	Creator  anyvec.Creator
	Discrete bool
	Length   int

	position float64
	steps    int

	closed   *int32
	clones   *int32
	cloneErr error
}

func newLineEnv(discrete bool, length int) *lineEnv {
	return &lineEnv{
		Creator:  anyvec64.DefaultCreator{},
		Discrete: discrete,
		Length:   length,
		closed:   new(int32),
		clones:   new(int32),
	}
}

func (l *lineEnv) Reset() (anyvec.Vector, error) {
	l.position = 1
	l.steps = 0
	return l.obs(), nil
}

func (l *lineEnv) Step(action anyvec.Vector) (anyvec.Vector, float64, bool, error) {
	values := vecToFloats(action)
	if l.Discrete {
		if len(values) != 2 {
			return nil, 0, false, errors.New("bad action size")
		}
		if values[0] > values[1] {
			l.position--
		} else {
			l.position++
		}
	} else {
		if len(values) != 1 {
			return nil, 0, false, errors.New("bad action size")
		}
		l.position += math.Max(-1, math.Min(1, values[0]))
	}
	l.steps++
	return l.obs(), -math.Abs(l.position), l.steps >= l.Length, nil
}

func (l *lineEnv) Close() error {
	atomic.AddInt32(l.closed, 1)
	return nil
}

func (l *lineEnv) Spec() *EnvSpec {
	if l.Discrete {
		return &EnvSpec{ID: "Line-v0", ObservationSize: 1, ActionSize: 2, Discrete: true}
	}
	return &EnvSpec{
		ID:              "Line-v0",
		ObservationSize: 1,
		ActionSize:      1,
		Low:             []float64{-1},
		High:            []float64{1},
	}
}

func (l *lineEnv) Clone() (Env, error) {
	if l.cloneErr != nil {
		return nil, l.cloneErr
	}
	atomic.AddInt32(l.clones, 1)
	res := *l
	return &res, nil
}

func (l *lineEnv) obs() anyvec.Vector {
	return l.Creator.MakeVectorData([]float64{l.position})
}

func TestEnvSpecValidate(t *testing.T) {
	good := newLineEnv(false, 5).Spec()
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}
	bad := []*EnvSpec{
		{ObservationSize: 0, ActionSize: 1, Discrete: true},
		{ObservationSize: 1, ActionSize: 0, Discrete: true},
		{ObservationSize: 1, ActionSize: 2, Low: []float64{0}, High: []float64{1}},
		{ObservationSize: 1, ActionSize: 1, Low: []float64{1}, High: []float64{0}},
	}
	for i, spec := range bad {
		if spec.Validate() == nil {
			t.Errorf("spec %d: expected error", i)
		}
	}
	if good.PolicyOutSize() != 2 {
		t.Errorf("unexpected Gaussian out size: %d", good.PolicyOutSize())
	}
	if n := newLineEnv(true, 5).Spec().PolicyOutSize(); n != 2 {
		t.Errorf("unexpected categorical out size: %d", n)
	}
}

func TestCapEpisodes(t *testing.T) {
	inner := newLineEnv(true, 100)
	env := CapEpisodes(inner, 3)
	action := inner.Creator.MakeVectorData([]float64{0, 1})
	for ep := 0; ep < 2; ep++ {
		if _, err := env.Reset(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 3; i++ {
			_, _, done, err := env.Step(action)
			if err != nil {
				t.Fatal(err)
			}
			if done != (i == 2) {
				t.Fatalf("episode %d step %d: done=%v", ep, i, done)
			}
		}
	}
	if CapEpisodes(inner, 0) != Env(inner) {
		t.Error("zero cap should not wrap")
	}
	clone, err := env.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := clone.(*cappedEnv); !ok {
		t.Errorf("clone should be capped, got %T", clone)
	}
}
