package garage

import (
	"errors"
	"io"

	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyvec"
)

// Env is an environment that a LocalRunner can sample
// from.
//
// Besides stepping, an Env describes its spaces and can
// produce independent copies of itself, one for each
// sampler worker.
type Env interface {
	anyrl.Env
	io.Closer

	Spec() *EnvSpec
	Clone() (Env, error)
}

// An EnvMaker creates an environment from an id such as
// "CartPole-v1".
// Observations are produced with the given creator.
type EnvMaker func(c anyvec.Creator, id string) (Env, error)

// EnvSpec describes the observation and action spaces of
// an environment.
type EnvSpec struct {
	// ID is the environment id, if known.
	ID string

	// ObservationSize is the length of observation
	// vectors.
	// Discrete observations are one-hot encoded.
	ObservationSize int

	// ActionSize is the number of discrete actions, or
	// the dimensionality of continuous actions.
	ActionSize int

	// Discrete is true for discrete action spaces.
	Discrete bool

	// Low and High bound each action dimension.
	// They are only set for continuous action spaces.
	Low  []float64
	High []float64
}

// Validate checks that the spec is usable.
func (e *EnvSpec) Validate() error {
	if e.ObservationSize <= 0 {
		return errors.New("validate env spec: empty observation space")
	}
	if e.ActionSize <= 0 {
		return errors.New("validate env spec: empty action space")
	}
	if !e.Discrete {
		if len(e.Low) != e.ActionSize || len(e.High) != e.ActionSize {
			return errors.New("validate env spec: action bounds do not match action size")
		}
		for i, low := range e.Low {
			if low > e.High[i] {
				return errors.New("validate env spec: inverted action bounds")
			}
		}
	}
	return nil
}

// PolicyOutSize is the number of distribution parameters
// a policy must produce for each timestep.
func (e *EnvSpec) PolicyOutSize() int {
	if e.Discrete {
		return e.ActionSize
	}
	return 2 * e.ActionSize
}

// Copy creates a deep copy of the spec.
func (e *EnvSpec) Copy() *EnvSpec {
	res := *e
	res.Low = append([]float64(nil), e.Low...)
	res.High = append([]float64(nil), e.High...)
	return &res
}

// CloseEnvs closes every environment in the list.
func CloseEnvs(envs []Env) {
	for _, e := range envs {
		e.Close()
	}
}

// cappedEnv ends episodes after a fixed number of steps.
type cappedEnv struct {
	anyrl.MaxStepsEnv
	inner Env
}

// CapEpisodes wraps an environment so that episodes end
// after maxSteps timesteps.
// If maxSteps is not positive, e is returned as-is.
func CapEpisodes(e Env, maxSteps int) Env {
	if maxSteps <= 0 {
		return e
	}
	return &cappedEnv{
		MaxStepsEnv: anyrl.MaxStepsEnv{Env: e, MaxSteps: maxSteps},
		inner:       e,
	}
}

func (c *cappedEnv) Close() error {
	return c.inner.Close()
}

func (c *cappedEnv) Spec() *EnvSpec {
	return c.inner.Spec()
}

func (c *cappedEnv) Clone() (Env, error) {
	clone, err := c.inner.Clone()
	if err != nil {
		return nil, err
	}
	return CapEpisodes(clone, c.MaxSteps), nil
}
