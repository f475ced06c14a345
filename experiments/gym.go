package experiments

import (
	"errors"

	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	gym "github.com/unixpickle/gym-socket-api/binding-go"
)

// GymMaker creates a garage.EnvMaker which connects to
// gym-socket-api.
//
// Atari games are preprocessed so that their observations
// suit an MLP policy.
func GymMaker(e *EnvFlags) garage.EnvMaker {
	return func(c anyvec.Creator, id string) (garage.Env, error) {
		env, err := GymEnv(c, e, id)
		if err != nil {
			return nil, err
		}
		if isAtariID(id) {
			atari, err := newAtariEnv(env)
			if err != nil {
				env.Close()
				return nil, err
			}
			env = atari
		}
		if e.History {
			return newHistoryEnv(env), nil
		}
		return env, nil
	}
}

type gymEnv struct {
	anyrl.Env
	client gym.Env
	spec   *garage.EnvSpec

	creator anyvec.Creator
	flags   EnvFlags
}

// GymEnv connects to a new gym-socket-api environment.
//
// If e.RecordDir is set, a monitor is started for this
// environment, but not for its clones.
func GymEnv(c anyvec.Creator, e *EnvFlags, id string) (env garage.Env, err error) {
	defer essentials.AddCtxTo("create gym env "+id, &err)
	client, err := gym.Make(e.GymHost, id)
	if err != nil {
		return nil, err
	}
	if e.RecordDir != "" {
		err = client.Monitor(e.RecordDir, false, false, false)
		if err != nil {
			client.Close()
			return nil, err
		}
	}
	spec, err := gymSpec(client, id)
	if err != nil {
		client.Close()
		return nil, err
	}
	inner, err := anyrl.GymEnv(c, client, e.GymRender)
	if err != nil {
		client.Close()
		return nil, err
	}
	flags := *e
	flags.RecordDir = ""
	return &gymEnv{
		Env:     inner,
		client:  client,
		spec:    spec,
		creator: c,
		flags:   flags,
	}, nil
}

func (g *gymEnv) Spec() *garage.EnvSpec {
	return g.spec
}

func (g *gymEnv) Clone() (garage.Env, error) {
	return GymEnv(g.creator, &g.flags, g.spec.ID)
}

func (g *gymEnv) Close() error {
	return g.client.Close()
}

func gymSpec(client gym.Env, id string) (*garage.EnvSpec, error) {
	actSpace, err := client.ActionSpace()
	if err != nil {
		return nil, err
	}
	obsSpace, err := client.ObservationSpace()
	if err != nil {
		return nil, err
	}
	spec := &garage.EnvSpec{ID: id}
	switch actSpace.Type {
	case "Discrete":
		spec.Discrete = true
		spec.ActionSize = actSpace.N
	case "Box":
		spec.ActionSize = len(actSpace.Low)
		spec.Low = append([]float64{}, actSpace.Low...)
		spec.High = append([]float64{}, actSpace.High...)
	default:
		return nil, errors.New("unsupported action space: " + actSpace.Type)
	}
	switch obsSpace.Type {
	case "Discrete":
		spec.ObservationSize = obsSpace.N
	case "Box":
		spec.ObservationSize = 1
		for _, x := range obsSpace.Shape {
			spec.ObservationSize *= x
		}
	default:
		return nil, errors.New("unsupported observation space: " + obsSpace.Type)
	}
	return spec, spec.Validate()
}
