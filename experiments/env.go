package experiments

import (
	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anyvec"
)

// historyEnv keeps track of the previous observation and
// concatenates it with the current observation.
type historyEnv struct {
	garage.Env

	spec    *garage.EnvSpec
	lastObs anyvec.Vector
}

func newHistoryEnv(e garage.Env) *historyEnv {
	spec := e.Spec().Copy()
	spec.ObservationSize *= 2
	return &historyEnv{Env: e, spec: spec}
}

func (h *historyEnv) Reset() (anyvec.Vector, error) {
	obs, err := h.Env.Reset()
	h.lastObs = obs
	return h.nextObs(obs), err
}

func (h *historyEnv) Step(action anyvec.Vector) (anyvec.Vector, float64, bool, error) {
	obs, rew, done, err := h.Env.Step(action)
	return h.nextObs(obs), rew, done, err
}

func (h *historyEnv) Spec() *garage.EnvSpec {
	return h.spec
}

func (h *historyEnv) Clone() (garage.Env, error) {
	inner, err := h.Env.Clone()
	if err != nil {
		return nil, err
	}
	return newHistoryEnv(inner), nil
}

func (h *historyEnv) nextObs(obs anyvec.Vector) anyvec.Vector {
	if obs == nil {
		return nil
	}
	res := obs.Creator().Concat(h.lastObs, obs)
	h.lastObs = obs
	return res
}
