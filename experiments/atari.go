package experiments

import (
	"errors"
	"strings"

	"github.com/TianhongDai/garage"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

const (
	atariWidth   = 80
	atariHeight  = 105
	atariScale   = 2
	atariRamSize = 128
	atariMaxByte = 255
)

var atariGames = []string{"Pong", "Breakout", "SpaceInvaders", "Seaquest", "Qbert",
	"BeamRider", "Enduro", "MsPacman"}

// isAtariID checks if an environment id names an Atari
// game, such as "Pong-v0" or "Breakout-ram-v4".
func isAtariID(id string) bool {
	for _, game := range atariGames {
		if strings.HasPrefix(id, game+"-") {
			return true
		}
	}
	return false
}

// atariEnv scales RAM observations to [0, 1] and turns
// screen observations into downsampled grayscale frames.
type atariEnv struct {
	garage.Env

	spec *garage.EnvSpec
	ram  bool
}

func newAtariEnv(e garage.Env) (*atariEnv, error) {
	spec := e.Spec().Copy()
	ram := strings.Contains(spec.ID, "-ram")
	if ram {
		if spec.ObservationSize != atariRamSize {
			return nil, errors.New("new atari env: unexpected RAM size")
		}
	} else {
		if spec.ObservationSize != atariWidth*atariHeight*atariScale*atariScale*3 {
			return nil, errors.New("new atari env: unexpected screen size")
		}
		spec.ObservationSize = atariWidth * atariHeight
	}
	return &atariEnv{Env: e, spec: spec, ram: ram}, nil
}

func (a *atariEnv) Reset() (obs anyvec.Vector, err error) {
	obs, err = a.Env.Reset()
	if err != nil {
		return
	}
	obs = a.preprocess(obs)
	return
}

func (a *atariEnv) Step(action anyvec.Vector) (obs anyvec.Vector, reward float64,
	done bool, err error) {
	obs, reward, done, err = a.Env.Step(action)
	if err != nil {
		return
	}
	obs = a.preprocess(obs)
	return
}

func (a *atariEnv) Spec() *garage.EnvSpec {
	return a.spec
}

func (a *atariEnv) Clone() (garage.Env, error) {
	inner, err := a.Env.Clone()
	if err != nil {
		return nil, err
	}
	res, err := newAtariEnv(inner)
	if err != nil {
		inner.Close()
		return nil, err
	}
	return res, nil
}

func (a *atariEnv) preprocess(obs anyvec.Vector) anyvec.Vector {
	if a.ram {
		res := obs.Copy()
		res.Scale(res.Creator().MakeNumeric(1.0 / atariMaxByte))
		return res
	}
	return downsampleAtariObs(obs)
}

func downsampleAtariObs(obs anyvec.Vector) anyvec.Vector {
	comps := obsComponents(obs)
	newComps := make([]float64, 0, atariWidth*atariHeight)
	for y := 0; y < atariHeight; y++ {
		for x := 0; x < atariWidth; x++ {
			idx := 3 * atariScale * (y*atariWidth*atariScale + x)
			var sum float64
			for z := 0; z < 3; z++ {
				sum += comps[idx+z]
			}
			newComps = append(newComps, essentials.Round(sum/3)/atariMaxByte)
		}
	}
	return obs.Creator().MakeVectorData(obs.Creator().MakeNumericList(newComps))
}

func obsComponents(obs anyvec.Vector) []float64 {
	switch data := obs.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic("unsupported numeric type")
	}
}
