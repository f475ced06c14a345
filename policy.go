package garage

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyvec"
)

// DefaultHiddenSizes is the default MLP architecture for
// both policy types.
var DefaultHiddenSizes = []int{32, 32}

// ActionSpace is used to parameterize actions for an
// environment.
type ActionSpace interface {
	anyrl.ActionSpace
	anyrl.Entropyer
}

// A Policy is a feed-forward network that produces action
// distribution parameters, together with the action space
// that interprets them.
type Policy struct {
	Name        string
	Spec        *EnvSpec
	Block       anyrnn.Block
	ActionSpace ActionSpace

	// Frozen parameters are part of the network but are
	// never trained.
	Frozen []*anydiff.Var
}

// Parameters returns the trainable parameters.
func (p *Policy) Parameters() []*anydiff.Var {
	frozen := map[*anydiff.Var]bool{}
	for _, v := range p.Frozen {
		frozen[v] = true
	}
	var res []*anydiff.Var
	for _, v := range anynet.AllParameters(p.Block) {
		if !frozen[v] {
			res = append(res, v)
		}
	}
	return res
}

// Creator returns the creator of the policy's
// parameters.
func (p *Policy) Creator() anyvec.Creator {
	return anynet.AllParameters(p.Block)[0].Vector.Creator()
}

// Act samples an action for a single observation.
// It also returns the distribution parameters.
func (p *Policy) Act(obs anyvec.Vector) (action, params anyvec.Vector) {
	out := p.Block.Step(p.Block.Start(1), obs)
	params = out.Output()
	return p.ActionSpace.Sample(params, 1), params
}

// GaussianMLPConfig configures NewGaussianMLPPolicy.
type GaussianMLPConfig struct {
	Name string

	// HiddenSizes lists the hidden layer sizes.
	// If nil, DefaultHiddenSizes is used.
	HiddenSizes []int

	// HiddenNonlinearity follows every hidden layer.
	// If nil, anynet.Tanh is used.
	HiddenNonlinearity anynet.Layer

	// OutputNonlinearity is applied to the action means.
	// If nil, the means are linear.
	OutputNonlinearity anynet.Layer

	// InitStd is the initial standard deviation.
	// If 0, 1 is used.
	InitStd float64

	// FixedStd disables learning of the standard
	// deviation.
	FixedStd bool
}

// NewGaussianMLPPolicy creates an MLP policy for a
// continuous action space.
func NewGaussianMLPPolicy(c anyvec.Creator, spec *EnvSpec,
	cfg GaussianMLPConfig) (*Policy, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Discrete {
		return nil, errors.New("new Gaussian MLP policy: action space is discrete")
	}
	initStd := cfg.InitStd
	if initStd == 0 {
		initStd = 1
	}
	net, outSize := hiddenLayers(c, spec.ObservationSize, cfg.HiddenSizes,
		cfg.HiddenNonlinearity)
	head := NewGaussianHead(c, outSize, spec.ActionSize, initStd, !cfg.FixedStd)
	head.MeanActivation = cfg.OutputNonlinearity
	net = append(net, head)

	policy := &Policy{
		Name:        cfg.Name,
		Spec:        spec.Copy(),
		Block:       &anyrnn.LayerBlock{Layer: net},
		ActionSpace: DiagGaussian{},
	}
	if cfg.FixedStd {
		policy.Frozen = []*anydiff.Var{head.LogStd}
	}
	return policy, nil
}

// CategoricalMLPConfig configures
// NewCategoricalMLPPolicy.
type CategoricalMLPConfig struct {
	Name string

	// HiddenSizes lists the hidden layer sizes.
	// If nil, DefaultHiddenSizes is used.
	HiddenSizes []int

	// HiddenNonlinearity follows every hidden layer.
	// If nil, anynet.Tanh is used.
	HiddenNonlinearity anynet.Layer
}

// NewCategoricalMLPPolicy creates an MLP policy for a
// discrete action space.
//
// The output layer starts at zero, so the initial policy
// is uniform.
func NewCategoricalMLPPolicy(c anyvec.Creator, spec *EnvSpec,
	cfg CategoricalMLPConfig) (*Policy, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if !spec.Discrete {
		return nil, errors.New("new categorical MLP policy: action space is continuous")
	}
	net, outSize := hiddenLayers(c, spec.ObservationSize, cfg.HiddenSizes,
		cfg.HiddenNonlinearity)
	net = append(net, anynet.NewFCZero(c, outSize, spec.ActionSize))
	return &Policy{
		Name:        cfg.Name,
		Spec:        spec.Copy(),
		Block:       &anyrnn.LayerBlock{Layer: net},
		ActionSpace: anyrl.Softmax{},
	}, nil
}

func hiddenLayers(c anyvec.Creator, inSize int, sizes []int,
	act anynet.Layer) (anynet.Net, int) {
	if sizes == nil {
		sizes = DefaultHiddenSizes
	}
	if act == nil {
		act = anynet.Tanh
	}
	var net anynet.Net
	for _, size := range sizes {
		net = append(net, anynet.NewFC(c, inSize, size), act)
		inSize = size
	}
	return net, inSize
}

// NewSnapshotPolicy wraps a loaded policy network.
// The action space is inferred from the spec.
func NewSnapshotPolicy(spec *EnvSpec, block anyrnn.Block) *Policy {
	var space ActionSpace = anyrl.Softmax{}
	if !spec.Discrete {
		space = DiagGaussian{}
	}
	return &Policy{
		Name:        "snapshot",
		Spec:        spec.Copy(),
		Block:       block,
		ActionSpace: space,
	}
}
