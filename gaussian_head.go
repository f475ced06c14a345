package garage

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var g GaussianHead
	serializer.RegisterTypedDeserializer(g.SerializerType(), DeserializeGaussianHead)
}

// GaussianHead is the output layer of a Gaussian policy.
//
// It maps features to action means with an affine
// transformation (optionally followed by an activation)
// and appends a state-independent log standard deviation
// to every row, producing DiagGaussian parameters.
type GaussianHead struct {
	InCount    int
	ActionSize int

	// Weights is an ActionSize by InCount matrix.
	Weights *anydiff.Var
	Biases  *anydiff.Var
	LogStd  *anydiff.Var

	// MeanActivation is applied to the means.
	// If nil, the means are left unchanged.
	MeanActivation anynet.Layer

	// LearnStd indicates whether LogStd is trained.
	LearnStd bool
}

// NewGaussianHead creates a head with randomly
// initialized mean weights and the given initial
// standard deviation.
func NewGaussianHead(c anyvec.Creator, inCount, actionSize int, initStd float64,
	learnStd bool) *GaussianHead {
	weights := c.MakeVector(inCount * actionSize)
	anyvec.Rand(weights, anyvec.Normal, nil)
	weights.Scale(c.MakeNumeric(1 / math.Sqrt(float64(inCount))))

	logStd := c.MakeVector(actionSize)
	logStd.AddScalar(c.MakeNumeric(math.Log(initStd)))

	return &GaussianHead{
		InCount:    inCount,
		ActionSize: actionSize,
		Weights:    anydiff.NewVar(weights),
		Biases:     anydiff.NewVar(c.MakeVector(actionSize)),
		LogStd:     anydiff.NewVar(logStd),
		LearnStd:   learnStd,
	}
}

// DeserializeGaussianHead deserializes a GaussianHead.
func DeserializeGaussianHead(d []byte) (res *GaussianHead, err error) {
	defer essentials.AddCtxTo("deserialize GaussianHead", &err)
	var inCount, actionSize, learnStd serializer.Int
	var weights, biases, logStd *anyvecsave.S
	var actData serializer.Bytes
	err = serializer.DeserializeAny(d, &inCount, &actionSize, &learnStd,
		&weights, &biases, &logStd, &actData)
	if err != nil {
		return nil, err
	}
	res = &GaussianHead{
		InCount:    int(inCount),
		ActionSize: int(actionSize),
		Weights:    anydiff.NewVar(weights.Vector),
		Biases:     anydiff.NewVar(biases.Vector),
		LogStd:     anydiff.NewVar(logStd.Vector),
		LearnStd:   learnStd != 0,
	}
	if len(actData) > 0 {
		if err := serializer.DeserializeAny(actData, &res.MeanActivation); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Apply applies the head to a batch of feature vectors.
func (g *GaussianHead) Apply(in anydiff.Res, batch int) anydiff.Res {
	if in.Output().Len() != batch*g.InCount {
		panic("input size mismatch")
	}
	c := in.Output().Creator()

	inMat := &anydiff.Matrix{Data: in, Rows: batch, Cols: g.InCount}
	weights := &anydiff.Matrix{Data: g.Weights, Rows: g.ActionSize, Cols: g.InCount}
	mean := anydiff.AddRepeated(anydiff.MatMul(false, true, inMat, weights).Data,
		g.Biases)
	if g.MeanActivation != nil {
		mean = g.MeanActivation.Apply(mean, batch)
	}
	logStd := anydiff.AddRepeated(
		anydiff.NewConst(c.MakeVector(batch*g.ActionSize)),
		g.LogStd,
	)
	return joinGaussianParams(mean, logStd, batch, g.ActionSize)
}

// Parameters returns every parameter of the head,
// including LogStd even when it is not learned.
func (g *GaussianHead) Parameters() []*anydiff.Var {
	return []*anydiff.Var{g.Weights, g.Biases, g.LogStd}
}

// SerializerType returns the unique ID used to serialize
// a GaussianHead with the serializer package.
func (g *GaussianHead) SerializerType() string {
	return "github.com/TianhongDai/garage.GaussianHead"
}

// Serialize serializes the head.
func (g *GaussianHead) Serialize() (data []byte, err error) {
	defer essentials.AddCtxTo("serialize GaussianHead", &err)
	var learnStd serializer.Int
	if g.LearnStd {
		learnStd = 1
	}
	var actData serializer.Bytes
	if g.MeanActivation != nil {
		actData, err = serializer.SerializeAny(g.MeanActivation)
		if err != nil {
			return nil, err
		}
	}
	return serializer.SerializeAny(
		serializer.Int(g.InCount),
		serializer.Int(g.ActionSize),
		learnStd,
		&anyvecsave.S{Vector: g.Weights.Vector},
		&anyvecsave.S{Vector: g.Biases.Vector},
		&anyvecsave.S{Vector: g.LogStd.Vector},
		actData,
	)
}
