package garage

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// DiagGaussian is an action space for continuous actions.
//
// Each parameter vector is a mean followed by the log of
// the standard deviation for each action dimension.
// Samples are the raw (unbounded) actions.
type DiagGaussian struct{}

// Sample samples a batch of actions.
func (d DiagGaussian) Sample(params anyvec.Vector, batch int) anyvec.Vector {
	size := d.actionSize(params.Len(), batch)
	values := vecToFloats(params)
	res := make([]float64, 0, size*batch)
	for i := 0; i < batch; i++ {
		row := values[i*2*size : (i+1)*2*size]
		for j := 0; j < size; j++ {
			res = append(res, row[j]+math.Exp(row[size+j])*rand.NormFloat64())
		}
	}
	return floatsToVec(params.Creator(), res)
}

// LogProb computes the log density of each action.
func (d DiagGaussian) LogProb(params anydiff.Res, output anyvec.Vector,
	batch int) anydiff.Res {
	size := d.actionSize(params.Output().Len(), batch)
	if output.Len() != size*batch {
		panic("length mismatch")
	}
	c := output.Creator()
	mean, logStd := d.split(params, batch)
	z := anydiff.Mul(
		anydiff.Sub(anydiff.NewConst(output), mean),
		anydiff.Exp(anydiff.Scale(logStd, c.MakeNumeric(-1))),
	)
	terms := anydiff.Add(
		anydiff.Scale(anydiff.Square(z), c.MakeNumeric(-0.5)),
		anydiff.Scale(logStd, c.MakeNumeric(-1)),
	)
	terms = anydiff.AddScalar(terms, c.MakeNumeric(-0.5*math.Log(2*math.Pi)))
	return sumRows(terms, batch, size)
}

// KL computes KL(params1 || params2) for each pair of
// distributions in the batch.
func (d DiagGaussian) KL(params1, params2 anydiff.Res, batch int) anydiff.Res {
	if params1.Output().Len() != params2.Output().Len() {
		panic("length mismatch")
	}
	size := d.actionSize(params1.Output().Len(), batch)
	c := params1.Output().Creator()
	mean1, logStd1 := d.split(params1, batch)
	mean2, logStd2 := d.split(params2, batch)
	var1 := anydiff.Exp(anydiff.Scale(logStd1, c.MakeNumeric(2)))
	invVar2 := anydiff.Exp(anydiff.Scale(logStd2, c.MakeNumeric(-2)))
	numerator := anydiff.Add(var1, anydiff.Square(anydiff.Sub(mean1, mean2)))
	terms := anydiff.Add(
		anydiff.Sub(logStd2, logStd1),
		anydiff.Scale(anydiff.Mul(numerator, invVar2), c.MakeNumeric(0.5)),
	)
	terms = anydiff.AddScalar(terms, c.MakeNumeric(-0.5))
	return sumRows(terms, batch, size)
}

// Entropy computes the differential entropy of each
// distribution in the batch.
func (d DiagGaussian) Entropy(params anydiff.Res, batch int) anydiff.Res {
	size := d.actionSize(params.Output().Len(), batch)
	c := params.Output().Creator()
	_, logStd := d.split(params, batch)
	terms := anydiff.AddScalar(logStd, c.MakeNumeric(0.5*(1+math.Log(2*math.Pi))))
	return sumRows(terms, batch, size)
}

func (d DiagGaussian) actionSize(paramLen, batch int) int {
	if batch <= 0 || paramLen%(2*batch) != 0 {
		panic(fmt.Sprintf("batch size %d does not divide parameter count %d",
			batch, paramLen))
	}
	return paramLen / (2 * batch)
}

// split separates the means from the log standard
// deviations.
//
// Rows are [mean, logStd], so each half is selected by
// multiplying with a constant selection matrix.
func (d DiagGaussian) split(params anydiff.Res, batch int) (mean, logStd anydiff.Res) {
	size := d.actionSize(params.Output().Len(), batch)
	c := params.Output().Creator()
	paramMat := &anydiff.Matrix{Data: params, Rows: batch, Cols: 2 * size}
	selectHalf := func(offset int) anydiff.Res {
		sel := make([]float64, size*2*size)
		for i := 0; i < size; i++ {
			sel[i*2*size+offset+i] = 1
		}
		selMat := &anydiff.Matrix{
			Data: anydiff.NewConst(floatsToVec(c, sel)),
			Rows: size,
			Cols: 2 * size,
		}
		return anydiff.MatMul(false, true, paramMat, selMat).Data
	}
	return selectHalf(0), selectHalf(size)
}

// joinGaussianParams interleaves rows of means and log
// standard deviations into DiagGaussian parameters.
func joinGaussianParams(mean, logStd anydiff.Res, batch, size int) anydiff.Res {
	c := mean.Output().Creator()
	placeHalf := func(half anydiff.Res, offset int) anydiff.Res {
		sel := make([]float64, size*2*size)
		for i := 0; i < size; i++ {
			sel[i*2*size+offset+i] = 1
		}
		selMat := &anydiff.Matrix{
			Data: anydiff.NewConst(floatsToVec(c, sel)),
			Rows: size,
			Cols: 2 * size,
		}
		halfMat := &anydiff.Matrix{Data: half, Rows: batch, Cols: size}
		return anydiff.MatMul(false, false, halfMat, selMat).Data
	}
	return anydiff.Add(placeHalf(mean, 0), placeHalf(logStd, size))
}

func sumRows(terms anydiff.Res, rows, cols int) anydiff.Res {
	return anydiff.SumCols(&anydiff.Matrix{
		Data: terms,
		Rows: rows,
		Cols: cols,
	})
}
