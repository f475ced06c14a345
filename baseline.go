package garage

import (
	"errors"
	"log"
	"math"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/lazyseq"
	"gonum.org/v1/gonum/mat"
)

// Default settings for LinearFeatureBaseline.
const (
	DefaultRegCoeff   = 1e-5
	DefaultFitRetries = 5
)

const featureClip = 10

// LinearFeatureBaseline is a value function that is
// linear in hand-made features of the observation and
// the timestep.
//
// The features of an observation o at time t are
// clip(o), clip(o)^2, t/100, (t/100)^2, (t/100)^3, and a
// constant 1.
type LinearFeatureBaseline struct {
	Spec *EnvSpec

	// RegCoeff is the initial ridge regularization.
	// It is increased tenfold after each failed fit.
	//
	// If 0, DefaultRegCoeff is used.
	RegCoeff float64

	coeffs []float64
}

// NewLinearFeatureBaseline creates an unfit baseline,
// which predicts zero everywhere.
func NewLinearFeatureBaseline(spec *EnvSpec) *LinearFeatureBaseline {
	return &LinearFeatureBaseline{Spec: spec.Copy()}
}

// NumFeatures returns the number of regression features.
func (l *LinearFeatureBaseline) NumFeatures() int {
	return 2*l.Spec.ObservationSize + 4
}

// Coeffs returns a copy of the fit coefficients, or nil
// if the baseline has not been fit.
func (l *LinearFeatureBaseline) Coeffs() []float64 {
	if l.coeffs == nil {
		return nil
	}
	return append([]float64{}, l.coeffs...)
}

// SetCoeffs replaces the coefficients.
// A nil slice resets the baseline.
func (l *LinearFeatureBaseline) SetCoeffs(coeffs []float64) error {
	if coeffs != nil && len(coeffs) != l.NumFeatures() {
		return errors.New("set baseline coefficients: length mismatch")
	}
	if coeffs == nil {
		l.coeffs = nil
	} else {
		l.coeffs = append([]float64{}, coeffs...)
	}
	return nil
}

// Fit regresses the returns onto the features of each
// episode's observations.
//
// If no regularization level gives finite coefficients,
// the previous coefficients are kept.
func (l *LinearFeatureBaseline) Fit(paths [][][]float64, returns [][]float64) (err error) {
	defer essentials.AddCtxTo("fit linear baseline", &err)
	if len(paths) != len(returns) {
		return errors.New("path count mismatch")
	}
	var numRows int
	for i, path := range paths {
		if len(path) != len(returns[i]) {
			return errors.New("path length mismatch")
		}
		numRows += len(path)
	}
	if numRows == 0 {
		return nil
	}

	numFeatures := l.NumFeatures()
	features := mat.NewDense(numRows, numFeatures, nil)
	targets := mat.NewVecDense(numRows, nil)
	row := 0
	for i, path := range paths {
		for t, obs := range path {
			features.SetRow(row, l.features(obs, t))
			targets.SetVec(row, returns[i][t])
			row++
		}
	}

	var gram mat.SymDense
	gram.SymOuterK(1, features.T())
	var moment mat.VecDense
	moment.MulVec(features.T(), targets)

	reg := l.regCoeff()
	for i := 0; i < DefaultFitRetries; i++ {
		regularized := mat.NewSymDense(numFeatures, nil)
		regularized.CopySym(&gram)
		for j := 0; j < numFeatures; j++ {
			regularized.SetSym(j, j, regularized.At(j, j)+reg)
		}
		if coeffs, ok := solveSym(regularized, &moment); ok {
			l.coeffs = coeffs
			return nil
		}
		reg *= 10
	}
	log.Printf("linear baseline: no finite fit after %d tries, keeping coefficients",
		DefaultFitRetries)
	return nil
}

// FitRollouts fits the baseline to the discounted
// returns of a batch of rollouts.
func (l *LinearFeatureBaseline) FitRollouts(r *anyrl.RolloutSet, discount float64) error {
	return l.Fit(EpisodeObservations(r), DiscountedReturns(r, discount))
}

// Predict predicts the value at every timestep of an
// episode.
func (l *LinearFeatureBaseline) Predict(path [][]float64) []float64 {
	res := make([]float64, len(path))
	for t, obs := range path {
		res[t] = l.predictStep(obs, t)
	}
	return res
}

// ValueFunc predicts values for a batch of observation
// sequences.
// It is suitable for anypg.GAEJudger.
//
// The caller must read the entire channel.
func (l *LinearFeatureBaseline) ValueFunc(in lazyseq.Rereader) <-chan *anyseq.Batch {
	res := make(chan *anyseq.Batch, 1)
	go func() {
		defer close(res)
		var timesteps []int
		for batch := range in.Forward() {
			if timesteps == nil {
				timesteps = make([]int, len(batch.Present))
			}
			values := vecToFloats(batch.Packed)
			var size int
			if n := batch.NumPresent(); n > 0 {
				size = len(values) / n
			}
			var preds []float64
			i := 0
			for lane, pres := range batch.Present {
				if !pres {
					continue
				}
				obs := values[i*size : (i+1)*size]
				preds = append(preds, l.predictStep(obs, timesteps[lane]))
				timesteps[lane]++
				i++
			}
			res <- &anyseq.Batch{
				Packed:  floatsToVec(batch.Packed.Creator(), preds),
				Present: batch.Present,
			}
		}
	}()
	return res
}

// Critic produces the value predictions as a constant
// sequence, for use as an anypg.PPO critic.
func (l *LinearFeatureBaseline) Critic(in lazyseq.Rereader) lazyseq.Rereader {
	c := in.Creator()
	var seqs [][]anyvec.Vector
	for batch := range l.ValueFunc(in) {
		if seqs == nil {
			seqs = make([][]anyvec.Vector, len(batch.Present))
		}
		values := vecToFloats(batch.Packed)
		for lane, pres := range batch.Present {
			if pres {
				seqs[lane] = append(seqs[lane], floatsToVec(c, values[:1]))
				values = values[1:]
			}
		}
	}
	return lazyseq.Lazify(anyseq.ConstSeqList(c, seqs))
}

func (l *LinearFeatureBaseline) predictStep(obs []float64, t int) float64 {
	if l.coeffs == nil {
		return 0
	}
	var res float64
	for i, x := range l.features(obs, t) {
		res += x * l.coeffs[i]
	}
	return res
}

func (l *LinearFeatureBaseline) features(obs []float64, t int) []float64 {
	res := make([]float64, 0, 2*len(obs)+4)
	for _, x := range obs {
		res = append(res, math.Max(-featureClip, math.Min(featureClip, x)))
	}
	for _, x := range res[:len(obs)] {
		res = append(res, x*x)
	}
	scaledTime := float64(t) / 100
	return append(res, scaledTime, scaledTime*scaledTime,
		scaledTime*scaledTime*scaledTime, 1)
}

func (l *LinearFeatureBaseline) regCoeff() float64 {
	if l.RegCoeff == 0 {
		return DefaultRegCoeff
	}
	return l.RegCoeff
}

func solveSym(a *mat.SymDense, b *mat.VecDense) ([]float64, bool) {
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return nil, false
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		return nil, false
	}
	res := make([]float64, x.Len())
	for i := range res {
		res[i] = x.AtVec(i)
		if math.IsNaN(res[i]) || math.IsInf(res[i], 0) {
			return nil, false
		}
	}
	return res, true
}
