package garage

import (
	"math"

	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyrl/anypg"
)

// EpisodeObservations splits the inputs of a batch of
// rollouts into one observation sequence per episode.
//
// The result is indexed first by episode and then by
// timestep, matching r.Rewards.
func EpisodeObservations(r *anyrl.RolloutSet) [][][]float64 {
	res := make([][][]float64, len(r.Rewards))
	for batch := range r.Inputs.ReadTape(0, -1) {
		n := batch.NumPresent()
		if n == 0 {
			continue
		}
		values := vecToFloats(batch.Packed)
		size := len(values) / n
		i := 0
		for lane, pres := range batch.Present {
			if !pres {
				continue
			}
			res[lane] = append(res[lane], values[i*size:(i+1)*size])
			i++
		}
	}
	return res
}

// DiscountedReturns computes the discounted reward-to-go
// at every timestep.
func DiscountedReturns(r *anyrl.RolloutSet, discount float64) anyrl.Rewards {
	return (&anypg.QJudger{Discount: discount}).JudgeActions(r)
}

// ReturnStats summarizes the episode returns in a batch.
type ReturnStats struct {
	NumEpisodes int
	NumSteps    int

	Mean       float64
	Std        float64
	Max        float64
	Min        float64
	Discounted float64
}

// ComputeReturnStats computes undiscounted return
// statistics and the mean discounted return.
func ComputeReturnStats(r *anyrl.RolloutSet, discount float64) *ReturnStats {
	totals := r.Rewards.Totals()
	res := &ReturnStats{
		NumEpisodes: len(totals),
		NumSteps:    r.NumSteps(),
	}
	if len(totals) == 0 {
		return res
	}
	res.Max = math.Inf(-1)
	res.Min = math.Inf(1)
	var sum float64
	for _, x := range totals {
		sum += x
		res.Max = math.Max(res.Max, x)
		res.Min = math.Min(res.Min, x)
	}
	res.Mean = sum / float64(len(totals))
	var sqSum float64
	for _, x := range totals {
		sqSum += (x - res.Mean) * (x - res.Mean)
	}
	res.Std = math.Sqrt(sqSum / float64(len(totals)))

	var discSum float64
	for _, seq := range DiscountedReturns(r, discount) {
		if len(seq) > 0 {
			discSum += seq[0]
		}
	}
	res.Discounted = discSum / float64(len(totals))
	return res
}
