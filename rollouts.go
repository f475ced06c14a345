package garage

import (
	"context"
	"sync"

	"github.com/unixpickle/anyrl"
	"github.com/unixpickle/anyrl/anypg"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// GatherRollouts produces a batch of rollouts by running
// the environments in parallel.
//
// The steps argument specifies the minimum number of
// timesteps in the resulting batch of rollouts.
//
// Along with the rollouts, GatherRollouts produces the
// mean entropy of the policy's action distributions,
// indicating how much exploration took place.
func GatherRollouts(ctx context.Context, roller *Roller, envs []Env,
	steps int) (packed *anyrl.RolloutSet, entropy float64, err error) {
	defer essentials.AddCtxTo("gather rollouts", &err)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resChan := make(chan *anyrl.RolloutSet, len(envs))
	errChan := make(chan error, 1)
	requests := make(chan struct{}, len(envs))
	for i := 0; i < len(envs); i++ {
		requests <- struct{}{}
	}

	var wg sync.WaitGroup
	for _, env := range envs {
		wg.Add(1)
		go func(env anyrl.Env) {
			defer wg.Done()
			for {
				select {
				case _, ok := <-requests:
					if !ok {
						return
					}
				case <-ctx.Done():
					return
				}
				rollout, err := roller.Rollout(env)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					cancel()
					return
				}
				select {
				case resChan <- rollout:
				case <-ctx.Done():
					return
				}
			}
		}(env)
	}

	go func() {
		wg.Wait()
		close(resChan)
	}()

	var res []*anyrl.RolloutSet
	var totalSteps int
	requestsOpen := true
	for item := range resChan {
		res = append(res, item)
		if !requestsOpen {
			continue
		}
		totalSteps += item.NumSteps()
		if totalSteps < steps {
			requests <- struct{}{}
		} else {
			close(requests)
			requestsOpen = false
		}
	}
	if requestsOpen {
		close(requests)
	}

	select {
	case err := <-errChan:
		return nil, 0, err
	default:
	}
	if err := ctx.Err(); err != nil && totalSteps < steps {
		return nil, 0, err
	}

	packed = anyrl.PackRolloutSets(roller.Creator(), res)
	entropy = meanEntropy(roller.Creator(), packed, roller.Policy.ActionSpace)
	return packed, entropy, nil
}

func meanEntropy(c anyvec.Creator, r *anyrl.RolloutSet, space anyrl.Entropyer) float64 {
	if r.AgentOuts == nil {
		return 0
	}
	reg := &anypg.EntropyReg{Entropyer: space, Coeff: 1}
	return numToFloat(anypg.AverageReg(c, r.AgentOuts, reg))
}
