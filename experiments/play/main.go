// Command play runs a snapshotted policy in a Gym
// environment and reports the episode returns.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/TianhongDai/garage"
	"github.com/TianhongDai/garage/experiments"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
)

func main() {
	var envFlags experiments.EnvFlags
	var envID string
	var snapshotDir string
	var episodes int
	var maxSteps int
	var normalize bool
	envFlags.AddFlags(flag.CommandLine)
	flag.StringVar(&envID, "env", "", "environment id")
	flag.StringVar(&snapshotDir, "dir", "", "experiment directory with snapshots")
	flag.IntVar(&episodes, "episodes", 10, "number of episodes")
	flag.IntVar(&maxSteps, "maxsteps", 0, "max timesteps per episode (0 for none)")
	flag.BoolVar(&normalize, "normalize", true, "scale actions to the action bounds")
	flag.Parse()
	if envID == "" || snapshotDir == "" {
		essentials.Die("Required flags: -env and -dir. See -help.")
	}

	creator := anyvec32.CurrentCreator()
	snap, err := garage.LoadSnapshot(snapshotDir)
	must(err)
	log.Printf("Loaded epoch %d (average return %f)", snap.Epoch, snap.AverageReturn)

	env, err := experiments.GymMaker(&envFlags)(creator, envID)
	must(err)
	if normalize {
		env = garage.Normalize(env, garage.NormalizeOptions{})
	}
	defer env.Close()

	roller := &garage.Roller{Policy: garage.NewSnapshotPolicy(env.Spec(), snap.Policy)}
	envs := []garage.Env{garage.CapEpisodes(env, maxSteps)}
	for i := 0; i < episodes; i++ {
		rollouts, _, err := garage.GatherRollouts(context.Background(), roller, envs, 1)
		must(err)
		stats := garage.ComputeReturnStats(rollouts, 1)
		log.Printf("episode %d: return=%f steps=%d", i, stats.Mean, stats.NumSteps)
	}
}

func must(err error) {
	if err != nil {
		essentials.Die(err)
	}
}
