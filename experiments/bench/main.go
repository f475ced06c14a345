// Command bench runs garage benchmarks on Gym
// environments.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/TianhongDai/garage/benchmarks"
	"github.com/TianhongDai/garage/experiments"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
)

var defaultEnvs = map[string][]string{
	"trpo_garage_tf":         {"InvertedPendulum-v2", "Swimmer-v2", "HalfCheetah-v2"},
	"categorical_mlp_policy": {"CartPole-v1", "Acrobot-v1", "MountainCar-v0"},
}

type Flags struct {
	EnvFlags experiments.EnvFlags
	Snapshot experiments.SnapshotModeFlag

	Envs        experiments.StringListFlag
	Seeds       experiments.IntListFlag
	LogDir      string
	SnapshotGap int
}

func (f *Flags) Add(fs *flag.FlagSet) {
	f.EnvFlags.AddFlags(fs)
	f.Snapshot.AddFlag(fs)
	fs.Var(&f.Envs, "env", "comma-separated environment ids")
	fs.Var(&f.Seeds, "seeds", "comma-separated random seeds")
	fs.StringVar(&f.LogDir, "logdir", "data/local/benchmarks", "parent directory for results")
	fs.IntVar(&f.SnapshotGap, "gap", 1, "epochs between snapshots (gap modes only)")
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-help" {
		dieUsage()
	}
	name := os.Args[1]
	if name == "list" {
		for _, name := range benchmarks.Names() {
			fmt.Println(name)
		}
		return
	}
	if _, ok := benchmarks.Benchmarks[name]; !ok {
		essentials.Die("Unknown benchmark:", name)
	}

	flags := &Flags{Seeds: experiments.IntListFlag{1}}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags.Add(fs)
	fs.Parse(os.Args[2:])
	if len(flags.Envs) == 0 {
		flags.Envs = defaultEnvs[name]
	}
	log.Println("Running with arguments:", os.Args[1:])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-rip.NewRIP().Chan()
		log.Println("Caught interrupt. Stopping...")
		cancel()
	}()

	must(benchmarks.Run(ctx, name, flags.Envs, flags.Seeds, benchmarks.Options{
		LogDir:       flags.LogDir,
		SnapshotMode: flags.Snapshot.Mode,
		SnapshotGap:  flags.SnapshotGap,
		MakeEnv:      experiments.GymMaker(&flags.EnvFlags),
		Creator:      anyvec32.CurrentCreator(),
	}))
}

func dieUsage() {
	lines := []string{
		"Usage: bench <benchmark> [args | -help]",
		"",
		"Available benchmarks:",
	}
	for _, name := range benchmarks.Names() {
		lines = append(lines, " "+name)
	}
	lines = append(lines, "", "Use 'bench list' to print benchmark names.")
	for _, line := range lines {
		fmt.Fprintln(os.Stderr, line)
	}
	os.Exit(1)
}

func must(err error) {
	if err != nil {
		essentials.Die(err)
	}
}
