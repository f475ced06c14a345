package experiments

import (
	"errors"
	"flag"
	"strconv"
	"strings"

	"github.com/TianhongDai/garage"
)

// SnapshotModeFlag is a flag.Value for a snapshot mode.
type SnapshotModeFlag struct {
	Mode garage.SnapshotMode
}

// String returns the string representation of the mode.
func (s *SnapshotModeFlag) String() string {
	return s.Mode.String()
}

// Set sets the mode from a string representation.
func (s *SnapshotModeFlag) Set(str string) error {
	mode, err := garage.ParseSnapshotMode(str)
	if err != nil {
		return err
	}
	s.Mode = mode
	return nil
}

// AddFlag adds the flag to a flag set.
func (s *SnapshotModeFlag) AddFlag(fs *flag.FlagSet) {
	fs.Var(s, "snapshot", "snapshot mode (last, all, gap, gap_and_last, none)")
}

// IntListFlag is a flag.Value for a comma-separated
// list of integers.
type IntListFlag []int64

// String returns the comma-separated list.
func (i *IntListFlag) String() string {
	parts := make([]string, len(*i))
	for j, x := range *i {
		parts[j] = strconv.FormatInt(x, 10)
	}
	return strings.Join(parts, ",")
}

// Set parses a comma-separated list.
func (i *IntListFlag) Set(s string) error {
	var res []int64
	for _, part := range strings.Split(s, ",") {
		x, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return errors.New("bad integer: " + part)
		}
		res = append(res, x)
	}
	*i = res
	return nil
}

// StringListFlag is a flag.Value for a comma-separated
// list of strings.
type StringListFlag []string

// String returns the comma-separated list.
func (s *StringListFlag) String() string {
	return strings.Join(*s, ",")
}

// Set parses a comma-separated list.
func (s *StringListFlag) Set(str string) error {
	var res []string
	for _, part := range strings.Split(str, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	if len(res) == 0 {
		return errors.New("empty list")
	}
	*s = res
	return nil
}

// EnvFlags holds various parameters for creating Gym
// environments.
type EnvFlags struct {
	// GymHost is the destination host for an instance of
	// gym-socket-api.
	GymHost string

	// GymRender, if true, renders every step.
	GymRender bool

	// RecordDir is an optional path to where Gym monitor
	// recordings should be stored.
	RecordDir string

	// History, if true, concatenates the previous
	// observation to each observation.
	History bool
}

// AddFlags adds the options to a flag set.
func (e *EnvFlags) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&e.GymHost, "gym", "localhost:5001", "host for gym-socket-api")
	fs.BoolVar(&e.GymRender, "render", false, "render Gym environments")
	fs.StringVar(&e.RecordDir, "record", "", "Gym monitor directory")
	fs.BoolVar(&e.History, "history", false, "include previous observations")
}
