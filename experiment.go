package garage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
)

// DefaultLogDir is the parent directory of experiment
// directories when none is specified.
const DefaultLogDir = "data/local/experiment"

// SnapshotMode decides which epochs are snapshotted.
type SnapshotMode int

const (
	// SnapshotLast keeps only the most recent epoch.
	SnapshotLast SnapshotMode = iota

	// SnapshotAll keeps every epoch.
	SnapshotAll

	// SnapshotGap keeps every SnapshotGap-th epoch.
	SnapshotGap

	// SnapshotGapAndLast keeps every SnapshotGap-th epoch
	// as well as the most recent one.
	SnapshotGapAndLast

	// SnapshotNone disables snapshots.
	SnapshotNone
)

// ParseSnapshotMode parses the string form of a mode.
func ParseSnapshotMode(s string) (SnapshotMode, error) {
	switch s {
	case "last":
		return SnapshotLast, nil
	case "all":
		return SnapshotAll, nil
	case "gap":
		return SnapshotGap, nil
	case "gap_and_last":
		return SnapshotGapAndLast, nil
	case "none":
		return SnapshotNone, nil
	default:
		return 0, errors.New("unknown snapshot mode: " + s)
	}
}

// String returns the string form of the mode.
func (s SnapshotMode) String() string {
	switch s {
	case SnapshotLast:
		return "last"
	case SnapshotAll:
		return "all"
	case SnapshotGap:
		return "gap"
	case SnapshotGapAndLast:
		return "gap_and_last"
	case SnapshotNone:
		return "none"
	default:
		return ""
	}
}

// ExperimentConfig configures WrapExperiment.
type ExperimentConfig struct {
	// Name is the experiment name, used for the log
	// directory.
	Name string

	// LogDir is the parent of the experiment directory.
	//
	// If empty, DefaultLogDir is used.
	LogDir string

	SnapshotMode SnapshotMode

	// SnapshotGap is used by the gap modes.
	// If 0, 1 is used.
	SnapshotGap int

	// MakeEnv creates environments by id.
	MakeEnv EnvMaker

	// Creator is used for all numerics.
	// If nil, anyvec32.CurrentCreator() is used.
	Creator anyvec.Creator

	// Variant is saved to variant.json.
	// It is usually a hyperparameter struct.
	Variant interface{}
}

// An ExperimentContext tells an experiment where to put
// its outputs and how to create environments.
type ExperimentContext struct {
	Name         string
	SnapshotDir  string
	SnapshotMode SnapshotMode
	SnapshotGap  int
	MakeEnv      EnvMaker
	Creator      anyvec.Creator
}

// NewEnv creates an environment with the context's
// creator.
func (e *ExperimentContext) NewEnv(id string) (Env, error) {
	if e.MakeEnv == nil {
		return nil, errors.New("make env " + id + ": no env maker")
	}
	return e.MakeEnv(e.Creator, id)
}

// WrapExperiment creates a fresh experiment directory,
// records the variant, and runs the experiment.
//
// While the experiment runs, the standard logger also
// writes to debug.log in the experiment directory.
func WrapExperiment(cfg ExperimentConfig, f func(ctxt *ExperimentContext) error) (err error) {
	defer essentials.AddCtxTo("experiment "+cfg.Name, &err)
	if cfg.Name == "" {
		return errors.New("missing experiment name")
	}
	logDir := cfg.LogDir
	if logDir == "" {
		logDir = DefaultLogDir
	}
	dir, err := makeUniqueDir(logDir, cfg.Name)
	if err != nil {
		return err
	}

	if cfg.Variant != nil {
		data, err := json.MarshalIndent(cfg.Variant, "", "  ")
		if err != nil {
			return err
		}
		if err := ioutil.WriteFile(filepath.Join(dir, "variant.json"), data, 0644); err != nil {
			return err
		}
	}

	logFile, err := os.Create(filepath.Join(dir, "debug.log"))
	if err != nil {
		return err
	}
	defer logFile.Close()
	oldOutput := log.Writer()
	log.SetOutput(io.MultiWriter(oldOutput, logFile))
	defer log.SetOutput(oldOutput)

	gap := cfg.SnapshotGap
	if gap <= 0 {
		gap = 1
	}
	c := cfg.Creator
	if c == nil {
		c = anyvec32.CurrentCreator()
	}
	log.Println("Logging to", dir)
	return f(&ExperimentContext{
		Name:         cfg.Name,
		SnapshotDir:  dir,
		SnapshotMode: cfg.SnapshotMode,
		SnapshotGap:  gap,
		MakeEnv:      cfg.MakeEnv,
		Creator:      c,
	})
}

// makeUniqueDir creates parent/name, or parent/name_N for
// the smallest N that does not exist yet.
func makeUniqueDir(parent, name string) (string, error) {
	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", err
	}
	candidate := filepath.Join(parent, name)
	for i := 1; ; i++ {
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return candidate, nil
		} else if !os.IsExist(err) {
			return "", err
		}
		candidate = filepath.Join(parent, fmt.Sprintf("%s_%d", name, i))
	}
}
