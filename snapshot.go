package garage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const (
	snapshotPrefix    = "params"
	snapshotMetaExt   = ".json"
	lastSnapshotName  = snapshotPrefix
	epochSnapshotGlob = snapshotPrefix + "_*"
)

var epochSnapshotExpr = regexp.MustCompile(`^params_(\d+)$`)

// SnapshotMeta is the non-network part of a snapshot.
type SnapshotMeta struct {
	Epoch          int       `json:"epoch"`
	TotalEnvSteps  int       `json:"total_env_steps"`
	AverageReturn  float64   `json:"average_return"`
	BaselineCoeffs []float64 `json:"baseline_coeffs"`
}

// A Snapshot is the state of a run after an epoch.
type Snapshot struct {
	SnapshotMeta

	// Policy is the policy network.
	Policy anyrnn.Block
}

// A Snapshotter saves snapshots according to a
// SnapshotMode.
type Snapshotter struct {
	Dir  string
	Mode SnapshotMode
	Gap  int
}

// Save saves a snapshot if the mode calls for one at
// this epoch.
func (s *Snapshotter) Save(snap *Snapshot) (err error) {
	defer essentials.AddCtxTo("save snapshot", &err)
	var names []string
	gapEpoch := s.Gap <= 1 || (snap.Epoch+1)%s.Gap == 0
	switch s.Mode {
	case SnapshotNone:
	case SnapshotLast:
		names = append(names, lastSnapshotName)
	case SnapshotAll:
		names = append(names, epochSnapshotName(snap.Epoch))
	case SnapshotGap:
		if gapEpoch {
			names = append(names, epochSnapshotName(snap.Epoch))
		}
	case SnapshotGapAndLast:
		names = append(names, lastSnapshotName)
		if gapEpoch {
			names = append(names, epochSnapshotName(snap.Epoch))
		}
	default:
		return fmt.Errorf("unknown snapshot mode: %d", s.Mode)
	}
	for _, name := range names {
		if err := saveSnapshot(filepath.Join(s.Dir, name), snap); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot loads the latest snapshot in a directory.
//
// An epoch-numbered snapshot with a higher epoch wins over
// the unnumbered last snapshot.
func LoadSnapshot(dir string) (snap *Snapshot, err error) {
	defer essentials.AddCtxTo("load snapshot", &err)
	var best string
	bestEpoch := -1
	if _, err := os.Stat(filepath.Join(dir, lastSnapshotName)); err == nil {
		meta, err := loadSnapshotMeta(filepath.Join(dir, lastSnapshotName))
		if err != nil {
			return nil, err
		}
		best, bestEpoch = lastSnapshotName, meta.Epoch
	}
	matches, err := filepath.Glob(filepath.Join(dir, epochSnapshotGlob))
	if err != nil {
		return nil, err
	}
	for _, match := range matches {
		sub := epochSnapshotExpr.FindStringSubmatch(filepath.Base(match))
		if sub == nil {
			continue
		}
		epoch, _ := strconv.Atoi(sub[1])
		if epoch > bestEpoch {
			best, bestEpoch = filepath.Base(match), epoch
		}
	}
	if best == "" {
		return nil, errors.New("no snapshot in " + dir)
	}

	path := filepath.Join(dir, best)
	meta, err := loadSnapshotMeta(path)
	if err != nil {
		return nil, err
	}
	var block anyrnn.Block
	if err := serializer.LoadAny(path, &block); err != nil {
		return nil, err
	}
	return &Snapshot{SnapshotMeta: *meta, Policy: block}, nil
}

// RestorePolicy copies the parameters of a snapshot into
// a policy with the same architecture.
func (s *Snapshot) RestorePolicy(p *Policy) error {
	src := anynet.AllParameters(s.Policy)
	dst := anynet.AllParameters(p.Block)
	if len(src) != len(dst) {
		return errors.New("restore policy: architecture mismatch")
	}
	for i, param := range src {
		if param.Vector.Len() != dst[i].Vector.Len() {
			return errors.New("restore policy: parameter size mismatch")
		}
	}
	for i, param := range src {
		dst[i].Vector.SetData(dst[i].Vector.Creator().MakeNumericList(
			vecToFloats(param.Vector)))
	}
	return nil
}

func epochSnapshotName(epoch int) string {
	return fmt.Sprintf("%s_%d", snapshotPrefix, epoch)
}

func saveSnapshot(path string, snap *Snapshot) error {
	if err := serializer.SaveAny(path, snap.Policy); err != nil {
		return err
	}
	data, err := json.Marshal(snap.SnapshotMeta)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path+snapshotMetaExt, data, 0644)
}

func loadSnapshotMeta(path string) (*SnapshotMeta, error) {
	data, err := ioutil.ReadFile(path + snapshotMetaExt)
	if err != nil {
		return nil, err
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
