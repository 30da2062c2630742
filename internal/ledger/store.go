package ledger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/internal/version"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StateFile is the on-disk form of a ledger.
type StateFile struct {
	Version  string             `yaml:"version"`
	Engine   types.StrategyName `yaml:"engine"`
	Kind     Kind               `yaml:"kind"`
	SavedAt  time.Time          `yaml:"saved_at"`
	Position types.Position     `yaml:"position"`
	Stats    StatsAccumulator   `yaml:"stats"`
}

// SaveState writes the ledger to path, replacing any previous file atomically.
func (l *Ledger) SaveState(path string, engine types.StrategyName, now time.Time) error {
	l.mu.RLock()
	state := StateFile{
		Version:  version.GetVersion(),
		Engine:   engine,
		Kind:     l.kind,
		SavedAt:  now,
		Position: l.pos,
		Stats:    *l.stats.Clone(),
	}
	l.mu.RUnlock()

	data, err := yaml.Marshal(&state)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to marshal ledger state", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeHistoryWriteFailed, err, "failed to create state directory for %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(errors.ErrCodeHistoryWriteFailed, err, "failed to write state file %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(errors.ErrCodeHistoryWriteFailed, err, "failed to replace state file %s", path)
	}

	return nil
}

// LoadState restores the ledger from path. It returns false when no file exists.
func (l *Ledger) LoadState(path string, engine types.StrategyName) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read state file %s", path)
	}

	var state StateFile
	if err := yaml.Unmarshal(data, &state); err != nil {
		return false, errors.Wrapf(errors.ErrCodeStateFileCorrupted, err, "failed to parse state file %s", path)
	}

	if err := version.CheckStateCompatibility(version.GetVersion(), state.Version); err != nil {
		return false, err
	}

	if state.Engine != engine || state.Kind != l.kind {
		return false, errors.Newf(errors.ErrCodeStateFileCorrupted,
			"state file %s belongs to %s (%s), not %s (%s)", path, state.Engine, state.Kind, engine, l.kind)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pos = state.Position
	l.stats = state.Stats.Clone()

	return true, nil
}
