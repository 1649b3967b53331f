package safeguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

// ErrNoSnapshot is returned when a rollback has nothing to restore from
var ErrNoSnapshot = errors.New("no snapshot available")

const snapshotStamp = "20060102-150405"

// SnapshotStore manages timestamped, reason-tagged copies of the
// watched config under a single directory with newest-first retention.
type SnapshotStore struct {
	Dir       string
	BaseName  string
	Retention int
}

// NewSnapshotStore creates a store for the config at configPath
func NewSnapshotStore(dir, configPath string, retention int) *SnapshotStore {
	base := filepath.Base(configPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return &SnapshotStore{Dir: dir, BaseName: base, Retention: retention}
}

// Take copies the config into the store and prunes to retention,
// protecting protect (the armed ticket's snapshot; empty when nothing
// is armed). Returns the absolute snapshot path.
func (s *SnapshotStore) Take(configPath string, reason types.SnapshotReason, now time.Time, protect string) (string, error) {
	if _, err := os.Stat(configPath); err != nil {
		return "", fmt.Errorf("safeguard: config not readable: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%s.json", s.BaseName, now.Format(snapshotStamp), reason)
	dst, err := filepath.Abs(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("safeguard: resolving snapshot path: %w", err)
	}
	if err := state.CopyFile(configPath, dst); err != nil {
		return "", fmt.Errorf("safeguard: writing snapshot: %w", err)
	}

	if err := s.Prune(protect); err != nil {
		// Retention failure never voids the snapshot just taken
		return dst, fmt.Errorf("safeguard: pruning snapshots: %w", err)
	}
	return dst, nil
}

// List returns the retained snapshots newest first
func (s *SnapshotStore) List() ([]types.SnapshotInfo, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("safeguard: listing snapshots: %w", err)
	}

	var out []types.SnapshotInfo
	prefix := s.BaseName + "-"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, ok := parseSnapshotName(s.Dir, entry.Name(), prefix)
		if !ok {
			continue
		}
		if fi, err := entry.Info(); err == nil {
			info.SizeBytes = fi.Size()
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].TakenAt.Equal(out[j].TakenAt) {
			return out[i].TakenAt.After(out[j].TakenAt)
		}
		return out[i].Path > out[j].Path
	})
	return out, nil
}

// Newest returns the most recent snapshot, or ErrNoSnapshot
func (s *SnapshotStore) Newest() (types.SnapshotInfo, error) {
	list, err := s.List()
	if err != nil {
		return types.SnapshotInfo{}, err
	}
	if len(list) == 0 {
		return types.SnapshotInfo{}, ErrNoSnapshot
	}
	return list[0], nil
}

// Prune deletes the oldest snapshots beyond the retention cap. The
// protected path (the armed ticket's snapshot) is never deleted, even
// from beyond the cap.
func (s *SnapshotStore) Prune(protect string) error {
	list, err := s.List()
	if err != nil {
		return err
	}
	if len(list) <= s.Retention {
		return nil
	}
	for _, info := range list[s.Retention:] {
		if protect != "" && info.Path == protect {
			continue
		}
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("safeguard: deleting %s: %w", info.Path, err)
		}
	}
	return nil
}

// parseSnapshotName decodes <base>-YYYYMMDD-HHMMSS-<reason>.json
func parseSnapshotName(dir, name, prefix string) (types.SnapshotInfo, bool) {
	rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
	if rest == strings.TrimPrefix(name, prefix) {
		return types.SnapshotInfo{}, false // no .json suffix
	}
	if len(rest) < len(snapshotStamp)+2 {
		return types.SnapshotInfo{}, false
	}
	stamp := rest[:len(snapshotStamp)]
	takenAt, err := time.ParseInLocation(snapshotStamp, stamp, time.Local)
	if err != nil {
		return types.SnapshotInfo{}, false
	}
	reason := rest[len(snapshotStamp)+1:]
	if reason == "" {
		return types.SnapshotInfo{}, false
	}
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return types.SnapshotInfo{}, false
	}
	return types.SnapshotInfo{
		Path:    path,
		TakenAt: takenAt,
		Reason:  types.SnapshotReason(reason),
	}, true
}
