package safeguard

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

func newStore(t *testing.T) (*SnapshotStore, string) {
	t.Helper()
	root := t.TempDir()
	config := filepath.Join(root, "openclaw.json")
	require.NoError(t, os.WriteFile(config, []byte(`{"v":0}`), 0644))
	store := NewSnapshotStore(filepath.Join(root, "snapshots"), config, 3)
	require.NoError(t, os.MkdirAll(store.Dir, 0755))
	return store, config
}

func TestSnapshotNaming(t *testing.T) {
	store, config := newStore(t)
	at := time.Date(2026, 7, 30, 14, 5, 9, 0, time.Local)

	path, err := store.Take(config, types.SnapshotReasonManual, at, "")
	require.NoError(t, err)

	assert.Equal(t, "openclaw-20260730-140509-manual.json", filepath.Base(path))
	assert.True(t, filepath.IsAbs(path))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.SnapshotReasonManual, list[0].Reason)
	assert.Equal(t, at.Unix(), list[0].TakenAt.Unix())
}

func TestListNewestFirst(t *testing.T) {
	store, config := newStore(t)
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.Local)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(config, []byte(fmt.Sprintf(`{"v":%d}`, i)), 0644))
		_, err := store.Take(config, types.SnapshotReasonPreChange, base.Add(time.Duration(i)*time.Minute), "")
		require.NoError(t, err)
	}

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].TakenAt.After(list[1].TakenAt))
	assert.True(t, list[1].TakenAt.After(list[2].TakenAt))

	newest, err := store.Newest()
	require.NoError(t, err)
	assert.Equal(t, list[0].Path, newest.Path)
}

func TestRetentionPrunesOldest(t *testing.T) {
	store, config := newStore(t) // retention 3
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.Local)

	var paths []string
	for i := 0; i < 5; i++ {
		p, err := store.Take(config, types.SnapshotReasonPreChange, base.Add(time.Duration(i)*time.Minute), "")
		require.NoError(t, err)
		paths = append(paths, p)
	}

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 3)

	// the two oldest are gone
	for _, old := range paths[:2] {
		_, err := os.Stat(old)
		assert.True(t, os.IsNotExist(err), "%s should be pruned", old)
	}
}

func TestRetentionNeverDeletesProtectedSnapshot(t *testing.T) {
	store, config := newStore(t) // retention 3
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.Local)

	protected, err := store.Take(config, types.SnapshotReasonPreChange, base, "")
	require.NoError(t, err)

	for i := 1; i < 6; i++ {
		_, err := store.Take(config, types.SnapshotReasonPreChange, base.Add(time.Duration(i)*time.Minute), protected)
		require.NoError(t, err)
	}

	_, err = os.Stat(protected)
	assert.NoError(t, err, "the armed ticket's snapshot survives pruning")
}

func TestNewestWithEmptyStore(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Newest()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	store, config := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "README"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "openclaw-garbage.json"), []byte("x"), 0644))

	_, err := store.Take(config, types.SnapshotReasonManual, time.Now(), "")
	require.NoError(t, err)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
