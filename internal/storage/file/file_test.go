package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/storage"
	"mamaboss/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "u1", storage.KeyTasks, []byte(`[]`)))
	require.NoError(t, s.Set(ctx, storage.GlobalScope, storage.KeyAccounts, []byte(`[]`)))

	assert.FileExists(t, filepath.Join(dir, "u1", "mamaboss_tasks.json"))
	assert.FileExists(t, filepath.Join(dir, "_global", "mamaboss_accounts.json"))

	entries, err := os.ReadDir(filepath.Join(dir, "u1"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp files must be renamed away")
	}
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, scope := range []string{"..", "../etc", "a/b", "_global", ".hidden"} {
		err := s.Set(ctx, scope, storage.KeyTasks, []byte(`[]`))
		assert.ErrorIs(t, err, ErrInvalidName, "scope %q", scope)
	}
	assert.ErrorIs(t, s.Set(ctx, "u1", "../x", []byte(`[]`)), ErrInvalidName)
}

func TestWatcher_ReportsExternalWrites(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The scope directory must exist before the watcher starts.
	require.NoError(t, s.Set(ctx, "u1", storage.KeyTasks, []byte(`[]`)))

	w, err := NewWatcher(dir, 20*time.Millisecond, nil)
	require.NoError(t, err)

	changes := make(chan Change, 8)
	go func() { _ = w.Run(ctx, func(c Change) { changes <- c }) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "u1", "mamaboss_goals.json"), []byte(`[]`), 0644))

	select {
	case c := <-changes:
		assert.Equal(t, Change{Scope: "u1", Key: storage.KeyGoals}, c)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}
