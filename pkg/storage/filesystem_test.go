package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveOpenDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	rel, err := store.Save("job-1/D21CQCN01_Scores.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "job-1/D21CQCN01_Scores.csv", rel)

	f, err := store.Open(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel), "deleting twice is fine")
	_, err = os.Stat(filepath.Join(root, "job-1"))
	assert.True(t, os.IsNotExist(err), "empty job directory is pruned")
}

func TestFileStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, rel := range []string{"../outside.csv", "job-1/../../outside.csv", "", "/etc/passwd", "."} {
		_, err := store.Save(rel, []byte("x"))
		assert.ErrorIs(t, err, ErrOutsideStore, rel)
		_, err = store.Open(rel)
		assert.ErrorIs(t, err, ErrOutsideStore, rel)
	}
}

func TestFileStoreSweepHonoursTTL(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	store.now = fixedClock(now)

	_, err = store.Save("old-job/a.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new-job/b.pdf", []byte("new"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(filepath.Join(root, "old-job", "a.pdf"), now.Add(-25*time.Hour), now.Add(-25*time.Hour)))
	require.NoError(t, os.Chtimes(filepath.Join(root, "new-job", "b.pdf"), now.Add(-time.Hour), now.Add(-time.Hour)))

	removed, err := store.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-job/a.pdf"}, removed)

	_, err = os.Stat(filepath.Join(root, "old-job"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "new-job", "b.pdf"))
	assert.NoError(t, err)
}
