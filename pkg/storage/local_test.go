package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempStore_SaveOpenRemove(t *testing.T) {
	ctx := context.Background()
	store, err := NewTempStore(t.TempDir())
	require.NoError(t, err)

	info, err := store.Save(ctx, "my sessions.csv", strings.NewReader("Date,kWh,Cost\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(14), info.Size)
	assert.Equal(t, "my sessions.csv", info.Name)
	assert.True(t, strings.HasSuffix(info.Path, "_my_sessions.csv"))
	assert.Equal(t, store.Dir(), filepath.Dir(info.Path))

	rc, err := store.Open(ctx, info)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "Date,kWh,Cost\n", string(content))

	require.NoError(t, store.Remove(ctx, info))
	_, err = os.Stat(info.Path)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is harmless.
	assert.NoError(t, store.Remove(ctx, info))
}

func TestTempStore_SaveSanitizesPath(t *testing.T) {
	store, err := NewTempStore(t.TempDir())
	require.NoError(t, err)

	info, err := store.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, store.Dir(), filepath.Dir(info.Path))
}

func TestTempStore_Sweep(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewTempStore(dir)
	require.NoError(t, err)

	old, err := store.Save(ctx, "old.csv", strings.NewReader("a"))
	require.NoError(t, err)
	fresh, err := store.Save(ctx, "fresh.csv", strings.NewReader("b"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old.Path, past, past))

	// Files not created by the store are left alone.
	foreign := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(foreign, past, past))

	removed, err := store.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(old.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh.Path)
	assert.NoError(t, err)
	_, err = os.Stat(foreign)
	assert.NoError(t, err)
}
