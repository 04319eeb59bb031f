package storage_test

import (
	"strings"
	"testing"
	"time"

	"katalog/internal/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageStore_SaveAndRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := time.UnixMilli(1718000000123)
	store := storage.NewImageStore(fs).WithClock(func() time.Time { return clock })

	name, err := store.Save("kopi susu.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "1718000000123-kopi-susu.jpg", name)
	assert.True(t, exists(t, fs, name))

	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, store.Remove(name))
	assert.False(t, exists(t, fs, name))
	assert.Error(t, store.Remove(name))
}

func TestImageStore_SameMillisecondCollision(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := time.UnixMilli(42)
	store := storage.NewImageStore(fs).WithClock(func() time.Time { return clock })

	first, err := store.Save("a.png", strings.NewReader("1"))
	require.NoError(t, err)
	second, err := store.Save("a.png", strings.NewReader("2"))
	require.NoError(t, err)

	assert.Equal(t, "42-a.png", first)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "42-"))
	assert.True(t, strings.HasSuffix(second, "-a.png"))

	// Existing files are never overwritten
	data, err := afero.ReadFile(fs, first)
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
	data, err = afero.ReadFile(fs, second)
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}

func TestImageStore_RejectsTraversal(t *testing.T) {
	store := storage.NewImageStore(afero.NewMemMapFs())

	name, err := store.Save("../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, "-passwd"))

	assert.ErrorIs(t, store.Remove("../secret"), storage.ErrInvalidFilename)
	assert.ErrorIs(t, store.Remove(""), storage.ErrInvalidFilename)

	_, err = store.Save("", strings.NewReader("x"))
	assert.ErrorIs(t, err, storage.ErrInvalidFilename)
}

func exists(t *testing.T, fs afero.Fs, name string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, name)
	require.NoError(t, err)
	return ok
}
