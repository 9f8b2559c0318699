package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/config"
)

func TestNewKeyFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^evidence/rep-1/[0-9A-HJKMNP-TV-Z]{26}\.jpg$`)
	assert.Regexp(t, pattern, NewKey("rep-1", "Photo.JPG", "image/jpeg"))

	first := NewKey("rep-1", "a.pdf", "application/pdf")
	second := NewKey("rep-1", "a.pdf", "application/pdf")
	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}

func TestExtensionFallsBackToContentType(t *testing.T) {
	assert.Equal(t, ".pdf", extension("statement", "application/pdf"))
	assert.Equal(t, "", extension("blob", "application/x-unknown-thing"))
	assert.Equal(t, ".mp4", extension("clip.MP4", "video/mp4"))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "evidence/r1/01.txt"
	require.NoError(t, store.Put(ctx, key, strings.NewReader("witness statement"), 17, "text/plain"))

	rc, err := store.Open(key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "witness statement", string(body))

	require.NoError(t, store.Delete(ctx, key))
	assert.ErrorIs(t, store.Delete(ctx, key), ErrNotFound)
	_, err = store.Open(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreLeavesNoPartialFile(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.Put(ctx, "evidence/r1/cancelled.bin", strings.NewReader("data"), 4, "")
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(filepath.Join(root, "evidence", "r1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape.txt", "evidence/../../escape.txt", ".."} {
		err := store.Put(context.Background(), key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, key)
	}
}

func TestNewSelectsDriver(t *testing.T) {
	logger := zap.NewNop()

	store, err := New(context.Background(), config.StorageConfig{Driver: "local", LocalDir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), config.StorageConfig{Driver: "ftp"}, logger)
	assert.ErrorContains(t, err, "unknown storage driver")

	_, err = New(context.Background(), config.StorageConfig{Driver: "s3"}, logger)
	assert.ErrorContains(t, err, "STORAGE_S3_BUCKET")
}
