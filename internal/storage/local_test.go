package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/api/files/")
	require.NoError(t, err)

	info, err := store.Save(context.Background(),
		"documents/abc_passport.pdf", strings.NewReader("pdf-bytes"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "/api/files/documents/abc_passport.pdf", info.URL)
	assert.Equal(t, "abc_passport.pdf", info.FileName)
	assert.Equal(t, int64(9), info.FileSize)
	assert.Equal(t, "application/pdf", info.FileType)

	data, err := os.ReadFile(filepath.Join(dir, "documents", "abc_passport.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), "documents/abc_passport.pdf"))
	_, err = os.Stat(filepath.Join(dir, "documents", "abc_passport.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_DeleteMissingIsNoError(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/api/files")
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "documents/never-existed.pdf"))
}

func TestLocalStore_URL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/api/files")
	require.NoError(t, err)

	assert.Equal(t, "/api/files/contracts/x.pdf", store.URL("contracts/x.pdf"))
	assert.Equal(t, "/api/files/contracts/x.pdf", store.URL("/contracts/x.pdf"))
}
