package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func uploadRequest(t *testing.T, category string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "doc.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	if category != "" {
		require.NoError(t, mw.WriteField("category", category))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newLocalUploadHandler(t *testing.T) (*UploadHandler, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "/api/files")
	require.NoError(t, err)
	return NewUploadHandler(store, dir), dir
}

func TestUpload_DefaultCategory(t *testing.T) {
	h, dir := newLocalUploadHandler(t)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var info storage.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Contains(t, info.URL, "/api/files/documents/")
	assert.Equal(t, "image/png", info.FileType)

	entries, err := os.ReadDir(filepath.Join(dir, "documents"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpload_CategoryCannotEscapeUploadDir(t *testing.T) {
	h, dir := newLocalUploadHandler(t)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "../escaped"))
	require.Equal(t, http.StatusOK, rec.Code)

	var info storage.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.NotContains(t, info.URL, "..")

	// Nothing may land beside the upload directory.
	_, err := os.Stat(filepath.Join(dir, "..", "escaped"))
	assert.True(t, os.IsNotExist(err))

	// The path components were stripped, leaving the plain category name.
	entries, err := os.ReadDir(filepath.Join(dir, "escaped"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpload_DotDotCategoryFallsBackToDefault(t *testing.T) {
	h, dir := newLocalUploadHandler(t)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, ".."))
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := os.ReadDir(filepath.Join(dir, "documents"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpload_RejectsDisallowedType(t *testing.T) {
	h, _ := newLocalUploadHandler(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "script.sh")
	require.NoError(t, err)
	_, err = part.Write([]byte("#!/bin/sh\necho hi\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not allowed")
}

func TestServeFile_UsesConfiguredDir(t *testing.T) {
	h, dir := newLocalUploadHandler(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "documents"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "documents", "a.txt"), []byte("hello"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/files/documents/a.txt", nil)
	rec := httptest.NewRecorder()
	h.ServeFile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passport.pdf", sanitizeFilename("../../passport.pdf"))
	assert.Equal(t, "my_scan.png", sanitizeFilename("my scan.png"))
	assert.Equal(t, "plain.jpg", sanitizeFilename("plain.jpg"))
}
