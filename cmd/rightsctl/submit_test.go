package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitCommand(t *testing.T) {
	type seen struct {
		path, auth, description, category, caption string
		files                                      []string
	}
	got := make(chan seen, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s := seen{
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			description: r.FormValue("description"),
			category:    r.FormValue("category"),
			caption:     r.FormValue("evidence_captions"),
		}
		for _, fh := range r.MultipartForm.File["evidence_files"] {
			s.files = append(s.files, fh.Filename)
		}
		got <- s
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"data":     map[string]any{"report": map[string]any{"id": "r-1"}},
			"warnings": []string{},
		})
	}))
	defer server.Close()

	dir := t.TempDir()
	photo := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg"), 0o600))

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"submit", "--server", server.URL + "/", "--token", "tok",
		"-d", "Officers demanded money", "--category", "HR", "--caption", "checkpoint", photo})
	require.NoError(t, root.ExecuteContext(context.Background()))

	s := <-got
	assert.Equal(t, "/reports", s.path)
	assert.Equal(t, "Bearer tok", s.auth)
	assert.Equal(t, "Officers demanded money", s.description)
	assert.Equal(t, "HR", s.category)
	assert.Equal(t, "checkpoint", s.caption)
	assert.Equal(t, []string{"photo.jpg"}, s.files)

	assert.JSONEq(t, `{"report":{"id":"r-1"}}`, stdout.String())
	assert.Contains(t, stderr.String(), "staged 1 file(s)")
	assert.Contains(t, stderr.String(), "uploading 100%")
}

func TestSubmitCommandKeepsCaptionsWithTheirFiles(t *testing.T) {
	type seen struct {
		files, captions []string
	}
	got := make(chan seen, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s := seen{captions: r.MultipartForm.Value["evidence_captions"]}
		for _, fh := range r.MultipartForm.File["evidence_files"] {
			s.files = append(s.files, fh.Filename)
		}
		got <- s
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
	}))
	defer server.Close()

	dir := t.TempDir()
	video := filepath.Join(dir, "video.mp4")
	f, err := os.Create(video)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(150<<20))
	require.NoError(t, f.Close())
	photo := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg"), 0o600))

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"submit", "--server", server.URL, "-d", "Checkpoint footage",
		"--caption", "caption for video", "--caption", "caption for photo", video, photo})
	require.NoError(t, root.ExecuteContext(context.Background()))

	s := <-got
	assert.Equal(t, []string{"photo.jpg"}, s.files)
	assert.Equal(t, []string{"caption for photo"}, s.captions)
	assert.Contains(t, stderr.String(), "video.mp4 is larger than")
}

func TestSubmitCommandPrintsFieldErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"code": "VALIDATION_FAILED", "message": "validation failed"},
			"errors":  map[string][]string{"category": {"Select a valid choice."}},
		})
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"submit", "--server", server.URL, "-d", "x", "--category", "ZZ"})
	err := root.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, stderr.String(), "category: Select a valid choice.")
	assert.Empty(t, stdout.String())
}

func TestSubmitCommandRequiresDescription(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"submit"})
	assert.ErrorContains(t, root.ExecuteContext(context.Background()), "description")
}
