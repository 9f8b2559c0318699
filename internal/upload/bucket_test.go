package upload

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingView struct {
	renders int
	entries []Entry
	files   []File
}

func (v *recordingView) Render(entries []Entry, files []File) {
	v.renders++
	v.entries = entries
	v.files = files
}

func stubFile(name string, size int64) File {
	return File{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(strings.Repeat("x", int(size)))), nil
		},
	}
}

func names(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestAddFilesStopsAtLimit(t *testing.T) {
	view := &recordingView{}
	c := NewController(view, Limits{MaxFiles: 3, MaxFileSize: 100})

	warnings := c.AddFiles([]File{stubFile("a", 1), stubFile("b", 1)})
	assert.Empty(t, warnings)

	warnings = c.AddFiles([]File{stubFile("c", 1), stubFile("d", 1), stubFile("e", 1)})
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningLimit, warnings[0].Kind)
	assert.Equal(t, "d", warnings[0].FileName)
	assert.Equal(t, "You can upload a maximum of 3 files.", warnings[0].Message)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"a", "b", "c"}, names(c.Synchronize()))
	assert.Equal(t, 2, view.renders)
}

func TestAddFilesSkipsOversized(t *testing.T) {
	view := &recordingView{}
	c := NewController(view, Limits{MaxFiles: 5, MaxFileSize: 10})

	warnings := c.AddFiles([]File{stubFile("small", 4), stubFile("huge", 11), stubFile("edge", 10)})
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningTooLarge, warnings[0].Kind)
	assert.Equal(t, "huge", warnings[0].FileName)
	assert.Equal(t, "huge is larger than 10 B and was not added.", warnings[0].Message)
	assert.Equal(t, []string{"small", "edge"}, names(c.Synchronize()))
}

func TestSkippedFilesDoNotShiftCaptions(t *testing.T) {
	c := NewController(nil, Limits{MaxFiles: 5, MaxFileSize: 100})
	video := stubFile("video.mp4", 150)
	video.Caption = "caption for video"
	photo := stubFile("photo.jpg", 10)
	photo.Caption = "caption for photo"

	warnings := c.AddFiles([]File{video, photo})
	require.Len(t, warnings, 1)
	files := c.Synchronize()
	require.Len(t, files, 1)
	assert.Equal(t, "photo.jpg", files[0].Name)
	assert.Equal(t, "caption for photo", files[0].Caption)
}

func TestRenderMatchesSubmissionSet(t *testing.T) {
	view := &recordingView{}
	c := NewController(view, Limits{})
	c.AddFiles([]File{stubFile("one.jpg", 2048), stubFile("two.pdf", 10), stubFile("three.mp3", 5)})

	require.NoError(t, c.RemoveFile(1))
	assert.ErrorIs(t, c.RemoveFile(5), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.RemoveFile(-1), ErrIndexOutOfRange)

	assert.Equal(t, 2, view.renders)
	assert.Equal(t, names(c.Synchronize()), names(view.files))
	require.Len(t, view.entries, 2)
	assert.Equal(t, Entry{Position: 0, Name: "one.jpg", Size: 2048, Label: "one.jpg (2.0 KB)"}, view.entries[0])
	assert.Equal(t, 1, view.entries[1].Position)
	assert.Equal(t, "three.mp3", view.entries[1].Name)
}

func TestSynchronizeReturnsCopy(t *testing.T) {
	c := NewController(nil, Limits{})
	c.AddFiles([]File{stubFile("a", 1)})
	files := c.Synchronize()
	files[0].Name = "changed"
	assert.Equal(t, "a", c.Synchronize()[0].Name)
}

func TestNewControllerDefaults(t *testing.T) {
	c := NewController(nil, Limits{})
	assert.Equal(t, DefaultMaxFiles, c.limits.MaxFiles)
	assert.Equal(t, int64(DefaultMaxFileSize), c.limits.MaxFileSize)
}

func TestFileFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	f, err := FileFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "statement.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, int64(8), f.Size)

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))

	_, err = FileFromPath(dir)
	assert.Error(t, err)
	_, err = FileFromPath(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "1.5 KB", HumanSize(1536))
	assert.Equal(t, "100.0 MB", HumanSize(100<<20))
	assert.Equal(t, "2.0 GB", HumanSize(2<<30))
}
