// Package upload stages evidence files on the client and submits them to the
// report endpoint as one streamed multipart body.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultMaxFiles    = 20
	DefaultMaxFileSize = 100 << 20
)

// ErrIndexOutOfRange is returned by RemoveFile for an unknown position.
var ErrIndexOutOfRange = errors.New("upload: index out of range")

// File is a staged evidence file. Open is called once per submission attempt.
// Caption travels with the file so skipped candidates cannot shift it.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Caption     string
	Open        func() (io.ReadCloser, error)
}

// FileFromPath stages a file from disk.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("upload: %s is a directory", path)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// Entry is one row of the rendered bucket.
type Entry struct {
	Position int
	Name     string
	Size     int64
	Label    string
}

// View displays the bucket. Render receives the visible rows and the exact
// file set that will be submitted; it must not call back into the Controller.
type View interface {
	Render(entries []Entry, files []File)
}

// ViewFunc adapts a function to View.
type ViewFunc func(entries []Entry, files []File)

func (f ViewFunc) Render(entries []Entry, files []File) { f(entries, files) }

// WarningKind classifies a rejected candidate.
type WarningKind string

const (
	WarningLimit    WarningKind = "limit"
	WarningTooLarge WarningKind = "too_large"
)

// Warning explains why a candidate was not staged.
type Warning struct {
	Kind     WarningKind
	FileName string
	Message  string
}

// Limits bounds the bucket.
type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

// Controller owns the ordered staging bucket.
type Controller struct {
	mu     sync.Mutex
	files  []File
	view   View
	limits Limits
}

// NewController creates an empty bucket rendered through view. Zero limits
// take the defaults.
func NewController(view View, limits Limits) *Controller {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = DefaultMaxFiles
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = DefaultMaxFileSize
	}
	return &Controller{view: view, limits: limits}
}

// AddFiles stages candidates in order. Once the bucket is full the rest of the
// batch is dropped with a single limit warning; oversized files are skipped
// one by one.
func (c *Controller) AddFiles(candidates []File) []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()

	var warnings []Warning
	for _, candidate := range candidates {
		if len(c.files) >= c.limits.MaxFiles {
			warnings = append(warnings, Warning{
				Kind:     WarningLimit,
				FileName: candidate.Name,
				Message:  fmt.Sprintf("You can upload a maximum of %d files.", c.limits.MaxFiles),
			})
			break
		}
		if candidate.Size > c.limits.MaxFileSize {
			warnings = append(warnings, Warning{
				Kind:     WarningTooLarge,
				FileName: candidate.Name,
				Message:  fmt.Sprintf("%s is larger than %s and was not added.", candidate.Name, HumanSize(c.limits.MaxFileSize)),
			})
			continue
		}
		c.files = append(c.files, candidate)
	}
	c.refresh()
	return warnings
}

// RemoveFile unstages the file at index.
func (c *Controller) RemoveFile(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.files) {
		return ErrIndexOutOfRange
	}
	c.files = append(c.files[:index], c.files[index+1:]...)
	c.refresh()
	return nil
}

// Synchronize returns the submission file set in bucket order.
func (c *Controller) Synchronize() []File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Len returns the number of staged files.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

func (c *Controller) snapshot() []File {
	out := make([]File, len(c.files))
	copy(out, c.files)
	return out
}

// refresh renders and synchronizes in one step. Callers hold mu.
func (c *Controller) refresh() {
	if c.view == nil {
		return
	}
	files := c.snapshot()
	entries := make([]Entry, 0, len(files))
	for i, f := range files {
		entries = append(entries, Entry{
			Position: i,
			Name:     f.Name,
			Size:     f.Size,
			Label:    fmt.Sprintf("%s (%s)", f.Name, HumanSize(f.Size)),
		})
	}
	c.view.Render(entries, files)
}

// HumanSize formats a byte count with binary units.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
