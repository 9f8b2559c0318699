// Package storage persists evidence blobs behind a small interface so the
// evidence service does not care whether files land on disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/config"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// BlobStore saves and removes evidence files.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewKey returns evidence/<report-id>/<ulid><ext>. The extension comes from the
// original file name, or from the content type when the name has none.
func NewKey(reportID, fileName, contentType string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	entropyMu.Unlock()
	return fmt.Sprintf("evidence/%s/%s%s", reportID, id, extension(fileName, contentType))
}

func extension(fileName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" && len(ext) <= 10 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// New builds the store selected by cfg.Driver ("local" or "s3").
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Driver {
	case "", "local":
		logger.Info("using local evidence storage", zap.String("dir", cfg.LocalDir))
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		logger.Info("using s3 evidence storage", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
