package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/config"
	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/events"
	"github.com/rightsplace/rightsplace/internal/observability"
	"github.com/rightsplace/rightsplace/internal/repository"
	"github.com/rightsplace/rightsplace/internal/storage"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// SkipReason explains why an evidence file was not stored.
type SkipReason string

const (
	SkipTooLarge        SkipReason = "too_large"
	SkipUnsupportedType SkipReason = "unsupported_type"
	SkipLimitReached    SkipReason = "limit_reached"
)

const maxFileNameLength = 255

// EvidenceFile is one uploaded file awaiting storage.
type EvidenceFile struct {
	FileName    string
	ContentType string
	Size        int64
	Caption     *string
	Open        func() (io.ReadCloser, error)
}

// SkippedFile reports a file that was not stored.
type SkippedFile struct {
	FileName string
	Size     int64
	Reason   SkipReason
	Message  string
}

// AttachResult summarises an attach batch.
type AttachResult struct {
	Stored   []domain.Evidence
	Skipped  []SkippedFile
	Warnings []string
}

// EvidenceService stores evidence blobs and their metadata rows.
type EvidenceService struct {
	evidence repository.EvidenceRepository
	reports  repository.ReportRepository
	blobs    storage.BlobStore
	cfg      config.UploadConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
	events   publisher
}

// EvidenceDependencies bundles collaborators for the evidence service.
type EvidenceDependencies struct {
	EvidenceRepo repository.EvidenceRepository
	ReportRepo   repository.ReportRepository
	Blobs        storage.BlobStore
	Upload       config.UploadConfig
	Metrics      *observability.Metrics
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewEvidenceService constructs the service.
func NewEvidenceService(deps EvidenceDependencies) *EvidenceService {
	logger := nopLogger(deps.Logger)
	return &EvidenceService{
		evidence: deps.EvidenceRepo,
		reports:  deps.ReportRepo,
		blobs:    deps.Blobs,
		cfg:      deps.Upload,
		metrics:  deps.Metrics,
		logger:   logger,
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// AttachEvidence adds files to an existing report on behalf of an administrator.
func (s *EvidenceService) AttachEvidence(ctx context.Context, actor *domain.Actor, reportID string, files []EvidenceFile) (*AttachResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return nil, notFoundOr(err, "report", map[string]any{"report_id": reportID})
	}

	result, err := s.attach(ctx, reportID, files)
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, events.Event{
		Type:     events.EventEvidenceAttached,
		ReportID: reportID,
		Actor:    events.ActorFrom(actor),
		Payload:  events.EvidenceAttachedPayload{Stored: len(result.Stored), Skipped: len(result.Skipped)},
	})
	return result, nil
}

// ListForReport returns a report's evidence in upload order.
func (s *EvidenceService) ListForReport(ctx context.Context, reportID string) ([]domain.Evidence, error) {
	items, err := s.evidence.ListByReport(ctx, reportID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// attach stores files in order. Oversized and unsupported files are skipped one by one;
// once the report holds MaxFiles items the rest of the batch is discarded.
func (s *EvidenceService) attach(ctx context.Context, reportID string, files []EvidenceFile) (*AttachResult, error) {
	result := &AttachResult{}
	if len(files) == 0 {
		return result, nil
	}

	count, err := s.evidence.CountByReport(ctx, reportID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	for i, file := range files {
		if count >= s.cfg.MaxFiles {
			s.discard(result, files[i:])
			break
		}
		if file.Size > s.cfg.MaxFileSize() {
			s.skip(result, file, SkipTooLarge,
				fmt.Sprintf("%q exceeds the %d MB limit and was skipped", file.FileName, s.cfg.MaxFileSizeMB))
			continue
		}
		contentType, ok := s.resolveContentType(file)
		if !ok {
			s.skip(result, file, SkipUnsupportedType,
				fmt.Sprintf("%q has unsupported type %q and was skipped", file.FileName, contentType))
			continue
		}

		stored, err := s.store(ctx, reportID, file, contentType)
		if errors.Is(err, repository.ErrEvidenceLimit) {
			s.discard(result, files[i:])
			break
		}
		if err != nil {
			return nil, err
		}
		result.Stored = append(result.Stored, *stored)
		count++
	}

	s.metrics.EvidenceStored(len(result.Stored))
	return result, nil
}

func (s *EvidenceService) store(ctx context.Context, reportID string, file EvidenceFile, contentType string) (*domain.Evidence, error) {
	key := storage.NewKey(reportID, file.FileName, contentType)

	body, err := file.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("open upload %q: %w", file.FileName, err))
	}
	defer body.Close()

	if err := s.blobs.Put(ctx, key, body, file.Size, contentType); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("store evidence blob: %w", err))
	}

	evidence := &domain.Evidence{
		ReportID:    reportID,
		StorageKey:  key,
		FileName:    cleanFileName(file.FileName),
		ContentType: contentType,
		SizeBytes:   file.Size,
		Caption:     file.Caption,
	}
	if err := s.evidence.CreateWithinLimit(ctx, evidence, s.cfg.MaxFiles); err != nil {
		s.deleteBlob(ctx, key)
		if errors.Is(err, repository.ErrEvidenceLimit) {
			return nil, err
		}
		return nil, apperrors.MapError(err)
	}
	return evidence, nil
}

func (s *EvidenceService) skip(result *AttachResult, file EvidenceFile, reason SkipReason, message string) {
	result.Skipped = append(result.Skipped, SkippedFile{
		FileName: file.FileName,
		Size:     file.Size,
		Reason:   reason,
		Message:  message,
	})
	result.Warnings = append(result.Warnings, message)
	s.metrics.EvidenceSkipped(string(reason))
}

func (s *EvidenceService) discard(result *AttachResult, rest []EvidenceFile) {
	for _, file := range rest {
		result.Skipped = append(result.Skipped, SkippedFile{
			FileName: file.FileName,
			Size:     file.Size,
			Reason:   SkipLimitReached,
			Message:  fmt.Sprintf("%q discarded: evidence limit reached", file.FileName),
		})
		s.metrics.EvidenceSkipped(string(SkipLimitReached))
	}
	result.Warnings = append(result.Warnings,
		fmt.Sprintf("a report can hold at most %d evidence files; %d file(s) were discarded", s.cfg.MaxFiles, len(rest)))
}

// resolveContentType falls back to the file extension when the client sent no
// useful type, then checks the allow-list.
func (s *EvidenceService) resolveContentType(file EvidenceFile) (string, bool) {
	contentType := normalizeMediaType(file.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		if guessed := normalizeMediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(file.FileName)))); guessed != "" {
			contentType = guessed
		}
	}
	if contentType == "" {
		return "", false
	}
	for _, prefix := range s.cfg.AllowedPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return contentType, true
		}
	}
	for _, allowed := range s.cfg.AllowedTypes {
		if contentType == allowed {
			return contentType, true
		}
	}
	return contentType, false
}

// DeleteForReport removes every blob of a report. Rows cascade with the report.
func (s *EvidenceService) DeleteForReport(ctx context.Context, reportID string) error {
	items, err := s.evidence.ListByReport(ctx, reportID)
	if err != nil {
		return apperrors.MapError(err)
	}
	s.removeBlobs(ctx, items)
	return nil
}

func (s *EvidenceService) removeBlobs(ctx context.Context, items []domain.Evidence) {
	for _, item := range items {
		s.deleteBlob(ctx, item.StorageKey)
	}
}

func (s *EvidenceService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("failed to delete evidence blob", zap.String("key", key), zap.Error(err))
	}
}

func normalizeMediaType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(value)
	}
	return mediaType
}

func cleanFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	if len(name) > maxFileNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = strings.ToValidUTF8(name[:maxFileNameLength-len(ext)], "") + ext
	}
	return name
}
