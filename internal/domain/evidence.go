package domain

import "time"

// Evidence stores metadata for a file attached to a report.
type Evidence struct {
	ID          string
	ReportID    string
	StorageKey  string
	FileName    string
	ContentType string
	SizeBytes   int64
	Caption     *string
	UploadedAt  time.Time
}
