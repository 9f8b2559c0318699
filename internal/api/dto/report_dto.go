package dto

import (
	"time"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/service"
)

// SubmitReportRequest holds the non-file fields of the multipart submission.
type SubmitReportRequest struct {
	Title            string   `json:"title" form:"title"`
	Description      string   `json:"description" form:"description"`
	Category         string   `json:"category" form:"category"`
	IncidentLocation string   `json:"incident_location" form:"incident_location"`
	IncidentDate     string   `json:"incident_date" form:"incident_date"`
	ContactEmail     string   `json:"contact_email" form:"contact_email"`
	ContactPhone     string   `json:"contact_phone" form:"contact_phone"`
	Captions         []string `json:"evidence_captions" form:"evidence_captions"`
}

// ReportListQuery captures admin list filters.
type ReportListQuery struct {
	Statuses    []domain.ReportStatus
	Categories  []domain.ReportCategory
	Search      *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// ReportResponse is the report representation shared by every view.
type ReportResponse struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Category         domain.ReportCategory `json:"category"`
	IncidentLocation *string               `json:"incident_location,omitempty"`
	IncidentDate     *string               `json:"incident_date,omitempty"`
	Status           domain.ReportStatus   `json:"status"`
	Anonymous        bool                  `json:"anonymous"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// AdminReportResponse adds the fields only administrators see.
type AdminReportResponse struct {
	ReportResponse
	ReporterID   *string `json:"reporter_id,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`
}

// EvidenceResponse metadata.
type EvidenceResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Caption     *string   `json:"caption,omitempty"`
	StorageKey  string    `json:"storage_key"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// SkippedFileResponse explains a rejected upload.
type SkippedFileResponse struct {
	FileName string             `json:"file_name"`
	Size     int64              `json:"size"`
	Reason   service.SkipReason `json:"reason"`
	Message  string             `json:"message"`
}

// SubmissionResponse is returned after a report is filed.
type SubmissionResponse struct {
	Report   ReportResponse        `json:"report"`
	Evidence []EvidenceResponse    `json:"evidence"`
	Skipped  []SkippedFileResponse `json:"skipped"`
}

// AttachResponse is returned after admins add evidence.
type AttachResponse struct {
	Evidence []EvidenceResponse    `json:"evidence"`
	Skipped  []SkippedFileResponse `json:"skipped"`
}

// ReportWithCaseResponse annotates a report with its case.
type ReportWithCaseResponse struct {
	Report ReportResponse `json:"report"`
	Case   *CaseResponse  `json:"case"`
}

// AdminReportSummary is one row of the admin listing.
type AdminReportSummary struct {
	Report  AdminReportResponse `json:"report"`
	HasCase bool                `json:"has_case"`
	Case    *CaseResponse       `json:"case,omitempty"`
}

// ReportDetailResponse is the admin detail view.
type ReportDetailResponse struct {
	Report   AdminReportResponse `json:"report"`
	Evidence []EvidenceResponse  `json:"evidence"`
	Case     *CaseResponse       `json:"case"`
}

// HistoryResponse is one status transition.
type HistoryResponse struct {
	ID          string         `json:"id"`
	ChangedByID *string        `json:"changed_by_id,omitempty"`
	OldValue    map[string]any `json:"old_value"`
	NewValue    map[string]any `json:"new_value"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewReportResponse maps a report.
func NewReportResponse(report *domain.Report) ReportResponse {
	return ReportResponse{
		ID:               report.ID,
		Title:            report.Title,
		Description:      report.Description,
		Category:         report.Category,
		IncidentLocation: report.IncidentLocation,
		IncidentDate:     FormatDate(report.IncidentDate),
		Status:           report.Status,
		Anonymous:        report.IsAnonymous(),
		CreatedAt:        report.CreatedAt,
		UpdatedAt:        report.UpdatedAt,
	}
}

// NewAdminReportResponse maps a report for administrators.
func NewAdminReportResponse(report *domain.Report) AdminReportResponse {
	return AdminReportResponse{
		ReportResponse: NewReportResponse(report),
		ReporterID:     report.ReporterID,
		ContactEmail:   report.ContactEmail,
		ContactPhone:   report.ContactPhone,
	}
}

// NewEvidenceResponses maps evidence rows.
func NewEvidenceResponses(items []domain.Evidence) []EvidenceResponse {
	out := make([]EvidenceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, EvidenceResponse{
			ID:          item.ID,
			FileName:    item.FileName,
			ContentType: item.ContentType,
			SizeBytes:   item.SizeBytes,
			Caption:     item.Caption,
			StorageKey:  item.StorageKey,
			UploadedAt:  item.UploadedAt,
		})
	}
	return out
}

// NewSkippedResponses maps skipped files.
func NewSkippedResponses(items []service.SkippedFile) []SkippedFileResponse {
	out := make([]SkippedFileResponse, 0, len(items))
	for _, item := range items {
		out = append(out, SkippedFileResponse{
			FileName: item.FileName,
			Size:     item.Size,
			Reason:   item.Reason,
			Message:  item.Message,
		})
	}
	return out
}

// NewReportWithCaseResponses maps dashboard rows.
func NewReportWithCaseResponses(items []service.ReportSummary) []ReportWithCaseResponse {
	out := make([]ReportWithCaseResponse, 0, len(items))
	for i := range items {
		out = append(out, ReportWithCaseResponse{
			Report: NewReportResponse(&items[i].Report),
			Case:   NewCaseResponse(items[i].Case),
		})
	}
	return out
}

// NewAdminReportSummaries maps admin listing rows.
func NewAdminReportSummaries(items []service.ReportSummary) []AdminReportSummary {
	out := make([]AdminReportSummary, 0, len(items))
	for i := range items {
		out = append(out, AdminReportSummary{
			Report:  NewAdminReportResponse(&items[i].Report),
			HasCase: items[i].Case != nil,
			Case:    NewCaseResponse(items[i].Case),
		})
	}
	return out
}

// NewHistoryResponses maps history rows.
func NewHistoryResponses(items []domain.ReportHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(items))
	for _, item := range items {
		out = append(out, HistoryResponse{
			ID:          item.ID,
			ChangedByID: item.ChangedByID,
			OldValue:    item.OldValue,
			NewValue:    item.NewValue,
			CreatedAt:   item.CreatedAt,
		})
	}
	return out
}
