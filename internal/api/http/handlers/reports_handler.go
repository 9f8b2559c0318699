package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rightsplace/rightsplace/internal/api/dto"
	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/service"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// ReportsHandler accepts report submissions from anonymous and registered reporters.
type ReportsHandler struct {
	service       *service.ReportService
	evidenceField string
}

// NewReportsHandler constructs handler. evidenceField names the multipart
// part carrying the files.
func NewReportsHandler(reportService *service.ReportService, evidenceField string) *ReportsHandler {
	if evidenceField == "" {
		evidenceField = "evidence_files"
	}
	return &ReportsHandler{service: reportService, evidenceField: evidenceField}
}

// Submit POST /reports.
func (h *ReportsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input, err := submissionFrom(req)
	if err != nil {
		return err
	}
	files, err := evidenceFiles(c, h.evidenceField, req.Captions)
	if err != nil {
		return err
	}

	result, err := h.service.SubmitReport(c.UserContext(), actorFrom(c), input, files)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.SubmissionResponse{
		Report:   dto.NewReportResponse(result.Report),
		Evidence: dto.NewEvidenceResponses(result.Evidence),
		Skipped:  dto.NewSkippedResponses(result.Skipped),
	}, result.Warnings)
}

func submissionFrom(req dto.SubmitReportRequest) (service.ReportSubmission, error) {
	input := service.ReportSubmission{
		Title:            req.Title,
		Description:      req.Description,
		Category:         domain.ReportCategory(strings.ToUpper(strings.TrimSpace(req.Category))),
		IncidentLocation: optionalString(req.IncidentLocation),
		ContactEmail:     optionalString(req.ContactEmail),
		ContactPhone:     optionalString(req.ContactPhone),
	}
	date, err := dto.ParseDate(strings.TrimSpace(req.IncidentDate))
	if err != nil {
		return input, apperrors.NewFieldError("incident_date", "Enter a valid date.")
	}
	input.IncidentDate = date
	return input, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
