package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rightsplace/rightsplace/internal/api/dto"
	"github.com/rightsplace/rightsplace/internal/service"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// AdminHandler exposes the administrator operations on reports, partners and cases.
type AdminHandler struct {
	reports       *service.ReportService
	evidence      *service.EvidenceService
	cases         *service.CaseService
	verification  *service.VerificationService
	evidenceField string
}

// AdminDependencies bundles the services behind the admin routes.
type AdminDependencies struct {
	Reports       *service.ReportService
	Evidence      *service.EvidenceService
	Cases         *service.CaseService
	Verification  *service.VerificationService
	EvidenceField string
}

// NewAdminHandler constructs handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	field := deps.EvidenceField
	if field == "" {
		field = "evidence_files"
	}
	return &AdminHandler{
		reports:       deps.Reports,
		evidence:      deps.Evidence,
		cases:         deps.Cases,
		verification:  deps.Verification,
		evidenceField: field,
	}
}

// ListReports GET /admin/reports.
func (h *AdminHandler) ListReports(c *fiber.Ctx) error {
	query, err := parseReportListQuery(c)
	if err != nil {
		return err
	}
	items, err := h.reports.ListReports(c.UserContext(), actorFrom(c), service.AdminReportFilter{
		Statuses:    query.Statuses,
		Categories:  query.Categories,
		SearchTerm:  query.Search,
		CreatedFrom: query.CreatedFrom,
		CreatedTo:   query.CreatedTo,
		Limit:       query.PageSize,
		Offset:      (query.Page - 1) * query.PageSize,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"items":     dto.NewAdminReportSummaries(items),
		"page":      query.Page,
		"page_size": query.PageSize,
	})
}

// GetReport GET /admin/reports/:id.
func (h *AdminHandler) GetReport(c *fiber.Ctx) error {
	detail, err := h.reports.GetReport(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.ReportDetailResponse{
		Report:   dto.NewAdminReportResponse(detail.Report),
		Evidence: dto.NewEvidenceResponses(detail.Evidence),
		Case:     dto.NewCaseResponse(detail.Case),
	})
}

// DeleteReport DELETE /admin/reports/:id.
func (h *AdminHandler) DeleteReport(c *fiber.Ctx) error {
	if err := h.reports.DeleteReport(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"id": c.Params("id"), "deleted": true})
}

// History GET /admin/reports/:id/history.
func (h *AdminHandler) History(c *fiber.Ctx) error {
	entries, err := h.reports.History(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewHistoryResponses(entries))
}

// AttachEvidence POST /admin/reports/:id/evidence.
func (h *AdminHandler) AttachEvidence(c *fiber.Ctx) error {
	var captions struct {
		Captions []string `form:"evidence_captions"`
	}
	if isMultipart(c) {
		if err := c.BodyParser(&captions); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	files, err := evidenceFiles(c, h.evidenceField, captions.Captions)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return apperrors.NewFieldError(h.evidenceField, "No file was submitted.")
	}
	result, err := h.evidence.AttachEvidence(c.UserContext(), actorFrom(c), c.Params("id"), files)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.AttachResponse{
		Evidence: dto.NewEvidenceResponses(result.Stored),
		Skipped:  dto.NewSkippedResponses(result.Skipped),
	}, result.Warnings)
}

// VerifyPartner POST /admin/partners/:id/verify.
func (h *AdminHandler) VerifyPartner(c *fiber.Ctx) error {
	profile, err := h.verification.VerifyPartner(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewProfileResponse(profile))
}

// CreateCase POST /admin/cases.
func (h *AdminHandler) CreateCase(c *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	fields := apperrors.FieldErrors{}
	if strings.TrimSpace(req.ReportID) == "" {
		fields.Add("report_id", "This field is required.")
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		fields.Add("assignee_id", "This field is required.")
	}
	if err := fields.Err(); err != nil {
		return err
	}
	created, err := h.cases.CreateCase(c.UserContext(), actorFrom(c), req.ReportID, req.AssigneeID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewCaseResponse(created), nil)
}

// ResolveCase POST /admin/cases/:id/resolve.
func (h *AdminHandler) ResolveCase(c *fiber.Ctx) error {
	resolved, err := h.cases.ResolveCase(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewCaseResponse(resolved))
}

// UpdateCase PATCH /admin/cases/:id.
func (h *AdminHandler) UpdateCase(c *fiber.Ctx) error {
	var req dto.UpdateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.CaseNotesInput{StatusUpdate: req.StatusUpdate}
	if req.LastContactDate != nil {
		date, err := dto.ParseDate(strings.TrimSpace(*req.LastContactDate))
		if err != nil {
			return apperrors.NewFieldError("last_contact_date", "Enter a valid date.")
		}
		input.LastContactDate = date
	}
	updated, err := h.cases.UpdateCaseNotes(c.UserContext(), actorFrom(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return ok(c, dto.NewCaseResponse(updated))
}

// GetCase GET /admin/cases/:id.
func (h *AdminHandler) GetCase(c *fiber.Ctx) error {
	found, err := h.cases.GetCase(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewCaseResponse(found))
}
