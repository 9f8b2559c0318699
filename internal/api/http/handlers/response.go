package handlers

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rightsplace/rightsplace/internal/api/dto"
	"github.com/rightsplace/rightsplace/internal/auth"
	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/service"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// respond renders the success half of the response contract.
func respond(c *fiber.Ctx, status int, data any, warnings []string) error {
	if warnings == nil {
		warnings = []string{}
	}
	return c.Status(status).JSON(fiber.Map{
		"success":  true,
		"data":     data,
		"warnings": warnings,
	})
}

func ok(c *fiber.Ctx, data any) error {
	return respond(c, fiber.StatusOK, data, nil)
}

// actorFrom returns nil for anonymous requests.
func actorFrom(c *fiber.Ctx) *domain.Actor {
	principal, found := auth.PrincipalFromContext(c)
	if !found {
		return nil
	}
	return principal.Actor()
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, found := auth.PrincipalFromContext(c)
	if !found || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// evidenceFiles collects the uploaded parts under field, pairing the i-th
// caption with the i-th file.
func evidenceFiles(c *fiber.Ctx, field string, captions []string) ([]service.EvidenceFile, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	headers := form.File[field]
	files := make([]service.EvidenceFile, 0, len(headers))
	for i, header := range headers {
		fh := header
		var caption *string
		if i < len(captions) {
			if trimmed := strings.TrimSpace(captions[i]); trimmed != "" {
				caption = &trimmed
			}
		}
		files = append(files, service.EvidenceFile{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Caption:     caption,
			Open:        openerFor(fh),
		})
	}
	return files, nil
}

func openerFor(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

func parseReportListQuery(c *fiber.Ctx) (dto.ReportListQuery, error) {
	query := dto.ReportListQuery{Page: 1, PageSize: 20}
	for _, part := range splitList(c.Query("status")) {
		query.Statuses = append(query.Statuses, domain.ReportStatus(part))
	}
	for _, part := range splitList(c.Query("category")) {
		query.Categories = append(query.Categories, domain.ReportCategory(strings.ToUpper(part)))
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query.Search = &search
	}
	fields := apperrors.FieldErrors{}
	if raw := c.Query("created_from"); raw != "" {
		if from := parseTime(raw); from != nil {
			query.CreatedFrom = from
		} else {
			fields.Add("created_from", "Enter a valid date.")
		}
	}
	if raw := c.Query("created_to"); raw != "" {
		if to := parseTime(raw); to != nil {
			query.CreatedTo = to
		} else {
			fields.Add("created_to", "Enter a valid date.")
		}
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			fields.Add("page", "Enter a positive whole number.")
		} else {
			query.Page = page
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > 100 {
			fields.Add("page_size", "Ensure this value is between 1 and 100.")
		} else {
			query.PageSize = size
		}
	}
	return query, fields.Err()
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTime accepts RFC3339 timestamps and plain dates.
func parseTime(value string) *time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	if t, err := time.Parse(dto.DateLayout, value); err == nil {
		return &t
	}
	return nil
}
