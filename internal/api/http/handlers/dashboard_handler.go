package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rightsplace/rightsplace/internal/api/dto"
	"github.com/rightsplace/rightsplace/internal/service"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// DashboardHandler serves the reporter and partner dashboards.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboardService}
}

// MyReports GET /me/reports.
func (h *DashboardHandler) MyReports(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if principal.Profile == nil {
		return apperrors.NewForbidden()
	}
	items, err := h.service.ReporterDashboard(c.UserContext(), principal.Profile.ID)
	if err != nil {
		return err
	}
	return ok(c, dto.NewReportWithCaseResponses(items))
}

// MyCases GET /me/cases.
func (h *DashboardHandler) MyCases(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if principal.Profile == nil {
		return apperrors.NewForbidden()
	}
	items, err := h.service.ReporterCases(c.UserContext(), principal.Profile.ID)
	if err != nil {
		return err
	}
	return ok(c, dto.NewReportWithCaseResponses(items))
}

// AssignedCases GET /cases/assigned.
func (h *DashboardHandler) AssignedCases(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.service.AssignedCasesDashboard(c.UserContext(), principal.Actor())
	if err != nil {
		return err
	}
	return ok(c, dto.NewAssignedCaseResponses(items))
}
