package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rightsplace/rightsplace/internal/api/dto"
	"github.com/rightsplace/rightsplace/internal/service"
)

// PartnersHandler lists verified lawyers and NGOs.
type PartnersHandler struct {
	service *service.VerificationService
}

// NewPartnersHandler constructs handler.
func NewPartnersHandler(verificationService *service.VerificationService) *PartnersHandler {
	return &PartnersHandler{service: verificationService}
}

// ListVerified GET /partners/verified.
func (h *PartnersHandler) ListVerified(c *fiber.Ctx) error {
	partners, err := h.service.ListVerifiedPartners(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PartnerResponse, 0, len(partners))
	for _, partner := range partners {
		items = append(items, dto.NewPartnerResponse(partner))
	}
	return ok(c, items)
}
