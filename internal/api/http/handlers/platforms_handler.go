package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/platform-desk/internal/api/dto"
	"github.com/spec-kit/platform-desk/internal/auth"
	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/service"
	apperrors "github.com/spec-kit/platform-desk/pkg/util"
)

// PlatformsHandler manages platform and operator-preference endpoints.
type PlatformsHandler struct {
	service *service.PlatformService
}

// NewPlatformsHandler constructs handler.
func NewPlatformsHandler(platformService *service.PlatformService) *PlatformsHandler {
	return &PlatformsHandler{service: platformService}
}

// CreatePlatform POST /platforms. Admin only.
func (h *PlatformsHandler) CreatePlatform(c *fiber.Ctx) error {
	var req dto.CreatePlatformRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	platform, err := h.service.CreatePlatform(c.Context(), req.Name, req.RepositoryURL)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": platformResponse(platform)})
}

// ListPlatforms GET /platforms.
func (h *PlatformsHandler) ListPlatforms(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	platforms, err := h.service.ListPlatforms(c.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.PlatformResponse, 0, len(platforms))
	for i := range platforms {
		items = append(items, platformResponse(&platforms[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetPlatform GET /platforms/:id.
func (h *PlatformsHandler) GetPlatform(c *fiber.Ctx) error {
	platform, err := h.service.GetPlatform(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": platformResponse(platform)})
}

// ListOperators GET /platforms/:id/operators. Staff only.
func (h *PlatformsHandler) ListOperators(c *fiber.Ctx) error {
	operators, err := h.service.ListOperators(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"operator_ids": operators}})
}

// RegisterPreference POST /platforms/:id/preferences. Staff only; the
// preference belongs to the caller.
func (h *PlatformsHandler) RegisterPreference(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.RegisterPreference(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"registered": true}})
}

// RemovePreference DELETE /platforms/:id/preferences. Staff only.
func (h *PlatformsHandler) RemovePreference(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.RemovePreference(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

func platformResponse(platform *domain.Platform) dto.PlatformResponse {
	return dto.PlatformResponse{
		ID:            platform.ID,
		Name:          platform.Name,
		RepositoryURL: platform.RepositoryURL,
		CreatedAt:     platform.CreatedAt,
	}
}
