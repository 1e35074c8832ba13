package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/coupondrop/coupon-claim-system/internal/model"
	"github.com/coupondrop/coupon-claim-system/internal/service"
)

// CouponServiceInterface defines the interface for admin coupon logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
	GetByID(ctx context.Context, id int64) (*model.Coupon, error)
	Update(ctx context.Context, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error)
	Delete(ctx context.Context, id int64) error
}

// CouponHandler handles admin HTTP requests for coupon CRUD.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
	devMode   bool
}

// NewCouponHandler creates a CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate, devMode bool) *CouponHandler {
	return &CouponHandler{service: svc, validator: v, devMode: devMode}
}

// formatValidationError converts validator errors to user-facing messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			switch fe.Tag() {
			case "required":
				return "invalid request: " + fe.Field() + " is required"
			case "notblank":
				return "invalid request: " + fe.Field() + " cannot be whitespace only"
			case "max":
				return "invalid request: " + fe.Field() + " exceeds maximum length"
			default:
				return "invalid request: " + fe.Field() + " is invalid"
			}
		}
	}
	return "invalid request"
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	return strconv.ParseInt(c.Params(param), 10, 64)
}

// ListCoupons handles GET /api/coupons.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list coupons")
		return serverError(c, err, h.devMode)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(coupons),
		"coupons": coupons,
	})
}

// GetCoupon handles GET /api/coupons/:id.
func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid coupon id")
	}

	coupon, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return fail(c, fiber.StatusNotFound, "Coupon not found")
		}
		log.Error().Err(err).Int64("coupon_id", id).Msg("failed to get coupon")
		return serverError(c, err, h.devMode)
	}
	return c.JSON(fiber.Map{"success": true, "coupon": coupon})
}

// CreateCoupon handles POST /api/coupons.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, formatValidationError(err))
	}

	coupon, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponExists) {
			return fail(c, fiber.StatusBadRequest, "Coupon with this code already exists")
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return fail(c, fiber.StatusBadRequest, "invalid request")
		}
		log.Error().Err(err).Str("code", req.Code).Msg("failed to create coupon")
		return serverError(c, err, h.devMode)
	}

	log.Info().Int64("coupon_id", coupon.ID).Str("code", coupon.Code).Msg("coupon created")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "coupon": coupon})
}

// UpdateCoupon handles PUT /api/coupons/:id.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid coupon id")
	}

	var req model.UpdateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, formatValidationError(err))
	}

	coupon, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return fail(c, fiber.StatusNotFound, "Coupon not found")
		}
		if errors.Is(err, service.ErrCouponExists) {
			return fail(c, fiber.StatusBadRequest, "Coupon with this code already exists")
		}
		log.Error().Err(err).Int64("coupon_id", id).Msg("failed to update coupon")
		return serverError(c, err, h.devMode)
	}
	return c.JSON(fiber.Map{"success": true, "coupon": coupon})
}

// DeleteCoupon handles DELETE /api/coupons/:id.
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid coupon id")
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return fail(c, fiber.StatusNotFound, "Coupon not found")
		}
		if errors.Is(err, service.ErrCouponClaimed) {
			return fail(c, fiber.StatusBadRequest, "Cannot delete a coupon that has been claimed")
		}
		log.Error().Err(err).Int64("coupon_id", id).Msg("failed to delete coupon")
		return serverError(c, err, h.devMode)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Coupon removed"})
}
