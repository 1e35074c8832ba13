package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/coupondrop/coupon-claim-system/internal/model"
)

// HistoryServiceInterface defines the interface for claim history queries.
type HistoryServiceInterface interface {
	List(ctx context.Context) ([]model.ClaimDetail, error)
	ByIP(ctx context.Context, ip string) ([]model.ClaimDetail, error)
	ByUser(ctx context.Context, userID int64) ([]model.ClaimDetail, error)
	ByCoupon(ctx context.Context, couponID int64) ([]model.ClaimDetail, error)
}

// HistoryHandler handles admin HTTP requests for the claim audit trail.
type HistoryHandler struct {
	service HistoryServiceInterface
	devMode bool
}

// NewHistoryHandler creates a HistoryHandler with the given service.
func NewHistoryHandler(svc HistoryServiceInterface, devMode bool) *HistoryHandler {
	return &HistoryHandler{service: svc, devMode: devMode}
}

func (h *HistoryHandler) respond(c *fiber.Ctx, details []model.ClaimDetail, err error) error {
	if err != nil {
		log.Error().Err(err).Str("path", c.Path()).Msg("failed to query claim history")
		return serverError(c, err, h.devMode)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(details),
		"history": details,
	})
}

// List handles GET /api/history.
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	details, err := h.service.List(c.Context())
	return h.respond(c, details, err)
}

// ByIP handles GET /api/history/ip/:ipAddress.
func (h *HistoryHandler) ByIP(c *fiber.Ctx) error {
	details, err := h.service.ByIP(c.Context(), c.Params("ipAddress"))
	return h.respond(c, details, err)
}

// ByUser handles GET /api/history/user/:userId.
func (h *HistoryHandler) ByUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid user id")
	}
	details, svcErr := h.service.ByUser(c.Context(), userID)
	return h.respond(c, details, svcErr)
}

// ByCoupon handles GET /api/history/coupon/:couponId.
func (h *HistoryHandler) ByCoupon(c *fiber.Ctx) error {
	couponID, err := strconv.ParseInt(c.Params("couponId"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid coupon id")
	}
	details, svcErr := h.service.ByCoupon(c.Context(), couponID)
	return h.respond(c, details, svcErr)
}
