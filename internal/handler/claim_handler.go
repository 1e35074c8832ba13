package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coupondrop/coupon-claim-system/internal/config"
	"github.com/coupondrop/coupon-claim-system/internal/metrics"
	"github.com/coupondrop/coupon-claim-system/internal/model"
	"github.com/coupondrop/coupon-claim-system/internal/service"
)

// SessionCookieName is the long-lived cookie correlating anonymous claimants.
const SessionCookieName = "sessionId"

// ClaimServiceInterface defines the interface for claim business logic.
type ClaimServiceInterface interface {
	Claim(ctx context.Context, ident model.Identity) (*model.CouponReward, error)
	Status(ctx context.Context, ident model.Identity) (*model.ClaimStatus, error)
}

// ClaimHandler handles the public claim and status endpoints.
type ClaimHandler struct {
	service       ClaimServiceInterface
	sessionTTL    time.Duration
	secureCookies bool
	devMode       bool
}

// NewClaimHandler creates a ClaimHandler wired to the given service and config.
func NewClaimHandler(svc ClaimServiceInterface, cfg *config.Config) *ClaimHandler {
	return &ClaimHandler{
		service:       svc,
		sessionTTL:    cfg.Claim.SessionTTL(),
		secureCookies: !cfg.App.Development(),
		devMode:       cfg.App.Development(),
	}
}

// identity builds the explicit identity tuple from the request. The
// client IP comes from fiber (ProxyHeader is set at app construction);
// an authenticated user id, if any, is placed in locals by the external
// auth collaborator.
func (h *ClaimHandler) identity(c *fiber.Ctx) model.Identity {
	ident := model.Identity{
		IPAddress:    c.IP(),
		SessionToken: c.Cookies(SessionCookieName),
		UserAgent:    c.Get(fiber.HeaderUserAgent),
	}
	if userID, ok := c.Locals("userID").(int64); ok {
		ident.UserID = &userID
	}
	return ident
}

// ClaimCoupon handles POST /api/coupons/claim.
func (h *ClaimHandler) ClaimCoupon(c *fiber.Ctx) error {
	ident := h.identity(c)

	// Mint the durable session token up front so the claim record carries
	// it. A fresh token has no claim history, so it cannot trip the
	// session check; first-time visitors are throttled by IP only.
	minted := false
	if ident.SessionToken == "" {
		ident.SessionToken = uuid.NewString()
		minted = true
	}

	reward, err := h.service.Claim(c.Context(), ident)
	if err != nil {
		var cooldown *service.CooldownError
		switch {
		case errors.As(err, &cooldown):
			metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
			return fail(c, fiber.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Please try again after %d minutes.", cooldown.RetryAfterMinutes()))
		case errors.Is(err, service.ErrNoCouponsAvailable):
			metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeUnavailable).Inc()
			return fail(c, fiber.StatusNotFound, "No coupons available at the moment")
		default:
			metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			log.Error().
				Err(err).
				Str("request_id", c.GetRespHeader("X-Request-ID")).
				Str("ip", ident.IPAddress).
				Msg("failed to claim coupon")
			return serverError(c, err, h.devMode)
		}
	}

	if minted {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookieName,
			Value:    ident.SessionToken,
			HTTPOnly: true,
			Secure:   h.secureCookies,
			SameSite: fiber.CookieSameSiteLaxMode,
			MaxAge:   int(h.sessionTTL.Seconds()),
		})
	}

	metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeGranted).Inc()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Coupon claimed successfully",
		"coupon":  reward,
	})
}

// LastClaimed handles GET /api/coupons/last-claimed. Always succeeds;
// a caller with no claim history gets a zero cooldown.
func (h *ClaimHandler) LastClaimed(c *fiber.Ctx) error {
	status, err := h.service.Status(c.Context(), h.identity(c))
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Msg("failed to look up claim status")
		return serverError(c, err, h.devMode)
	}

	if status.LastClaimedAt == nil {
		return c.JSON(fiber.Map{
			"success":           true,
			"message":           "No claimed coupons found",
			"cooldownRemaining": 0,
		})
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"coupon":            status.Coupon,
		"cooldownRemaining": status.CooldownRemaining.Milliseconds(),
		"lastClaimedAt":     status.LastClaimedAt,
	})
}
