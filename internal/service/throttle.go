package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coupondrop/coupon-claim-system/internal/model"
)

// ClaimReader defines the read-side claim lookups the throttle guard needs.
type ClaimReader interface {
	LatestByIP(ctx context.Context, ip string) (*model.ClaimRecord, error)
	LatestBySession(ctx context.Context, token string) (*model.ClaimRecord, error)
	LatestDetailByIP(ctx context.Context, ip string) (*model.ClaimDetail, error)
	LatestDetailBySession(ctx context.Context, token string) (*model.ClaimDetail, error)
}

// CooldownError reports that an identity is still inside its cooldown
// window, carrying the time left until the next claim is allowed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d minutes", e.RetryAfterMinutes())
}

// RetryAfterMinutes returns the remaining cooldown rounded up to whole
// minutes, never less than 1 while the cooldown is active.
func (e *CooldownError) RetryAfterMinutes() int {
	minutes := int(e.Remaining / time.Minute)
	if e.Remaining%time.Minute != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// ThrottleGuard decides whether an identity may claim. It is a pure
// read-side predicate over the claim log: the window slides from the
// single most recent claim per dimension, and the guard never writes.
type ThrottleGuard struct {
	claims   ClaimReader
	cooldown time.Duration
	now      func() time.Time
}

// NewThrottleGuard creates a ThrottleGuard enforcing the given cooldown.
func NewThrottleGuard(claims ClaimReader, cooldown time.Duration) *ThrottleGuard {
	return &ThrottleGuard{
		claims:   claims,
		cooldown: cooldown,
		now:      time.Now,
	}
}

func (g *ThrottleGuard) check(rec *model.ClaimRecord) error {
	if rec == nil {
		return nil
	}
	elapsed := g.now().Sub(rec.ClaimedAt)
	if elapsed < g.cooldown {
		return &CooldownError{Remaining: g.cooldown - elapsed}
	}
	return nil
}

// CheckIP rejects with a CooldownError when the IP's most recent claim
// is still inside the cooldown window.
func (g *ThrottleGuard) CheckIP(ctx context.Context, ip string) error {
	rec, err := g.claims.LatestByIP(ctx, ip)
	if err != nil {
		return fmt.Errorf("check ip cooldown: %w", err)
	}
	return g.check(rec)
}

// CheckSession is CheckIP keyed by session token. An empty token skips
// the check entirely: a first-time visitor without a cookie can only be
// blocked by IP.
func (g *ThrottleGuard) CheckSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	rec, err := g.claims.LatestBySession(ctx, token)
	if err != nil {
		return fmt.Errorf("check session cooldown: %w", err)
	}
	return g.check(rec)
}

// Status returns the identity's most recent claim (preferring the
// session token when present, else IP) with the coupon's public fields
// and remaining cooldown. It never rejects and never writes.
func (g *ThrottleGuard) Status(ctx context.Context, ident model.Identity) (*model.ClaimStatus, error) {
	var (
		detail *model.ClaimDetail
		err    error
	)
	if ident.SessionToken != "" {
		detail, err = g.claims.LatestDetailBySession(ctx, ident.SessionToken)
	} else {
		detail, err = g.claims.LatestDetailByIP(ctx, ident.IPAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("claim status lookup: %w", err)
	}
	if detail == nil {
		return &model.ClaimStatus{}, nil
	}

	remaining := g.cooldown - g.now().Sub(detail.ClaimedAt)
	if remaining < 0 {
		remaining = 0
	}
	coupon := detail.Coupon
	claimedAt := detail.ClaimedAt
	return &model.ClaimStatus{
		Coupon:            &coupon,
		CooldownRemaining: remaining,
		LastClaimedAt:     &claimedAt,
	}, nil
}
