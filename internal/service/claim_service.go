package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/coupondrop/coupon-claim-system/internal/model"
	"github.com/coupondrop/coupon-claim-system/pkg/database"
)

// AllocatorRepository defines the coupon selection primitive the
// allocator depends on.
type AllocatorRepository interface {
	ClaimOldestEligible(ctx context.Context, tx database.TxQuerier, now time.Time) (*model.Coupon, error)
}

// ClaimWriter defines the claim-record write the allocator performs on success.
type ClaimWriter interface {
	Insert(ctx context.Context, tx database.TxQuerier, rec *model.ClaimRecord) error
}

// Guard defines the throttle checks run before allocation and the
// shared status lookup.
type Guard interface {
	CheckIP(ctx context.Context, ip string) error
	CheckSession(ctx context.Context, token string) error
	Status(ctx context.Context, ident model.Identity) (*model.ClaimStatus, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ClaimService allocates coupons: one unclaimed coupon per passing
// request, oldest first, each claim audited exactly once.
type ClaimService struct {
	pool       TxBeginner
	coupons    AllocatorRepository
	claims     ClaimWriter
	guard      Guard
	maxRetries int
	now        func() time.Time
}

// NewClaimService creates a ClaimService with the given pool, repositories,
// and throttle guard. maxRetries bounds re-selection after a transaction
// loses a concurrency race.
func NewClaimService(pool *pgxpool.Pool, coupons AllocatorRepository, claims ClaimWriter, guard Guard, maxRetries int) *ClaimService {
	return newClaimService(pool, coupons, claims, guard, maxRetries)
}

// NewClaimServiceWithTxBeginner creates a ClaimService with a custom
// TxBeginner. Primarily used for testing.
func NewClaimServiceWithTxBeginner(pool TxBeginner, coupons AllocatorRepository, claims ClaimWriter, guard Guard, maxRetries int) *ClaimService {
	return newClaimService(pool, coupons, claims, guard, maxRetries)
}

func newClaimService(pool TxBeginner, coupons AllocatorRepository, claims ClaimWriter, guard Guard, maxRetries int) *ClaimService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ClaimService{
		pool:       pool,
		coupons:    coupons,
		claims:     claims,
		guard:      guard,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Claim hands the identity the oldest eligible coupon.
// Returns:
//   - *CooldownError when the IP or session claimed inside the cooldown window
//   - ErrNoCouponsAvailable when no coupon is active, unclaimed, and unexpired
func (s *ClaimService) Claim(ctx context.Context, ident model.Identity) (*model.CouponReward, error) {
	if err := s.guard.CheckIP(ctx, ident.IPAddress); err != nil {
		return nil, err
	}
	if err := s.guard.CheckSession(ctx, ident.SessionToken); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		reward, err := s.allocate(ctx, ident)
		if err == nil {
			return reward, nil
		}
		if !isSerializationFailure(err) {
			return nil, err
		}
		// Race loser: another claimant committed first. Re-run selection.
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("claim transaction conflict, retrying")
	}
	return nil, fmt.Errorf("claim retries exhausted: %w", lastErr)
}

// allocate runs one pick-and-record transaction. The selection and the
// claimed-flag write are a single conditional UPDATE, so two concurrent
// transactions can never both observe the same unclaimed coupon.
func (s *ClaimService) allocate(ctx context.Context, ident model.Identity) (*model.CouponReward, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op if committed

	coupon, err := s.coupons.ClaimOldestEligible(ctx, tx, s.now())
	if err != nil {
		return nil, err
	}

	rec := &model.ClaimRecord{
		CouponID:  coupon.ID,
		UserID:    ident.UserID,
		IPAddress: ident.IPAddress,
		UserAgent: ident.UserAgent,
		SessionID: ident.SessionToken,
	}
	if err := s.claims.Insert(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	log.Info().
		Int64("coupon_id", coupon.ID).
		Str("code", coupon.Code).
		Str("ip", ident.IPAddress).
		Msg("coupon allocated")

	return coupon.Reward(), nil
}

// Status reports the identity's last claim and remaining cooldown.
// Read-only and idempotent.
func (s *ClaimService) Status(ctx context.Context, ident model.Identity) (*model.ClaimStatus, error) {
	return s.guard.Status(ctx, ident)
}

// isSerializationFailure matches SQLSTATEs a retry can win:
// 40001 serialization_failure, 40P01 deadlock_detected.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
