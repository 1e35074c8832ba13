package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coupondrop/coupon-claim-system/internal/model"
	"github.com/coupondrop/coupon-claim-system/pkg/database"
)

const claimColumns = `id, coupon_id, user_id, ip_address, user_agent, session_id, claimed_at`

// detailColumns joins the claimed coupon's public fields onto the claim
// row so callers get a formed value and never reach across entities.
const detailColumns = `c.id, c.coupon_id, c.user_id, c.ip_address, c.user_agent, c.session_id, c.claimed_at,
	p.code, p.description, p.discount, p.expiry_date`

// ClaimRepository provides data access for claim records using pgx.
type ClaimRepository struct {
	pool PoolInterface
}

// NewClaimRepository creates a new ClaimRepository with the given pool.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// NewClaimRepositoryWithPool creates a new ClaimRepository with a custom
// pool interface. This is primarily used for testing.
func NewClaimRepositoryWithPool(pool PoolInterface) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// Insert writes a claim record within the allocation transaction and
// fills in the generated id and timestamp.
func (r *ClaimRepository) Insert(ctx context.Context, tx database.TxQuerier, rec *model.ClaimRecord) error {
	query := `INSERT INTO claims (coupon_id, user_id, ip_address, user_agent, session_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, claimed_at`

	err := tx.QueryRow(ctx, query,
		rec.CouponID, rec.UserID, rec.IPAddress, rec.UserAgent, rec.SessionID,
	).Scan(&rec.ID, &rec.ClaimedAt)
	if err != nil {
		return fmt.Errorf("insert claim record: %w", err)
	}
	return nil
}

func (r *ClaimRepository) latest(ctx context.Context, query string, arg any) (*model.ClaimRecord, error) {
	var rec model.ClaimRecord
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&rec.ID,
		&rec.CouponID,
		&rec.UserID,
		&rec.IPAddress,
		&rec.UserAgent,
		&rec.SessionID,
		&rec.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // no claims yet - let service handle
		}
		return nil, err
	}
	return &rec, nil
}

// LatestByIP returns the most recent claim from the given IP address,
// or nil, nil when the IP has never claimed.
func (r *ClaimRepository) LatestByIP(ctx context.Context, ip string) (*model.ClaimRecord, error) {
	query := `SELECT ` + claimColumns + ` FROM claims
		WHERE ip_address = $1 ORDER BY claimed_at DESC LIMIT 1`

	rec, err := r.latest(ctx, query, ip)
	if err != nil {
		return nil, fmt.Errorf("latest claim by ip: %w", err)
	}
	return rec, nil
}

// LatestBySession returns the most recent claim for the given session
// token, or nil, nil when the session has never claimed.
func (r *ClaimRepository) LatestBySession(ctx context.Context, token string) (*model.ClaimRecord, error) {
	query := `SELECT ` + claimColumns + ` FROM claims
		WHERE session_id = $1 ORDER BY claimed_at DESC LIMIT 1`

	rec, err := r.latest(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("latest claim by session: %w", err)
	}
	return rec, nil
}

func scanDetail(row pgx.Row) (*model.ClaimDetail, error) {
	var d model.ClaimDetail
	err := row.Scan(
		&d.ID,
		&d.CouponID,
		&d.UserID,
		&d.IPAddress,
		&d.UserAgent,
		&d.SessionID,
		&d.ClaimedAt,
		&d.Coupon.Code,
		&d.Coupon.Description,
		&d.Coupon.Discount,
		&d.Coupon.ExpiryDate,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *ClaimRepository) latestDetail(ctx context.Context, query string, arg any) (*model.ClaimDetail, error) {
	detail, err := scanDetail(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return detail, nil
}

// LatestDetailByIP returns the most recent claim from the IP together
// with the claimed coupon's public fields, or nil, nil when none exists.
func (r *ClaimRepository) LatestDetailByIP(ctx context.Context, ip string) (*model.ClaimDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM claims c
		JOIN coupons p ON p.id = c.coupon_id
		WHERE c.ip_address = $1 ORDER BY c.claimed_at DESC LIMIT 1`

	detail, err := r.latestDetail(ctx, query, ip)
	if err != nil {
		return nil, fmt.Errorf("latest claim detail by ip: %w", err)
	}
	return detail, nil
}

// LatestDetailBySession is LatestDetailByIP keyed by session token.
func (r *ClaimRepository) LatestDetailBySession(ctx context.Context, token string) (*model.ClaimDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM claims c
		JOIN coupons p ON p.id = c.coupon_id
		WHERE c.session_id = $1 ORDER BY c.claimed_at DESC LIMIT 1`

	detail, err := r.latestDetail(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("latest claim detail by session: %w", err)
	}
	return detail, nil
}

func (r *ClaimRepository) queryDetails(ctx context.Context, query string, args ...any) ([]model.ClaimDetail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []model.ClaimDetail{}
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim detail: %w", err)
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim rows: %w", err)
	}
	return details, nil
}

// ListDetails returns the full claim history, newest first.
func (r *ClaimRepository) ListDetails(ctx context.Context) ([]model.ClaimDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM claims c
		JOIN coupons p ON p.id = c.coupon_id
		ORDER BY c.claimed_at DESC`

	details, err := r.queryDetails(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list claim history: %w", err)
	}
	return details, nil
}

// ListDetailsByIP returns the claim history for one IP address, newest first.
func (r *ClaimRepository) ListDetailsByIP(ctx context.Context, ip string) ([]model.ClaimDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM claims c
		JOIN coupons p ON p.id = c.coupon_id
		WHERE c.ip_address = $1
		ORDER BY c.claimed_at DESC`

	details, err := r.queryDetails(ctx, query, ip)
	if err != nil {
		return nil, fmt.Errorf("list claim history by ip: %w", err)
	}
	return details, nil
}

// ListDetailsByUser returns the claim history for one user, newest first.
func (r *ClaimRepository) ListDetailsByUser(ctx context.Context, userID int64) ([]model.ClaimDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM claims c
		JOIN coupons p ON p.id = c.coupon_id
		WHERE c.user_id = $1
		ORDER BY c.claimed_at DESC`

	details, err := r.queryDetails(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list claim history by user: %w", err)
	}
	return details, nil
}

// ListDetailsByCoupon returns the claim history for one coupon, newest first.
func (r *ClaimRepository) ListDetailsByCoupon(ctx context.Context, couponID int64) ([]model.ClaimDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM claims c
		JOIN coupons p ON p.id = c.coupon_id
		WHERE c.coupon_id = $1
		ORDER BY c.claimed_at DESC`

	details, err := r.queryDetails(ctx, query, couponID)
	if err != nil {
		return nil, fmt.Errorf("list claim history by coupon: %w", err)
	}
	return details, nil
}

// ExistsByCoupon reports whether any claim record references the coupon.
// Used by the delete guard.
func (r *ClaimRepository) ExistsByCoupon(ctx context.Context, couponID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM claims WHERE coupon_id = $1)`, couponID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check claims for coupon %d: %w", couponID, err)
	}
	return exists, nil
}
