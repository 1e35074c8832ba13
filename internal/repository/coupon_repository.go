package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coupondrop/coupon-claim-system/internal/model"
	"github.com/coupondrop/coupon-claim-system/internal/service"
	"github.com/coupondrop/coupon-claim-system/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const couponColumns = `id, code, description, discount, expiry_date, is_active, is_claimed, created_at, updated_at`

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom
// pool interface. This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&c.Discount,
		&c.ExpiryDate,
		&c.IsActive,
		&c.IsClaimed,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert inserts a new coupon and fills in its generated fields.
// Returns service.ErrCouponExists when the code is already taken.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	query := `INSERT INTO coupons (code, description, discount, expiry_date, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_claimed, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		coupon.Code, coupon.Description, coupon.Discount, coupon.ExpiryDate, coupon.IsActive,
	).Scan(&coupon.ID, &coupon.IsClaimed, &coupon.CreatedAt, &coupon.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByID retrieves a coupon by its internal identifier.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon %d: %w", id, err)
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by its code.
// Returns nil, nil if the coupon is not found.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// List retrieves all coupons in creation order.
func (r *CouponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// Update persists admin-editable fields of a coupon.
// Returns service.ErrCouponNotFound if no row matches, and
// service.ErrCouponExists on a code collision.
func (r *CouponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	query := `UPDATE coupons
		SET code = $1, description = $2, discount = $3, expiry_date = $4, is_active = $5, updated_at = now()
		WHERE id = $6`

	tag, err := r.pool.Exec(ctx, query,
		coupon.Code, coupon.Description, coupon.Discount, coupon.ExpiryDate, coupon.IsActive, coupon.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCouponExists
		}
		return fmt.Errorf("update coupon %d: %w", coupon.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// Delete removes a coupon. The service layer refuses claimed coupons
// before calling this; the foreign key on claims backs that up, so a
// 23503 here also maps to service.ErrCouponClaimed.
func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return service.ErrCouponClaimed
		}
		return fmt.Errorf("delete coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// ClaimOldestEligible atomically selects the oldest active, unclaimed,
// unexpired coupon and marks it claimed, in a single conditional update.
// FOR UPDATE SKIP LOCKED makes concurrent claimants pick distinct rows
// instead of blocking on or double-claiming the same one.
// Returns service.ErrNoCouponsAvailable when no coupon is eligible.
func (r *CouponRepository) ClaimOldestEligible(ctx context.Context, tx database.TxQuerier, now time.Time) (*model.Coupon, error) {
	query := `UPDATE coupons
		SET is_claimed = TRUE, updated_at = now()
		WHERE id = (
			SELECT id FROM coupons
			WHERE is_active AND NOT is_claimed AND expiry_date > $1
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNoCouponsAvailable
		}
		return nil, fmt.Errorf("claim oldest eligible coupon: %w", err)
	}
	return coupon, nil
}
