package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coupondrop/coupon-claim-system/internal/model"
)

// defaultExpiryWindow is applied when a coupon is created without an
// explicit expiry date.
const defaultExpiryWindow = 30 * 24 * time.Hour

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByID(ctx context.Context, id int64) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
	Update(ctx context.Context, coupon *model.Coupon) error
	Delete(ctx context.Context, id int64) error
}

// ClaimExistenceChecker answers whether a coupon has ever been claimed.
type ClaimExistenceChecker interface {
	ExistsByCoupon(ctx context.Context, couponID int64) (bool, error)
}

// CouponService provides the admin-side coupon lifecycle. It never
// touches is_claimed; that flag belongs to allocation.
type CouponService struct {
	coupons CouponRepositoryInterface
	claims  ClaimExistenceChecker
	now     func() time.Time
}

// NewCouponService creates a CouponService with the given repositories.
func NewCouponService(coupons CouponRepositoryInterface, claims ClaimExistenceChecker) *CouponService {
	return &CouponService{
		coupons: coupons,
		claims:  claims,
		now:     time.Now,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create creates a coupon from the request. Codes are case-normalized
// upper; missing expiry defaults to creation time + 30 days; missing
// isActive defaults to true.
// Returns ErrCouponExists when the code is taken.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	coupon := &model.Coupon{
		Code:        normalizeCode(req.Code),
		Description: strings.TrimSpace(req.Description),
		Discount:    req.Discount,
		ExpiryDate:  s.now().Add(defaultExpiryWindow),
		IsActive:    true,
	}
	if req.ExpiryDate != nil {
		coupon.ExpiryDate = *req.ExpiryDate
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := s.coupons.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// List retrieves all coupons in creation order.
func (s *CouponService) List(ctx context.Context) ([]model.Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// GetByID retrieves a coupon by id.
// Returns ErrCouponNotFound if the coupon doesn't exist.
func (s *CouponService) GetByID(ctx context.Context, id int64) (*model.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// Update applies the non-nil fields of the request to the coupon.
// A code change re-checks uniqueness first.
// Returns ErrCouponNotFound or ErrCouponExists accordingly.
func (s *CouponService) Update(ctx context.Context, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	coupon, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		code := normalizeCode(*req.Code)
		if code != coupon.Code {
			existing, err := s.coupons.GetByCode(ctx, code)
			if err != nil {
				return nil, fmt.Errorf("check code uniqueness: %w", err)
			}
			if existing != nil {
				return nil, ErrCouponExists
			}
		}
		coupon.Code = code
	}
	if req.Description != nil {
		coupon.Description = strings.TrimSpace(*req.Description)
	}
	if req.Discount != nil {
		coupon.Discount = *req.Discount
	}
	if req.ExpiryDate != nil {
		coupon.ExpiryDate = *req.ExpiryDate
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete removes a coupon that has never been claimed. A claimed coupon
// is part of the audit trail and must stay.
// Returns ErrCouponNotFound or ErrCouponClaimed accordingly.
func (s *CouponService) Delete(ctx context.Context, id int64) error {
	coupon, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	claimed, err := s.claims.ExistsByCoupon(ctx, coupon.ID)
	if err != nil {
		return fmt.Errorf("check claims before delete: %w", err)
	}
	if claimed || coupon.IsClaimed {
		return ErrCouponClaimed
	}

	return s.coupons.Delete(ctx, coupon.ID)
}
