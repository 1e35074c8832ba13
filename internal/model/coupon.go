package model

import "time"

// Coupon is a single rewarded unit. is_claimed transitions false->true
// exactly once, by allocation; every other field is admin-controlled.
type Coupon struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Discount    float64   `json:"discount"`
	ExpiryDate  time.Time `json:"expiryDate"`
	IsActive    bool      `json:"isActive"`
	IsClaimed   bool      `json:"isClaimed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CouponReward is the redacted public view of a claimed coupon. The
// internal identifier and state flags never leave the service.
type CouponReward struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Discount    float64   `json:"discount"`
	ExpiryDate  time.Time `json:"expiryDate"`
}

// Reward returns the redacted public view of the coupon.
func (c *Coupon) Reward() *CouponReward {
	return &CouponReward{
		Code:        c.Code,
		Description: c.Description,
		Discount:    c.Discount,
		ExpiryDate:  c.ExpiryDate,
	}
}

// CreateCouponRequest is the DTO for creating a coupon.
type CreateCouponRequest struct {
	Code        string     `json:"code" validate:"required,notblank,max=64"`
	Description string     `json:"description" validate:"max=500"`
	Discount    float64    `json:"discount"`
	ExpiryDate  *time.Time `json:"expiryDate"`
	IsActive    *bool      `json:"isActive"`
}

// UpdateCouponRequest is the DTO for partially updating a coupon.
// Nil fields are left unchanged. IsClaimed is deliberately absent:
// claimed state is owned by allocation, never by admins.
type UpdateCouponRequest struct {
	Code        *string    `json:"code" validate:"omitempty,notblank,max=64"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	Discount    *float64   `json:"discount"`
	ExpiryDate  *time.Time `json:"expiryDate"`
	IsActive    *bool      `json:"isActive"`
}
