package service

import "errors"

var (
	// ErrCouponExists is returned when creating or renaming a coupon to a code that is taken
	ErrCouponExists = errors.New("coupon with this code already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrNoCouponsAvailable is returned when no coupon is active, unclaimed, and unexpired.
	// This is an expected business outcome, not an internal error.
	ErrNoCouponsAvailable = errors.New("no coupons available")

	// ErrCouponClaimed is returned when attempting to delete a coupon that has claim records
	ErrCouponClaimed = errors.New("cannot delete a coupon that has been claimed")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
