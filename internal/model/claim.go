package model

import "time"

// Identity correlates repeat claimants. IPAddress is always present;
// SessionToken is empty on a browser's first visit; UserID is set only
// for authenticated claimants. UserAgent is carried for the audit trail.
type Identity struct {
	IPAddress    string
	SessionToken string
	UserID       *int64
	UserAgent    string
}

// ClaimRecord is the audit record of one successful allocation.
// Records are written once and never updated or deleted.
type ClaimRecord struct {
	ID        int64     `json:"id"`
	CouponID  int64     `json:"couponId"`
	UserID    *int64    `json:"userId,omitempty"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// ClaimDetail is a claim record with the claimed coupon's public fields
// joined in by the storage layer.
type ClaimDetail struct {
	ClaimRecord
	Coupon CouponReward `json:"coupon"`
}

// ClaimStatus is the answer to "what did this identity last claim and
// how long until it may claim again".
type ClaimStatus struct {
	Coupon            *CouponReward
	CooldownRemaining time.Duration
	LastClaimedAt     *time.Time
}
