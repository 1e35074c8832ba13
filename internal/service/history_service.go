package service

import (
	"context"
	"fmt"

	"github.com/coupondrop/coupon-claim-system/internal/model"
)

// ClaimHistoryReader defines the joined claim-history listings.
type ClaimHistoryReader interface {
	ListDetails(ctx context.Context) ([]model.ClaimDetail, error)
	ListDetailsByIP(ctx context.Context, ip string) ([]model.ClaimDetail, error)
	ListDetailsByUser(ctx context.Context, userID int64) ([]model.ClaimDetail, error)
	ListDetailsByCoupon(ctx context.Context, couponID int64) ([]model.ClaimDetail, error)
}

// HistoryService exposes the admin-side claim audit trail.
type HistoryService struct {
	claims ClaimHistoryReader
}

// NewHistoryService creates a HistoryService with the given claim reader.
func NewHistoryService(claims ClaimHistoryReader) *HistoryService {
	return &HistoryService{claims: claims}
}

// List returns the full claim history, newest first.
func (s *HistoryService) List(ctx context.Context) ([]model.ClaimDetail, error) {
	details, err := s.claims.ListDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim history: %w", err)
	}
	return details, nil
}

// ByIP returns the claim history for one IP address.
func (s *HistoryService) ByIP(ctx context.Context, ip string) ([]model.ClaimDetail, error) {
	details, err := s.claims.ListDetailsByIP(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("claim history by ip: %w", err)
	}
	return details, nil
}

// ByUser returns the claim history for one user.
func (s *HistoryService) ByUser(ctx context.Context, userID int64) ([]model.ClaimDetail, error) {
	details, err := s.claims.ListDetailsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("claim history by user: %w", err)
	}
	return details, nil
}

// ByCoupon returns the claim history for one coupon.
func (s *HistoryService) ByCoupon(ctx context.Context, couponID int64) ([]model.ClaimDetail, error) {
	details, err := s.claims.ListDetailsByCoupon(ctx, couponID)
	if err != nil {
		return nil, fmt.Errorf("claim history by coupon: %w", err)
	}
	return details, nil
}
