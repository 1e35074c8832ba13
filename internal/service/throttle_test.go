package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coupondrop/coupon-claim-system/internal/model"
)

// mockClaimReader is a mock implementation of ClaimReader.
type mockClaimReader struct {
	latestByIPFn            func(ctx context.Context, ip string) (*model.ClaimRecord, error)
	latestBySessionFn       func(ctx context.Context, token string) (*model.ClaimRecord, error)
	latestDetailByIPFn      func(ctx context.Context, ip string) (*model.ClaimDetail, error)
	latestDetailBySessionFn func(ctx context.Context, token string) (*model.ClaimDetail, error)
}

func (m *mockClaimReader) LatestByIP(ctx context.Context, ip string) (*model.ClaimRecord, error) {
	if m.latestByIPFn != nil {
		return m.latestByIPFn(ctx, ip)
	}
	return nil, nil
}

func (m *mockClaimReader) LatestBySession(ctx context.Context, token string) (*model.ClaimRecord, error) {
	if m.latestBySessionFn != nil {
		return m.latestBySessionFn(ctx, token)
	}
	return nil, nil
}

func (m *mockClaimReader) LatestDetailByIP(ctx context.Context, ip string) (*model.ClaimDetail, error) {
	if m.latestDetailByIPFn != nil {
		return m.latestDetailByIPFn(ctx, ip)
	}
	return nil, nil
}

func (m *mockClaimReader) LatestDetailBySession(ctx context.Context, token string) (*model.ClaimDetail, error) {
	if m.latestDetailBySessionFn != nil {
		return m.latestDetailBySessionFn(ctx, token)
	}
	return nil, nil
}

func fixedGuard(claims ClaimReader, cooldown time.Duration, now time.Time) *ThrottleGuard {
	g := NewThrottleGuard(claims, cooldown)
	g.now = func() time.Time { return now }
	return g
}

func TestThrottleGuard_CheckIP_InsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := time.Hour

	reader := &mockClaimReader{
		latestByIPFn: func(ctx context.Context, ip string) (*model.ClaimRecord, error) {
			return &model.ClaimRecord{IPAddress: ip, ClaimedAt: now.Add(-30 * time.Minute)}, nil
		},
	}
	g := fixedGuard(reader, cooldown, now)

	err := g.CheckIP(context.Background(), "10.0.0.1")

	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 30*time.Minute, cd.Remaining, "remaining should be cooldown minus elapsed")
}

func TestThrottleGuard_CheckIP_WindowExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reader := &mockClaimReader{
		latestByIPFn: func(ctx context.Context, ip string) (*model.ClaimRecord, error) {
			return &model.ClaimRecord{IPAddress: ip, ClaimedAt: now.Add(-time.Hour - time.Second)}, nil
		},
	}
	g := fixedGuard(reader, time.Hour, now)

	assert.NoError(t, g.CheckIP(context.Background(), "10.0.0.1"))
}

func TestThrottleGuard_CheckIP_NoHistory(t *testing.T) {
	g := fixedGuard(&mockClaimReader{}, time.Hour, time.Now())
	assert.NoError(t, g.CheckIP(context.Background(), "10.0.0.1"))
}

func TestThrottleGuard_CheckSession_EmptyTokenSkipped(t *testing.T) {
	called := false
	reader := &mockClaimReader{
		latestBySessionFn: func(ctx context.Context, token string) (*model.ClaimRecord, error) {
			called = true
			return nil, nil
		},
	}
	g := fixedGuard(reader, time.Hour, time.Now())

	err := g.CheckSession(context.Background(), "")

	require.NoError(t, err)
	assert.False(t, called, "empty session token must skip the lookup entirely")
}

func TestThrottleGuard_CheckSession_InsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reader := &mockClaimReader{
		latestBySessionFn: func(ctx context.Context, token string) (*model.ClaimRecord, error) {
			return &model.ClaimRecord{SessionID: token, ClaimedAt: now.Add(-5 * time.Minute)}, nil
		},
	}
	g := fixedGuard(reader, time.Hour, now)

	err := g.CheckSession(context.Background(), "session-abc")

	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 55*time.Minute, cd.Remaining)
}

func TestCooldownError_RetryAfterMinutes(t *testing.T) {
	testCases := []struct {
		name      string
		remaining time.Duration
		expected  int
	}{
		{"exact_minutes", 30 * time.Minute, 30},
		{"rounds_up", 29*time.Minute + time.Second, 30},
		{"sub_minute", 10 * time.Second, 1},
		{"floor_is_one", 500 * time.Millisecond, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := &CooldownError{Remaining: tc.remaining}
			assert.Equal(t, tc.expected, e.RetryAfterMinutes())
		})
	}
}

func TestThrottleGuard_Status_PrefersSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	claimedAt := now.Add(-15 * time.Minute)

	var ipCalled bool
	reader := &mockClaimReader{
		latestDetailBySessionFn: func(ctx context.Context, token string) (*model.ClaimDetail, error) {
			return &model.ClaimDetail{
				ClaimRecord: model.ClaimRecord{SessionID: token, ClaimedAt: claimedAt},
				Coupon:      model.CouponReward{Code: "SPRING10", Discount: 10},
			}, nil
		},
		latestDetailByIPFn: func(ctx context.Context, ip string) (*model.ClaimDetail, error) {
			ipCalled = true
			return nil, nil
		},
	}
	g := fixedGuard(reader, time.Hour, now)

	status, err := g.Status(context.Background(), model.Identity{
		IPAddress:    "10.0.0.1",
		SessionToken: "session-abc",
	})

	require.NoError(t, err)
	assert.False(t, ipCalled, "session token present, IP lookup must not run")
	require.NotNil(t, status.Coupon)
	assert.Equal(t, "SPRING10", status.Coupon.Code)
	assert.Equal(t, 45*time.Minute, status.CooldownRemaining)
	require.NotNil(t, status.LastClaimedAt)
	assert.Equal(t, claimedAt, *status.LastClaimedAt)
}

func TestThrottleGuard_Status_FallsBackToIP(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reader := &mockClaimReader{
		latestDetailByIPFn: func(ctx context.Context, ip string) (*model.ClaimDetail, error) {
			return &model.ClaimDetail{
				ClaimRecord: model.ClaimRecord{IPAddress: ip, ClaimedAt: now.Add(-2 * time.Hour)},
				Coupon:      model.CouponReward{Code: "OLD5"},
			}, nil
		},
	}
	g := fixedGuard(reader, time.Hour, now)

	status, err := g.Status(context.Background(), model.Identity{IPAddress: "10.0.0.1"})

	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), status.CooldownRemaining, "expired cooldown reports zero, never negative")
	require.NotNil(t, status.Coupon)
	assert.Equal(t, "OLD5", status.Coupon.Code)
}

func TestThrottleGuard_Status_NoHistory(t *testing.T) {
	g := fixedGuard(&mockClaimReader{}, time.Hour, time.Now())

	status, err := g.Status(context.Background(), model.Identity{IPAddress: "10.0.0.1"})

	require.NoError(t, err)
	assert.Nil(t, status.Coupon)
	assert.Nil(t, status.LastClaimedAt)
	assert.Equal(t, time.Duration(0), status.CooldownRemaining)
}

func TestThrottleGuard_Status_MonotonicRemaining(t *testing.T) {
	claimedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &mockClaimReader{
		latestDetailByIPFn: func(ctx context.Context, ip string) (*model.ClaimDetail, error) {
			return &model.ClaimDetail{
				ClaimRecord: model.ClaimRecord{IPAddress: ip, ClaimedAt: claimedAt},
				Coupon:      model.CouponReward{Code: "SPRING10"},
			}, nil
		},
	}
	g := NewThrottleGuard(reader, time.Hour)

	prev := time.Hour + time.Second
	for _, offset := range []time.Duration{time.Minute, 10 * time.Minute, 59 * time.Minute, 2 * time.Hour} {
		g.now = func() time.Time { return claimedAt.Add(offset) }
		status, err := g.Status(context.Background(), model.Identity{IPAddress: "10.0.0.1"})
		require.NoError(t, err)
		assert.LessOrEqual(t, status.CooldownRemaining, prev, "repeated status queries never increase the cooldown")
		prev = status.CooldownRemaining
	}
}
