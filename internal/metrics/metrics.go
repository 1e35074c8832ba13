package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Claim outcome labels.
const (
	OutcomeGranted     = "granted"
	OutcomeRateLimited = "rate_limited"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// ClaimsTotal counts claim attempts by outcome.
var ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "coupon_claims_total",
	Help: "Coupon claim attempts by outcome.",
}, []string{"outcome"})
