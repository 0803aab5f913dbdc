package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration is the request duration histogram, labelled by path.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_service_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ResponsesTotal counts responses by status code.
	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_responses_total",
		Help: "The total number of responses by status code",
	}, []string{"status"})

	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_login_attempts_total",
		Help: "The total number of login attempts",
	}, []string{"status"})

	// TokenRefreshTotal counts refresh attempts by outcome.
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_token_refresh_total",
		Help: "The total number of token refreshes",
	}, []string{"status"})

	// SessionsCleanedTotal counts sessions revoked by the background sweep.
	SessionsCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_service_sessions_cleaned_total",
		Help: "The total number of expired sessions revoked by cleanup",
	})

	// OTPIssuedTotal counts one-time codes issued.
	OTPIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_service_otp_issued_total",
		Help: "The total number of one-time codes issued",
	})
)
