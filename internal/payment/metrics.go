package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roamfund_gateway_requests_total",
			Help: "Payment gateway calls by gateway, operation and outcome.",
		},
		[]string{"gateway", "operation", "outcome"},
	)

	verificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roamfund_gateway_verification_failures_total",
			Help: "Failed payment verifications by gateway and reason.",
		},
		[]string{"gateway", "reason"},
	)
)

func observeRequest(gateway, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gatewayRequests.WithLabelValues(gateway, operation, outcome).Inc()
}

func observeVerificationFailure(gateway, reason string) {
	verificationFailures.WithLabelValues(gateway, reason).Inc()
}
