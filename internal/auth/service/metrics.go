package service

import (
	"github.com/microblog-go/microblog/internal/observability/metrics"
)

func incrementLoginAttempts(result string) {
	metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func incrementRegistrations(result string) {
	metrics.RegistrationsTotal.WithLabelValues(result).Inc()
}

func incrementLivenessUpdates(result string) {
	metrics.LivenessUpdatesTotal.WithLabelValues(result).Inc()
}
