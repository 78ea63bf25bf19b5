package extract

import (
	"context"
	"strings"
)

// Provider is a structured-extraction backend. Implementations return the
// model's raw field map; the orchestrator owns sanitization and correction.
type Provider interface {
	// Name identifies the provider for logging and per-run availability
	// bookkeeping. Must be stable for the life of the process.
	Name() string

	// Extract derives application fields from one message.
	Extract(ctx context.Context, sender, subject, body string) (map[string]any, error)
}

// quotaMarkers are matched against provider error text to distinguish
// quota/rate-limit exhaustion (provider is dead for the rest of the run)
// from transient failures (skip this call only).
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"rate limited",
	"429",
	"insufficient_quota",
	"billing",
	"credit",
}

// IsQuotaError classifies err by message content.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
