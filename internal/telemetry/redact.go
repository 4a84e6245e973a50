package telemetry

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// Email is a zap field holding a redacted address.
func Email(key string, email fmt.Stringer) zap.Field {
	return zap.String(key, RedactEmail(email.String()))
}
