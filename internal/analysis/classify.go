package analysis

import (
	"strings"

	"cryptotax/internal/domain"
)

// maxErrorLength bounds stored error messages.
const maxErrorLength = 500

// ClassifyError maps an error message to an error type by substring match.
// Checks run in priority order; the first hit wins.
func ClassifyError(msg string) domain.ErrorType {
	m := strings.ToLower(msg)

	switch {
	case strings.Contains(m, "rate limit"):
		return domain.ErrorTypeRateLimit
	case strings.Contains(m, "auth"), strings.Contains(m, "401"):
		return domain.ErrorTypeAuth
	case strings.Contains(m, "timeout"):
		return domain.ErrorTypeNetwork
	case strings.Contains(m, "503"), strings.Contains(m, "service unavailable"), strings.Contains(m, "outage"):
		return domain.ErrorTypeServiceOutage
	case strings.Contains(m, "query"), strings.Contains(m, "execution"):
		return domain.ErrorTypeQuery
	default:
		return domain.ErrorTypeNetwork
	}
}

// truncateError bounds a message to maxErrorLength characters.
func truncateError(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}
	return msg[:maxErrorLength]
}
