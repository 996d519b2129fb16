package analysis

import (
	"strings"
	"testing"

	"cryptotax/internal/domain"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg  string
		want domain.ErrorType
	}{
		{"Rate limit exceeded, try later", domain.ErrorTypeRateLimit},
		{"invalid API key: authentication failed", domain.ErrorTypeAuth},
		{"unexpected status 401: unauthorized", domain.ErrorTypeAuth},
		{"timeout waiting for query results after 30m", domain.ErrorTypeNetwork},
		{"server error 503: try again", domain.ErrorTypeServiceOutage},
		{"upstream service unavailable", domain.ErrorTypeServiceOutage},
		{"query execution ended in state QUERY_STATE_FAILED", domain.ErrorTypeQuery},
		{"execution not found", domain.ErrorTypeQuery},
		{"connection refused", domain.ErrorTypeNetwork},
		{"", domain.ErrorTypeNetwork},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.msg); got != tt.want {
			t.Errorf("ClassifyError(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestClassifyError_PriorityOrder(t *testing.T) {
	// "rate limit" wins over "query" when both appear.
	if got := ClassifyError("query rejected: rate limit"); got != domain.ErrorTypeRateLimit {
		t.Errorf("rate limit should win, got %s", got)
	}
	// "timeout" wins over "query".
	if got := ClassifyError("query timeout"); got != domain.ErrorTypeNetwork {
		t.Errorf("timeout should win, got %s", got)
	}
}

func TestTruncateError(t *testing.T) {
	long := strings.Repeat("x", 1000)
	if got := truncateError(long); len(got) != 500 {
		t.Errorf("Expected 500 chars, got %d", len(got))
	}
	if got := truncateError("short"); got != "short" {
		t.Errorf("Short messages must pass through, got %q", got)
	}
}

func TestErrorTypeRetryable(t *testing.T) {
	retryable := []domain.ErrorType{domain.ErrorTypeNetwork, domain.ErrorTypeRateLimit, domain.ErrorTypeServiceOutage}
	for _, et := range retryable {
		if !et.Retryable() {
			t.Errorf("%s should be retryable", et)
		}
	}
	for _, et := range []domain.ErrorType{domain.ErrorTypeQuery, domain.ErrorTypeAuth} {
		if et.Retryable() {
			t.Errorf("%s should not be retryable", et)
		}
	}
}
