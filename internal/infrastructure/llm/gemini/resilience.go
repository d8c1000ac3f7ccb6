package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/complyguard/inspection-server/internal/infrastructure/resilience"
)

// classifyGeminiError drives retry and breaker accounting. Safety blocks and
// other 4xx responses are deterministic for a given image, so they neither
// retry nor count against the breaker.
func classifyGeminiError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retryable: false, CountAsFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retryable: true, CountAsFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Verdict{Retryable: true, CountAsFailure: true}
		}
		return resilience.Verdict{Retryable: false, CountAsFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Verdict{Retryable: true, CountAsFailure: true}
	}

	return resilience.Verdict{Retryable: false, CountAsFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
