package reliability

import "time"

// IsRetryableHTTPStatus classifies retryable inference backend status codes.
// The gateway itself never retries a turn; the classification feeds logs and
// error text so operators and wrapping clients can tell transient failures
// apart from permanent ones.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration for
// callers that retry whole turns against the gateway.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
