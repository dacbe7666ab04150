package approvalflow

import "time"

// CalculateBackoff calculates the backoff delay for a retry attempt.
// It supports three strategies:
//   - EXPONENTIAL: baseDelay * 2^(attempt-1)
//   - LINEAR: baseDelay * attempt
//   - NONE: no backoff delay
//
// Returns 0 for attempt 0. Unknown strategies fall back to linear.
func CalculateBackoff(baseDelay time.Duration, attempt int, strategy BackoffStrategy) time.Duration {
	if attempt <= 0 {
		return 0
	}

	switch strategy {
	case BackoffExponential:
		multiplier := 1 << (attempt - 1)
		return baseDelay * time.Duration(multiplier)
	case BackoffLinear:
		return baseDelay * time.Duration(attempt)
	case BackoffNone:
		return 0
	default:
		return baseDelay * time.Duration(attempt)
	}
}
