package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docseg/internal/qagen"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *qagen.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter, capped
// at 30s before jitter.
func Backoff(attempt int) time.Duration {
	base := min(time.Duration(1<<uint(attempt))*time.Second, 30*time.Second)
	return base + time.Duration(rand.Int64N(int64(base)/2))
}

// retryDelay is Backoff, stretched to the server's Retry-After if longer.
func retryDelay(err error, attempt int) time.Duration {
	d := Backoff(attempt)
	var re *qagen.RetryableError
	if errors.As(err, &re) && re.RetryAfter > d {
		return re.RetryAfter
	}
	return d
}
