package readwise

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid Readwise token")
	ErrRateLimited  = errors.New("rate limited by Readwise")
	ErrMissingToken = errors.New("READWISE_TOKEN is not set")
)

// RateLimitError is returned for HTTP 429. It matches ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s, retry after %v", ErrRateLimited, e.RetryAfter)
	}
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Readwise server error: HTTP %d", e.StatusCode)
}
