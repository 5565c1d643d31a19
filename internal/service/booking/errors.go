package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrMovieNotFound      = errors.New("movie not found")
	ErrShowtimeNotFound   = errors.New("showtime not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrConcurrentUpdate   = errors.New("booking was modified concurrently")
	ErrCodeExhausted      = errors.New("could not allocate a unique booking code")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
