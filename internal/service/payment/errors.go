package payment

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidAmount  = fmt.Errorf("%w: amount", ErrInvalidRequest)
	ErrEventNotFound  = errors.New("event not found")
	ErrTierNotFound   = errors.New("ticket tier not found")
	ErrSoldOut        = errors.New("not enough tickets available")
	ErrOrderExists    = errors.New("order id already used")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
