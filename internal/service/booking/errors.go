package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrReconciliationConflict groups every reason a paid reservation cannot
	// be committed right now. The reservation stays pending.
	ErrReconciliationConflict = errors.New("reconciliation conflict")

	ErrEventNotFound       = fmt.Errorf("%w: event not found", ErrReconciliationConflict)
	ErrTierNotFound        = fmt.Errorf("%w: ticket tier not found", ErrReconciliationConflict)
	ErrInsufficientTickets = fmt.Errorf("%w: not enough tickets available", ErrReconciliationConflict)

	ErrRetriesExhausted = errors.New("commit retries exhausted")
	ErrBookingNotFound  = errors.New("booking not found")
)
