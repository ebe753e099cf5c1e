package payhere

import (
	"errors"
	"fmt"
)

var (
	// ErrSecretNotConfigured is an operator fault: the shared merchant secret
	// is absent from the runtime configuration.
	ErrSecretNotConfigured = errors.New("payhere merchant secret not configured")

	ErrSignatureMismatch = errors.New("payhere signature mismatch")

	ErrMalformedRequest = errors.New("malformed notification")
	ErrMalformedBody    = fmt.Errorf("%w: body cannot be parsed", ErrMalformedRequest)
	ErrMissingFields    = fmt.Errorf("%w: required fields missing", ErrMalformedRequest)
)

// SignatureMismatchError carries both digests so the caller can write an
// audit record. It never contains the secret.
type SignatureMismatchError struct {
	OrderID  string
	Expected string
	Received string
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("signature mismatch for order %s", e.OrderID)
}

func (e *SignatureMismatchError) Unwrap() error {
	return ErrSignatureMismatch
}
