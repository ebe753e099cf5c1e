package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrTxConflict marks a transaction aborted by the store's isolation
	// checks. The whole unit of work may be retried from its first read.
	ErrTxConflict = errors.New("transaction conflict")
)
