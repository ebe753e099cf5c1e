package admin

import (
	"errors"
)

var (
	ErrEventConflict = errors.New("event already exists")
	ErrEventNotFound = errors.New("event not found")
	ErrTierNotFound  = errors.New("ticket tier not found")
	ErrInvalidTiers  = errors.New("invalid ticket tiers")
	ErrNegativeStock = errors.New("tier quantity cannot go below zero")
)
