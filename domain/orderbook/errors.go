package orderbook

import "github.com/cockroachdb/errors"

var (
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrOverfill marks an attempt to reduce an order below zero remaining.
	// It always comes wrapped in an assertion failure.
	ErrOverfill = errors.New("order overfill")
)
