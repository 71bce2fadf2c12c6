package domain

import "errors"

// Order-level business errors. These are contained within a single trade
// iteration: the trade stays unprocessed and is retried next cycle. Anything
// else coming out of a gateway is treated as transient and handled at cycle
// level with backoff.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrExchangeRejected  = errors.New("exchange rejected order")
	ErrUnknownMarket     = errors.New("unknown market")
	ErrInvalidPrice      = errors.New("invalid price")
)

// IsOrderError reports whether the failure is scoped to a single order rather
// than the exchange connection.
func IsOrderError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrExchangeRejected) ||
		errors.Is(err, ErrUnknownMarket) ||
		errors.Is(err, ErrInvalidPrice)
}
