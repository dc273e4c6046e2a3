package order

import "errors"

var (
	// ErrDataLoad wraps every failure to fetch or understand an order.
	ErrDataLoad = errors.New("order data could not be loaded")
	// ErrCommand wraps a failed cancellation. Local state is left untouched
	// and the call may be retried.
	ErrCommand          = errors.New("order command failed")
	ErrAlreadyCompleted = errors.New("order has already been delivered")
	ErrCancelInFlight   = errors.New("a cancellation is already in progress")
	ErrNotLoaded        = errors.New("order has not been loaded")
)
