package domain

import "errors"

var (
	ErrInvalidSession    = errors.New("invalid session")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductMismatch   = errors.New("product name does not match order")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidDelay      = errors.New("invalid delay")
	ErrMalformedEvent    = errors.New("malformed event")
	ErrTransientStore    = errors.New("transient store error")
	ErrStreamUnavailable = errors.New("event stream unavailable")
)
