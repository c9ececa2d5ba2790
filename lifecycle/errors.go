package lifecycle

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("cannot create an order from an empty cart")
	ErrValidation        = errors.New("invalid order input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrBillExists        = errors.New("bill already generated for this order")
	ErrUnauthorized      = errors.New("actor is not allowed to perform this action")
)
