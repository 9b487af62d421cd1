package orders

import "errors"

// Order errors.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderAlreadyPaid = errors.New("order already paid")
	ErrOrderPaid        = errors.New("paid orders cannot be canceled")
)
