package book

import "errors"

var (
	errDuplicateOrder = errors.New("duplicate order")
	errOrderNotFound  = errors.New("order not found")
	errStaleQuote     = errors.New("quote is older than the last evaluated quote")
	errNilOrder       = errors.New("order is nil")
)

// IsOrderNotFound reports whether err means the order is not pending.
func IsOrderNotFound(err error) bool {
	return errors.Is(err, errOrderNotFound)
}

func IsDuplicateOrder(err error) bool {
	return errors.Is(err, errDuplicateOrder)
}

func IsStaleQuote(err error) bool {
	return errors.Is(err, errStaleQuote)
}
