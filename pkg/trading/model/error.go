package model

import (
	"errors"
	"fmt"
)

var (
	ErrNilQuote           = errors.New("quote is nil")
	ErrInstrumentNotFound = errors.New("instrument not found in quote")
	ErrPriceNotSet        = errors.New("price is not set")
	ErrGtdTimeNotSet      = errors.New("gtd time is required for GTD orders")
	ErrUnknownOrderSide   = errors.New("unknown order side")
	ErrUnknownOrderType   = errors.New("unknown order type")
	ErrInvalidField       = errors.New("invalid field")
	ErrMissingField       = errors.New("missing field")
)

// FieldError reports a representation key whose value could not be decoded.
type FieldError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %s (got %T %v)", e.Err, e.Field, e.Value, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func invalidField(field string, value interface{}) error {
	return &FieldError{Field: field, Value: value, Err: ErrInvalidField}
}

func missingField(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}
