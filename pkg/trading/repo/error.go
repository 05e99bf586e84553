package repo

import "errors"

var (
	ErrOrderNotFound = errors.New("order record not found")
	ErrOrderExists   = errors.New("order record already exists")
)
