package service

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrAmountTooLarge    = errors.New("amount exceeds the largest storable value")
)
