package service

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrRegistrationExists   = errors.New("registration already exists")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderID     = errors.New("order id collision")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)
