package domain

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrIdentityUnavailable = errors.New("identity unavailable")
	// ErrSendInProgress se devuelve cuando ya hay un envío pendiente para la misma sesión.
	ErrSendInProgress = errors.New("send already in progress")
)
