package common

import "errors"

var (
	ErrorNotFound     = errors.New("not found")
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Account errors.
	ErrorAlreadyExists        = errors.New("already exists")
	ErrorValidation           = errors.New("validation error")
	ErrorInvalidLoginPassword = errors.New("invalid login/password")
	ErrorNotVerified          = errors.New("account not verified")
	ErrorInvalidCode          = errors.New("invalid or expired code")
)
