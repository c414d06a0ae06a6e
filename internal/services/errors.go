package services

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailExists       = errors.New("email already registered")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrPasswordTooShort  = errors.New("password too short")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrProfileNotFound   = errors.New("profile document not found")
	ErrInvalidSession    = errors.New("invalid session")
	ErrInvalidRequest    = errors.New("invalid request")
)

// MinPasswordLength matches the identity backend's password policy.
const MinPasswordLength = 6
