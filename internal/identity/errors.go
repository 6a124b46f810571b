package identity

import "errors"

var (
	// ErrInvalidEmail возвращается для адреса почты без символа "@".
	ErrInvalidEmail = errors.New("enter a valid email address")
	// ErrInvalidCode возвращается для неверного, просроченного
	// или уже использованного кода.
	ErrInvalidCode = errors.New("invalid or expired code")
)
