package authorization

import "errors"

var (
	// ErrTokenNotFound is returned when an idTag is not in the store.
	ErrTokenNotFound = errors.New("authorization: token not found")

	// ErrInvalidToken is returned when a token cannot be stored.
	ErrInvalidToken = errors.New("authorization: invalid token")
)
