package session

import "errors"

var (
	// ErrInvalidOwner indicates an empty or blank owner key.
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrInvalidRole indicates a message role outside user/assistant.
	ErrInvalidRole = errors.New("invalid message role")
)
