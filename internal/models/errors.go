package models

import "errors"

var (
	// ErrNotFound is returned when an id does not resolve to a stored entity.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks requests that are not allowed in the current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument marks malformed input such as an hour outside 0..23.
	ErrInvalidArgument = errors.New("invalid argument")
)
