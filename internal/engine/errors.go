package engine

import "errors"

var (
	// ErrUnknownPair marks an operation against a pair no pool is
	// registered for.
	ErrUnknownPair = errors.New("unknown pair")

	// ErrUnknownKind marks a journal kind the engine has no route for.
	ErrUnknownKind = errors.New("unknown operation kind")

	// ErrMalformedOperation marks an operation missing the payload its
	// kind requires.
	ErrMalformedOperation = errors.New("malformed operation")
)
