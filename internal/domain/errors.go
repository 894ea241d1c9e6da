package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrNoProofs     = errors.New("no proofs found")
)

// InvalidStateError reports a rejected state-machine transition. The message
// always names the status the transition expected.
func InvalidStateError(expected, actual TransactionStatus) error {
	return fmt.Errorf("%w: expected status %q, have %q", ErrInvalidState, expected, actual)
}

func ValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
