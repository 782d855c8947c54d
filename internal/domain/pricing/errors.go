package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNegative is reported for amounts that must not be below zero.
var ErrNegative = errors.New("amount is negative")

// AmountError wraps a malformed configured amount.
type AmountError struct {
	Field string
	Value string
	Err   error
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("delivery %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *AmountError) Unwrap() error {
	return e.Err
}
