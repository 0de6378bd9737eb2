package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrLoginRequired means there is no usable session; send the user to login.
	ErrLoginRequired = errors.New("login required")
	// ErrAttemptInProgress rejects a submit while another attempt is outstanding.
	ErrAttemptInProgress = errors.New("recharge attempt already in progress")
	// ErrMissingOrderID means the backend answered create-order without an order id.
	ErrMissingOrderID = errors.New("order response has no order_id")
	// ErrCheckoutUnavailable means the hosted checkout script could not be loaded.
	ErrCheckoutUnavailable = errors.New("checkout unavailable")
	// ErrVerificationMismatch means the backend rejected the payment. Funds may
	// have moved, so it is reported apart from transport failures.
	ErrVerificationMismatch = errors.New("payment verification failed")
	// ErrNotOpen rejects actions before the recharge surface was opened.
	ErrNotOpen = errors.New("recharge surface not open")
)

// ValidationError is bad user input. No network call is made for it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
