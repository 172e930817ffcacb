package trade

import (
	"errors"
	"fmt"
)

// Reason identifies why a trade was rejected. Rejections are expected,
// user-facing outcomes and never leave a partial change behind.
type Reason string

const (
	ReasonSameParty         Reason = "same_party"
	ReasonInsufficientCoins Reason = "insufficient_coins"
	ReasonInsufficientGoods Reason = "insufficient_goods"
	ReasonInvalidQuantity   Reason = "invalid_quantity"
	ReasonInvalidPrice      Reason = "invalid_price"
	ReasonUnknownPlayer     Reason = "unknown_player"
)

// FailureMessage is the only text shown to users for unexpected failures.
const FailureMessage = "Trade could not be completed."

var reasonMessages = map[Reason]string{
	ReasonSameParty:         "Buyer and seller cannot be the same person.",
	ReasonInsufficientCoins: "Buyer does not have enough coins.",
	ReasonInsufficientGoods: "Seller does not have enough goods.",
	ReasonInvalidQuantity:   "Goods quantity must be a positive number.",
	ReasonInvalidPrice:      "Coin price must be a positive number.",
	ReasonUnknownPlayer:     "Select a valid choice. That choice is not one of the available choices.",
}

// Message returns the stable user-facing text for r.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return FailureMessage
}

// RejectionError is returned when a trade is refused for a user-facing reason.
type RejectionError struct {
	Reason Reason
	// State is where the rejection was decided.
	State State
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("trade rejected while %s: %s", e.State, e.Reason)
}

func reject(reason Reason, state State) *RejectionError {
	return &RejectionError{Reason: reason, State: state}
}

// AsRejection returns the rejection reason carried by err, if any.
func AsRejection(err error) (Reason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// FailureError wraps an unexpected store failure. The transaction was rolled
// back before it was returned.
type FailureError struct {
	State State
	Err   error
	// Retryable is set for lock contention; the caller may submit again.
	Retryable bool
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("trade failed while %s: %v", e.State, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

var (
	errBalanceOverflow = errors.New("balance would overflow")
	errNegativeBalance = errors.New("balance would be negative after transfer")
)
