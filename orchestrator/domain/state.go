package domain

import (
	"github.com/pkg/errors"
)

// State is the position of an order in the payment/shipping workflow
type State string

const (
	StateInitial State = "Initial"

	StatePaymentSubmitted  State = "PaymentSubmitted"
	StatePaymentAccepted   State = "PaymentAccepted"
	StatePaymentCancelled  State = "PaymentCancelled"
	StatePaymentDeadLetter State = "PaymentDeadLetter"

	StateShippingSubmitted  State = "ShippingSubmitted"
	StateShippingCancelled  State = "ShippingCancelled"
	StateShippingDeadLetter State = "ShippingDeadLetter"

	StateFinal State = "Final"
)

// MaxStateLength bounds the persisted representation of a state
const MaxStateLength = 64

var allStates = []State{
	StateInitial,
	StatePaymentSubmitted,
	StatePaymentAccepted,
	StatePaymentCancelled,
	StatePaymentDeadLetter,
	StateShippingSubmitted,
	StateShippingCancelled,
	StateShippingDeadLetter,
	StateFinal,
}

// AllStates returns the closed set of workflow states
func AllStates() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// ParseState converts a persisted state name back into a State
func ParseState(s string) (State, error) {
	for _, state := range allStates {
		if string(state) == s {
			return state, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownState, "%q", s)
}

// IsTerminal reports whether no modeled transition leaves the state
func (s State) IsTerminal() bool {
	switch s {
	case StatePaymentCancelled, StatePaymentDeadLetter,
		StateShippingCancelled, StateShippingDeadLetter, StateFinal:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	return string(s)
}
