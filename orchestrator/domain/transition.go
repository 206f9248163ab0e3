package domain

import (
	"github.com/draftea/order-orchestrator/shared/events"
)

// Incoming carries the parts of an inbound event the transition table reads.
// Payload and creation time always come from the record.
type Incoming struct {
	EventType  string
	RetryCount int
}

// Emission is an event to publish once a transition has been committed
type Emission struct {
	EventType string
	Data      events.OrderEventData
}

// Transition describes one edge of the workflow. Guarded transitions pick
// between Next and DeadLetter using ShouldDeadLetter on the incoming retry
// count; unguarded ones always go to Next.
type Transition struct {
	From      State
	EventType string
	Next      State
	Emits     string

	Guarded         bool
	DeadLetter      State
	DeadLetterEmits string
}

// Decision is the outcome of evaluating a transition against an order
type Decision struct {
	From         State
	Next         State
	RetryCount   int
	DeadLettered bool
	Emissions    []Emission
}

type transitionKey struct {
	state     State
	eventType string
}

var transitions = map[transitionKey]Transition{}

func init() {
	for _, t := range []Transition{
		{
			From:            StateInitial,
			EventType:       events.PaymentSubmittedEvent,
			Next:            StatePaymentSubmitted,
			Emits:           events.PaymentSubmittedEvent,
			Guarded:         true,
			DeadLetter:      StatePaymentDeadLetter,
			DeadLetterEmits: events.PaymentDeadLetterEvent,
		},
		{
			From:      StatePaymentSubmitted,
			EventType: events.PaymentAcceptedEvent,
			Next:      StatePaymentAccepted,
		},
		{
			From:      StatePaymentSubmitted,
			EventType: events.PaymentCancelledEvent,
			Next:      StatePaymentCancelled,
		},
		{
			From:            StatePaymentAccepted,
			EventType:       events.ShippingSubmittedEvent,
			Next:            StateShippingSubmitted,
			Emits:           events.ShippingSubmittedEvent,
			Guarded:         true,
			DeadLetter:      StateShippingDeadLetter,
			DeadLetterEmits: events.ShippingDeadLetterEvent,
		},
		{
			From:      StateShippingSubmitted,
			EventType: events.ShippingAcceptedEvent,
			Next:      StateFinal,
			Emits:     events.OrderFinalEvent,
		},
		{
			From:      StateShippingSubmitted,
			EventType: events.ShippingCancelledEvent,
			Next:      StateShippingCancelled,
		},
	} {
		transitions[transitionKey{state: t.From, eventType: t.EventType}] = t
	}
}

// Lookup returns the transition enabled for eventType in state, if any
func Lookup(state State, eventType string) (Transition, bool) {
	t, ok := transitions[transitionKey{state: state, eventType: eventType}]
	return t, ok
}

// Transitions returns every edge of the workflow
func Transitions() []Transition {
	out := make([]Transition, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, t)
	}
	return out
}

// CanTransition reports whether some event moves an order from one state to the other
func CanTransition(from, to State) bool {
	for _, t := range transitions {
		if t.From != from {
			continue
		}
		if t.Next == to || (t.Guarded && t.DeadLetter == to) {
			return true
		}
	}
	return false
}

// Decide evaluates the transition for order and the incoming event. It is
// pure: nothing is persisted or published here.
func (t Transition) Decide(order *Order, in Incoming) Decision {
	decision := Decision{
		From:       order.CurrentState,
		Next:       t.Next,
		RetryCount: order.RetryCount,
	}

	data := emissionData(order, order.CurrentState)

	if t.Guarded {
		decision.RetryCount = in.RetryCount
		if ShouldDeadLetter(in.RetryCount) {
			data.RetryCount = in.RetryCount
			decision.Next = t.DeadLetter
			decision.DeadLettered = true
			decision.Emissions = []Emission{{EventType: t.DeadLetterEmits, Data: data}}
			return decision
		}
	}

	if t.Emits != "" {
		decision.Emissions = []Emission{{EventType: t.Emits, Data: data}}
	}

	return decision
}

// Emissions rebuilds the events published by the transition that put the
// order into its current state, using the committed record as the source.
// States reached without publishing anything yield nil.
func Emissions(order *Order) []Emission {
	for _, t := range transitions {
		data := emissionData(order, t.From)

		switch {
		case t.Guarded && t.DeadLetter == order.CurrentState:
			data.RetryCount = order.RetryCount
			return []Emission{{EventType: t.DeadLetterEmits, Data: data}}
		case t.Next == order.CurrentState && t.Emits != "":
			return []Emission{{EventType: t.Emits, Data: data}}
		}
	}
	return nil
}

// emissionData is the body shared by Decide and Emissions, so a republished
// event carries exactly what the original emission did.
func emissionData(order *Order, from State) events.OrderEventData {
	return events.OrderEventData{
		CorrelationID: order.CorrelationID,
		CurrentState:  from.String(),
		Payload:       order.Payload,
		CreatedAt:     order.CreatedAt,
	}
}
