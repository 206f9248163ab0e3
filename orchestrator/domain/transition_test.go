package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderIn(t *testing.T, state State) *Order {
	t.Helper()

	order, err := NewOrder(models.GenerateUUID(), json.RawMessage(`{"order_id":42}`), time.Now().UTC())
	require.NoError(t, err)
	order.CurrentState = state
	return order
}

func TestLookup_Edges(t *testing.T) {
	tests := []struct {
		from      State
		eventType string
		next      State
	}{
		{from: StateInitial, eventType: events.PaymentSubmittedEvent, next: StatePaymentSubmitted},
		{from: StatePaymentSubmitted, eventType: events.PaymentAcceptedEvent, next: StatePaymentAccepted},
		{from: StatePaymentSubmitted, eventType: events.PaymentCancelledEvent, next: StatePaymentCancelled},
		{from: StatePaymentAccepted, eventType: events.ShippingSubmittedEvent, next: StateShippingSubmitted},
		{from: StateShippingSubmitted, eventType: events.ShippingAcceptedEvent, next: StateFinal},
		{from: StateShippingSubmitted, eventType: events.ShippingCancelledEvent, next: StateShippingCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.eventType, func(t *testing.T) {
			tr, ok := Lookup(tt.from, tt.eventType)
			require.True(t, ok)
			assert.Equal(t, tt.next, tr.Next)
			assert.True(t, CanTransition(tt.from, tt.next))
		})
	}

	assert.Len(t, Transitions(), len(tests))
}

func TestLookup_UnmatchedPairsAreDisabled(t *testing.T) {
	enabled := 0
	for _, state := range AllStates() {
		for _, eventType := range events.OrderEventTypes() {
			if _, ok := Lookup(state, eventType); ok {
				enabled++
			}
		}
	}
	assert.Equal(t, 6, enabled)

	_, ok := Lookup(StatePaymentSubmitted, events.PaymentSubmittedEvent)
	assert.False(t, ok, "duplicate submission must be a no-op")

	_, ok = Lookup(StateInitial, events.ShippingSubmittedEvent)
	assert.False(t, ok, "shipping cannot start before payment")

	_, ok = Lookup(StateFinal, events.ShippingAcceptedEvent)
	assert.False(t, ok)
}

func TestCanTransition_NoSkips(t *testing.T) {
	assert.False(t, CanTransition(StateInitial, StatePaymentAccepted))
	assert.False(t, CanTransition(StateInitial, StateFinal))
	assert.False(t, CanTransition(StatePaymentAccepted, StateFinal))
	assert.False(t, CanTransition(StatePaymentSubmitted, StatePaymentDeadLetter))
	assert.True(t, CanTransition(StateInitial, StatePaymentDeadLetter))
	assert.True(t, CanTransition(StatePaymentAccepted, StateShippingDeadLetter))
}

func TestDecide_GuardedSubmission(t *testing.T) {
	createdAt := time.Date(2025, 7, 28, 9, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"amount":10}`)

	tests := []struct {
		name       string
		from       State
		eventType  string
		retryCount int
		next       State
		emits      string
		deadLetter bool
	}{
		{name: "payment first attempt", from: StateInitial, eventType: events.PaymentSubmittedEvent, retryCount: 0, next: StatePaymentSubmitted, emits: events.PaymentSubmittedEvent},
		{name: "payment at threshold", from: StateInitial, eventType: events.PaymentSubmittedEvent, retryCount: 3, next: StatePaymentSubmitted, emits: events.PaymentSubmittedEvent},
		{name: "payment over threshold", from: StateInitial, eventType: events.PaymentSubmittedEvent, retryCount: 4, next: StatePaymentDeadLetter, emits: events.PaymentDeadLetterEvent, deadLetter: true},
		{name: "shipping first attempt", from: StatePaymentAccepted, eventType: events.ShippingSubmittedEvent, retryCount: 0, next: StateShippingSubmitted, emits: events.ShippingSubmittedEvent},
		{name: "shipping over threshold", from: StatePaymentAccepted, eventType: events.ShippingSubmittedEvent, retryCount: 7, next: StateShippingDeadLetter, emits: events.ShippingDeadLetterEvent, deadLetter: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := orderIn(t, tt.from)
			order.Payload = payload
			order.CreatedAt = createdAt
			tr, ok := Lookup(tt.from, tt.eventType)
			require.True(t, ok)

			decision := tr.Decide(order, Incoming{
				EventType:  tt.eventType,
				RetryCount: tt.retryCount,
			})

			assert.Equal(t, tt.from, decision.From)
			assert.Equal(t, tt.next, decision.Next)
			assert.Equal(t, tt.deadLetter, decision.DeadLettered)
			assert.Equal(t, tt.retryCount, decision.RetryCount)
			require.Len(t, decision.Emissions, 1)

			emission := decision.Emissions[0]
			assert.Equal(t, tt.emits, emission.EventType)
			assert.Equal(t, order.CorrelationID, emission.Data.CorrelationID)
			assert.Equal(t, tt.from.String(), emission.Data.CurrentState)
			assert.Equal(t, payload, emission.Data.Payload)
			assert.Equal(t, createdAt, emission.Data.CreatedAt)

			if tt.deadLetter {
				assert.Equal(t, tt.retryCount, emission.Data.RetryCount)
			} else {
				assert.Zero(t, emission.Data.RetryCount, "submitted events carry no retry count")
			}
		})
	}
}

func TestDecide_UnguardedTransitions(t *testing.T) {
	order := orderIn(t, StatePaymentSubmitted)
	order.RetryCount = 2

	tr, _ := Lookup(StatePaymentSubmitted, events.PaymentAcceptedEvent)
	decision := tr.Decide(order, Incoming{EventType: events.PaymentAcceptedEvent, RetryCount: 9})

	assert.Equal(t, StatePaymentAccepted, decision.Next)
	assert.Equal(t, 2, decision.RetryCount, "unguarded steps keep the recorded count")
	assert.Empty(t, decision.Emissions)

	order = orderIn(t, StateShippingSubmitted)
	tr, _ = Lookup(StateShippingSubmitted, events.ShippingAcceptedEvent)
	decision = tr.Decide(order, Incoming{EventType: events.ShippingAcceptedEvent})

	assert.Equal(t, StateFinal, decision.Next)
	require.Len(t, decision.Emissions, 1)
	assert.Equal(t, events.OrderFinalEvent, decision.Emissions[0].EventType)
	assert.Equal(t, StateShippingSubmitted.String(), decision.Emissions[0].Data.CurrentState)

	order = orderIn(t, StateShippingSubmitted)
	tr, _ = Lookup(StateShippingSubmitted, events.ShippingCancelledEvent)
	decision = tr.Decide(order, Incoming{EventType: events.ShippingCancelledEvent})

	assert.Equal(t, StateShippingCancelled, decision.Next)
	assert.Empty(t, decision.Emissions)
}

func TestEmissions(t *testing.T) {
	tests := []struct {
		state State
		emits string
		from  State
	}{
		{state: StatePaymentSubmitted, emits: events.PaymentSubmittedEvent, from: StateInitial},
		{state: StatePaymentDeadLetter, emits: events.PaymentDeadLetterEvent, from: StateInitial},
		{state: StateShippingSubmitted, emits: events.ShippingSubmittedEvent, from: StatePaymentAccepted},
		{state: StateShippingDeadLetter, emits: events.ShippingDeadLetterEvent, from: StatePaymentAccepted},
		{state: StateFinal, emits: events.OrderFinalEvent, from: StateShippingSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			order := orderIn(t, tt.state)
			order.RetryCount = 5

			emissions := Emissions(order)
			require.Len(t, emissions, 1)
			assert.Equal(t, tt.emits, emissions[0].EventType)
			assert.Equal(t, tt.from.String(), emissions[0].Data.CurrentState)
			assert.Equal(t, order.Payload, emissions[0].Data.Payload)
			assert.Equal(t, order.CreatedAt, emissions[0].Data.CreatedAt)
		})
	}

	for _, state := range []State{StateInitial, StatePaymentAccepted, StatePaymentCancelled, StateShippingCancelled} {
		assert.Nil(t, Emissions(orderIn(t, state)), state.String())
	}
}

func TestEmissions_MatchCommittedDecision(t *testing.T) {
	for _, tr := range Transitions() {
		for _, retryCount := range []int{0, 4} {
			order := orderIn(t, tr.From)
			decision := tr.Decide(order, Incoming{EventType: tr.EventType, RetryCount: retryCount})

			committed, err := order.Advance(decision.Next, decision.RetryCount, time.Now().UTC())
			require.NoError(t, err)

			if len(decision.Emissions) == 0 {
				assert.Nil(t, Emissions(committed), decision.Next.String())
				continue
			}
			assert.Equal(t, decision.Emissions, Emissions(committed), decision.Next.String())
		}
	}
}
