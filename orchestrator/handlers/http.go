package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/draftea/order-orchestrator/orchestrator/application"
	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	getOrder             *application.GetOrder
	republishOrderEvents *application.RepublishOrderEvents
	handleOrderEvent     *application.HandleOrderEvent
	listOrderEvents      *application.ListOrderEvents
}

// NewOrderHandlers creates new order handlers. listOrderEvents may be nil
// when no event journal is configured.
func NewOrderHandlers(
	getOrder *application.GetOrder,
	republishOrderEvents *application.RepublishOrderEvents,
	handleOrderEvent *application.HandleOrderEvent,
	listOrderEvents *application.ListOrderEvents,
) *OrderHandlers {
	return &OrderHandlers{
		getOrder:             getOrder,
		republishOrderEvents: republishOrderEvents,
		handleOrderEvent:     handleOrderEvent,
		listOrderEvents:      listOrderEvents,
	}
}

// GetOrder handles order retrieval requests
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	response, err := h.getOrder.Execute(r.Context(), &application.GetOrderQuery{CorrelationID: orderID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// RepublishOrderEvents handles republish requests
func (h *OrderHandlers) RepublishOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	response, err := h.republishOrderEvents.Execute(r.Context(), &application.RepublishOrderEventsCommand{CorrelationID: orderID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// SubmitOrderEvent runs one event through the saga engine directly
func (h *OrderHandlers) SubmitOrderEvent(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var cmd application.HandleOrderEventCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.CorrelationID = orderID

	if cmd.EventType == "" {
		http.Error(w, "event_type is required", http.StatusBadRequest)
		return
	}

	response, err := h.handleOrderEvent.Execute(r.Context(), &cmd)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// ListOrderEvents handles journal listing requests
func (h *OrderHandlers) ListOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	evts, err := h.listOrderEvents.Execute(r.Context(), &application.ListOrderEventsQuery{CorrelationID: orderID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evts)
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/orders/{id}", func(r chi.Router) {
		r.Get("/", h.GetOrder)
		r.Post("/republish", h.RepublishOrderEvents)
		r.Post("/events", h.SubmitOrderEvent)
		if h.listOrderEvents != nil {
			r.Get("/events", h.ListOrderEvents)
		}
	})
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return "", false
	}

	if _, err := models.NewID(orderID); err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return "", false
	}

	return orderID, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrPayloadTooLarge), errors.Is(err, domain.ErrInvalidRetryCount),
		errors.Is(err, domain.ErrInvalidCorrelationID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrOrderConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
