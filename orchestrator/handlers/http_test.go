package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/draftea/order-orchestrator/orchestrator/application"
	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/orchestrator/infrastructure"
	"github.com/draftea/order-orchestrator/shared/events"
	sharedinfra "github.com/draftea/order-orchestrator/shared/infrastructure"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type httpFixture struct {
	router  chi.Router
	repo    *infrastructure.MemoryOrderRepository
	bus     *sharedinfra.MemoryEventBus
	journal *sharedinfra.MemoryEventJournal
}

func newHTTPFixture(t *testing.T) *httpFixture {
	repo := infrastructure.NewMemoryOrderRepository()
	bus := sharedinfra.NewMemoryEventBus()
	journal := sharedinfra.NewMemoryEventJournal()
	publisher := sharedinfra.NewJournalingPublisher(bus, journal, nil)

	engine := application.NewHandleOrderEvent(repo, publisher)
	orderHandlers := NewOrderHandlers(
		application.NewGetOrder(repo),
		application.NewRepublishOrderEvents(repo, publisher, engine.Source(), nil),
		engine,
		application.NewListOrderEvents(repo, journal),
	)

	router := chi.NewRouter()
	router.Get("/health", HealthHandler)
	orderHandlers.RegisterRoutes(router)

	return &httpFixture{router: router, repo: repo, bus: bus, journal: journal}
}

func (f *httpFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *httpFixture) seed(t *testing.T, state domain.State) models.ID {
	order, err := domain.NewOrder(models.GenerateUUID(), json.RawMessage(`{"sku":"A-1"}`), testTime)
	require.NoError(t, err)
	order.CurrentState = state
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order.CorrelationID
}

func TestOrderHandlers_GetOrder(t *testing.T) {
	f := newHTTPFixture(t)
	id := f.seed(t, domain.StatePaymentAccepted)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "found", path: "/orders/" + id.String(), expectedStatus: http.StatusOK},
		{name: "not found", path: "/orders/" + models.GenerateUUID().String(), expectedStatus: http.StatusNotFound},
		{name: "invalid id", path: "/orders/nope", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}

	rec := f.do(t, http.MethodGet, "/orders/"+id.String(), "")
	var body application.GetOrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "PaymentAccepted", body.CurrentState)
	assert.False(t, body.Terminal)
	assert.JSONEq(t, `{"sku":"A-1"}`, string(body.Payload))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestOrderHandlers_Republish(t *testing.T) {
	f := newHTTPFixture(t)
	id := f.seed(t, domain.StateFinal)

	rec := f.do(t, http.MethodPost, "/orders/"+id.String()+"/republish", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body application.RepublishOrderEventsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{events.OrderFinalEvent}, body.EventTypes)
	assert.Len(t, f.bus.PublishedOfType(events.OrderFinalEvent), 1)
}

func TestOrderHandlers_SubmitAndListEvents(t *testing.T) {
	f := newHTTPFixture(t)
	id := models.GenerateUUID().String()

	rec := f.do(t, http.MethodPost, "/orders/"+id+"/events", `{"event_type":"order.initial","payload":{"sku":"B-2"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/orders/"+id+"/events", `{"event_type":"payment.submitted","retry_count":9}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var result application.HandleOrderEventResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, application.DispositionApplied, result.Disposition)
	assert.Equal(t, "PaymentDeadLetter", result.CurrentState)

	rec = f.do(t, http.MethodGet, "/orders/"+id+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var journaled []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&journaled))
	require.Len(t, journaled, 1)
	assert.Equal(t, events.PaymentDeadLetterEvent, journaled[0]["event_type"])
}

func TestOrderHandlers_SubmitValidation(t *testing.T) {
	f := newHTTPFixture(t)
	id := models.GenerateUUID().String()

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/orders/"+id+"/events", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/orders/"+id+"/events", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/orders/"+id+"/events", `{"event_type":"payment.submitted","retry_count":-1}`).Code)
}

func TestHealthHandler(t *testing.T) {
	f := newHTTPFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
