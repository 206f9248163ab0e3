package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/orchestrator/mocks"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGetOrder_Execute(t *testing.T) {
	// Test data
	validOrderID := "550e8400-e29b-41d4-a716-446655440020"
	testTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)

	testOrder := &domain.Order{
		CorrelationID: models.ID(validOrderID),
		CurrentState:  domain.StatePaymentDeadLetter,
		Payload:       json.RawMessage(`{"sku":"A-1"}`),
		RetryCount:    4,
		CreatedAt:     testTime,
		UpdatedAt:     testTime.Add(time.Minute),
	}

	tests := []struct {
		name           string
		query          *GetOrderQuery
		setupMocks     func(*mocks.MockOrderRepository)
		expectedError  string
		expectedResult *GetOrderResponse
	}{
		{
			name:  "successful order retrieval",
			query: &GetOrderQuery{CorrelationID: validOrderID},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().FindByID(mock.Anything, models.ID(validOrderID)).
					Return(testOrder, nil).Once()
			},
			expectedResult: &GetOrderResponse{
				CorrelationID: validOrderID,
				CurrentState:  "PaymentDeadLetter",
				Terminal:      true,
				Payload:       json.RawMessage(`{"sku":"A-1"}`),
				RetryCount:    4,
				CreatedAt:     testTime.Format("2006-01-02T15:04:05Z07:00"),
				UpdatedAt:     testTime.Add(time.Minute).Format("2006-01-02T15:04:05Z07:00"),
			},
		},
		{
			name:  "upper case ID is normalised",
			query: &GetOrderQuery{CorrelationID: "550E8400-E29B-41D4-A716-446655440020"},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().FindByID(mock.Anything, models.ID(validOrderID)).
					Return(testOrder, nil).Once()
			},
			expectedResult: &GetOrderResponse{
				CorrelationID: validOrderID,
				CurrentState:  "PaymentDeadLetter",
				Terminal:      true,
				Payload:       json.RawMessage(`{"sku":"A-1"}`),
				RetryCount:    4,
				CreatedAt:     testTime.Format("2006-01-02T15:04:05Z07:00"),
				UpdatedAt:     testTime.Add(time.Minute).Format("2006-01-02T15:04:05Z07:00"),
			},
		},
		{
			name:  "empty correlation ID",
			query: &GetOrderQuery{},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				// No expectations - should fail validation
			},
			expectedError: "correlation ID is required",
		},
		{
			name:  "invalid correlation ID format",
			query: &GetOrderQuery{CorrelationID: "invalid-uuid"},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				// No expectations - should fail validation
			},
			expectedError: "invalid correlation ID",
		},
		{
			name:  "order not found - repository returns nil",
			query: &GetOrderQuery{CorrelationID: validOrderID},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().FindByID(mock.Anything, models.ID(validOrderID)).
					Return(nil, nil).Once()
			},
			expectedError: "order not found",
		},
		{
			name:  "repository error",
			query: &GetOrderQuery{CorrelationID: validOrderID},
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().FindByID(mock.Anything, models.ID(validOrderID)).
					Return(nil, errors.New("database error")).Once()
			},
			expectedError: "failed to find order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockOrderRepository(t)
			tt.setupMocks(mockRepo)

			useCase := NewGetOrder(mockRepo)

			result, err := useCase.Execute(context.Background(), tt.query)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedResult, result)
			}
		})
	}
}

func TestGetOrder_NotFoundIsSentinel(t *testing.T) {
	mockRepo := mocks.NewMockOrderRepository(t)
	mockRepo.EXPECT().FindByID(mock.Anything, mock.Anything).Return(nil, nil).Once()

	_, err := NewGetOrder(mockRepo).Execute(context.Background(), &GetOrderQuery{CorrelationID: models.GenerateUUID().String()})

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
