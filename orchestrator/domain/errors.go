package domain

import (
	"github.com/pkg/errors"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrOrderConflict      = errors.New("order was modified concurrently")
	ErrPayloadTooLarge    = errors.New("payload exceeds maximum size")
	ErrUnknownState       = errors.New("unknown order state")
	ErrInvalidRetryCount  = errors.New("retry count must not be negative")

	ErrInvalidCorrelationID = errors.New("invalid correlation ID")
)
