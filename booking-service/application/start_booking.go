package application

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/draftea/saga-orchestrator/booking-service/domain"
)

var ErrInvalidPayload = errors.New("payload must be a JSON object")

// StartBookingCommand represents the command to start a booking saga
type StartBookingCommand struct {
	Payload json.RawMessage
}

// StartBookingResponse represents the response for a started saga
type StartBookingResponse struct {
	SagaID string `json:"saga_id"`
}

// StartBooking use case
type StartBooking struct {
	starter domain.SagaStarter
}

// NewStartBooking creates a new StartBooking use case
func NewStartBooking(starter domain.SagaStarter) *StartBooking {
	return &StartBooking{starter: starter}
}

// Execute publishes the first step of a new saga. It does not wait for the
// saga to finish.
func (uc *StartBooking) Execute(ctx context.Context, cmd *StartBookingCommand) (*StartBookingResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(cmd.Payload, &fields); err != nil || fields == nil {
		return nil, ErrInvalidPayload
	}

	id, err := uc.starter.Start(ctx, cmd.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start saga")
	}

	return &StartBookingResponse{SagaID: id.String()}, nil
}
