package application

import (
	"context"

	"github.com/pkg/errors"

	"github.com/draftea/saga-orchestrator/booking-service/domain"
	"github.com/draftea/saga-orchestrator/shared/models"
	"github.com/draftea/saga-orchestrator/shared/saga"
)

var ErrSagaNotFound = errors.New("saga not found")

// GetTransitionsQuery represents the query to list a saga's transitions
type GetTransitionsQuery struct {
	SagaID string
}

// GetTransitionsResponse represents the recorded history of one saga
type GetTransitionsResponse struct {
	SagaID      string            `json:"saga_id"`
	State       saga.State        `json:"state"`
	Transitions []saga.Transition `json:"transitions"`
}

// GetTransitions use case
type GetTransitions struct {
	journal domain.TransitionJournal
}

// NewGetTransitions creates a new GetTransitions use case
func NewGetTransitions(journal domain.TransitionJournal) *GetTransitions {
	return &GetTransitions{journal: journal}
}

// Execute executes the get transitions use case
func (uc *GetTransitions) Execute(ctx context.Context, query *GetTransitionsQuery) (*GetTransitionsResponse, error) {
	if query.SagaID == "" {
		return nil, errors.New("saga ID is required")
	}

	transitions, err := uc.journal.Transitions(ctx, models.ID(query.SagaID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transitions")
	}
	if len(transitions) == 0 {
		return nil, ErrSagaNotFound
	}

	return &GetTransitionsResponse{
		SagaID:      query.SagaID,
		State:       transitions[len(transitions)-1].State,
		Transitions: transitions,
	}, nil
}
