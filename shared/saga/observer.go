package saga

import (
	"context"
	"encoding/json"
	"time"

	"github.com/draftea/saga-orchestrator/shared/models"
)

// Outcome is the result of running one step command.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped is a backward step without a compensating command.
	OutcomeSkipped Outcome = "skipped"
)

// State is where a saga instance stands after a transition.
type State string

const (
	StateRunning    State = "running"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Terminal reports whether no further message follows.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// Transition records one handled message and what the orchestrator did next.
// NextIndex holds the sentinel N or -1 when State is terminal.
type Transition struct {
	SagaID    models.ID       `json:"saga_id"`
	ChannelID string          `json:"channel_id"`
	Index     int             `json:"index"`
	Phase     Phase           `json:"phase"`
	Outcome   Outcome         `json:"outcome"`
	Error     string          `json:"error,omitempty"`
	State     State           `json:"state"`
	NextIndex int             `json:"next_index"`
	NextPhase Phase           `json:"next_phase"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	At        time.Time       `json:"at"`
}

// Observer is notified of every transition after the next message, if any,
// has been published.
type Observer interface {
	Observe(ctx context.Context, t Transition) error
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, t Transition) error

func (f ObserverFunc) Observe(ctx context.Context, t Transition) error {
	return f(ctx, t)
}
