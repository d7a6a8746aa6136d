package saga

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/draftea/saga-orchestrator/shared/models"
)

// Call is what a command receives for one invocation.
type Call struct {
	SagaID    models.ID
	ChannelID string
	Index     int
	Phase     Phase
	Payload   json.RawMessage
}

// Command is a forward or compensating action. A non-nil result replaces
// the payload carried to the next step; a nil result keeps it. Any error is
// a failure of the step.
type Command func(ctx context.Context, call Call) (json.RawMessage, error)

// StepDefinition describes one saga step.
type StepDefinition struct {
	ChannelID  string
	Forward    Command
	Compensate Command
}

func (s StepDefinition) command(phase Phase) Command {
	if phase == PhaseForward {
		return s.Forward
	}
	return s.Compensate
}

// Definition is an immutable, ordered list of steps.
type Definition struct {
	steps []StepDefinition
}

// NewDefinition validates the steps and returns a definition holding a copy
// of them.
func NewDefinition(steps ...StepDefinition) (*Definition, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if step.ChannelID == "" {
			return nil, fmt.Errorf("step %d: %w", i, ErrEmptyChannel)
		}
		if _, exists := seen[step.ChannelID]; exists {
			return nil, fmt.Errorf("step %d: %w: %s", i, ErrDuplicateChannel, step.ChannelID)
		}
		seen[step.ChannelID] = struct{}{}
		if step.Forward == nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.ChannelID, ErrMissingForward)
		}
	}

	copied := make([]StepDefinition, len(steps))
	copy(copied, steps)
	return &Definition{steps: copied}, nil
}

// Len returns the number of steps.
func (d *Definition) Len() int {
	return len(d.steps)
}

// Step returns the step at index i.
func (d *Definition) Step(i int) (StepDefinition, bool) {
	if i < 0 || i >= len(d.steps) {
		return StepDefinition{}, false
	}
	return d.steps[i], true
}

// Steps returns a copy of the steps in order.
func (d *Definition) Steps() []StepDefinition {
	out := make([]StepDefinition, len(d.steps))
	copy(out, d.steps)
	return out
}

// ChannelIDs returns the channel of every step in order.
func (d *Definition) ChannelIDs() []string {
	ids := make([]string, len(d.steps))
	for i, step := range d.steps {
		ids[i] = step.ChannelID
	}
	return ids
}
