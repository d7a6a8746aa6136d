package saga

import (
	"encoding/json"
	"fmt"

	"github.com/draftea/saga-orchestrator/shared/models"
)

// Phase is the direction a saga is travelling in.
type Phase string

const (
	PhaseForward  Phase = "STEP_FORWARD"
	PhaseBackward Phase = "STEP_BACK"
)

func (p Phase) String() string {
	return string(p)
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	return p == PhaseForward || p == PhaseBackward
}

// Header addresses the step a message concerns.
type Header struct {
	ID    models.ID `json:"id,omitempty"`
	Index int       `json:"index"`
	Phase Phase     `json:"phase"`
}

// Message is the unit published on step channels.
type Message struct {
	Payload json.RawMessage `json:"payload"`
	Saga    Header          `json:"saga"`
}

// NewMessage creates a message for the given saga instance and position
func NewMessage(id models.ID, index int, phase Phase, payload json.RawMessage) Message {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Message{
		Payload: payload,
		Saga: Header{
			ID:    id,
			Index: index,
			Phase: phase,
		},
	}
}

// Marshal encodes the message in its wire form
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a message from its wire form. Range checks happen
// when the message is handled, since only the definition knows N.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}

// Validate checks the message against a definition of the given length.
func (m Message) Validate(steps int) error {
	if !m.Saga.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrMalformedMessage, m.Saga.Phase)
	}
	if m.Saga.Index < 0 || m.Saga.Index >= steps {
		return fmt.Errorf("%w: index %d outside [0,%d)", ErrMalformedMessage, m.Saga.Index, steps)
	}
	return nil
}
