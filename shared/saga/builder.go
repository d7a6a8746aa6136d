package saga

import "context"

// DefinitionBuilder assembles a Definition with a fluent API:
//
//	orch, err := saga.NewDefinitionBuilder().
//		Step("FlightBookingService").
//		OnReply(bookFlight).
//		WithCompensation(cancelFlight).
//		Step("PaymentService").
//		OnReply(charge).
//		Build(ctx, channel)
//
// Misuse is recorded on the first offending call and reported by Err,
// Definition and Build; calls after that are ignored.
type DefinitionBuilder struct {
	steps   []*StepDefinition
	current *StepDefinition
	err     error
}

// NewDefinitionBuilder creates an empty builder
func NewDefinitionBuilder() *DefinitionBuilder {
	return &DefinitionBuilder{}
}

// Step appends a step and makes it the target of OnReply and WithCompensation.
func (b *DefinitionBuilder) Step(channelID string) *DefinitionBuilder {
	if b.err != nil {
		return b
	}
	step := &StepDefinition{ChannelID: channelID}
	b.steps = append(b.steps, step)
	b.current = step
	return b
}

// OnReply sets the forward command of the current step.
func (b *DefinitionBuilder) OnReply(cmd Command) *DefinitionBuilder {
	if b.err != nil {
		return b
	}
	if b.current == nil {
		b.err = ErrBuilderState
		return b
	}
	b.current.Forward = cmd
	return b
}

// WithCompensation sets the compensating command of the current step.
func (b *DefinitionBuilder) WithCompensation(cmd Command) *DefinitionBuilder {
	if b.err != nil {
		return b
	}
	if b.current == nil {
		b.err = ErrBuilderState
		return b
	}
	b.current.Compensate = cmd
	return b
}

// Err returns the first misuse recorded by the builder.
func (b *DefinitionBuilder) Err() error {
	return b.err
}

// Steps returns a snapshot of the steps declared so far.
func (b *DefinitionBuilder) Steps() []StepDefinition {
	out := make([]StepDefinition, len(b.steps))
	for i, step := range b.steps {
		out[i] = *step
	}
	return out
}

// Definition validates the declared steps and returns them as an immutable
// definition.
func (b *DefinitionBuilder) Definition() (*Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewDefinition(b.Steps()...)
}

// Build creates an orchestrator for the declared steps and initializes it
// on channel: every step channel is created and subscribed before Build
// returns.
func (b *DefinitionBuilder) Build(ctx context.Context, channel Channel, opts ...Option) (*Orchestrator, error) {
	def, err := b.Definition()
	if err != nil {
		return nil, err
	}

	orch, err := NewOrchestrator(def, channel, opts...)
	if err != nil {
		return nil, err
	}

	if err := orch.Init(ctx); err != nil {
		return nil, err
	}
	return orch, nil
}
