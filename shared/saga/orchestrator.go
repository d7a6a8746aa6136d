package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/draftea/saga-orchestrator/shared/models"
	"github.com/draftea/saga-orchestrator/shared/telemetry"
)

// Orchestrator drives saga instances of one Definition over a Channel.
type Orchestrator struct {
	definition *Definition
	channel    Channel
	logger     zerolog.Logger
	observers  []Observer
	onFatal    func(error)
	now        func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger used for lifecycle and failure logs.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver adds an observer notified of every transition.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// WithTransportFailureHandler sets the function told about publish failures
// that happen while handling a delivered message. Such failures cannot be
// returned to a caller, so this is where an operator gets to stop the
// process.
func WithTransportFailureHandler(fn func(error)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.onFatal = fn
		}
	}
}

// NewOrchestrator binds a definition to a channel. Call Init before Start.
func NewOrchestrator(definition *Definition, channel Channel, opts ...Option) (*Orchestrator, error) {
	if definition == nil || definition.Len() == 0 {
		return nil, ErrNoSteps
	}
	if channel == nil {
		return nil, errors.New("saga channel is required")
	}

	o := &Orchestrator{
		definition: definition,
		channel:    channel,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	o.onFatal = func(err error) {
		o.logger.Error().Err(err).Msg("saga transport failure")
	}

	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Definition returns the definition the orchestrator drives.
func (o *Orchestrator) Definition() *Definition {
	return o.definition
}

// Init creates every step channel and subscribes the orchestrator's handler
// to all of them.
func (o *Orchestrator) Init(ctx context.Context) error {
	channelIDs := o.definition.ChannelIDs()

	g, gctx := errgroup.WithContext(ctx)
	for _, channelID := range channelIDs {
		g.Go(func() error {
			if err := o.channel.CreateIfAbsent(gctx, channelID); err != nil {
				return &TransportError{Op: "create", ChannelID: channelID, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	o.logger.Info().Strs("channels", channelIDs).Msg("saga channels created")

	if err := o.channel.Subscribe(ctx, o.Handle, channelIDs...); err != nil {
		return &TransportError{Op: "subscribe", Err: err}
	}
	o.logger.Info().Strs("channels", channelIDs).Msg("saga channels subscribed")
	return nil
}

// Start begins a new saga instance with a generated id. It returns once the
// first forward message is published, not when the saga concludes.
func (o *Orchestrator) Start(ctx context.Context, payload json.RawMessage) (models.ID, error) {
	id := models.GenerateUUID()
	if err := o.StartWithID(ctx, id, payload); err != nil {
		return "", err
	}
	return id, nil
}

// StartWithID begins a saga instance under a caller-chosen correlation id.
func (o *Orchestrator) StartWithID(ctx context.Context, id models.ID, payload json.RawMessage) error {
	if id.IsZero() {
		return ErrMissingSagaID
	}

	msg := NewMessage(id, 0, PhaseForward, payload)
	first, _ := o.definition.Step(0)

	ctx, span := telemetry.StartSpan(ctx, "saga.start",
		trace.WithAttributes(telemetry.SagaAttributes(id.String(), 0, PhaseForward.String(), first.ChannelID)...),
	)
	defer span.End()

	if err := o.publish(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return err
	}

	telemetry.RecordCounter(ctx, "saga_started_total", "Sagas started", 1)
	o.logger.Info().
		Str("saga_id", id.String()).
		Str("channel", first.ChannelID).
		Msg("saga started")
	return nil
}

// Handle is the transition function applied to every delivered message: it
// runs the addressed step's command and publishes the next message. Command
// failures are absorbed into the phase change. Malformed messages are
// logged and dropped. Only transport failures are returned.
func (o *Orchestrator) Handle(ctx context.Context, msg Message) error {
	if err := msg.Validate(o.definition.Len()); err != nil {
		o.logger.Warn().
			Err(err).
			Str("saga_id", msg.Saga.ID.String()).
			Int("index", msg.Saga.Index).
			Str("phase", msg.Saga.Phase.String()).
			Msg("dropping malformed saga message")
		telemetry.RecordCounter(ctx, "saga_malformed_messages_total", "Malformed saga messages dropped", 1)
		return nil
	}

	step, _ := o.definition.Step(msg.Saga.Index)
	logger := o.logger.With().
		Str("saga_id", msg.Saga.ID.String()).
		Int("index", msg.Saga.Index).
		Str("phase", msg.Saga.Phase.String()).
		Str("channel", step.ChannelID).
		Logger()

	attrs := telemetry.SagaAttributes(msg.Saga.ID.String(), msg.Saga.Index, msg.Saga.Phase.String(), step.ChannelID)
	ctx, span := telemetry.StartSpan(ctx, "saga.step "+step.ChannelID, trace.WithAttributes(attrs...))
	defer span.End()

	started := o.now()
	payload, outcome, cmdErr := o.execute(ctx, step, msg)
	telemetry.RecordHistogram(ctx, "saga_step_duration_seconds", "Saga step command duration",
		o.now().Sub(started).Seconds(),
		attribute.String("phase", msg.Saga.Phase.String()),
		attribute.String("channel", step.ChannelID),
	)

	if cmdErr != nil {
		span.RecordError(cmdErr)
		logger.Warn().Err(cmdErr).Msg("saga step failed")
	} else {
		logger.Debug().Str("outcome", string(outcome)).Msg("saga step done")
	}

	next, state := Advance(msg.Saga, o.definition.Len(), cmdErr)
	transition := Transition{
		SagaID:    msg.Saga.ID,
		ChannelID: step.ChannelID,
		Index:     msg.Saga.Index,
		Phase:     msg.Saga.Phase,
		Outcome:   outcome,
		State:     state,
		NextIndex: next.Index,
		NextPhase: next.Phase,
		Payload:   payload,
		At:        started,
	}
	if cmdErr != nil {
		transition.Error = cmdErr.Error()
	}

	if state == StateRunning {
		if err := o.publish(ctx, Message{Payload: payload, Saga: next}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "publish failed")
			o.onFatal(err)
			return err
		}
	} else {
		o.finish(ctx, logger, state)
	}

	telemetry.RecordCounter(ctx, "saga_transitions_total", "Saga step transitions", 1,
		attribute.String("phase", msg.Saga.Phase.String()),
		attribute.String("outcome", string(outcome)),
	)
	o.observe(ctx, logger, transition)
	return nil
}

// Advance computes the header that follows h in a saga of the given length,
// given the failure (nil on success) of the command h addressed. When the
// returned state is terminal the header holds the sentinel index N or -1 and
// must not be published.
func Advance(h Header, steps int, failure error) (Header, State) {
	next := Header{ID: h.ID}

	switch {
	case h.Phase == PhaseForward && failure == nil:
		next.Phase = PhaseForward
		next.Index = h.Index + 1
		if next.Index >= steps {
			return next, StateCommitted
		}
		return next, StateRunning

	case h.Phase == PhaseForward && errors.Is(failure, ErrPartiallyApplied):
		next.Phase = PhaseBackward
		next.Index = h.Index

	default:
		// Compensation keeps moving even when a compensator fails; there is
		// no retry budget.
		next.Phase = PhaseBackward
		next.Index = h.Index - 1
	}

	if next.Index < 0 {
		return next, StateRolledBack
	}
	return next, StateRunning
}

func (o *Orchestrator) execute(ctx context.Context, step StepDefinition, msg Message) (json.RawMessage, Outcome, error) {
	cmd := step.command(msg.Saga.Phase)
	if cmd == nil {
		return msg.Payload, OutcomeSkipped, nil
	}

	call := Call{
		SagaID:    msg.Saga.ID,
		ChannelID: step.ChannelID,
		Index:     msg.Saga.Index,
		Phase:     msg.Saga.Phase,
		Payload:   msg.Payload,
	}

	out, err := runCommand(ctx, cmd, call)
	if err != nil {
		return msg.Payload, OutcomeFailed, err
	}
	if out == nil {
		out = msg.Payload
	}
	return out, OutcomeSucceeded, nil
}

func runCommand(ctx context.Context, cmd Command, call Call) (out json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrCommandPanic, r)
		}
	}()
	return cmd(ctx, call)
}

func (o *Orchestrator) publish(ctx context.Context, msg Message) error {
	step, _ := o.definition.Step(msg.Saga.Index)
	if err := o.channel.Publish(ctx, step.ChannelID, msg); err != nil {
		return &TransportError{Op: "publish", ChannelID: step.ChannelID, Err: err}
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, logger zerolog.Logger, state State) {
	telemetry.RecordCounter(ctx, "saga_outcomes_total", "Sagas finished", 1,
		attribute.String("state", string(state)),
	)

	if state == StateCommitted {
		logger.Info().Msg("saga finished and transaction successful")
		return
	}
	logger.Info().Msg("saga finished and transaction rolled back")
}

func (o *Orchestrator) observe(ctx context.Context, logger zerolog.Logger, t Transition) {
	for _, observer := range o.observers {
		if err := observer.Observe(ctx, t); err != nil {
			logger.Error().Err(err).Msg("saga observer failed")
		}
	}
}
