package application

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/draftea/saga-orchestrator/booking-service/domain"
	"github.com/draftea/saga-orchestrator/shared/saga"
)

// ErrInjectedFailure is returned by a forward command chosen to fail
var ErrInjectedFailure = errors.New("injected failure")

// BookingSaga holds the commands of the flight, hotel and payment saga
type BookingSaga struct {
	logger zerolog.Logger
	// failAt forces the forward command of one step to fail for every saga
	failAt string
}

// NewBookingSaga creates the booking saga commands. failAt may be empty.
func NewBookingSaga(logger zerolog.Logger, failAt string) *BookingSaga {
	return &BookingSaga{
		logger: logger,
		failAt: failAt,
	}
}

// Builder returns a builder describing the three booking steps
func (s *BookingSaga) Builder() *saga.DefinitionBuilder {
	return saga.NewDefinitionBuilder().
		Step(domain.FlightBookingService).
		OnReply(s.forward(domain.FlightReservationField)).
		WithCompensation(s.compensate(domain.FlightReservationField)).
		Step(domain.HotelBookingService).
		OnReply(s.forward(domain.HotelReservationField)).
		WithCompensation(s.compensate(domain.HotelReservationField)).
		Step(domain.PaymentService).
		OnReply(s.forward(domain.PaymentIDField)).
		WithCompensation(s.compensate(domain.PaymentIDField))
}

// forward stores the step's reference under field
func (s *BookingSaga) forward(field string) saga.Command {
	return func(ctx context.Context, call saga.Call) (json.RawMessage, error) {
		payload, err := decodeBooking(call.Payload)
		if err != nil {
			return nil, err
		}

		if s.failAt == call.ChannelID || payload.booking.FailAt == call.ChannelID {
			return nil, errors.Wrapf(ErrInjectedFailure, "%s refused booking", call.ChannelID)
		}

		ref := reference(call)
		if err := payload.set(field, ref); err != nil {
			return nil, err
		}
		s.logger.Info().
			Str("saga_id", call.SagaID.String()).
			Str("service", call.ChannelID).
			Str("reference", ref).
			Msg("booking step applied")

		return payload.encode()
	}
}

// compensate removes field and records the step as cancelled
func (s *BookingSaga) compensate(field string) saga.Command {
	return func(ctx context.Context, call saga.Call) (json.RawMessage, error) {
		payload, err := decodeBooking(call.Payload)
		if err != nil {
			return nil, err
		}

		payload.remove(field)
		cancelled := payload.booking.Cancelled
		if !slices.Contains(cancelled, call.ChannelID) {
			cancelled = append(cancelled, call.ChannelID)
		}
		if err := payload.set(domain.CancelledField, cancelled); err != nil {
			return nil, err
		}
		s.logger.Info().
			Str("saga_id", call.SagaID.String()).
			Str("service", call.ChannelID).
			Msg("booking step compensated")

		return payload.encode()
	}
}

// bookingPayload keeps every field of the incoming object so that keys the
// booking saga does not know about reach the next step untouched.
type bookingPayload struct {
	fields  map[string]json.RawMessage
	booking domain.Booking
}

func decodeBooking(raw json.RawMessage) (*bookingPayload, error) {
	var p bookingPayload
	if err := json.Unmarshal(raw, &p.fields); err != nil {
		return nil, errors.Wrap(err, "invalid booking payload")
	}
	if p.fields == nil {
		return nil, errors.New("invalid booking payload: expected a JSON object")
	}
	if err := json.Unmarshal(raw, &p.booking); err != nil {
		return nil, errors.Wrap(err, "invalid booking payload")
	}
	return &p, nil
}

func (p *bookingPayload) set(field string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", field)
	}
	p.fields[field] = raw
	return nil
}

func (p *bookingPayload) remove(field string) {
	delete(p.fields, field)
}

func (p *bookingPayload) encode() (json.RawMessage, error) {
	out, err := json.Marshal(p.fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode booking payload")
	}
	return out, nil
}

func reference(call saga.Call) string {
	id := call.SagaID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s", call.ChannelID, id)
}
