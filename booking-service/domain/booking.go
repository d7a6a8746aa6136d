package domain

import (
	"context"
	"encoding/json"

	"github.com/draftea/saga-orchestrator/shared/models"
	"github.com/draftea/saga-orchestrator/shared/saga"
)

// Step channels of the booking saga, in execution order
const (
	FlightBookingService = "FlightBookingService"
	HotelBookingService  = "HotelBookingService"
	PaymentService       = "PaymentService"
)

// Payload keys written by the booking steps
const (
	FlightReservationField = "flight_reservation"
	HotelReservationField  = "hotel_reservation"
	PaymentIDField         = "payment_id"
	CancelledField         = "cancelled"
)

// Booking is the payload carried through the booking saga
type Booking struct {
	CustomerID   string  `json:"customer_id"`
	FlightNumber string  `json:"flight_number,omitempty"`
	HotelID      string  `json:"hotel_id,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	// FailAt names a step channel whose forward command must fail
	FailAt string `json:"fail_at,omitempty"`

	FlightReservation string   `json:"flight_reservation,omitempty"`
	HotelReservation  string   `json:"hotel_reservation,omitempty"`
	PaymentID         string   `json:"payment_id,omitempty"`
	Cancelled         []string `json:"cancelled,omitempty"`
}

// SagaStarter starts saga instances
type SagaStarter interface {
	Start(ctx context.Context, payload json.RawMessage) (models.ID, error)
}

// TransitionJournal stores and lists saga transitions
type TransitionJournal interface {
	saga.Observer
	Transitions(ctx context.Context, sagaID models.ID) ([]saga.Transition, error)
}
