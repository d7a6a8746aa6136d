package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/draftea/saga-orchestrator/booking-service/application"
)

const maxPayloadBytes = 1 << 20

// SagaHandlers contains saga HTTP handlers
type SagaHandlers struct {
	startBooking   *application.StartBooking
	getTransitions *application.GetTransitions
}

// NewSagaHandlers creates new saga handlers
func NewSagaHandlers(
	startBooking *application.StartBooking,
	getTransitions *application.GetTransitions,
) *SagaHandlers {
	return &SagaHandlers{
		startBooking:   startBooking,
		getTransitions: getTransitions,
	}
}

// StartSaga starts a booking saga with the request body as payload. The
// saga runs asynchronously, so the response is 202 with the saga id.
func (h *SagaHandlers) StartSaga(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.startBooking.Execute(r.Context(), &application.StartBookingCommand{Payload: body})
	if err != nil {
		if errors.Is(err, application.ErrInvalidPayload) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// GetTransitions returns the recorded transitions of one saga
func (h *SagaHandlers) GetTransitions(w http.ResponseWriter, r *http.Request) {
	sagaID := chi.URLParam(r, "id")
	if sagaID == "" {
		http.Error(w, "Saga ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.getTransitions.Execute(r.Context(), &application.GetTransitionsQuery{SagaID: sagaID})
	if err != nil {
		if errors.Is(err, application.ErrSagaNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers saga routes
func (h *SagaHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/sagas", func(r chi.Router) {
		r.Post("/", h.StartSaga)
		r.Get("/{id}/transitions", h.GetTransitions)
	})
}
