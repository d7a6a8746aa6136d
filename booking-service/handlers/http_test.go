package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/draftea/saga-orchestrator/booking-service/application"
	"github.com/draftea/saga-orchestrator/booking-service/mocks"
	"github.com/draftea/saga-orchestrator/shared/models"
	"github.com/draftea/saga-orchestrator/shared/saga"
)

const testSagaID = "550e8400-e29b-41d4-a716-446655440020"

func newTestRouter(t *testing.T) (*chi.Mux, *mocks.MockSagaStarter, *mocks.MockTransitionJournal) {
	starter := mocks.NewMockSagaStarter(t)
	journal := mocks.NewMockTransitionJournal(t)

	h := NewSagaHandlers(application.NewStartBooking(starter), application.NewGetTransitions(journal))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, starter, journal
}

func TestSagaHandlers_StartSaga(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockSagaStarter)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "accepted",
			body: `{"customer_id":"c-1","fail_at":"PaymentService"}`,
			setupMocks: func(starter *mocks.MockSagaStarter) {
				starter.EXPECT().Start(mock.Anything, mock.MatchedBy(func(p json.RawMessage) bool {
					return strings.Contains(string(p), `"fail_at":"PaymentService"`)
				})).Return(models.ID(testSagaID), nil).Once()
			},
			expectedStatus: http.StatusAccepted,
			expectedBody:   `{"saga_id":"` + testSagaID + `"}`,
		},
		{
			name:           "invalid JSON",
			body:           `{"customer_id"`,
			setupMocks:     func(starter *mocks.MockSagaStarter) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "array body",
			body:           `[1,2]`,
			setupMocks:     func(starter *mocks.MockSagaStarter) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "transport unavailable",
			body: `{}`,
			setupMocks: func(starter *mocks.MockSagaStarter) {
				starter.EXPECT().Start(mock.Anything, mock.Anything).
					Return(models.ID(""), errors.New("broker unreachable")).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, starter, _ := newTestRouter(t)
			tt.setupMocks(starter)

			req := httptest.NewRequest(http.MethodPost, "/sagas", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestSagaHandlers_GetTransitions(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		r, _, journal := newTestRouter(t)
		journal.EXPECT().Transitions(mock.Anything, models.ID(testSagaID)).Return([]saga.Transition{
			{SagaID: testSagaID, ChannelID: "FlightBookingService", Phase: saga.PhaseForward,
				Outcome: saga.OutcomeSucceeded, State: saga.StateRunning, NextIndex: 1, NextPhase: saga.PhaseForward},
			{SagaID: testSagaID, ChannelID: "HotelBookingService", Index: 1, Phase: saga.PhaseForward,
				Outcome: saga.OutcomeSucceeded, State: saga.StateCommitted, NextIndex: 2, NextPhase: saga.PhaseForward},
		}, nil).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sagas/"+testSagaID+"/transitions", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body application.GetTransitionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, saga.StateCommitted, body.State)
		assert.Len(t, body.Transitions, 2)
	})

	t.Run("not found", func(t *testing.T) {
		r, _, journal := newTestRouter(t)
		journal.EXPECT().Transitions(mock.Anything, models.ID(testSagaID)).Return(nil, nil).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sagas/"+testSagaID+"/transitions", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("journal error", func(t *testing.T) {
		r, _, journal := newTestRouter(t)
		journal.EXPECT().Transitions(mock.Anything, models.ID(testSagaID)).
			Return(nil, errors.New("database error")).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sagas/"+testSagaID+"/transitions", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
