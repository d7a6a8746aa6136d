package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/draftea/saga-orchestrator/shared/models"
	"github.com/draftea/saga-orchestrator/shared/saga"
)

var _ saga.Observer = (*PostgresJournal)(nil)

// PostgresJournal records saga transitions in the saga_transitions table.
// It is an audit log; nothing reads it back to drive a saga.
type PostgresJournal struct {
	db *sqlx.DB
}

// NewPostgresJournal creates a new PostgresJournal
func NewPostgresJournal(db *sqlx.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// postgresTransition represents a transition in database
type postgresTransition struct {
	SagaID     string         `db:"saga_id"`
	ChannelID  string         `db:"channel_id"`
	StepIndex  int            `db:"step_index"`
	Phase      string         `db:"phase"`
	Outcome    string         `db:"outcome"`
	Error      sql.NullString `db:"error"`
	State      string         `db:"state"`
	NextIndex  int            `db:"next_index"`
	NextPhase  string         `db:"next_phase"`
	Payload    string         `db:"payload"`
	OccurredAt time.Time      `db:"occurred_at"`
}

// Observe implements saga.Observer
func (j *PostgresJournal) Observe(ctx context.Context, t saga.Transition) error {
	return j.Record(ctx, t)
}

// Record inserts one transition
func (j *PostgresJournal) Record(ctx context.Context, t saga.Transition) error {
	query := `
		INSERT INTO saga_transitions (
			saga_id, channel_id, step_index, phase, outcome, error,
			state, next_index, next_phase, payload, occurred_at
		) VALUES (
			:saga_id, :channel_id, :step_index, :phase, :outcome, :error,
			:state, :next_index, :next_phase, :payload, :occurred_at
		)`

	if _, err := j.db.NamedExecContext(ctx, query, toPostgresTransition(t)); err != nil {
		return errors.Wrap(err, "failed to insert saga transition")
	}
	return nil
}

// Transitions returns the transitions of one saga in the order they happened
func (j *PostgresJournal) Transitions(ctx context.Context, sagaID models.ID) ([]saga.Transition, error) {
	query := `
		SELECT saga_id, channel_id, step_index, phase, outcome, error,
			   state, next_index, next_phase, payload, occurred_at
		FROM saga_transitions
		WHERE saga_id = $1
		ORDER BY occurred_at ASC, id ASC`

	var rows []postgresTransition
	if err := j.db.SelectContext(ctx, &rows, query, sagaID.String()); err != nil {
		return nil, errors.Wrap(err, "failed to get saga transitions")
	}

	transitions := make([]saga.Transition, len(rows))
	for i := range rows {
		transitions[i] = rows[i].toTransition()
	}
	return transitions, nil
}

func toPostgresTransition(t saga.Transition) *postgresTransition {
	payload := string(t.Payload)
	if payload == "" {
		payload = "null"
	}
	return &postgresTransition{
		SagaID:     t.SagaID.String(),
		ChannelID:  t.ChannelID,
		StepIndex:  t.Index,
		Phase:      t.Phase.String(),
		Outcome:    string(t.Outcome),
		Error:      sql.NullString{String: t.Error, Valid: t.Error != ""},
		State:      string(t.State),
		NextIndex:  t.NextIndex,
		NextPhase:  t.NextPhase.String(),
		Payload:    payload,
		OccurredAt: t.At.UTC(),
	}
}

func (r *postgresTransition) toTransition() saga.Transition {
	return saga.Transition{
		SagaID:    models.ID(r.SagaID),
		ChannelID: r.ChannelID,
		Index:     r.StepIndex,
		Phase:     saga.Phase(r.Phase),
		Outcome:   saga.Outcome(r.Outcome),
		Error:     r.Error.String,
		State:     saga.State(r.State),
		NextIndex: r.NextIndex,
		NextPhase: saga.Phase(r.NextPhase),
		Payload:   json.RawMessage(r.Payload),
		At:        r.OccurredAt,
	}
}
