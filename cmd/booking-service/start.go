package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/draftea/saga-orchestrator/booking-service/application"
	"github.com/draftea/saga-orchestrator/booking-service/config"
	"github.com/draftea/saga-orchestrator/shared/saga"
)

var startTimeout time.Duration

var startCmd = &cobra.Command{
	Use:   "start [payload]",
	Short: "Run a single booking saga and print its transitions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  cobraStart,
}

func init() {
	startCmd.Flags().DurationVar(&startTimeout, "timeout", 30*time.Second, "how long to wait for the saga to finish")
}

func cobraStart(cmd *cobra.Command, args []string) error {
	cfg, logger := loadConfig()

	payload := json.RawMessage(`{}`)
	if len(args) == 1 {
		payload = json.RawMessage(args[0])
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), startTimeout)
	defer cancel()

	deps, err := config.BuildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Run(ctx); err != nil {
		return err
	}

	resp, err := deps.StartBooking.Execute(ctx, &application.StartBookingCommand{Payload: payload})
	if err != nil {
		return err
	}
	logger.Info().Str("saga_id", resp.SagaID).Msg("Saga started")

	result, err := waitForSaga(ctx, deps, resp.SagaID)
	if err != nil {
		return errors.Wrapf(err, "saga %s", resp.SagaID)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if result.State != saga.StateCommitted {
		return errors.Errorf("saga %s finished %s", resp.SagaID, result.State)
	}
	return nil
}

// waitForSaga polls the journal until it holds the whole run of the saga
func waitForSaga(ctx context.Context, deps *config.Dependencies, sagaID string) (*application.GetTransitionsResponse, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for saga")
		case err := <-deps.Fatal:
			return nil, errors.Wrap(err, "transport failed")
		case <-ticker.C:
		}

		result, err := deps.GetTransitions.Execute(ctx, &application.GetTransitionsQuery{SagaID: sagaID})
		if errors.Is(err, application.ErrSagaNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if complete(result.Transitions) {
			return result, nil
		}
	}
}

// complete reports whether transitions run from FORWARD(0) to a terminal
// state without gaps.
func complete(transitions []saga.Transition) bool {
	if len(transitions) == 0 || transitions[0].Index != 0 || transitions[0].Phase != saga.PhaseForward {
		return false
	}
	for i := 1; i < len(transitions); i++ {
		prev := transitions[i-1]
		if prev.NextIndex != transitions[i].Index || prev.NextPhase != transitions[i].Phase {
			return false
		}
	}
	return transitions[len(transitions)-1].State.Terminal()
}
