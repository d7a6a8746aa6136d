// Package saga implements an orchestrated saga: a long-running transaction
// split into an ordered list of steps, each with a forward command and an
// optional compensating command.
//
// A Definition is assembled with a DefinitionBuilder and driven by an
// Orchestrator. The orchestrator owns one Channel per step and subscribes a
// single Handler to all of them. Every delivered Message names the step it
// concerns (Saga.Index) and the direction of travel (Saga.Phase); handling a
// message runs that step's command and publishes the next message:
//
//	FORWARD(i)  ok   -> FORWARD(i+1), or COMMITTED when i+1 == N
//	FORWARD(i)  fail -> BACKWARD(i-1), or ROLLED_BACK when i-1 == -1
//	BACKWARD(i) any  -> BACKWARD(i-1), or ROLLED_BACK when i-1 == -1
//
// The orchestrator keeps no per-saga state. Where a saga instance currently
// is lives entirely in the last message in flight, so correctness depends on
// the transport preserving per-channel delivery order for an instance.
package saga
