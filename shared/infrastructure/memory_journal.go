package infrastructure

import (
	"context"
	"sync"

	"github.com/draftea/saga-orchestrator/shared/models"
	"github.com/draftea/saga-orchestrator/shared/saga"
)

var _ saga.Observer = (*MemoryJournal)(nil)

// MemoryJournal keeps transitions in process memory
type MemoryJournal struct {
	mu          sync.RWMutex
	transitions map[models.ID][]saga.Transition
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{transitions: make(map[models.ID][]saga.Transition)}
}

// Observe implements saga.Observer
func (j *MemoryJournal) Observe(ctx context.Context, t saga.Transition) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Observers of consecutive steps can run out of order; keep At order
	list := append(j.transitions[t.SagaID], t)
	for i := len(list) - 1; i > 0 && list[i].At.Before(list[i-1].At); i-- {
		list[i], list[i-1] = list[i-1], list[i]
	}
	j.transitions[t.SagaID] = list
	return nil
}

// Transitions returns a copy of the transitions recorded for sagaID
func (j *MemoryJournal) Transitions(ctx context.Context, sagaID models.ID) ([]saga.Transition, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	list := j.transitions[sagaID]
	out := make([]saga.Transition, len(list))
	copy(out, list)
	return out, nil
}
