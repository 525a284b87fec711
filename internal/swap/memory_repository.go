package swap

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	swaps map[string]Swap
}

// NewMemoryRepository builds an in-memory swap store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{swaps: make(map[string]Swap)}
}

func (r *memoryRepository) Create(_ context.Context, s Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.swaps[s.ScheduleID]; exists {
		return errors.New("swap exists")
	}
	r.swaps[s.ScheduleID] = s
	return nil
}

func (r *memoryRepository) Get(_ context.Context, scheduleID string) (Swap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.swaps[scheduleID]
	if !ok {
		return Swap{}, ErrNotFound
	}
	return s, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, scheduleID string, status Status, scheduledTxID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.swaps[scheduleID]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	if scheduledTxID != "" {
		s.ScheduledTransactionID = scheduledTxID
	}
	r.swaps[scheduleID] = s
	return nil
}

func (r *memoryRepository) ListOpen(_ context.Context, account string) ([]Swap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Swap
	for _, s := range r.swaps {
		if s.Open() && (s.Requester == account || s.Responder == account) {
			out = append(out, s)
		}
	}
	return out, nil
}
