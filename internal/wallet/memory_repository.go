package wallet

import (
	"context"
	"sync"
)

type stateKey struct{ origin, network string }

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[stateKey]Account
}

// NewMemoryRepository constructs an in-memory repository for development
// and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[stateKey]Account)}
}

func (r *memoryRepository) Get(_ context.Context, origin, network string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[stateKey{origin, network}]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (r *memoryRepository) Save(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[stateKey{acct.Origin, acct.Network}] = acct
	return nil
}
