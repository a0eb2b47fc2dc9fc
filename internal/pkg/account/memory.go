package account

import (
	"context"
	"sync"
)

// Memory keeps password hashes in a map. Accounts are lost on restart.
type Memory struct {
	hasher Hasher

	mu       sync.RWMutex
	accounts map[string]string
}

// NewMemory returns an empty in-memory provider.
func NewMemory(hasher Hasher) *Memory {
	return &Memory{hasher: hasher, accounts: make(map[string]string)}
}

func (m *Memory) SignIn(_ context.Context, email, password string) error {
	m.mu.RLock()
	hashed, ok := m.accounts[normalize(email)]
	m.mu.RUnlock()

	if !ok || !m.hasher.Verify(hashed, password) {
		return ErrInvalidCredentials
	}
	return nil
}

func (m *Memory) CreateAccount(_ context.Context, email, password string) error {
	hashed, err := m.hasher.Hash(password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalize(email)
	if _, ok := m.accounts[key]; ok {
		return ErrAccountExists
	}
	m.accounts[key] = string(hashed)
	return nil
}

func (m *Memory) UpdatePassword(_ context.Context, email, newPassword string) error {
	hashed, err := m.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalize(email)
	if _, ok := m.accounts[key]; !ok {
		return ErrAccountNotFound
	}
	m.accounts[key] = string(hashed)
	return nil
}

func (m *Memory) Close() error { return nil }
