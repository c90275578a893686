package keyring

import (
	"fmt"
	"sync"
)

// Memory keeps keys in process memory. Used by tests and short-lived tools.
type Memory struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[string][]byte)}
}

func (m *Memory) SavePrivateKey(userID string, privateKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[userID] = append([]byte(nil), privateKey...)
	return nil
}

func (m *Memory) LoadPrivateKey(userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return append([]byte(nil), key...), nil
}

func (m *Memory) DeletePrivateKey(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, userID)
	return nil
}
