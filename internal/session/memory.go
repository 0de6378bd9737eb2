package session

import (
	"context"
	"sync"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

// MemoryStore keeps a session in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	kv map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{kv: map[string]string{}}
}

func (m *MemoryStore) Load(ctx context.Context) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decode(m.kv), nil
}

func (m *MemoryStore) Save(ctx context.Context, s models.Session) error {
	kv, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.kv = kv
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.kv = map[string]string{}
	m.mu.Unlock()
	return nil
}

// Set writes a raw key, bypassing encoding. Useful to reproduce corrupted state.
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.kv[key] = value
	m.mu.Unlock()
}

// MemoryStores returns a factory that hands out one MemoryStore per client id.
func MemoryStores() func(clientID string) Store {
	var mu sync.Mutex
	stores := map[string]*MemoryStore{}
	return func(clientID string) Store {
		mu.Lock()
		defer mu.Unlock()
		s, ok := stores[clientID]
		if !ok {
			s = NewMemoryStore()
			stores[clientID] = s
		}
		return s
	}
}
