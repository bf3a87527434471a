package persona

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// StorageKey is the fixed key prefix persona entries are stored under.
const StorageKey = "help-center-persona"

// ErrNotFound is returned by Storage when no entry exists for a key.
var ErrNotFound = errors.New("persona entry not found")

// Storage is a durable key-value store holding serialized personas.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// KeyFor returns the storage key for a visitor.
func KeyFor(visitorID string) string {
	return StorageKey + ":" + visitorID
}

// Encode serializes a persona for storage.
func Encode(p Persona) ([]byte, error) {
	return json.Marshal(p)
}

// Decode restores a stored persona. Empty, malformed or invalid content yields Default.
func Decode(data []byte) Persona {
	if len(data) == 0 {
		return Default()
	}

	var p Persona
	if err := json.Unmarshal(data, &p); err != nil {
		return Default()
	}
	if p.Validate() != nil {
		return Default()
	}
	return p
}

// MemoryStorage implements Storage with a map, suitable for tests and single-node development.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string][]byte)}
}

// Load returns a copy of the stored value.
func (s *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Save stores a copy of value under key.
func (s *MemoryStorage) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.items[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}
