package records

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store. Values are stored as JSON so callers
// never share memory with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[int64]json.RawMessage
	nextID map[string]int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]map[int64]json.RawMessage),
		nextID: make(map[string]int64),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, collection string, id int64, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	raw, ok := s.data[collection][id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, collection, id)
	}
	return json.Unmarshal(raw, dst)
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, collection string, v any) (int64, error) {
	if collection == "" {
		return 0, ErrInvalidCollection
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("records: encode %s: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID[collection]++
	id := s.nextID[collection]
	s.put(collection, id, raw)
	return id, nil
}

// Put stores v under an explicit ID, replacing any existing record.
func (s *MemoryStore) Put(collection string, id int64, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("records: encode %s: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, raw)
	if id > s.nextID[collection] {
		s.nextID[collection] = id
	}
	return nil
}

// List returns the raw records of a collection ordered by ID.
func (s *MemoryStore) List(collection string) []json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.data[collection]))
	for id := range s.data[collection] {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.data[collection][id])
	}
	return out
}

func (s *MemoryStore) put(collection string, id int64, raw json.RawMessage) {
	if s.data[collection] == nil {
		s.data[collection] = make(map[int64]json.RawMessage)
	}
	s.data[collection][id] = raw
}
