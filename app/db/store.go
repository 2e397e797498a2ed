package db

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("document not found")

// Store reads and writes whole JSON documents keyed by logical name.
type Store interface {
	Load(ctx context.Context, name string, v any) error
	Save(ctx context.Context, name string, v any) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// MemoryStore keeps documents in process, for tests and local runs without a data dir.
type MemoryStore struct {
	mu        sync.Mutex
	documents map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: map[string][]byte{}}
}

func (m *MemoryStore) Load(ctx context.Context, name string, v any) error {
	m.mu.Lock()
	data, ok := m.documents[name]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func (m *MemoryStore) Save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.documents[name] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
