package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
)

// MemoryRepo is an in-memory repository used by the standalone binary when no MongoDB is
// configured, and by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*content.Item
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*content.Item)}
}

func (m *MemoryRepo) Create(ctx context.Context, it *content.Item) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if _, exists := m.store[it.ID]; exists {
		return "", fmt.Errorf("create %s: duplicate id", it.ID)
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = it.CreatedAt
	}
	if it.History == nil {
		it.History = []content.HistoryEntry{}
	}
	if it.Revision == 0 {
		it.Revision = 1
	}
	m.store[it.ID] = it.Clone()
	return it.ID, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*content.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if it, ok := m.store[id]; ok {
		return it.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context, f Filter) ([]*content.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*content.Item, 0, len(m.store))
	for _, it := range m.store {
		if f.matches(it) {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepo) ApplyChange(ctx context.Context, id string, expectedRevision int64, ch content.Change) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if it.Revision != expectedRevision {
		return nil, ErrConflict
	}
	it.Apply(ch)
	return it.Clone(), nil
}

func (m *MemoryRepo) Ping(ctx context.Context) error { return nil }
