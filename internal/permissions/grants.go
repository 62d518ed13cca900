package permissions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrGrantNotFound = errors.New("grant not found")

// Grant associates an identity with a role on one resource (a university or a profile).
// There is at most one grant per (identity, resource); changing a role overwrites it.
type Grant struct {
	Identity   string    `json:"identity" bson:"identity"`
	ResourceID string    `json:"resourceId" bson:"resourceId"`
	Role       Role      `json:"role" bson:"role"`
	GrantedBy  string    `json:"grantedBy" bson:"grantedBy"`
	GrantedAt  time.Time `json:"grantedAt" bson:"grantedAt"`
}

// GrantStore persists grants.
type GrantStore interface {
	// LookupGrant returns (nil, nil) when the identity holds no grant on the resource.
	LookupGrant(ctx context.Context, identity, resourceID string) (*Grant, error)
	PutGrant(ctx context.Context, g *Grant) error
	DeleteGrant(ctx context.Context, identity, resourceID string) error
	ListGrants(ctx context.Context, resourceID string) ([]*Grant, error)
}

type grantKey struct{ identity, resourceID string }

// MemoryGrantStore is the in-memory GrantStore used without MongoDB and in tests.
type MemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[grantKey]Grant
}

func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{grants: make(map[grantKey]Grant)}
}

func (m *MemoryGrantStore) LookupGrant(ctx context.Context, identity, resourceID string) (*Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grants[grantKey{identity, resourceID}]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *MemoryGrantStore) PutGrant(ctx context.Context, g *Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey{g.Identity, g.ResourceID}] = *g
	return nil
}

func (m *MemoryGrantStore) DeleteGrant(ctx context.Context, identity, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := grantKey{identity, resourceID}
	if _, ok := m.grants[k]; !ok {
		return ErrGrantNotFound
	}
	delete(m.grants, k)
	return nil
}

func (m *MemoryGrantStore) ListGrants(ctx context.Context, resourceID string) ([]*Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Grant{}
	for k, g := range m.grants {
		if k.resourceID == resourceID {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}
