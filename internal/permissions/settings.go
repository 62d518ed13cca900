package permissions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingsDocID = "global"

// AdminSettings is the platform-wide settings document. Platform admins hold the admin role
// on every university and profile.
type AdminSettings struct {
	PlatformAdmins []string  `json:"platformAdmins" bson:"platformAdmins"`
	UpdatedBy      string    `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (s *AdminSettings) isPlatformAdmin(identity string) bool {
	for _, id := range s.PlatformAdmins {
		if id == identity {
			return true
		}
	}
	return false
}

type SettingsStore interface {
	// LoadSettings returns (nil, nil) when no settings document exists yet.
	LoadSettings(ctx context.Context) (*AdminSettings, error)
	SaveSettings(ctx context.Context, s *AdminSettings) error
}

type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings *AdminSettings
}

func NewMemorySettingsStore() *MemorySettingsStore { return &MemorySettingsStore{} }

func (m *MemorySettingsStore) LoadSettings(ctx context.Context) (*AdminSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, nil
	}
	cp := *m.settings
	cp.PlatformAdmins = append([]string(nil), m.settings.PlatformAdmins...)
	return &cp, nil
}

func (m *MemorySettingsStore) SaveSettings(ctx context.Context, s *AdminSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.PlatformAdmins = append([]string(nil), s.PlatformAdmins...)
	m.settings = &cp
	return nil
}

// MongoSettingsStore keeps the single settings document in its own collection.
type MongoSettingsStore struct {
	col *mongo.Collection
}

func NewMongoSettingsStore(col *mongo.Collection) *MongoSettingsStore {
	return &MongoSettingsStore{col: col}
}

func (m *MongoSettingsStore) LoadSettings(ctx context.Context) (*AdminSettings, error) {
	var s AdminSettings
	if err := m.col.FindOne(ctx, bson.M{"_id": settingsDocID}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &s, nil
}

func (m *MongoSettingsStore) SaveSettings(ctx context.Context, s *AdminSettings) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.col.ReplaceOne(ctx, bson.M{"_id": settingsDocID}, s, opts); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SettingsCache holds the last loaded AdminSettings for ttl. It is an explicit value owned by
// the Oracle; nothing is cached at package level.
type SettingsCache struct {
	store SettingsStore
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	snapshot  *AdminSettings
	fetchedAt time.Time
}

func NewSettingsCache(store SettingsStore, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingsCache{store: store, ttl: ttl, now: time.Now}
}

// Settings returns the cached settings, reloading them once the TTL has passed.
// A failed reload returns the error and keeps nothing stale around.
func (c *SettingsCache) Settings(ctx context.Context) (*AdminSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.snapshot, nil
	}
	return c.refreshLocked(ctx)
}

// Refresh reloads the settings immediately.
func (c *SettingsCache) Refresh(ctx context.Context) (*AdminSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *SettingsCache) refreshLocked(ctx context.Context) (*AdminSettings, error) {
	s, err := c.store.LoadSettings(ctx)
	if err != nil {
		c.snapshot = nil
		return nil, err
	}
	if s == nil {
		s = &AdminSettings{}
	}
	c.snapshot = s
	c.fetchedAt = c.now()
	return s, nil
}

// Invalidate drops the snapshot; the next read goes to the store.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}

func (c *SettingsCache) IsPlatformAdmin(ctx context.Context, identity string) (bool, error) {
	s, err := c.Settings(ctx)
	if err != nil {
		return false, err
	}
	return s.isPlatformAdmin(identity), nil
}
