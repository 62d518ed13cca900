package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidGrant = errors.New("invalid grant")
)

// Service manages grants and the admin settings document. Every call is authorized through
// the Oracle it was built with.
type Service struct {
	oracle   *Oracle
	grants   GrantStore
	settings SettingsStore
	now      func() time.Time
}

func NewService(oracle *Oracle, grants GrantStore, settings SettingsStore) *Service {
	return &Service{oracle: oracle, grants: grants, settings: settings, now: time.Now}
}

// Grant gives identity the role on resourceID, replacing any role it held there.
func (s *Service) Grant(ctx context.Context, actor, identity, resourceID string, role Role) (*Grant, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || resourceID == "" {
		return nil, fmt.Errorf("%w: identity and resource are required", ErrInvalidGrant)
	}
	if _, ok := ParseRole(string(role)); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidGrant, role)
	}
	if !s.oracle.Authorize(ctx, actor, resourceID, ActionManageGrants) {
		return nil, ErrForbidden
	}
	g := &Grant{Identity: identity, ResourceID: resourceID, Role: role, GrantedBy: actor, GrantedAt: s.now().UTC()}
	if err := s.grants.PutGrant(ctx, g); err != nil {
		return nil, err
	}
	s.oracle.InvalidateGrant(ctx, identity, resourceID)
	logger.Infof("grant %s on %s set to %s by %s", identity, resourceID, role, actor)
	return g, nil
}

func (s *Service) Revoke(ctx context.Context, actor, identity, resourceID string) error {
	if !s.oracle.Authorize(ctx, actor, resourceID, ActionManageGrants) {
		return ErrForbidden
	}
	if err := s.grants.DeleteGrant(ctx, identity, resourceID); err != nil {
		return err
	}
	s.oracle.InvalidateGrant(ctx, identity, resourceID)
	logger.Infof("grant %s on %s revoked by %s", identity, resourceID, actor)
	return nil
}

func (s *Service) ListGrants(ctx context.Context, actor, resourceID string) ([]*Grant, error) {
	if !s.oracle.Authorize(ctx, actor, resourceID, ActionManageGrants) {
		return nil, ErrForbidden
	}
	return s.grants.ListGrants(ctx, resourceID)
}

func (s *Service) requirePlatformAdmin(ctx context.Context, actor string) error {
	if actor == "" || s.oracle.settings == nil {
		return ErrForbidden
	}
	ok, err := s.oracle.settings.IsPlatformAdmin(ctx, actor)
	if err != nil {
		logger.Warnf("settings lookup failed: %v", err)
		return ErrForbidden
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// GetSettings returns the admin settings document. Platform admins only.
func (s *Service) GetSettings(ctx context.Context, actor string) (*AdminSettings, error) {
	if err := s.requirePlatformAdmin(ctx, actor); err != nil {
		return nil, err
	}
	cur, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		cur = &AdminSettings{PlatformAdmins: []string{}}
	}
	return cur, nil
}

// UpdateSettings replaces the platform admin list. An admin cannot remove themselves, so the
// platform never ends up without one through this call.
func (s *Service) UpdateSettings(ctx context.Context, actor string, admins []string) (*AdminSettings, error) {
	if err := s.requirePlatformAdmin(ctx, actor); err != nil {
		return nil, err
	}
	cleaned := normalizeIdentities(admins)
	if !contains(cleaned, actor) {
		return nil, fmt.Errorf("%w: the caller must remain a platform admin", ErrInvalidGrant)
	}
	next := &AdminSettings{PlatformAdmins: cleaned, UpdatedBy: actor, UpdatedAt: s.now().UTC()}
	if err := s.settings.SaveSettings(ctx, next); err != nil {
		return nil, err
	}
	s.oracle.InvalidateSettings()
	logger.Infof("admin settings updated by %s (%d platform admins)", actor, len(cleaned))
	return next, nil
}

// SeedSettings writes the initial settings document when none exists. Existing settings are
// left alone.
func (s *Service) SeedSettings(ctx context.Context, admins []string) error {
	cleaned := normalizeIdentities(admins)
	if len(cleaned) == 0 {
		return nil
	}
	cur, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if cur != nil {
		return nil
	}
	if err := s.settings.SaveSettings(ctx, &AdminSettings{PlatformAdmins: cleaned, UpdatedBy: "bootstrap", UpdatedAt: s.now().UTC()}); err != nil {
		return err
	}
	s.oracle.InvalidateSettings()
	logger.Infof("seeded admin settings with %d platform admins", len(cleaned))
	return nil
}

func normalizeIdentities(in []string) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
