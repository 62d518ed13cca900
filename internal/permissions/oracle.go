package permissions

import (
	"context"

	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/metrics"
)

// Oracle answers whether an identity may perform an action on a resource. It never errors
// to its callers: any failure to find out is a denial.
type Oracle struct {
	grants   GrantStore
	cache    GrantCache
	settings *SettingsCache
}

type OracleOption func(*Oracle)

// WithGrantCache puts a cache in front of the grant store.
func WithGrantCache(c GrantCache) OracleOption {
	return func(o *Oracle) { o.cache = c }
}

// WithSettings enables platform-admin lookups.
func WithSettings(s *SettingsCache) OracleOption {
	return func(o *Oracle) { o.settings = s }
}

func NewOracle(grants GrantStore, opts ...OracleOption) *Oracle {
	o := &Oracle{grants: grants}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Authorize reports whether identity may perform action on resourceID.
func (o *Oracle) Authorize(ctx context.Context, identity, resourceID string, action Action) bool {
	if identity == "" || resourceID == "" {
		metrics.PermissionDecisions.WithLabelValues("deny").Inc()
		return false
	}
	role, err := o.RoleFor(ctx, identity, resourceID)
	if err != nil {
		logger.Warnf("permission lookup failed for resource %s: %v", resourceID, err)
		metrics.PermissionDecisions.WithLabelValues("error").Inc()
		return false
	}
	if !Can(role, action) {
		metrics.PermissionDecisions.WithLabelValues("deny").Inc()
		return false
	}
	metrics.PermissionDecisions.WithLabelValues("allow").Inc()
	return true
}

// AuthorizeAny authorizes against the first resource that allows the action. Content items
// pass their profile id and then their university id.
func (o *Oracle) AuthorizeAny(ctx context.Context, identity string, resourceIDs []string, action Action) bool {
	for _, id := range resourceIDs {
		if o.Authorize(ctx, identity, id, action) {
			return true
		}
	}
	return false
}

// RoleFor returns the effective role of identity on resourceID, or "" when it holds none.
func (o *Oracle) RoleFor(ctx context.Context, identity, resourceID string) (Role, error) {
	if o.settings != nil {
		admin, err := o.settings.IsPlatformAdmin(ctx, identity)
		if err != nil {
			return "", err
		}
		if admin {
			return RoleAdmin, nil
		}
	}
	return o.grantedRole(ctx, identity, resourceID)
}

func (o *Oracle) grantedRole(ctx context.Context, identity, resourceID string) (Role, error) {
	if o.cache != nil {
		role, hit, err := o.cache.Get(ctx, identity, resourceID)
		switch {
		case err != nil:
			metrics.GrantCacheLookups.WithLabelValues("error").Inc()
			logger.Debugf("grant cache unavailable, using store: %v", err)
		case hit:
			metrics.GrantCacheLookups.WithLabelValues("hit").Inc()
			return role, nil
		default:
			metrics.GrantCacheLookups.WithLabelValues("miss").Inc()
		}
	}
	g, err := o.grants.LookupGrant(ctx, identity, resourceID)
	if err != nil {
		return "", err
	}
	var role Role
	if g != nil {
		if r, ok := ParseRole(string(g.Role)); ok {
			role = r
		}
	}
	if o.cache != nil {
		if err := o.cache.Set(ctx, identity, resourceID, role); err != nil {
			logger.Debugf("grant cache write failed: %v", err)
		}
	}
	return role, nil
}

// InvalidateGrant drops any cached lookup for (identity, resourceID).
func (o *Oracle) InvalidateGrant(ctx context.Context, identity, resourceID string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Invalidate(ctx, identity, resourceID); err != nil {
		logger.Warnf("grant cache invalidation failed for resource %s: %v", resourceID, err)
	}
}

// InvalidateSettings drops the cached admin settings.
func (o *Oracle) InvalidateSettings() {
	if o.settings != nil {
		o.settings.Invalidate()
	}
}
