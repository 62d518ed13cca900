package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
)

// Verifier checks ID tokens issued by the identity provider.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// IssuerURL is the Keycloak realm URL used for discovery.
func IssuerURL(cfg config.KeycloakConfig) string {
	return strings.TrimRight(cfg.URL, "/") + "/realms/" + cfg.Realm
}

// NewVerifier discovers the provider behind cfg and returns a verifier for its client.
func NewVerifier(ctx context.Context, cfg config.KeycloakConfig) (*Verifier, error) {
	if cfg.URL == "" || cfg.Realm == "" {
		return nil, fmt.Errorf("keycloak url and realm are required")
	}
	provider, err := oidc.NewProvider(ctx, IssuerURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
