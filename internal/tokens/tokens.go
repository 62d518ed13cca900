package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
)

// HMAC issues and verifies HS256 access tokens for service-to-service callers and local
// runs without an identity provider.
type HMAC struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewHMAC(cfg config.JWTConfig) (*HMAC, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &HMAC{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl, now: time.Now}, nil
}

// GenerateAccessToken signs a token for subject. A zero ttl uses the configured lifetime.
func (h *HMAC) GenerateAccessToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is empty")
	}
	if ttl <= 0 {
		ttl = h.ttl
	}
	now := h.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": h.issuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

type claimsToken struct {
	claims jwt.MapClaims
}

func (t claimsToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return errors.New("unsupported claims type")
	}
	*m = map[string]interface{}(t.claims)
	return nil
}

// Verify implements middleware.Verifier. Only HS256 tokens from the configured issuer pass.
func (h *HMAC) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return h.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	return claimsToken{claims: claims}, nil
}
