package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
)

type unsignedToken struct {
	payload []byte
}

func (t *unsignedToken) Claims(v interface{}) error { return json.Unmarshal(t.payload, v) }

// InsecureVerifier accepts unsigned tokens so integration runs can act as any identity.
// Expiry and subject are still checked. Never enable it in production.
type InsecureVerifier struct {
	now func() time.Time
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{now: time.Now} }

func (v *InsecureVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, errors.New("token must have three segments")
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, err
	}
	var std struct {
		Sub string `json:"sub"`
		Exp *int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &std); err != nil {
		return nil, err
	}
	if std.Sub == "" {
		return nil, errors.New("token has no subject")
	}
	if std.Exp != nil && v.now().After(time.Unix(*std.Exp, 0)) {
		return nil, errors.New("token expired")
	}
	return &unsignedToken{payload: payload}, nil
}
