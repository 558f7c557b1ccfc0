package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// Sign はテスト用に Principal からアクセストークンを発行します。
// トークンの発行は外部の認証基盤が担います。
func (v *TokenVerifier) Sign(p *reqctx.Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		Roles:      p.Roles,
		Attributes: p.Attributes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func TestTokenVerifier_ExternallyIssuedTokens(t *testing.T) {
	t.Parallel()

	v, err := NewTokenVerifier("shared")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        "idp-user",
		"roles":      []string{"HRAdmin"},
		"attributes": map[string][]string{"CompanyCode": {"1010", "2020"}},
		"iat":        now.Unix(),
		"exp":        now.Add(time.Minute).Unix(),
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("shared"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	p, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Subject != "idp-user" || !p.HasRole("HRAdmin") || len(p.Attribute("CompanyCode")) != 2 {
		t.Fatalf("unexpected principal %+v", p)
	}

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("shared"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := v.Verify(other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for HS512, got %v", err)
	}

	delete(claims, "sub")
	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("shared"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := v.Verify(anonymous); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without subject, got %v", err)
	}
}
