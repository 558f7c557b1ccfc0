package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

var (
	ErrEmptySecretKey = errors.New("handler: jwt secret cannot be empty")
	ErrInvalidToken   = errors.New("handler: invalid token")
	ErrExpiredToken   = errors.New("handler: token has expired")
)

// Claims はアクセストークンのクレームです。Subject が操作主体になります。
type Claims struct {
	Roles      []string            `json:"roles"`
	Attributes map[string][]string `json:"attributes,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier は HS256 署名のアクセストークンを検証します。
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier は TokenVerifier を生成します。
func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecretKey
	}
	return &TokenVerifier{secret: []byte(secret), now: time.Now}, nil
}

// Verify はトークンを検証し Principal を返します。
func (v *TokenVerifier) Verify(raw string) (*reqctx.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return &reqctx.Principal{
		Subject:    claims.Subject,
		Roles:      claims.Roles,
		Attributes: claims.Attributes,
	}, nil
}
