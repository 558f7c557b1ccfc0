package reqctx

import (
	"context"
	"strings"
)

// Principal は認証済みの操作主体です。
type Principal struct {
	Subject    string
	Roles      []string
	Attributes map[string][]string
}

// HasRole は指定ロールを保持しているかを返します。大文字小文字は区別しません。
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if strings.EqualFold(strings.TrimSpace(r), name) {
			return true
		}
	}
	return false
}

// Attribute は属性値を返します。存在しない場合は nil です。
func (p *Principal) Attribute(name string) []string {
	if p == nil || p.Attributes == nil {
		return nil
	}
	return p.Attributes[name]
}

// Headers はトランスポート層から渡されたヘッダです。キーは小文字で保持します。
type Headers map[string]string

// Get はヘッダ値と存在有無を返します。
func (h Headers) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h[strings.ToLower(name)]
	return v, ok
}

// Request はリクエストスコープの情報です。Headers が nil の場合はトランスポートを経由しない内部呼び出しです。
type Request struct {
	Principal *Principal
	Headers   Headers
}

// HasTransport はトランスポート層のヘッダが存在するかを返します。
func (r Request) HasTransport() bool {
	return r.Headers != nil
}

type requestContextKey struct{}

// WithRequest は Request をコンテキストに格納します。
func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestContextKey{}, req)
}

// FromContext はコンテキストから Request を取り出します。
func FromContext(ctx context.Context) (Request, bool) {
	if ctx == nil {
		return Request{}, false
	}
	req, ok := ctx.Value(requestContextKey{}).(Request)
	return req, ok
}

// PrincipalFromContext は Principal を返します。未認証の場合は nil です。
func PrincipalFromContext(ctx context.Context) *Principal {
	req, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return req.Principal
}
