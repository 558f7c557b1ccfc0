package concurrency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// HeaderIfMatch は条件付き更新に利用するヘッダ名です。
const HeaderIfMatch = "if-match"

var (
	// ErrPreconditionRequired はトランスポート経由の更新でバージョンが指定されなかった場合に返却されます。
	ErrPreconditionRequired = apperr.New(apperr.KindPreconditionFailed, "PRECONDITION_REQUIRED", "an If-Match version is required")
	// ErrPreconditionFailed は指定バージョンが現在の値と一致しない場合に返却されます。
	ErrPreconditionFailed = apperr.New(apperr.KindPreconditionFailed, "PRECONDITION_FAILED", "the record was modified by another request")
	// ErrInvalidVersion はバージョン文字列を解釈できない場合に返却されます。
	ErrInvalidVersion = apperr.Validation("INVALID_VERSION_TOKEN", "version token must be an RFC 3339 timestamp")
)

var rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orgdirectory",
	Subsystem: "concurrency",
	Name:      "rejections_total",
	Help:      "Updates rejected by the optimistic concurrency guard.",
}, []string{"entity", "reason"})

// VersionLookup は保存済みレコードのバージョン（最終更新時刻）を返します。
type VersionLookup interface {
	LookupVersion(ctx context.Context, entity, id string) (time.Time, error)
}

// VersionLookupFunc は関数を VersionLookup として扱うアダプタです。
type VersionLookupFunc func(ctx context.Context, entity, id string) (time.Time, error)

// LookupVersion は f を呼び出します。
func (f VersionLookupFunc) LookupVersion(ctx context.Context, entity, id string) (time.Time, error) {
	return f(ctx, entity, id)
}

// Check は楽観的排他の判定入力です。
type Check struct {
	Entity              string
	TargetID            string
	HeaderVersion       *string
	HasTransportHeaders bool
	PayloadVersion      *time.Time
}

// Guard はバージョン比較による楽観的排他制御を行います。
type Guard struct {
	lookup VersionLookup
	logger *zap.Logger
}

// NewGuard は Guard を生成します。
func NewGuard(lookup VersionLookup, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{lookup: lookup, logger: logger}
}

// CheckRequest はコンテキストのリクエストヘッダと payloadVersion から Check を組み立てて検証します。
func (g *Guard) CheckRequest(ctx context.Context, entity, id string, payloadVersion *time.Time) error {
	c := Check{Entity: entity, TargetID: id, PayloadVersion: payloadVersion}
	if req, ok := reqctx.FromContext(ctx); ok && req.HasTransport() {
		c.HasTransportHeaders = true
		if v, ok := req.Headers.Get(HeaderIfMatch); ok {
			c.HeaderVersion = &v
		}
	}
	return g.Check(ctx, c)
}

// Check は呼び出し側のバージョンと保存済みバージョンを比較します。
// ヘッダが指定されていればそれを優先し、トランスポート経由でヘッダが無い場合は拒否します。
// トランスポートを経由しない呼び出しではペイロード内のバージョンを利用します。
func (g *Guard) Check(ctx context.Context, c Check) error {
	supplied, err := resolveSupplied(c)
	if err != nil {
		g.reject(c, "missing")
		return err
	}

	stored, err := g.lookup.LookupVersion(ctx, c.Entity, c.TargetID)
	if err != nil {
		return err
	}

	if !SameVersion(supplied, stored) {
		g.reject(c, "stale")
		return fmt.Errorf("%s %s: %w", c.Entity, c.TargetID, ErrPreconditionFailed)
	}
	return nil
}

func resolveSupplied(c Check) (time.Time, error) {
	if c.HeaderVersion != nil && strings.TrimSpace(*c.HeaderVersion) != "" {
		return ParseVersion(*c.HeaderVersion)
	}
	if c.HasTransportHeaders {
		return time.Time{}, ErrPreconditionRequired
	}
	if c.PayloadVersion == nil || c.PayloadVersion.IsZero() {
		return time.Time{}, ErrPreconditionRequired
	}
	return *c.PayloadVersion, nil
}

func (g *Guard) reject(c Check, reason string) {
	rejectionsTotal.WithLabelValues(c.Entity, reason).Inc()
	g.logger.Info("concurrency guard rejected update",
		zap.String("entity", c.Entity),
		zap.String("id", c.TargetID),
		zap.String("reason", reason),
	)
}

// ParseVersion は ETag 形式（`"..."` / `W/"..."`）または素の RFC 3339 文字列を時刻に変換します。
func ParseVersion(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", raw, ErrInvalidVersion)
	}
	return t, nil
}

// FormatVersion は時刻を ETag 形式の文字列に変換します。
func FormatVersion(t time.Time) string {
	return `"` + t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano) + `"`
}

// SameVersion は2つのバージョンがマイクロ秒精度で同一時刻かを判定します。
func SameVersion(a, b time.Time) bool {
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}
