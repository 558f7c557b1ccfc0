package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	dbCfg := config.DatabaseConfig{
		Host:            "db.internal",
		Port:            5433,
		User:            "orgdir",
		Password:        "p@ss",
		Name:            "directory",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}

	poolCfg, err := BuildPoolConfig(dbCfg, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}

	if poolCfg.MaxConns != 20 || poolCfg.MinConns != 5 {
		t.Errorf("unexpected pool size max=%d min=%d", poolCfg.MaxConns, poolCfg.MinConns)
	}
	if poolCfg.MaxConnLifetime != 30*time.Minute || poolCfg.MaxConnIdleTime != 10*time.Minute {
		t.Errorf("unexpected lifetimes %v / %v", poolCfg.MaxConnLifetime, poolCfg.MaxConnIdleTime)
	}
	if poolCfg.ConnConfig.Password != "p@ss" || poolCfg.ConnConfig.Port != 5433 {
		t.Errorf("credentials not parsed from DSN: %+v", poolCfg.ConnConfig.Config)
	}
	if tz := poolCfg.ConnConfig.RuntimeParams["timezone"]; tz != "UTC" {
		t.Errorf("expected session timezone UTC, got %q", tz)
	}
	if name := poolCfg.ConnConfig.RuntimeParams["application_name"]; name != applicationName {
		t.Errorf("unexpected application_name %q", name)
	}
	if _, ok := poolCfg.ConnConfig.Tracer.(*queryTracer); !ok {
		t.Errorf("expected query tracer to be installed")
	}

	noLog, err := BuildPoolConfig(dbCfg, nil)
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}
	if noLog.ConnConfig.Tracer != nil {
		t.Errorf("tracer must be absent without a logger")
	}
}

func TestQueryTracer(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	elapsed := []time.Duration{0, 10 * time.Millisecond, 0, time.Second, 0, time.Millisecond}
	calls := 0
	tracer := &queryTracer{logger: zap.New(core), slow: slowQueryThreshold, now: func() time.Time {
		d := elapsed[calls]
		calls++
		return base.Add(d)
	}}

	run := func(sql string, err error) {
		ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: sql})
		tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1"), Err: err})
	}
	run("SELECT fast", nil)
	run("SELECT slow", nil)
	run("SELECT broken", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[1].Message != "slow query" || entries[2].Message != "query failed" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	// 開始情報のないコンテキストは無視する
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	if logs.Len() != 3 {
		t.Fatalf("expected no additional entries")
	}
}

func TestPoolCollector(t *testing.T) {
	t.Parallel()

	c := NewPoolCollector(func() PoolStats {
		return PoolStats{Acquired: 2, Idle: 3, Total: 5, Max: 10, AcquireCount: 42, EmptyAcquireCount: 1}
	})

	if n := testutil.CollectAndCount(c); n != 6 {
		t.Fatalf("expected 6 metrics, got %d", n)
	}

	expected := `
# HELP orgdirectory_db_pool_acquired_conns Connections currently checked out of the pool.
# TYPE orgdirectory_db_pool_acquired_conns gauge
orgdirectory_db_pool_acquired_conns 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "orgdirectory_db_pool_acquired_conns"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
