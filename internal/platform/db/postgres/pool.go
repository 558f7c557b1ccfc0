package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/org-directory/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	applicationName    = "org-directory"
	slowQueryThreshold = 200 * time.Millisecond
)

// BuildPoolConfig は database 設定から pgxpool.Config を構築します。
// 日付列を UTC の暦日として扱うため、セッションのタイムゾーンは UTC に固定します。
func BuildPoolConfig(cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	if logger != nil {
		poolCfg.ConnConfig.Tracer = &queryTracer{logger: logger.Named("postgres"), slow: slowQueryThreshold}
	}

	return poolCfg, nil
}

// NewPool は pgxpool.Pool を生成し疎通確認を行います。
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := BuildPoolConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}

type queryStartKey struct{}

// queryTracer は失敗したクエリと slow を超えたクエリを記録します。
type queryTracer struct {
	logger *zap.Logger
	slow   time.Duration
	now    func() time.Time
}

func (t *queryTracer) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: t.clock()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := t.clock().Sub(start.at)

	switch {
	case data.Err != nil:
		t.logger.Warn("query failed",
			zap.String("sql", start.sql),
			zap.Duration("elapsed", elapsed),
			zap.Error(data.Err),
		)
	case elapsed >= t.slow:
		t.logger.Warn("slow query",
			zap.String("sql", start.sql),
			zap.Duration("elapsed", elapsed),
			zap.String("tag", data.CommandTag.String()),
		)
	default:
		if ce := t.logger.Check(zap.DebugLevel, "query"); ce != nil {
			ce.Write(zap.String("sql", start.sql), zap.Duration("elapsed", elapsed))
		}
	}
}

type queryStart struct {
	sql string
	at  time.Time
}

// PoolStats はコネクションプールの統計値です。
type PoolStats struct {
	Acquired          int32
	Idle              int32
	Total             int32
	Max               int32
	AcquireCount      int64
	EmptyAcquireCount int64
}

// StatsFromPool は pgxpool の統計を PoolStats に変換する関数を返します。
func StatsFromPool(pool *pgxpool.Pool) func() PoolStats {
	return func() PoolStats {
		s := pool.Stat()
		return PoolStats{
			Acquired:          s.AcquiredConns(),
			Idle:              s.IdleConns(),
			Total:             s.TotalConns(),
			Max:               s.MaxConns(),
			AcquireCount:      s.AcquireCount(),
			EmptyAcquireCount: s.EmptyAcquireCount(),
		}
	}
}

// PoolCollector はプール統計を Prometheus に公開します。
type PoolCollector struct {
	stats        func() PoolStats
	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	total        *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	emptyAcquire *prometheus.Desc
}

// NewPoolCollector は PoolCollector を生成します。
func NewPoolCollector(stats func() PoolStats) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("orgdirectory", "db_pool", name), help, nil, nil)
	}
	return &PoolCollector{
		stats:        stats,
		acquired:     desc("acquired_conns", "Connections currently checked out of the pool."),
		idle:         desc("idle_conns", "Idle connections in the pool."),
		total:        desc("total_conns", "Open connections in the pool."),
		max:          desc("max_conns", "Configured maximum pool size."),
		acquireCount: desc("acquires_total", "Successful connection acquisitions."),
		emptyAcquire: desc("empty_acquires_total", "Acquisitions that had to wait for a connection."),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.emptyAcquire
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.Acquired))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.Max))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount))
}
