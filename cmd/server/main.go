package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/ogurasousui/org-directory/internal/adapters/grpc/handler"
	"github.com/ogurasousui/org-directory/internal/adapters/repository/memory"
	"github.com/ogurasousui/org-directory/internal/adapters/repository/postgres"
	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/directory"
	"github.com/ogurasousui/org-directory/internal/platform/config"
	pg "github.com/ogurasousui/org-directory/internal/platform/db/postgres"
	"github.com/ogurasousui/org-directory/internal/platform/logger"
	"github.com/ogurasousui/org-directory/internal/platform/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	repos, tx, closeBackend, err := openBackend(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeBackend()

	policy, err := authz.NewPolicy(cfg.Auth.AdminRole, cfg.Auth.PolicyPath)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	var pattern *regexp.Regexp
	if cfg.Directory.CompanyIDPattern != "" {
		pattern = regexp.MustCompile(cfg.Directory.CompanyIDPattern)
	}

	svc, err := directory.NewService(repos, directory.Options{
		TransactionManager: tx,
		Logger:             zl,
		Resolver:           authz.NewResolver(cfg.Auth.AdminRole, cfg.Auth.CompanyAttributes),
		Policy:             policy,
		CompanyIDPattern:   pattern,
		AnonymizeBatchSize: cfg.Directory.AnonymizeBatchSize,
	})
	if err != nil {
		return fmt.Errorf("build directory service: %w", err)
	}

	verifier, err := handler.NewTokenVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("build token verifier: %w", err)
	}

	if cfg.Metrics.ListenAddr != "" {
		metrics := server.NewMetricsServer(cfg.Metrics.ListenAddr, cfg.Metrics.Path, zl)
		go func() {
			if err := metrics.Run(ctx); err != nil {
				zl.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	grpcServer := server.New(
		cfg.Server.ListenAddr,
		cfg.Server.ShutdownTimeout,
		handler.NewDirectoryHandler(svc),
		zl,
		handler.ServerOptions(verifier, zl)...,
	)
	return grpcServer.Run(ctx)
}

// openBackend は設定されたドライバに応じてリポジトリとトランザクションマネージャを構築します。
func openBackend(ctx context.Context, cfg *config.Config, zl *zap.Logger) (directory.Repositories, directory.TransactionManager, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		zl.Warn("using in-memory store, data is lost on shutdown")
		store := memory.NewStore()
		return directory.Repositories{
			Clients:     store.Clients(),
			Employees:   store.Employees(),
			CostCenters: store.CostCenters(),
			Locations:   store.Locations(),
			Assignments: store.Assignments(),
			Counters:    store.Counters(),
			Companies:   store.Companies(),
		}, store, func() {}, nil
	}

	pool, err := pg.NewPool(ctx, cfg.Database, zl)
	if err != nil {
		return directory.Repositories{}, nil, nil, fmt.Errorf("initialize database pool: %w", err)
	}
	collector := pg.NewPoolCollector(pg.StatsFromPool(pool))
	if err := prometheus.Register(collector); err != nil {
		pool.Close()
		return directory.Repositories{}, nil, nil, fmt.Errorf("register pool metrics: %w", err)
	}
	closePool := func() {
		prometheus.Unregister(collector)
		pool.Close()
	}

	return directory.Repositories{
		Clients:     postgres.NewClientRepository(pool),
		Employees:   postgres.NewEmployeeRepository(pool),
		CostCenters: postgres.NewCostCenterRepository(pool),
		Locations:   postgres.NewLocationRepository(pool),
		Assignments: postgres.NewAssignmentRepository(pool),
		Counters:    postgres.NewCounterRepository(pool),
		Companies:   postgres.NewCompanyLookup(pool),
	}, pg.NewTransactionManager(pool, zl), closePool, nil
}
