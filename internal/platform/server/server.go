package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ogurasousui/org-directory/internal/adapters/grpc/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr      string
	shutdownTimeout time.Duration
	grpcServer      *grpc.Server
	health          *health.Server
	logger          *zap.Logger
}

// New は DirectoryService とヘルスチェックを登録した gRPC サーバーを構築します。
func New(listenAddr string, shutdownTimeout time.Duration, directory handler.DirectoryServer, logger *zap.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := grpc.NewServer(opts...)
	handler.RegisterDirectoryServer(srv, directory)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{
		listenAddr:      listenAddr,
		shutdownTimeout: shutdownTimeout,
		grpcServer:      srv,
		health:          hs,
		logger:          logger,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
// GracefulStop が shutdownTimeout 内に終わらない場合は強制停止します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は指定のリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop はサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	if s.shutdownTimeout <= 0 {
		<-done
		return
	}

	select {
	case <-done:
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn("graceful stop timed out, forcing stop", zap.Duration("timeout", s.shutdownTimeout))
		s.grpcServer.Stop()
	}
}

// MetricsServer は Prometheus のメトリクスを HTTP で公開します。
type MetricsServer struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewMetricsServer は path に promhttp ハンドラを登録した HTTP サーバーを構築します。
func NewMetricsServer(listenAddr, path string, logger *zap.Logger) *MetricsServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	return &MetricsServer{
		httpServer: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run はメトリクスサーバーを起動し、コンテキストがキャンセルされると停止します。
func (m *MetricsServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.httpServer.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}()

	m.logger.Info("metrics server listening", zap.String("addr", m.httpServer.Addr))
	if err := m.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
