package handler

import (
	"context"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/reqctx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	headerAuthorization = "authorization"
	bearerPrefix        = "bearer "
)

// RequestContextInterceptor はメタデータから Principal とヘッダを取り出し reqctx.Request としてコンテキストに格納します。
// authorization が無い場合は未認証のまま処理を続け、認可判断はユースケースに委ねます。
func RequestContextInterceptor(verifier *TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		headers := reqctx.Headers{}
		for key, values := range md {
			if len(values) == 0 || key == headerAuthorization {
				continue
			}
			headers[strings.ToLower(key)] = values[0]
		}

		var principal *reqctx.Principal
		if values := md.Get(headerAuthorization); len(values) > 0 {
			raw := strings.TrimSpace(values[0])
			if len(raw) < len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
				return nil, status.Error(codes.Unauthenticated, "authorization must be a bearer token")
			}
			p, err := verifier.Verify(strings.TrimSpace(raw[len(bearerPrefix):]))
			if err != nil {
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			principal = p
		}

		return next(reqctx.WithRequest(ctx, reqctx.Request{Principal: principal, Headers: headers}), req)
	}
}

// ErrorInterceptor はハンドラが返したドメインエラーを gRPC ステータスに変換します。
func ErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return nil, toStatusError(err)
		}
		return resp, nil
	}
}

// LoggingInterceptor はメソッド単位のアクセスログを出力します。
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("grpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		if reason := ErrorReason(err); reason != "" {
			fields = append(fields, zap.String("reason", reason))
		}

		switch code {
		case codes.OK:
			logger.Info("request completed", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("request failed", append(fields, zap.Error(err))...)
		default:
			logger.Warn("request rejected", fields...)
		}
		return resp, err
	}
}

// ServerOptions はロギング・エラー変換・リクエストコンテキストの順でインターセプタを連結します。
func ServerOptions(verifier *TokenVerifier, logger *zap.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(logger),
			ErrorInterceptor(),
			RequestContextInterceptor(verifier),
		),
	}
}
