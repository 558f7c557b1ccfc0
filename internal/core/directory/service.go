package directory

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/cascade"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/concurrency"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/identifier"
	"github.com/ogurasousui/org-directory/internal/core/integrity"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"github.com/ogurasousui/org-directory/internal/core/location"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultListPageSize       = 50
	maxListPageSize           = 200
	defaultAnonymizeBatchSize = 100

	tracerName = "github.com/ogurasousui/org-directory/internal/core/directory"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Repositories はユースケースが利用する永続化ポートです。
type Repositories struct {
	Clients     client.Repository
	Employees   employee.Repository
	CostCenters costcenter.Repository
	Locations   location.Repository
	Assignments assignment.Repository
	Counters    identifier.CounterRepository
	Companies   authz.CompanyLookup
}

// Options は Service の任意設定です。未指定の項目は既定値で補完されます。
type Options struct {
	Clock              Clock
	TransactionManager TransactionManager
	Logger             *zap.Logger
	Resolver           *authz.Resolver
	Policy             *authz.Policy
	CompanyIDPattern   *regexp.Regexp
	AnonymizeBatchSize int
}

// Service は組織ディレクトリのユースケースをまとめます。
// すべての変更は 認可 → 参照整合性 → エンティティ検証 → 永続化 → 責任者カスケード の順に処理されます。
type Service struct {
	repos      Repositories
	clock      Clock
	tx         TransactionManager
	logger     *zap.Logger
	tracer     trace.Tracer
	resolver   *authz.Resolver
	policy     *authz.Policy
	guard      *concurrency.Guard
	integrity  *integrity.Checker
	validators *lifecycle.Validators
	cascade    *cascade.Cascade
	batchSize  int
}

// NewService は Service を生成します。
func NewService(repos Repositories, opts Options) (*Service, error) {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.TransactionManager == nil {
		opts.TransactionManager = noopTransactionManager{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Resolver == nil {
		opts.Resolver = authz.NewResolver("", nil)
	}
	if opts.Policy == nil {
		policy, err := authz.NewPolicy(opts.Resolver.AdminRole(), "")
		if err != nil {
			return nil, fmt.Errorf("directory: %w", err)
		}
		opts.Policy = policy
	}
	if opts.AnonymizeBatchSize <= 0 {
		opts.AnonymizeBatchSize = defaultAnonymizeBatchSize
	}

	logger := opts.Logger.Named("directory")
	s := &Service{
		repos:     repos,
		clock:     opts.Clock,
		tx:        opts.TransactionManager,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		resolver:  opts.Resolver,
		policy:    opts.Policy,
		integrity: integrity.NewChecker(repos.Clients, repos.Employees, repos.CostCenters, repos.Locations),
		cascade:   cascade.New(repos.CostCenters, repos.Employees, repos.Assignments, opts.Clock, logger),
		batchSize: opts.AnonymizeBatchSize,
	}
	s.guard = concurrency.NewGuard(concurrency.VersionLookupFunc(s.lookupVersion), logger)
	s.validators = &lifecycle.Validators{
		Clients:          repos.Clients,
		Employees:        repos.Employees,
		CostCenters:      repos.CostCenters,
		Locations:        repos.Locations,
		Assignments:      repos.Assignments,
		Identifiers:      identifier.NewAllocator(repos.Counters, repos.Employees, logger),
		CompanyIDPattern: opts.CompanyIDPattern,
	}
	return s, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *Service) today() time.Time {
	return lifecycle.NormalizeDate(s.clock.Now().UTC())
}

// withScope は書き込み用の認可スコープを構築して fn を実行します。トランザクションは fn 側で開始します。
func (s *Service) withScope(ctx context.Context, op string, fn func(context.Context, *authz.Scope) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "directory."+op, trace.WithAttributes(attribute.String("directory.operation", op)))
	defer func() { s.finish(span, op, err) }()

	scope, err := s.resolver.NewScope(reqctx.PrincipalFromContext(ctx), s.repos.Companies)
	if err != nil {
		return err
	}
	return fn(ctx, scope)
}

// mutation は1つの読み書きトランザクション内で fn を実行します。
func (s *Service) mutation(ctx context.Context, op string, fn func(context.Context, *authz.Scope) error) error {
	return s.withScope(ctx, op, func(ctx context.Context, scope *authz.Scope) error {
		return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
			return fn(txCtx, scope)
		})
	})
}

// query は読み取り用の会社フィルタとロールを確認し、読み取り専用トランザクション内で fn を実行します。
func (s *Service) query(ctx context.Context, op, entity string, fn func(context.Context, authz.Filter) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "directory."+op, trace.WithAttributes(attribute.String("directory.operation", op)))
	defer func() { s.finish(span, op, err) }()

	p := reqctx.PrincipalFromContext(ctx)
	filter, err := s.resolver.ReadFilter(p)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(p, entity, authz.ActionRead); err != nil {
		return err
	}
	return s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		return fn(txCtx, filter)
	})
}

// visible は clientID の会社がフィルタ外であれば notFound を返します。存在を推測させないためです。
func (s *Service) visible(ctx context.Context, filter authz.Filter, clientID string, notFound error) error {
	if !filter.Restrict {
		return nil
	}
	code, err := s.repos.Companies.CompanyOfClient(ctx, clientID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return notFound
		}
		return err
	}
	if !filter.Allows(code) {
		return notFound
	}
	return nil
}

func (s *Service) authorizeRole(scope *authz.Scope, entity, action string) error {
	return s.policy.Authorize(scope.Principal(), entity, action)
}

func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		return
	}

	kind := apperr.KindOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, apperr.CodeOf(err))

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("kind", string(kind)),
		zap.String("code", apperr.CodeOf(err)),
		zap.Error(err),
	}
	if kind == apperr.KindInternal {
		s.logger.Error("directory operation failed", fields...)
		return
	}
	s.logger.Info("directory operation rejected", fields...)
}

func (s *Service) lookupVersion(ctx context.Context, entity, id string) (time.Time, error) {
	switch entity {
	case authz.EntityClient:
		found, err := s.repos.Clients.FindByID(ctx, id)
		if err != nil {
			return time.Time{}, err
		}
		return found.UpdatedAt, nil
	case authz.EntityEmployee:
		found, err := s.repos.Employees.FindByID(ctx, id)
		if err != nil {
			return time.Time{}, err
		}
		return found.UpdatedAt, nil
	case authz.EntityCostCenter:
		found, err := s.repos.CostCenters.FindByID(ctx, id)
		if err != nil {
			return time.Time{}, err
		}
		return found.UpdatedAt, nil
	case authz.EntityLocation:
		found, err := s.repos.Locations.FindByID(ctx, id)
		if err != nil {
			return time.Time{}, err
		}
		return found.UpdatedAt, nil
	case authz.EntityAssignment:
		found, err := s.repos.Assignments.FindByID(ctx, id)
		if err != nil {
			return time.Time{}, err
		}
		return found.UpdatedAt, nil
	default:
		return time.Time{}, fmt.Errorf("directory: unknown entity %q", entity)
	}
}
