package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrReadOnlyTransaction は読み取り専用トランザクション内で書き込みトランザクションを要求した場合に返却されます。
var ErrReadOnlyTransaction = errors.New("postgres: read-write transaction requested inside a read-only transaction")

type txContextKey struct{}

// txState はコンテキストに格納する実行中トランザクションです。
type txState struct {
	tx   pgx.Tx
	mode pgx.TxAccessMode
}

type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionManager は pgx を用いたトランザクション制御を提供します。
// 書き込みトランザクションの分離レベルは ReadCommitted です。社員番号カウンタは行ロックで直列化します。
type TransactionManager struct {
	pool   txStarter
	logger *zap.Logger
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter, logger *zap.Logger) *TransactionManager {
	if pool == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionManager{pool: pool, logger: logger.Named("tx")}
}

// WithinReadOnly は読み取り専用トランザクションを開始し、fn を実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.ReadOnly, fn)
}

// WithinReadWrite は読み書きトランザクションを開始し、fn を実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.ReadWrite, fn)
}

func (m *TransactionManager) within(ctx context.Context, mode pgx.TxAccessMode, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}

	// 実行中のトランザクションがあれば参加する
	if state, ok := stateFromContext(ctx); ok {
		if mode == pgx.ReadWrite && state.mode == pgx.ReadOnly {
			return ErrReadOnlyTransaction
		}
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: mode})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txContextKey{}, txState{tx: tx, mode: mode})); err != nil {
		m.rollback(ctx, tx, err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		m.rollback(ctx, tx, err)
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (m *TransactionManager) rollback(ctx context.Context, tx pgx.Tx, cause error) {
	// 呼び出し元がキャンセルされていてもロールバックは送る
	rbErr := tx.Rollback(context.WithoutCancel(ctx))
	if rbErr == nil || errors.Is(rbErr, pgx.ErrTxClosed) {
		return
	}
	m.logger.Warn("rollback failed", zap.Error(rbErr), zap.NamedError("cause", cause))
}

func stateFromContext(ctx context.Context) (txState, bool) {
	if ctx == nil {
		return txState{}, false
	}
	state, ok := ctx.Value(txContextKey{}).(txState)
	return state, ok
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	state, ok := stateFromContext(ctx)
	return state.tx, ok
}

// QueryerFromContext はコンテキスト内にトランザクションが存在すればそれを返し、存在しなければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// Queryer は pgx.Tx および pgxpool.Pool と互換性のあるクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
