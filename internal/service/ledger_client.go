// Package service orchestrates spins and wallet operations: it ties the wheel
// selector, game sessions, the ledger engine, the reconciler, and the wallet
// projection together behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/ledger"
)

// Ledger is the durable reward ledger as the service layer sees it. Every
// operation is idempotent on its reference, and transient transport failures
// surface as LEDGER_UNAVAILABLE so the reconciler can queue a retry.
type Ledger interface {
	AwardPrize(ctx context.Context, params domain.AwardPrizeParams) (*domain.CommandResult, error)
	GrantSpins(ctx context.Context, params domain.GrantSpinsParams) (*domain.CommandResult, error)
	Redeem(ctx context.Context, params domain.RedeemParams) (*domain.CommandResult, error)
}

// PgLedger runs ledger commands on the postgres pool, one command per
// transaction, with a bounded timeout.
type PgLedger struct {
	pool    *pgxpool.Pool
	engine  *ledger.Engine
	timeout time.Duration
}

// NewPgLedger creates the pgx-backed ledger client. timeout <= 0 defaults to 10s.
func NewPgLedger(pool *pgxpool.Pool, engine *ledger.Engine, timeout time.Duration) *PgLedger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PgLedger{pool: pool, engine: engine, timeout: timeout}
}

func (l *PgLedger) AwardPrize(ctx context.Context, params domain.AwardPrizeParams) (*domain.CommandResult, error) {
	return l.run(ctx, func(ctx context.Context, tx pgx.Tx) (*domain.CommandResult, error) {
		return l.engine.ExecuteAwardPrize(ctx, tx, params)
	})
}

func (l *PgLedger) GrantSpins(ctx context.Context, params domain.GrantSpinsParams) (*domain.CommandResult, error) {
	return l.run(ctx, func(ctx context.Context, tx pgx.Tx) (*domain.CommandResult, error) {
		return l.engine.ExecuteGrantSpins(ctx, tx, params)
	})
}

func (l *PgLedger) Redeem(ctx context.Context, params domain.RedeemParams) (*domain.CommandResult, error) {
	return l.run(ctx, func(ctx context.Context, tx pgx.Tx) (*domain.CommandResult, error) {
		return l.engine.ExecuteRedeem(ctx, tx, params)
	})
}

func (l *PgLedger) run(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) (*domain.CommandResult, error)) (*domain.CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var result *domain.CommandResult
	err := pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		var err error
		result, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// classify separates the ledger rejecting a command from the ledger being
// unreachable. Domain errors pass through; everything else (timeouts, broken
// connections, unexpected database failures) is transient and retryable.
func classify(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.ErrLedgerUnavailable(fmt.Errorf("ledger command: %w", err))
}
