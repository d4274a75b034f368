package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/repository"
)

// PlayerReader loads authoritative player rows for read paths.
type PlayerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
}

// PrizeTableReader serves the active prize table.
type PrizeTableReader interface {
	GetActive(ctx context.Context) (*domain.PrizeTable, error)
}

// TransactionLister pages through a player's ledger history.
type TransactionLister interface {
	ListByPlayer(ctx context.Context, playerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error)
}

// Pool-bound adapters over the pgx repositories.

type pgPlayerReader struct {
	pool *pgxpool.Pool
	repo repository.PlayerRepository
}

// NewPlayerReader binds a player repository to the pool.
func NewPlayerReader(pool *pgxpool.Pool, repo repository.PlayerRepository) PlayerReader {
	return &pgPlayerReader{pool: pool, repo: repo}
}

func (r *pgPlayerReader) FindByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	return r.repo.FindByID(ctx, r.pool, id)
}

type pgPrizeTableReader struct {
	pool *pgxpool.Pool
	repo repository.PrizeTableRepository
}

// NewPrizeTableReader binds a prize table repository to the pool.
func NewPrizeTableReader(pool *pgxpool.Pool, repo repository.PrizeTableRepository) PrizeTableReader {
	return &pgPrizeTableReader{pool: pool, repo: repo}
}

func (r *pgPrizeTableReader) GetActive(ctx context.Context) (*domain.PrizeTable, error) {
	return r.repo.GetActive(ctx, r.pool)
}

type pgTransactionLister struct {
	pool *pgxpool.Pool
	repo repository.TransactionRepository
}

// NewTransactionLister binds a transaction repository to the pool.
func NewTransactionLister(pool *pgxpool.Pool, repo repository.TransactionRepository) TransactionLister {
	return &pgTransactionLister{pool: pool, repo: repo}
}

func (r *pgTransactionLister) ListByPlayer(ctx context.Context, playerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error) {
	return r.repo.ListByPlayer(ctx, r.pool, playerID, cursor, limit)
}
