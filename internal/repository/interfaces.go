package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rewardly/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PlayerRepository provides access to rewards_players.
type PlayerRepository interface {
	// FindByID returns a player by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the player.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Player, error)

	// Create inserts a new player.
	Create(ctx context.Context, db DBTX, player *domain.Player) error

	// UpdateBalances atomically updates the coin balance and spins-remaining
	// counter using server-side arithmetic with dynamic SET clauses.
	UpdateBalances(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, delta domain.BalanceUpdate) (*domain.Player, error)
}

// TransactionRepository provides access to reward_transactions.
type TransactionRepository interface {
	// FindExisting checks the idempotency index for a duplicate transaction.
	FindExisting(ctx context.Context, db DBTX, key domain.IdempotencyKey) (*domain.Transaction, error)

	// Insert creates a new ledger entry with the post-update snapshots from
	// the player row. Returns the inserted row.
	Insert(ctx context.Context, db DBTX, params domain.PostLedgerEntryParams, player *domain.Player) (*domain.Transaction, error)

	// FindByID returns a transaction by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)

	// ListByPlayer returns transactions for a player, ordered by created_at DESC.
	// Supports cursor-based pagination; the cursor is a transaction ID.
	ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger entry).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished deletes or marks events as published.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// PrizeTableRepository provides access to prize_tables and prize_segments.
type PrizeTableRepository interface {
	// GetActive returns the currently active prize table with its segments.
	GetActive(ctx context.Context, db DBTX) (*domain.PrizeTable, error)

	// FindByID returns a prize table by ID with its segments.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PrizeTable, error)
}
