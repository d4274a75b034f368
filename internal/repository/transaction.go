package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/infra"
)

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

const transactionColumns = `id, player_id, type, source, amount, balance_after,
	       spins_remaining_after, idempotency_reference, metadata, created_at`

func (r *transactionRepo) FindExisting(ctx context.Context, db DBTX, key domain.IdempotencyKey) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM reward_transactions
		WHERE player_id = $1 AND source = $2 AND idempotency_reference = $3`,
		key.PlayerID, string(key.Source), key.Reference)
	return scanTransaction(row)
}

func (r *transactionRepo) Insert(ctx context.Context, db DBTX, params domain.PostLedgerEntryParams, player *domain.Player) (*domain.Transaction, error) {
	meta := params.Metadata
	if meta == nil {
		meta = []byte(`{}`)
	}

	row := db.QueryRow(ctx, `
		INSERT INTO reward_transactions
		  (player_id, type, source, amount, balance_after, spins_remaining_after,
		   idempotency_reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		params.PlayerID,
		string(params.Type),
		string(params.Source),
		infra.Int64ToNumeric(params.Amount),
		infra.Int64ToNumeric(player.Coins),
		player.SpinsRemaining,
		params.IdempotencyReference,
		meta,
	)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM reward_transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *transactionRepo) ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = db.Query(ctx, `
			SELECT `+transactionColumns+`
			FROM reward_transactions
			WHERE player_id = $1
			  AND (created_at, id) <= ((SELECT created_at, id FROM reward_transactions WHERE id = $2))
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, playerID, *cursor, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT `+transactionColumns+`
			FROM reward_transactions
			WHERE player_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, playerID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountNum, balNum pgtype.Numeric
	err := row.Scan(
		&tx.ID, &tx.PlayerID, &tx.Type, &tx.Source,
		&amountNum, &balNum, &tx.SpinsRemainingAfter,
		&tx.IdempotencyReference, &tx.Metadata, &tx.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	tx.Amount, err = infra.NumericToInt64(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	tx.BalanceAfter, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance_after: %w", err)
	}

	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amountNum, balNum pgtype.Numeric
		err := rows.Scan(
			&tx.ID, &tx.PlayerID, &tx.Type, &tx.Source,
			&amountNum, &balNum, &tx.SpinsRemainingAfter,
			&tx.IdempotencyReference, &tx.Metadata, &tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		tx.Amount, err = infra.NumericToInt64(amountNum)
		if err != nil {
			return nil, err
		}
		tx.BalanceAfter, err = infra.NumericToInt64(balNum)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
