package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/infra"
)

type playerRepo struct{}

// NewPlayerRepository returns a pgx-backed PlayerRepository.
func NewPlayerRepository() PlayerRepository {
	return &playerRepo{}
}

func (r *playerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error) {
	row := db.QueryRow(ctx, `
		SELECT id, coins, spins_remaining, currency, created_at, updated_at
		FROM rewards_players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (r *playerRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Player, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, coins, spins_remaining, currency, created_at, updated_at
		FROM rewards_players WHERE id = $1 FOR UPDATE`, id)
	return scanPlayer(row)
}

func (r *playerRepo) Create(ctx context.Context, db DBTX, player *domain.Player) error {
	_, err := db.Exec(ctx, `
		INSERT INTO rewards_players (id, coins, spins_remaining, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		player.ID,
		infra.Int64ToNumeric(player.Coins),
		player.SpinsRemaining,
		player.Currency,
		player.CreatedAt,
		player.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// UpdateBalances uses server-side arithmetic with dynamic SET clauses. The
// spins counter is clamped at zero so an award can never drive it negative.
func (r *playerRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, delta domain.BalanceUpdate) (*domain.Player, error) {
	setClauses := []string{"updated_at = now()"}
	args := []interface{}{}
	argIdx := 1

	if delta.HasCoinsDelta() {
		setClauses = append(setClauses, fmt.Sprintf("coins = coins + $%d", argIdx))
		args = append(args, infra.Int64ToNumeric(delta.Coins))
		argIdx++
	}
	if delta.HasSpinsDelta() {
		setClauses = append(setClauses, fmt.Sprintf("spins_remaining = GREATEST(spins_remaining + $%d, 0)", argIdx))
		args = append(args, delta.Spins)
		argIdx++
	}

	args = append(args, playerID)
	query := fmt.Sprintf(`
		UPDATE rewards_players SET %s
		WHERE id = $%d
		RETURNING id, coins, spins_remaining, currency, created_at, updated_at`,
		strings.Join(setClauses, ", "), argIdx)

	row := tx.QueryRow(ctx, query, args...)
	return scanPlayer(row)
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	var coinsNum pgtype.Numeric
	err := row.Scan(&p.ID, &coinsNum, &p.SpinsRemaining, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}

	p.Coins, err = infra.NumericToInt64(coinsNum)
	if err != nil {
		return nil, fmt.Errorf("convert coins: %w", err)
	}

	return &p, nil
}
