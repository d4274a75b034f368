package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rewardly/platform/internal/domain"
)

type prizeTableRepo struct{}

// NewPrizeTableRepository returns a pgx-backed PrizeTableRepository.
func NewPrizeTableRepository() PrizeTableRepository {
	return &prizeTableRepo{}
}

func (r *prizeTableRepo) GetActive(ctx context.Context, db DBTX) (*domain.PrizeTable, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, active, updated_at
		FROM prize_tables
		WHERE active = true
		ORDER BY updated_at DESC
		LIMIT 1`)
	return r.scanWithSegments(ctx, db, row)
}

func (r *prizeTableRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PrizeTable, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, active, updated_at
		FROM prize_tables WHERE id = $1`, id)
	return r.scanWithSegments(ctx, db, row)
}

func (r *prizeTableRepo) scanWithSegments(ctx context.Context, db DBTX, row pgx.Row) (*domain.PrizeTable, error) {
	var t domain.PrizeTable
	err := row.Scan(&t.ID, &t.Name, &t.Active, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan prize table: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT segment_id, label, weight, prize_type, value, description
		FROM prize_segments
		WHERE table_id = $1
		ORDER BY position ASC`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("query prize segments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.Segment
		var prizeType string
		if err := rows.Scan(&s.ID, &s.Label, &s.Weight, &prizeType, &s.Value, &s.Description); err != nil {
			return nil, fmt.Errorf("scan prize segment: %w", err)
		}
		s.PrizeType = domain.PrizeType(prizeType)
		t.Segments = append(t.Segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &t, nil
}
