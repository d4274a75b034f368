package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rewardly/platform/internal/domain"
)

// ExecuteGrantSpins adds spins to the player's server-owned counter. Daily
// refills and promo grants both land here; the caller's reference (for
// example "daily-2026-09-01") makes repeated grants for the same period
// idempotent.
func (e *Engine) ExecuteGrantSpins(ctx context.Context, tx pgx.Tx, params domain.GrantSpinsParams) (*domain.CommandResult, error) {
	if params.Count <= 0 {
		return nil, domain.ErrValidation(fmt.Sprintf("spin grant count must be positive, got %d", params.Count))
	}
	if params.Reference == "" {
		return nil, domain.ErrValidation("spin grant requires an idempotency reference")
	}
	source := params.Source
	if source == "" {
		source = domain.SourcePromo
	}

	player, err := e.LockPlayerForUpdate(ctx, tx, params.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("grant spins: %w", err)
	}

	existing, err := e.FindExistingTransaction(ctx, tx, domain.IdempotencyKey{
		PlayerID:  params.PlayerID,
		Source:    source,
		Reference: params.Reference,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Transaction: existing, Player: player, Idempotent: true}, nil
	}

	meta := mergeMeta(params.Metadata, map[string]interface{}{
		"spinCount": params.Count,
	})

	entry, updatedPlayer, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		PlayerID:             params.PlayerID,
		Type:                 domain.TxSpinGrant,
		Source:               source,
		Amount:               0,
		BalanceUpdate:        domain.BalanceUpdate{Spins: params.Count},
		IdempotencyReference: strPtr(params.Reference),
		Metadata:             meta,
	})
	if err != nil {
		return nil, fmt.Errorf("grant spins post: %w", err)
	}

	return &domain.CommandResult{
		Transaction: entry,
		Player:      updatedPlayer,
		Events:      []domain.OutboxDraft{domain.NewTransactionPostedEvent(entry)},
	}, nil
}
