package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rewardly/platform/internal/domain"
)

// ExecuteRedeem spends coins from the wallet, typically against a store
// discount or voucher purchase. The balance check happens under the row lock,
// so a concurrent redeem cannot drive the balance negative.
func (e *Engine) ExecuteRedeem(ctx context.Context, tx pgx.Tx, params domain.RedeemParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if params.Reference == "" {
		return nil, domain.ErrValidation("redeem requires an idempotency reference")
	}

	player, err := e.LockPlayerForUpdate(ctx, tx, params.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("redeem: %w", err)
	}

	existing, err := e.FindExistingTransaction(ctx, tx, domain.IdempotencyKey{
		PlayerID:  params.PlayerID,
		Source:    domain.SourceStore,
		Reference: params.Reference,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Transaction: existing, Player: player, Idempotent: true}, nil
	}

	if player.Coins < params.Amount {
		return nil, domain.ErrInsufficientBalance()
	}

	entry, updatedPlayer, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		PlayerID:             params.PlayerID,
		Type:                 domain.TxRedeem,
		Source:               domain.SourceStore,
		Amount:               -params.Amount,
		BalanceUpdate:        domain.BalanceUpdate{Coins: -params.Amount},
		IdempotencyReference: strPtr(params.Reference),
		Metadata:             ensureJSON(params.Metadata),
	})
	if err != nil {
		return nil, fmt.Errorf("redeem post: %w", err)
	}

	return &domain.CommandResult{
		Transaction: entry,
		Player:      updatedPlayer,
		Events:      []domain.OutboxDraft{domain.NewTransactionPostedEvent(entry)},
	}, nil
}
