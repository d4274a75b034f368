package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rewardly/platform/internal/domain"
)

// ExecuteAwardPrize settles a wheel spin against the wallet. The spin ID is
// the idempotency reference, so a retried award for the same spin replays the
// original transaction instead of crediting twice.
//
// Only coin prizes move the balance; discounts, cashback, vouchers, and empty
// segments post an amount-0 entry that carries the prize in metadata, keeping
// the audit trail complete. Every award consumes one spin, clamped at zero on
// the server side.
func (e *Engine) ExecuteAwardPrize(ctx context.Context, tx pgx.Tx, params domain.AwardPrizeParams) (*domain.CommandResult, error) {
	if err := domain.ValidateNonNegativeAmount(params.Prize.Value); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	source := params.Source
	if source == "" {
		source = domain.SourceSpinWheel
	}

	player, err := e.LockPlayerForUpdate(ctx, tx, params.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("award prize: %w", err)
	}

	existing, err := e.FindExistingTransaction(ctx, tx, domain.IdempotencyKey{
		PlayerID:  params.PlayerID,
		Source:    source,
		Reference: params.SpinID.String(),
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Transaction: existing, Player: player, Idempotent: true}, nil
	}

	var coins int64
	if params.Prize.Type == domain.PrizeCoins {
		coins = params.Prize.Value
	}

	meta := mergeMeta(params.Metadata, map[string]interface{}{
		"spinId":     params.SpinID.String(),
		"prizeType":  string(params.Prize.Type),
		"prizeValue": params.Prize.Value,
	})

	entry, updatedPlayer, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		PlayerID:             params.PlayerID,
		Type:                 domain.TxSpinReward,
		Source:               source,
		Amount:               coins,
		BalanceUpdate:        domain.BalanceUpdate{Coins: coins, Spins: -1},
		IdempotencyReference: strPtr(params.SpinID.String()),
		Metadata:             meta,
	})
	if err != nil {
		return nil, fmt.Errorf("award prize post: %w", err)
	}

	return &domain.CommandResult{
		Transaction: entry,
		Player:      updatedPlayer,
		Events:      []domain.OutboxDraft{domain.NewTransactionPostedEvent(entry)},
	}, nil
}
