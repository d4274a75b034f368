package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/guard"
	"github.com/rewardly/platform/internal/policy"
	"github.com/rewardly/platform/internal/projection"
)

// WalletService serves wallet reads from the projection with a ledger
// fallback, and runs spend/grant commands against the ledger.
type WalletService struct {
	players      PlayerReader
	txs          TransactionLister
	ledger       Ledger
	projector    *projection.Projector
	inflight     *guard.IdempotencyGuard
	redeemLimits policy.RedeemLimitPolicy
	grantPolicy  policy.GrantSourcePolicy
	logger       *slog.Logger
}

// NewWalletService creates the wallet orchestrator with the default spend
// and grant policies.
func NewWalletService(
	players PlayerReader,
	txs TransactionLister,
	ledger Ledger,
	projector *projection.Projector,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		players:      players,
		txs:          txs,
		ledger:       ledger,
		projector:    projector,
		inflight:     guard.NewIdempotencyGuard(),
		redeemLimits: policy.DefaultRedeemLimits(),
		grantPolicy:  policy.DefaultGrantSourcePolicy(),
		logger:       logger,
	}
}

// SetPolicies overrides the default redeem and grant policies.
func (s *WalletService) SetPolicies(redeem policy.RedeemLimitPolicy, grant policy.GrantSourcePolicy) {
	s.redeemLimits = redeem
	s.grantPolicy = grant
}

// Balance returns the wallet view: cached projection first, ledger fallback
// on a miss. If both are unreachable the balance is reported temporarily
// unavailable; gameplay is not affected.
func (s *WalletService) Balance(ctx context.Context, playerID uuid.UUID) (*projection.WalletView, error) {
	if view, err := s.projector.Get(ctx, playerID); err == nil {
		return view, nil
	}

	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, domain.ErrWalletRead(err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", playerID.String())
	}

	if err := s.projector.UpdateFromPlayer(ctx, player); err != nil {
		s.logger.Warn("projection seed failed", "player_id", playerID, "error", err)
	}

	return &projection.WalletView{
		PlayerID:       player.ID.String(),
		Coins:          player.Coins,
		SpinsRemaining: player.SpinsRemaining,
		Currency:       player.Currency,
	}, nil
}

// Transactions returns a page of ledger history, newest first.
func (s *WalletService) Transactions(ctx context.Context, playerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error) {
	txs, err := s.txs.ListByPlayer(ctx, playerID, cursor, limit)
	if err != nil {
		return nil, domain.ErrWalletRead(fmt.Errorf("list transactions: %w", err))
	}
	return txs, nil
}

// Redeem spends coins against a store reference. Replays of the same
// reference return the original transaction; a duplicate arriving while the
// first delivery is still executing is rejected before it reaches the ledger.
func (s *WalletService) Redeem(ctx context.Context, playerID uuid.UUID, amount int64, reference string, meta json.RawMessage) (*domain.CommandResult, error) {
	if eval := policy.EvaluateRedeemLimits(s.redeemLimits, amount, 0); !eval.Allowed {
		return nil, domain.ErrValidation(fmt.Sprintf("redeem limit breached: %s (max %d)", eval.BreachedLimit, eval.LimitValue))
	}

	key := "redeem:" + playerID.String() + ":" + reference
	if res := s.inflight.Check(ctx, key); !res.Allowed {
		return nil, domain.ErrRequestInFlight(reference)
	}
	defer s.inflight.Remove(key)

	result, err := s.ledger.Redeem(ctx, domain.RedeemParams{
		PlayerID:  playerID,
		Amount:    amount,
		Reference: reference,
		Metadata:  meta,
	})
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, result)
	return result, nil
}

// GrantSpins credits spins from the promo service or daily refill job.
func (s *WalletService) GrantSpins(ctx context.Context, params domain.GrantSpinsParams) (*domain.CommandResult, error) {
	source := params.Source
	if source == "" {
		source = domain.SourcePromo
	}
	if eval := policy.EvaluateGrant(s.grantPolicy, string(source), params.Count); !eval.Allowed {
		return nil, domain.ErrValidation("grant rejected: " + eval.Reason)
	}

	key := "grant:" + params.PlayerID.String() + ":" + params.Reference
	if res := s.inflight.Check(ctx, key); !res.Allowed {
		return nil, domain.ErrRequestInFlight(params.Reference)
	}
	defer s.inflight.Remove(key)

	result, err := s.ledger.GrantSpins(ctx, params)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, result)
	return result, nil
}

// refresh updates the projection from a durable command result. Failures are
// read-side only and never bubble to the caller.
func (s *WalletService) refresh(ctx context.Context, result *domain.CommandResult) {
	if result == nil || result.Transaction == nil {
		return
	}
	if err := s.projector.ApplyResult(ctx, result); err != nil {
		s.logger.Warn("projection refresh failed", "player_id", result.Transaction.PlayerID, "error", err)
	}
}
