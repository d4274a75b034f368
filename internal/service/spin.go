package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/reconcile"
	"github.com/rewardly/platform/internal/session"
	"github.com/rewardly/platform/internal/wheel"
)

// SpinResult is the full settlement of one spin gesture.
type SpinResult struct {
	Outcome        *domain.SpinOutcome `json:"outcome"`
	Transaction    *domain.Transaction `json:"transaction,omitempty"`
	Coins          *int64              `json:"coins,omitempty"`
	SpinsRemaining int                 `json:"spins_remaining"`
	Pending        bool                `json:"pending"`
}

// SpinService runs the wheel: session single-flight, prize selection, and the
// award path through the reconciler.
type SpinService struct {
	players    PlayerReader
	tables     PrizeTableReader
	sessions   *session.Manager
	reconciler *reconcile.Reconciler
	rng        wheel.RNG
	logger     *slog.Logger
}

// NewSpinService creates the spin orchestrator.
func NewSpinService(
	players PlayerReader,
	tables PrizeTableReader,
	sessions *session.Manager,
	reconciler *reconcile.Reconciler,
	rng wheel.RNG,
	logger *slog.Logger,
) *SpinService {
	return &SpinService{
		players:    players,
		tables:     tables,
		sessions:   sessions,
		reconciler: reconciler,
		rng:        rng,
		logger:     logger,
	}
}

// Spin executes one spin gesture for the player. Rapid repeat calls while a
// spin is in flight all resolve to the same outcome. The spin never fails
// because the ledger is down: the award is queued and Pending is set.
func (s *SpinService) Spin(ctx context.Context, playerID uuid.UUID) (*SpinResult, error) {
	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", playerID.String())
	}

	sess := s.sessions.Session(playerID, player.SpinsRemaining)

	res, err := sess.Begin(ctx, func(ctx context.Context, seq uint64) (*session.Result, error) {
		table, err := s.tables.GetActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("load prize table: %w", err)
		}
		if table == nil {
			return nil, domain.ErrNotFound("prize table", "active")
		}

		outcome, err := wheel.Select(table, s.rng)
		if err != nil {
			return nil, domain.ErrInternal("prize selection failed", err)
		}

		meta, _ := json.Marshal(map[string]interface{}{
			"segmentId":    outcome.Segment.ID,
			"segmentLabel": outcome.Segment.Label,
			"tableId":      table.ID.String(),
			"sequence":     seq,
		})

		cmd, queued, err := s.reconciler.Award(ctx, domain.AwardPrizeParams{
			PlayerID: playerID,
			SpinID:   outcome.SpinID,
			Source:   domain.SourceSpinWheel,
			Prize:    outcome.Prize,
			Metadata: meta,
		})
		if err != nil {
			return nil, err
		}

		return &session.Result{Outcome: outcome, Command: cmd, Pending: queued}, nil
	})
	if err != nil {
		return nil, err
	}

	if res.Pending {
		sess.ReconciliationPending(res.Outcome.SpinID)
	}

	result := &SpinResult{
		Outcome:        res.Outcome,
		SpinsRemaining: sess.SpinsRemaining(),
		Pending:        res.Pending,
	}
	if res.Command != nil {
		result.Transaction = res.Command.Transaction
		if res.Command.Player != nil {
			coins := res.Command.Player.Coins
			result.Coins = &coins
		}
	}
	return result, nil
}

// SpinsRemaining returns the server-owned spin counter.
func (s *SpinService) SpinsRemaining(ctx context.Context, playerID uuid.UUID) (int, error) {
	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("load player: %w", err)
	}
	if player == nil {
		return 0, domain.ErrNotFound("player", playerID.String())
	}
	return player.SpinsRemaining, nil
}

// PrizeTable returns the active table snapshot for rendering the wheel.
func (s *SpinService) PrizeTable(ctx context.Context) (*domain.PrizeTable, error) {
	table, err := s.tables.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prize table: %w", err)
	}
	if table == nil {
		return nil, domain.ErrNotFound("prize table", "active")
	}
	return table, nil
}
