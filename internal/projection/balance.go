package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
)

// WalletView is the cached wallet snapshot served to read endpoints.
type WalletView struct {
	PlayerID       string `json:"player_id"`
	Coins          int64  `json:"coins"`
	SpinsRemaining int    `json:"spins_remaining"`
	Currency       string `json:"currency"`
	UpdatedAt      string `json:"updated_at"`
}

// DefaultTTL bounds how stale a cached wallet view can get before readers
// fall back to the ledger.
const DefaultTTL = 5 * time.Minute

// Projector keeps the wallet view in sync with ledger results.
type Projector struct {
	store Store
	ttl   time.Duration
}

// NewProjector creates a projector over the given store. ttl <= 0 uses DefaultTTL.
func NewProjector(store Store, ttl time.Duration) *Projector {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Projector{store: store, ttl: ttl}
}

func balanceKey(playerID string) string {
	return fmt.Sprintf("projection:wallet:%s", playerID)
}

// ApplyResult refreshes the view from a durable ledger command. The
// transaction's BalanceAfter snapshot makes a separate balance fetch
// unnecessary, so there is no read-after-write race. Currency comes from the
// returned player row, or from the prior view when the result carries none.
func (p *Projector) ApplyResult(ctx context.Context, result *domain.CommandResult) error {
	tx := result.Transaction
	view := WalletView{
		PlayerID:       tx.PlayerID.String(),
		Coins:          tx.BalanceAfter,
		SpinsRemaining: tx.SpinsRemainingAfter,
	}
	if result.Player != nil && result.Player.Currency != "" {
		view.Currency = result.Player.Currency
	} else if prev, err := p.Get(ctx, tx.PlayerID); err == nil {
		view.Currency = prev.Currency
	}
	return p.Update(ctx, view)
}

// Update writes a wallet view with a fresh timestamp.
func (p *Projector) Update(ctx context.Context, view WalletView) error {
	view.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return SetJSON(ctx, p.store, balanceKey(view.PlayerID), view, p.ttl)
}

// UpdateFromPlayer seeds the view from an authoritative player row.
func (p *Projector) UpdateFromPlayer(ctx context.Context, player *domain.Player) error {
	return p.Update(ctx, WalletView{
		PlayerID:       player.ID.String(),
		Coins:          player.Coins,
		SpinsRemaining: player.SpinsRemaining,
		Currency:       player.Currency,
	})
}

// Get retrieves the cached wallet view. A miss or expired entry returns an
// error; the caller decides whether to fall back to the ledger or surface a
// temporary read failure.
func (p *Projector) Get(ctx context.Context, playerID uuid.UUID) (*WalletView, error) {
	var view WalletView
	if err := GetJSON(ctx, p.store, balanceKey(playerID.String()), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Invalidate drops the cached view for a player.
func (p *Projector) Invalidate(ctx context.Context, playerID uuid.UUID) error {
	return p.store.Delete(ctx, balanceKey(playerID.String()))
}
