package migration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/infra"
)

// Backfiller imports players and ledger history from the legacy loyalty
// points system. Imports are idempotent: legacy IDs map onto deterministic
// UUIDs and every imported entry carries a legacy idempotency reference, so
// re-running a backfill batch cannot double-credit.
type Backfiller struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewBackfiller creates a legacy import backfiller.
func NewBackfiller(pool *pgxpool.Pool, logger *slog.Logger) *Backfiller {
	return &Backfiller{pool: pool, logger: logger}
}

// DeterministicUUID generates a UUID from a legacy ID using SHA256. The same
// legacy ID always maps to the same UUID across runs and systems.
func DeterministicUUID(namespace, legacyID string) uuid.UUID {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte(":"))
	h.Write([]byte(legacyID))
	digest := h.Sum(nil)

	var id uuid.UUID
	copy(id[:], digest[:16])
	id[6] = (id[6] & 0x0f) | 0x50 // version 5
	id[8] = (id[8] & 0x3f) | 0x80 // variant RFC4122
	return id
}

// DeterministicUUIDHex returns the hex string of the deterministic UUID.
func DeterministicUUIDHex(namespace, legacyID string) string {
	return DeterministicUUID(namespace, legacyID).String()
}

// SHA256Hex returns the full SHA256 hex digest of namespace:legacyID.
func SHA256Hex(namespace, legacyID string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte(":"))
	h.Write([]byte(legacyID))
	return hex.EncodeToString(h.Sum(nil))
}

// LegacyTransaction is one row of the legacy loyalty points export.
type LegacyTransaction struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Kind      string    `json:"kind"` // earn | spend
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// LegacyReference is the idempotency reference an imported entry carries.
func LegacyReference(legacyTxID string) string {
	return "legacy-" + legacyTxID
}

// ImportPlayer creates the rewards player for a legacy account. Conflicts are
// ignored so batches can be re-run.
func (b *Backfiller) ImportPlayer(ctx context.Context, legacyPlayerID, currency string, openingCoins int64) (uuid.UUID, error) {
	id := DeterministicUUID("player", legacyPlayerID)

	if currency == "" {
		currency = "USD"
	}
	_, err := b.pool.Exec(ctx, `
		INSERT INTO rewards_players (id, coins, spins_remaining, currency)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (id) DO NOTHING`,
		id, infra.Int64ToNumeric(openingCoins), currency)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert player: %w", err)
	}

	b.logger.Info("imported player", "legacy_id", legacyPlayerID, "player_id", id)
	return id, nil
}

// MapTransaction converts a legacy row to ledger insert parameters. Earns
// become adjustment credits, spends become adjustment debits; both carry the
// legacy reference so the unique index absorbs replays.
func (b *Backfiller) MapTransaction(legacy LegacyTransaction) (domain.PostLedgerEntryParams, error) {
	if legacy.Points < 0 {
		return domain.PostLedgerEntryParams{}, fmt.Errorf("legacy tx %s: negative points", legacy.ID)
	}

	amount := legacy.Points
	if legacy.Kind == "spend" {
		amount = -legacy.Points
	} else if legacy.Kind != "earn" {
		return domain.PostLedgerEntryParams{}, fmt.Errorf("legacy tx %s: unknown kind %q", legacy.ID, legacy.Kind)
	}

	ref := LegacyReference(legacy.ID)
	return domain.PostLedgerEntryParams{
		PlayerID:             DeterministicUUID("player", legacy.PlayerID),
		Type:                 domain.TxAdjustment,
		Source:               domain.SourcePromo,
		Amount:               amount,
		BalanceUpdate:        domain.BalanceUpdate{Coins: amount},
		IdempotencyReference: &ref,
	}, nil
}

// BalanceComparison holds the result of comparing a legacy balance against
// the imported ledger balance.
type BalanceComparison struct {
	LegacyPlayerID string `json:"legacy_player_id"`
	PlayerID       string `json:"player_id"`
	LegacyBalance  int64  `json:"legacy_balance"`
	LedgerBalance  int64  `json:"ledger_balance"`
	Match          bool   `json:"match"`
}

// CompareBalances checks each legacy balance against rewards_players.coins.
func (b *Backfiller) CompareBalances(ctx context.Context, legacyBalances map[string]int64) ([]BalanceComparison, error) {
	var comparisons []BalanceComparison

	for legacyID, legacyBalance := range legacyBalances {
		id := DeterministicUUID("player", legacyID)

		var coins int64
		err := b.pool.QueryRow(ctx,
			`SELECT coins FROM rewards_players WHERE id = $1`, id).Scan(&coins)
		if err != nil {
			b.logger.Warn("imported player not found", "legacy_id", legacyID, "player_id", id)
			comparisons = append(comparisons, BalanceComparison{
				LegacyPlayerID: legacyID,
				PlayerID:       id.String(),
				LegacyBalance:  legacyBalance,
			})
			continue
		}

		comparisons = append(comparisons, BalanceComparison{
			LegacyPlayerID: legacyID,
			PlayerID:       id.String(),
			LegacyBalance:  legacyBalance,
			LedgerBalance:  coins,
			Match:          coins == legacyBalance,
		})
	}

	return comparisons, nil
}

// CutoverReadiness summarizes whether the import is complete enough to point
// the legacy system's traffic at the rewards ledger.
type CutoverReadiness struct {
	TransactionsCount int    `json:"transactions_count"`
	OutboxHealthy     bool   `json:"outbox_healthy"`
	BalanceMismatches int    `json:"balance_mismatches"`
	Ready             bool   `json:"ready"`
	Message           string `json:"message"`
}

// CheckCutoverReadiness validates ledger and outbox state before cutover.
func (b *Backfiller) CheckCutoverReadiness(ctx context.Context, legacyBalances map[string]int64) (*CutoverReadiness, error) {
	readiness := &CutoverReadiness{}

	err := b.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reward_transactions`).Scan(&readiness.TransactionsCount)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}

	// No unpublished events older than 5 minutes
	var staleCount int
	err = b.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM event_outbox
		WHERE published_at IS NULL AND occurred_at < now() - interval '5 minutes'`).
		Scan(&staleCount)
	if err != nil {
		return nil, fmt.Errorf("check outbox: %w", err)
	}
	readiness.OutboxHealthy = staleCount == 0

	comparisons, err := b.CompareBalances(ctx, legacyBalances)
	if err != nil {
		return nil, err
	}
	for _, c := range comparisons {
		if !c.Match {
			readiness.BalanceMismatches++
		}
	}

	readiness.Ready = readiness.OutboxHealthy && readiness.BalanceMismatches == 0
	if readiness.Ready {
		readiness.Message = "ready for cutover"
	} else {
		readiness.Message = fmt.Sprintf("outbox_healthy=%v mismatches=%d",
			readiness.OutboxHealthy, readiness.BalanceMismatches)
	}

	return readiness, nil
}
