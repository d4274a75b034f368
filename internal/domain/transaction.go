package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates all reward ledger transaction types.
type TransactionType string

const (
	TxSpinReward TransactionType = "spin_reward"
	TxSpinGrant  TransactionType = "spin_grant"
	TxRedeem     TransactionType = "redeem"
	TxAdjustment TransactionType = "adjustment"
)

// Source identifies the product surface that produced a ledger entry.
type Source string

const (
	SourceSpinWheel   Source = "spin-wheel"
	SourceQuiz        Source = "quiz"
	SourceScratchCard Source = "scratch-card"
	SourceGuessPrice  Source = "guess-the-price"
	SourcePromo       Source = "promo"
	SourceStore       Source = "store"
)

// Transaction represents a reward_transactions row (append-only ledger entry).
// BalanceAfter is the post-update snapshot; the ledger is the sole source of
// truth for the coin balance.
type Transaction struct {
	ID                   uuid.UUID       `json:"id"`
	PlayerID             uuid.UUID       `json:"player_id"`
	Type                 TransactionType `json:"type"`
	Source               Source          `json:"source"`
	Amount               int64           `json:"amount"`
	BalanceAfter         int64           `json:"balance_after"`
	SpinsRemainingAfter  int             `json:"spins_remaining_after"`
	IdempotencyReference *string         `json:"idempotency_reference,omitempty"`
	Metadata             json.RawMessage `json:"metadata"`
	CreatedAt            time.Time       `json:"created_at"`
}

// IdempotencyKey deduplicates ledger writes. Reference is a caller-generated
// identifier (the spin ID for wheel awards) unique per player and source.
type IdempotencyKey struct {
	PlayerID  uuid.UUID
	Source    Source
	Reference string
}

// PostLedgerEntryParams is the input to the atomic PostLedgerEntry operation.
type PostLedgerEntryParams struct {
	PlayerID             uuid.UUID
	Type                 TransactionType
	Source               Source
	Amount               int64
	BalanceUpdate        BalanceUpdate
	IdempotencyReference *string
	Metadata             json.RawMessage
}

// CommandResult is the return value from all ledger commands.
type CommandResult struct {
	Transaction *Transaction
	Player      *Player
	Events      []OutboxDraft
	Idempotent  bool // true if this was a duplicate that returned the existing tx
}

// AwardPrizeParams holds the input for ExecuteAwardPrize. SpinID doubles as
// the idempotency reference so transport-level retries cannot double-award.
type AwardPrizeParams struct {
	PlayerID uuid.UUID
	SpinID   uuid.UUID
	Source   Source
	Prize    Prize
	Metadata json.RawMessage
}

// GrantSpinsParams holds the input for ExecuteGrantSpins.
type GrantSpinsParams struct {
	PlayerID  uuid.UUID
	Count     int
	Reference string
	Source    Source
	Metadata  json.RawMessage
}

// RedeemParams holds the input for ExecuteRedeem.
type RedeemParams struct {
	PlayerID  uuid.UUID
	Amount    int64
	Reference string
	Metadata  json.RawMessage
}
