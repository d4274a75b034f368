package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventTransactionPosted      EventType = "rewards.wallet.transaction.posted"
	EventSpinSettled            EventType = "rewards.game.spin.settled"
	EventReconciliationPending  EventType = "rewards.wallet.reconciliation.pending"
	EventReconciliationResolved EventType = "rewards.wallet.reconciliation.resolved"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateWallet AggregateType = "wallet"
	AggregateGame   AggregateType = "game"
)

// OutboxDraft is the payload written to the event_outbox table. SeqID is the
// table's serial primary key, populated only when reading rows back for the
// poller.
type OutboxDraft struct {
	SeqID         int64           `json:"-"`
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewTransactionPostedEvent creates the standard wallet event for a ledger entry.
func NewTransactionPostedEvent(tx *Transaction) OutboxDraft {
	payload, _ := json.Marshal(tx)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   tx.PlayerID.String(),
		EventType:     EventTransactionPosted,
		PartitionKey:  tx.PlayerID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewReconciliationEvent creates a wallet event marking an award entering or
// leaving the retry queue.
func NewReconciliationEvent(eventType EventType, playerID, spinID uuid.UUID) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"player_id": playerID.String(),
		"spin_id":   spinID.String(),
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   playerID.String(),
		EventType:     eventType,
		PartitionKey:  playerID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewSpinSettledEvent creates a game event for a settled wheel spin.
func NewSpinSettledEvent(playerID uuid.UUID, outcome *SpinOutcome) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"player_id": playerID.String(),
		"spin_id":   outcome.SpinID.String(),
		"segment":   outcome.Segment.ID,
		"prize":     outcome.Prize,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateGame,
		AggregateID:   playerID.String(),
		EventType:     EventSpinSettled,
		PartitionKey:  playerID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
