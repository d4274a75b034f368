package domain

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a rewards_players row. Coins is the authoritative ledger
// balance; SpinsRemaining is owned by the server and merely mirrored by game
// sessions.
type Player struct {
	ID             uuid.UUID `json:"id"`
	Coins          int64     `json:"coins"`
	SpinsRemaining int       `json:"spins_remaining"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BalanceUpdate describes which columns to update and by how much.
// Used by PostLedgerEntry to build the dynamic UPDATE statement.
type BalanceUpdate struct {
	Coins int64 // delta for coins column
	Spins int   // delta for spins_remaining column, clamped at zero
}

// HasCoinsDelta returns true if the coin balance changes.
func (u BalanceUpdate) HasCoinsDelta() bool { return u.Coins != 0 }

// HasSpinsDelta returns true if the spins-remaining counter changes.
func (u BalanceUpdate) HasSpinsDelta() bool { return u.Spins != 0 }
