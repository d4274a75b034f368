package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrizeType enumerates the reward kinds a wheel segment can carry.
type PrizeType string

const (
	PrizeCoins    PrizeType = "coins"
	PrizeDiscount PrizeType = "discount"
	PrizeCashback PrizeType = "cashback"
	PrizeVoucher  PrizeType = "voucher"
	PrizeNothing  PrizeType = "nothing"
)

// Segment is one sector of the spin wheel. The full ordered set defines
// angular sectors of 360/N degrees and is immutable once a spin begins.
type Segment struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Weight      int64     `json:"weight"`
	PrizeType   PrizeType `json:"prize_type"`
	Value       int64     `json:"value"`
	Description string    `json:"description,omitempty"`
}

// PrizeTable is the wheel configuration served to clients. It is treated as a
// snapshot valid for a single spin.
type PrizeTable struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Segments  []Segment `json:"segments"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Prize is the reward attached to a spin outcome.
type Prize struct {
	Type        PrizeType `json:"type"`
	Value       int64     `json:"value"`
	Description string    `json:"description,omitempty"`
}

// SpinOutcome is the result of one completed wheel spin. Created exactly once
// per spin and never mutated afterwards.
type SpinOutcome struct {
	SpinID          uuid.UUID `json:"spin_id"`
	Segment         Segment   `json:"segment"`
	Prize           Prize     `json:"prize"`
	RotationDegrees float64   `json:"rotation_degrees"`
}
