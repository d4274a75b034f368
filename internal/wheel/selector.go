// Package wheel implements prize selection and rotation math for the spin
// wheel. Selection is a pure function of the prize table and an injected
// random source, so outcomes are reproducible under a fixed rng.
package wheel

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
)

// baseFullTurns is the guaranteed number of full wheel revolutions before the
// pointer settles. Five turns (1800 degrees) keeps the animation continuous
// regardless of segment count.
const baseFullTurns = 5

// MinRotationDegrees is the lower bound every outcome's rotation satisfies.
const MinRotationDegrees = baseFullTurns * 360

// RNG yields uniform floats in [0, 1). Production wiring supplies
// math/rand/v2's Float64; tests supply fixed sequences.
type RNG func() float64

// Select picks a winning segment from the table using a cumulative-weight draw
// and computes the final rotation angle.
//
// Angle convention: the pointer is fixed at the top (0 degrees) and segment 0
// starts at the wheel's 0-degree mark, sectors running clockwise. Sector size
// is 360/N; the center of segment i sits at (i+0.5)*sector. The wheel turns
// baseFullTurns full revolutions plus (360 - center) so that, modulo 360, the
// pointer rests on the winning segment's center.
func Select(table *domain.PrizeTable, rng RNG) (*domain.SpinOutcome, error) {
	if table == nil {
		return nil, fmt.Errorf("prize table is nil")
	}
	if err := domain.ValidateSegments(table.Segments); err != nil {
		return nil, fmt.Errorf("invalid prize table %s: %w", table.Name, err)
	}

	idx := pick(table.Segments, rng())
	seg := table.Segments[idx]

	return &domain.SpinOutcome{
		SpinID:  uuid.New(),
		Segment: seg,
		Prize: domain.Prize{
			Type:        seg.PrizeType,
			Value:       seg.Value,
			Description: seg.Description,
		},
		RotationDegrees: rotationFor(idx, len(table.Segments)),
	}, nil
}

// pick maps a uniform draw in [0,1) onto the cumulative weight distribution.
// Comparing against cumulative sums avoids the modulo bias of index mapping.
func pick(segments []domain.Segment, draw float64) int {
	var total int64
	for _, s := range segments {
		total += s.Weight
	}

	target := draw * float64(total)
	var cumulative float64
	for i, s := range segments {
		cumulative += float64(s.Weight)
		if target < cumulative {
			return i
		}
	}
	// draw was in [0,1) so this is only reachable through float rounding at
	// the top of the range; settle on the last segment.
	return len(segments) - 1
}

// rotationFor computes the final rotation angle landing the pointer on the
// center of segment idx.
func rotationFor(idx, n int) float64 {
	sector := 360.0 / float64(n)
	center := (float64(idx) + 0.5) * sector
	return float64(MinRotationDegrees) + (360.0 - center)
}

// SectorCenter returns the angular center of segment idx on an n-segment
// wheel. Exposed for callers that render or verify landing positions.
func SectorCenter(idx, n int) float64 {
	return (float64(idx) + 0.5) * (360.0 / float64(n))
}
