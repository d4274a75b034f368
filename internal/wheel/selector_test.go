package wheel

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equalSegments(n int) []domain.Segment {
	segments := make([]domain.Segment, n)
	for i := range segments {
		segments[i] = domain.Segment{
			ID:        fmt.Sprintf("seg-%d", i),
			Label:     fmt.Sprintf("Segment %d", i),
			Weight:    1,
			PrizeType: domain.PrizeCoins,
			Value:     int64(10 * (i + 1)),
		}
	}
	return segments
}

func testTable(segments []domain.Segment) *domain.PrizeTable {
	return &domain.PrizeTable{
		ID:       uuid.New(),
		Name:     "test-wheel",
		Segments: segments,
		Active:   true,
	}
}

func fixedRNG(v float64) RNG {
	return func() float64 { return v }
}

func TestSelect_EightSegmentsMidDraw(t *testing.T) {
	// 8 equal segments, draw 0.5 lands in index 4; sector center 202.5,
	// rotation 1800 + (360 - 202.5) = 1957.5.
	table := testTable(equalSegments(8))

	outcome, err := Select(table, fixedRNG(0.5))
	require.NoError(t, err)

	assert.Equal(t, "seg-4", outcome.Segment.ID)
	assert.Equal(t, 1957.5, outcome.RotationDegrees)
}

func TestSelect_Deterministic(t *testing.T) {
	table := testTable(equalSegments(6))

	first, err := Select(table, fixedRNG(0.37))
	require.NoError(t, err)
	second, err := Select(table, fixedRNG(0.37))
	require.NoError(t, err)

	assert.Equal(t, first.Segment, second.Segment)
	assert.Equal(t, first.RotationDegrees, second.RotationDegrees)
	// spin ids are fresh per outcome even when the draw repeats
	assert.NotEqual(t, first.SpinID, second.SpinID)
}

func TestSelect_RotationLandsOnWinningSegment(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 12, 16} {
		table := testTable(equalSegments(n))
		sector := 360.0 / float64(n)

		for i := 0; i < n; i++ {
			// force the draw into the middle of segment i
			draw := (float64(i) + 0.5) / float64(n)
			outcome, err := Select(table, fixedRNG(draw))
			require.NoError(t, err)
			require.Equal(t, fmt.Sprintf("seg-%d", i), outcome.Segment.ID,
				"n=%d draw=%f", n, draw)

			// the rest position, modulo 360, must be within half a sector of
			// the winning segment's center under the top-pointer convention
			rest := math.Mod(outcome.RotationDegrees, 360)
			want := math.Mod(360-SectorCenter(i, n), 360)
			assert.InDelta(t, want, rest, sector/2, "n=%d i=%d", n, i)
		}
	}
}

func TestSelect_MinimumRotation(t *testing.T) {
	for _, n := range []int{1, 4, 8, 32} {
		table := testTable(equalSegments(n))
		for _, draw := range []float64{0, 0.25, 0.5, 0.999999} {
			outcome, err := Select(table, fixedRNG(draw))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, outcome.RotationDegrees, float64(MinRotationDegrees),
				"n=%d draw=%f", n, draw)
		}
	}
}

func TestSelect_SingleSegmentWheel(t *testing.T) {
	table := testTable(equalSegments(1))

	for _, draw := range []float64{0, 0.5, 0.99} {
		outcome, err := Select(table, fixedRNG(draw))
		require.NoError(t, err)
		assert.Equal(t, "seg-0", outcome.Segment.ID)
		assert.GreaterOrEqual(t, outcome.RotationDegrees, 1800.0)
	}
}

func TestSelect_WeightedDistribution(t *testing.T) {
	// weights 1:2:5 over 10k trials should converge to the cumulative-weight
	// distribution well within 3 sigma per segment
	segments := []domain.Segment{
		{ID: "rare", Label: "Rare", Weight: 1, PrizeType: domain.PrizeVoucher, Value: 500},
		{ID: "mid", Label: "Mid", Weight: 2, PrizeType: domain.PrizeCoins, Value: 50},
		{ID: "common", Label: "Common", Weight: 5, PrizeType: domain.PrizeNothing, Value: 0},
	}
	table := testTable(segments)

	const trials = 10000
	rng := rand.New(rand.NewPCG(42, 1337))
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		outcome, err := Select(table, rng.Float64)
		require.NoError(t, err)
		counts[outcome.Segment.ID]++
	}

	var totalWeight int64
	for _, s := range segments {
		totalWeight += s.Weight
	}
	for _, s := range segments {
		p := float64(s.Weight) / float64(totalWeight)
		expected := p * trials
		sigma := math.Sqrt(trials * p * (1 - p))
		assert.InDelta(t, expected, float64(counts[s.ID]), 3*sigma,
			"segment %s drifted beyond 3 sigma", s.ID)
	}
}

func TestSelect_NoBiasAtRangeEdges(t *testing.T) {
	table := testTable(equalSegments(4))

	first, err := Select(table, fixedRNG(0))
	require.NoError(t, err)
	assert.Equal(t, "seg-0", first.Segment.ID)

	last, err := Select(table, fixedRNG(0.9999999))
	require.NoError(t, err)
	assert.Equal(t, "seg-3", last.Segment.ID)
}

func TestSelect_InvalidTables(t *testing.T) {
	tests := []struct {
		name     string
		segments []domain.Segment
	}{
		{"empty table", nil},
		{"zero weight", []domain.Segment{{ID: "a", Weight: 0, PrizeType: domain.PrizeCoins}}},
		{"negative weight", []domain.Segment{{ID: "a", Weight: -3, PrizeType: domain.PrizeCoins}}},
		{"duplicate ids", []domain.Segment{
			{ID: "a", Weight: 1, PrizeType: domain.PrizeCoins},
			{ID: "a", Weight: 1, PrizeType: domain.PrizeCoins},
		}},
		{"negative value", []domain.Segment{{ID: "a", Weight: 1, PrizeType: domain.PrizeCoins, Value: -5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(testTable(tt.segments), fixedRNG(0.5))
			assert.Error(t, err)
		})
	}

	t.Run("nil table", func(t *testing.T) {
		_, err := Select(nil, fixedRNG(0.5))
		assert.Error(t, err)
	})
}

func TestSelect_ZeroValuePrizeCarriesThrough(t *testing.T) {
	segments := []domain.Segment{
		{ID: "nothing", Label: "Better luck next time", Weight: 1, PrizeType: domain.PrizeNothing, Value: 0},
	}
	outcome, err := Select(testTable(segments), fixedRNG(0.1))
	require.NoError(t, err)
	assert.Equal(t, domain.PrizeNothing, outcome.Prize.Type)
	assert.Equal(t, int64(0), outcome.Prize.Value)
}
