package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRedeemLimits_AllowsWithinLimits(t *testing.T) {
	policy := DefaultRedeemLimits()
	result := EvaluateRedeemLimits(policy, 1_000, 0)
	assert.True(t, result.Allowed)
}

func TestEvaluateRedeemLimits_BlocksSingleRedeemOverLimit(t *testing.T) {
	policy := DefaultRedeemLimits()
	result := EvaluateRedeemLimits(policy, 7_500, 0)
	assert.False(t, result.Allowed)
	assert.Equal(t, "single_redeem", result.BreachedLimit)
	assert.Equal(t, int64(5_000), result.LimitValue)
}

func TestEvaluateRedeemLimits_BlocksDailyRedeemOverLimit(t *testing.T) {
	policy := DefaultRedeemLimits()
	// Already spent 18_000 today, trying 3_000 more (total 21_000 > 20_000)
	result := EvaluateRedeemLimits(policy, 3_000, 18_000)
	assert.False(t, result.Allowed)
	assert.Equal(t, "daily_redeem", result.BreachedLimit)
}

func TestEvaluateRedeemLimits_AllowsAtExactLimit(t *testing.T) {
	policy := DefaultRedeemLimits()
	result := EvaluateRedeemLimits(policy, 5_000, 15_000)
	assert.True(t, result.Allowed)
}

func TestEvaluateRedeemLimits_ZeroLimitsDisableChecks(t *testing.T) {
	result := EvaluateRedeemLimits(RedeemLimitPolicy{}, 1_000_000, 1_000_000)
	assert.True(t, result.Allowed)
}
