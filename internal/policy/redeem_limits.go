package policy

// RedeemLimitPolicy bounds coin spends per player.
type RedeemLimitPolicy struct {
	SingleRedeemMax int64 `json:"single_redeem_max"` // coins
	DailyRedeemMax  int64 `json:"daily_redeem_max"`  // coins
}

// DefaultRedeemLimits returns the stock limits (5k coins single, 20k daily).
func DefaultRedeemLimits() RedeemLimitPolicy {
	return RedeemLimitPolicy{
		SingleRedeemMax: 5_000,
		DailyRedeemMax:  20_000,
	}
}

// RedeemEvaluation holds the result of a redeem limits check.
type RedeemEvaluation struct {
	Allowed       bool   `json:"allowed"`
	BreachedLimit string `json:"breached_limit,omitempty"`
	LimitValue    int64  `json:"limit_value,omitempty"`
	RequestedAmt  int64  `json:"requested_amount,omitempty"`
}

// EvaluateRedeemLimits checks a spend amount against the player's limits.
// dailyRedeemed is the running total for the current day; pass zero when the
// caller does not track it.
func EvaluateRedeemLimits(policy RedeemLimitPolicy, amount, dailyRedeemed int64) RedeemEvaluation {
	if policy.SingleRedeemMax > 0 && amount > policy.SingleRedeemMax {
		return RedeemEvaluation{
			Allowed:       false,
			BreachedLimit: "single_redeem",
			LimitValue:    policy.SingleRedeemMax,
			RequestedAmt:  amount,
		}
	}

	if policy.DailyRedeemMax > 0 && dailyRedeemed+amount > policy.DailyRedeemMax {
		return RedeemEvaluation{
			Allowed:       false,
			BreachedLimit: "daily_redeem",
			LimitValue:    policy.DailyRedeemMax,
			RequestedAmt:  dailyRedeemed + amount,
		}
	}

	return RedeemEvaluation{Allowed: true}
}
