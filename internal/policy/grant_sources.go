package policy

import (
	"fmt"
	"time"
)

// GrantSourcePolicy defines which sources may credit spins.
type GrantSourcePolicy struct {
	AllowedSources []string `json:"allowed_sources,omitempty"` // empty = all allowed
	BlockedSources []string `json:"blocked_sources,omitempty"`
	MaxPerGrant    int      `json:"max_per_grant,omitempty"` // 0 = unlimited
}

// DefaultGrantSourcePolicy allows the known internal callers.
func DefaultGrantSourcePolicy() GrantSourcePolicy {
	return GrantSourcePolicy{
		AllowedSources: []string{"promo", "quiz", "scratch-card", "guess-the-price"},
		MaxPerGrant:    50,
	}
}

// GrantEvaluation holds the result of a grant policy check.
type GrantEvaluation struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// EvaluateGrant checks whether a spin grant from the given source is allowed.
func EvaluateGrant(policy GrantSourcePolicy, source string, count int) GrantEvaluation {
	for _, blocked := range policy.BlockedSources {
		if blocked == source {
			return GrantEvaluation{Allowed: false, Reason: "source blocked: " + source}
		}
	}

	if len(policy.AllowedSources) > 0 {
		found := false
		for _, allowed := range policy.AllowedSources {
			if allowed == source {
				found = true
				break
			}
		}
		if !found {
			return GrantEvaluation{Allowed: false, Reason: "source not in allowed list: " + source}
		}
	}

	if policy.MaxPerGrant > 0 && count > policy.MaxPerGrant {
		return GrantEvaluation{Allowed: false, Reason: "count exceeds per-grant maximum"}
	}

	return GrantEvaluation{Allowed: true}
}

// DailyGrantReference returns the idempotency reference for a daily refill.
// All refill attempts within the same UTC day collapse onto one ledger entry.
func DailyGrantReference(now time.Time) string {
	return "daily-" + now.UTC().Format("2006-01-02")
}

// WeeklyGrantReference returns the idempotency reference for a weekly promo,
// keyed on the ISO week.
func WeeklyGrantReference(now time.Time) string {
	year, week := now.UTC().ISOWeek()
	return fmt.Sprintf("weekly-%d-w%02d", year, week)
}
