package domain

import (
	"fmt"
	"regexp"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks if a currency code is ISO 4217.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("invalid currency code: %s", currency)
	}
	return nil
}

// ValidatePositiveAmount checks that an amount is strictly positive.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateNonNegativeAmount checks that an amount is zero or positive.
// Zero-value prizes still produce a ledger entry for audit completeness.
func ValidateNonNegativeAmount(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative, got %d", amount)
	}
	return nil
}

// ValidateSegments checks a prize table's segments before a spin. A malformed
// table is a configuration defect, not a runtime condition, so callers fail
// fast on the returned error.
func ValidateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("prize table has no segments")
	}
	seen := make(map[string]bool, len(segments))
	for i, s := range segments {
		if s.ID == "" {
			return fmt.Errorf("segment %d has empty id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate segment id: %s", s.ID)
		}
		seen[s.ID] = true
		if s.Weight <= 0 {
			return fmt.Errorf("segment %s has non-positive weight %d", s.ID, s.Weight)
		}
		if s.Value < 0 {
			return fmt.Errorf("segment %s has negative value %d", s.ID, s.Value)
		}
		if s.PrizeType == PrizeNothing && s.Value != 0 {
			return fmt.Errorf("segment %s has prize type nothing but value %d", s.ID, s.Value)
		}
	}
	return nil
}
