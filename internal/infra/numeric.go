package infra

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// Coin balances and ledger amounts live in numeric(20,0) columns, which is
// wider than int64. The ledger operates on int64, so conversion must fail
// loudly on overflow rather than wrap.

// NumericToInt64 converts a pgtype.Numeric column value to int64.
// NULL and values outside the int64 range are errors; a negative exponent
// truncates toward zero (whole-coin columns should never carry one in
// practice).
func NumericToInt64(n pgtype.Numeric) (int64, error) {
	if !n.Valid {
		return 0, fmt.Errorf("numeric value is NULL")
	}

	// pgtype.Numeric represents the value as Int * 10^Exp.
	bi := new(big.Int).Set(n.Int)

	switch {
	case n.Exp > 0:
		multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil)
		bi.Mul(bi, multiplier)
	case n.Exp < 0:
		divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil)
		bi.Div(bi, divisor)
	}

	if !bi.IsInt64() {
		return 0, fmt.Errorf("numeric value %s overflows int64", bi.String())
	}

	return bi.Int64(), nil
}

// Int64ToNumeric wraps an int64 amount for writing to a numeric(20,0) column.
func Int64ToNumeric(v int64) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              big.NewInt(v),
		Exp:              0,
		NaN:              false,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}
