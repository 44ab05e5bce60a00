package quote

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/shopspring/decimal"
)

// Intent is the mutable trade intent driving the coalescer: what the user
// wants to swap, how much, and their slippage tolerance.
type Intent struct {
	InputAsset  *catalog.Record
	OutputAsset *catalog.Record
	Amount      string // human-readable decimal string, e.g. "1.5"
	SlippageBps int
}

// Valid reports whether the intent can be quoted: both assets resolved and
// the amount parses as a positive number.
func (i Intent) Valid() bool {
	if i.InputAsset == nil || i.OutputAsset == nil {
		return false
	}
	amount, err := decimal.NewFromString(i.Amount)
	if err != nil {
		return false
	}
	return amount.IsPositive()
}

// Quote is a priced conversion estimate. It carries the exact intent that
// produced it so callers can never present it against a different intent.
type Quote struct {
	OutputAmount   uint64          // smallest unit of the output asset
	PriceImpactPct decimal.Decimal
	Raw            json.RawMessage // opaque upstream payload, forwarded verbatim on swap
	Intent         Intent
}

// BaseUnits converts a human-readable decimal amount to the asset's
// smallest unit: round(amount × 10^decimals).
func BaseUnits(amount string, decimals int) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %q", amount)
	}

	scaled := d.Shift(int32(decimals)).Round(0)
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q with %d decimals overflows base units", amount, decimals)
	}
	return bi.Uint64(), nil
}

// FromBaseUnits converts a smallest-unit amount back to a human-readable
// decimal string.
func FromBaseUnits(amount uint64, decimals int) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}
