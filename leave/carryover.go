package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/hr-engine/staff"
)

// CarryOver is the number of days year inherits from year-1.
//
// Only categories that carry over are considered; the previous ledger is
// read, never created. A negative previous balance is returned as is.
func (e *Engine) CarryOver(ctx context.Context, staffID staff.ID, year int, category Category) (decimal.Decimal, error) {
	if !category.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if !category.CarriesOver() {
		return decimal.Zero, nil
	}

	prev, err := e.store.GetLedger(ctx, staffID, year-1, category)
	if errors.Is(err, ErrLedgerNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load %d ledger: %w", year-1, err)
	}

	remaining, err := e.AvailableDays(ctx, *prev, 12)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Min(remaining, e.policy.MaxCarryOver), nil
}
