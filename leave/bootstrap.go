package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/hr-engine/staff"
)

// GetOrCreateLedger returns the ledger for the key, creating it from the
// staff allowance and the carry over when missing.
//
// Two callers racing on the same key both reach CreateLedger; the loser
// gets ErrDuplicateLedger and is expected to call again.
func (e *Engine) GetOrCreateLedger(ctx context.Context, staffID staff.ID, year int, category Category) (*AnnualLeave, error) {
	l, _, err := e.getOrCreateLedger(ctx, staffID, year, category)
	return l, err
}

func (e *Engine) getOrCreateLedger(ctx context.Context, staffID staff.ID, year int, category Category) (*AnnualLeave, bool, error) {
	l, persisted, err := e.ledgerFor(ctx, staffID, year, category)
	if err != nil {
		return nil, false, err
	}
	if persisted {
		return l, false, nil
	}

	if err := e.store.CreateLedger(ctx, *l); err != nil {
		return nil, false, fmt.Errorf("create %s ledger %d for %s: %w", category, year, staffID, err)
	}
	e.recorder.LedgerCreated(string(category))
	e.log.Info("annual leave ledger created",
		zap.String("staff_id", string(staffID)),
		zap.Int("year", year),
		zap.String("category", string(category)),
		zap.String("allowed_days", l.AllowedDays.String()),
		zap.String("carried_over_days", l.CarriedOverDays.String()))
	return l, true, nil
}

// ledgerFor returns the stored ledger, or an unsaved draft built the same
// way GetOrCreateLedger would build it.
func (e *Engine) ledgerFor(ctx context.Context, staffID staff.ID, year int, category Category) (*AnnualLeave, bool, error) {
	if !category.Valid() {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	existing, err := e.store.GetLedger(ctx, staffID, year, category)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, ErrLedgerNotFound) {
		return nil, false, err
	}

	profile, err := e.store.GetStaff(ctx, staffID)
	if err != nil {
		return nil, false, err
	}
	carry, err := e.CarryOver(ctx, staffID, year, category)
	if err != nil {
		return nil, false, err
	}

	now := e.now()
	return &AnnualLeave{
		ID:              uuid.NewString(),
		StaffID:         staffID,
		Year:            year,
		Category:        category,
		AllowedDays:     category.DefaultAllowance(*profile),
		CarriedOverDays: carry,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, false, nil
}

// OverrideLedger replaces allowed and carried days of the key, creating the
// ledger first when needed. nil leaves a figure unchanged.
func (e *Engine) OverrideLedger(ctx context.Context, staffID staff.ID, year int, category Category, allowed, carried *decimal.Decimal) (*AnnualLeave, error) {
	l, err := e.GetOrCreateLedger(ctx, staffID, year, category)
	if errors.Is(err, ErrDuplicateLedger) {
		l, err = e.store.GetLedger(ctx, staffID, year, category)
	}
	if err != nil {
		return nil, err
	}
	if allowed != nil {
		l.AllowedDays = *allowed
	}
	if carried != nil {
		l.CarriedOverDays = *carried
	}
	l.UpdatedAt = e.now()
	if err := e.store.UpdateLedger(ctx, *l); err != nil {
		return nil, err
	}
	return l, nil
}
