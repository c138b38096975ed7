/*
ledger.go - Balance ledger facade

PURPOSE:
  Thin domain wrapper over BalanceStore. Enforces the argument-level
  rules the store cannot know about (strictly positive quantities) and
  exposes the derived available figure without ever storing it.

SEE ALSO:
  - store.go: the four primitives' atomicity contract
  - provision.go: who writes Allocated/Carryover
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger mediates balance mutations for the state machine.
type Ledger struct {
	store BalanceStore
}

func NewLedger(store BalanceStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Balance(ctx context.Context, key BalanceKey) (*Balance, error) {
	return l.store.GetBalance(ctx, key)
}

// Available returns allocated + carryover - used - pending for the row.
func (l *Ledger) Available(ctx context.Context, key BalanceKey) (decimal.Decimal, error) {
	b, err := l.store.GetBalance(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Available(), nil
}

func (l *Ledger) Reserve(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error {
	if err := checkDays(days); err != nil {
		return err
	}
	return l.store.Reserve(ctx, key, days, ref)
}

func (l *Ledger) Commit(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error {
	if err := checkDays(days); err != nil {
		return err
	}
	return l.store.Commit(ctx, key, days, ref)
}

func (l *Ledger) Release(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error {
	if err := checkDays(days); err != nil {
		return err
	}
	return l.store.Release(ctx, key, days, ref)
}

func (l *Ledger) Revert(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error {
	if err := checkDays(days); err != nil {
		return err
	}
	return l.store.Revert(ctx, key, days, ref)
}

func (l *Ledger) Entries(ctx context.Context, key BalanceKey) ([]LedgerEntry, error) {
	return l.store.LedgerEntries(ctx, key)
}

func checkDays(days decimal.Decimal) error {
	if !days.IsPositive() {
		return fmt.Errorf("%w: day quantity must be positive, got %s", ErrValidation, days)
	}
	return nil
}
