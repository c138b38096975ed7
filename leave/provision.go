/*
provision.go - Balance provisioning and year rollover

PURPOSE:
  Writes the Allocated and Carryover columns of ledger rows. These are
  the only code paths that touch those columns; every other mutation
  goes through the four request primitives.

SEE ALSO:
  - accrual.go: how Allocated and Carryover are computed
  - store.go: PutBalance contract
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Provisioner materializes ledger rows from accrual policy.
type Provisioner struct {
	Store   TxStore
	Accrual *AccrualEngine
}

func NewProvisioner(store TxStore, engine *AccrualEngine) *Provisioner {
	return &Provisioner{Store: store, Accrual: engine}
}

// EnsureBalance returns the ledger row for the key, creating it from
// accrual policy when missing. Carryover is derived from the prior
// year's row when one exists.
func (p *Provisioner) EnsureBalance(ctx context.Context, key BalanceKey) (*Balance, error) {
	b, err := p.Store.GetBalance(ctx, key)
	if err == nil {
		return b, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	emp, err := p.Store.GetEmployee(ctx, key.EmployeeID)
	if err != nil {
		return nil, err
	}
	lt, err := p.Store.GetLeaveType(ctx, key.LeaveTypeID)
	if err != nil {
		return nil, err
	}

	allocated := p.Accrual.AllocatedDays(*lt, *emp, key.Year)
	carryover := decimal.Zero
	prior, err := p.Store.GetBalance(ctx, BalanceKey{EmployeeID: key.EmployeeID, LeaveTypeID: key.LeaveTypeID, Year: key.Year - 1})
	switch {
	case err == nil:
		carryover = p.Accrual.CarryoverDays(*lt, prior.Available())
	case IsNotFound(err):
	default:
		return nil, err
	}

	fresh := Balance{
		EmployeeID:  key.EmployeeID,
		LeaveTypeID: key.LeaveTypeID,
		Year:        key.Year,
		Allocated:   allocated,
		Carryover:   carryover,
	}
	if err := p.Store.PutBalance(ctx, fresh, fmt.Sprintf("provision:%d", key.Year)); err != nil {
		return nil, err
	}
	return p.Store.GetBalance(ctx, key)
}

// Rollover provisions the given year for every employee and every
// active leave type. Rows that already exist are left untouched, so
// the sweep is safe to repeat.
func (p *Provisioner) Rollover(ctx context.Context, year int) (int, error) {
	employees, err := p.Store.ListEmployees(ctx)
	if err != nil {
		return 0, err
	}
	types, err := p.Store.ListLeaveTypes(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, emp := range employees {
		for _, lt := range types {
			if !lt.Active {
				continue
			}
			key := BalanceKey{EmployeeID: emp.ID, LeaveTypeID: lt.ID, Year: year}
			if _, err := p.Store.GetBalance(ctx, key); err == nil {
				continue
			} else if !IsNotFound(err) {
				return created, err
			}
			if _, err := p.EnsureBalance(ctx, key); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
