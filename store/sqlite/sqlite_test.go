package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopleops/leave-engine/leave"
	"github.com/peopleops/leave-engine/notify"
	"github.com/peopleops/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var aliceKey = leave.BalanceKey{EmployeeID: "alice", LeaveTypeID: "pto", Year: 2025}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID: "alice", Name: "Alice", Role: leave.RoleEmployee, ManagerID: "bob",
		HireDate: leave.NewDate(2020, time.January, 6),
	}))
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID: "bob", Name: "Bob", Role: leave.RoleManager,
		HireDate: leave.NewDate(2018, time.January, 8),
	}))
	require.NoError(t, store.SaveLeaveType(ctx, leave.LeaveType{
		ID: "pto", Code: "pto", Name: "Paid Time Off",
		DefaultAllocationDays: decimal.NewFromInt(20),
		MaxCarryoverDays:      decimal.NewFromInt(5),
		Accrual:               leave.AccrualRule{Kind: leave.AccrualAnnual},
		RequiresApproval:      true,
		Active:                true,
	}))
	require.NoError(t, store.PutBalance(ctx, leave.Balance{
		EmployeeID: "alice", LeaveTypeID: "pto", Year: 2025,
		Allocated: decimal.NewFromInt(10),
	}, "seed"))

	return store
}

func balanceOf(t *testing.T, store *sqlite.Store, key leave.BalanceKey) *leave.Balance {
	t.Helper()
	b, err := store.GetBalance(context.Background(), key)
	require.NoError(t, err)
	return b
}

func pendingRequest(id string, start, end leave.Date, days int) leave.LeaveRequest {
	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	return leave.LeaveRequest{
		ID: id, EmployeeID: "alice", LeaveTypeID: "pto",
		StartDate: start, EndDate: end, DaysCount: days,
		Status: leave.StatusPending, Reason: "vacation",
		CreatedAt: now, UpdatedAt: now,
	}
}

// =============================================================================
// LEDGER PRIMITIVES
// =============================================================================

func TestLedger_ReserveCommitRoundTrip(t *testing.T) {
	// GIVEN: 10 allocated days
	// WHEN: Reserving 4 then committing them
	// THEN: The days move allocated -> pending -> used

	store := newTestStore(t)
	ctx := context.Background()
	four := decimal.NewFromInt(4)

	require.NoError(t, store.Reserve(ctx, aliceKey, four, "req-1"))
	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Pending.Equal(four), "pending %s", b.Pending)
	assert.True(t, b.Available().Equal(decimal.NewFromInt(6)))

	require.NoError(t, store.Commit(ctx, aliceKey, four, "req-1"))
	b = balanceOf(t, store, aliceKey)
	assert.True(t, b.Pending.IsZero())
	assert.True(t, b.Used.Equal(four))
	assert.True(t, b.Available().Equal(decimal.NewFromInt(6)), "commit must not change available")
}

func TestLedger_ReleaseRestoresAvailability(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	four := decimal.NewFromInt(4)

	require.NoError(t, store.Reserve(ctx, aliceKey, four, "req-1"))
	require.NoError(t, store.Release(ctx, aliceKey, four, "req-1"))

	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Pending.IsZero())
	assert.True(t, b.Available().Equal(decimal.NewFromInt(10)))
}

func TestLedger_RevertRestoresCommittedDays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	four := decimal.NewFromInt(4)

	require.NoError(t, store.Reserve(ctx, aliceKey, four, "req-1"))
	require.NoError(t, store.Commit(ctx, aliceKey, four, "req-1"))
	require.NoError(t, store.Revert(ctx, aliceKey, four, "req-1"))

	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Used.IsZero())
	assert.True(t, b.Available().Equal(decimal.NewFromInt(10)))
}

func TestLedger_ReserveRefusesOverdraft(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Reserve(ctx, aliceKey, decimal.NewFromInt(11), "req-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)

	var ibe *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, ibe.Available.Equal(decimal.NewFromInt(10)))
	assert.True(t, ibe.Requested.Equal(decimal.NewFromInt(11)))
	assert.True(t, ibe.Shortfall().Equal(decimal.NewFromInt(1)))

	// The failed reserve left nothing behind.
	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Pending.IsZero())
}

func TestLedger_GuardsRefuseNegativeColumns(t *testing.T) {
	// Committing or releasing more than is pending, or reverting more
	// than is used, must fail rather than drive a column negative.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, aliceKey, decimal.NewFromInt(2), "req-1"))

	assert.Error(t, store.Commit(ctx, aliceKey, decimal.NewFromInt(3), "req-1"))
	assert.Error(t, store.Release(ctx, aliceKey, decimal.NewFromInt(3), "req-1"))
	assert.Error(t, store.Revert(ctx, aliceKey, decimal.NewFromInt(1), "req-1"))

	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Pending.Equal(decimal.NewFromInt(2)), "failed ops must not move days")
	assert.True(t, b.Used.IsZero())
}

func TestLedger_ConcurrentReservesNeverOversell(t *testing.T) {
	// GIVEN: 10 available days and 8 goroutines each reserving 3
	// WHEN: They race
	// THEN: Exactly 3 succeed and available never goes negative

	store := newTestStore(t)
	three := decimal.NewFromInt(3)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Reserve(context.Background(), aliceKey, three, fmt.Sprintf("req-%d", i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 3, succeeded)

	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Pending.Equal(decimal.NewFromInt(9)))
	assert.True(t, b.Available().Equal(decimal.NewFromInt(1)))
}

func TestLedger_EveryPrimitiveLeavesAnAuditEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	two := decimal.NewFromInt(2)

	require.NoError(t, store.Reserve(ctx, aliceKey, two, "req-1"))
	require.NoError(t, store.Commit(ctx, aliceKey, two, "req-1"))
	require.NoError(t, store.Revert(ctx, aliceKey, two, "req-1"))

	entries, err := store.LedgerEntries(ctx, aliceKey)
	require.NoError(t, err)

	var ops []leave.LedgerOp
	for _, e := range entries {
		ops = append(ops, e.Op)
	}
	// The seed PutBalance wrote the allocate entry.
	assert.Contains(t, ops, leave.OpAllocate)
	assert.Contains(t, ops, leave.OpReserve)
	assert.Contains(t, ops, leave.OpCommit)
	assert.Contains(t, ops, leave.OpRevert)

	for _, e := range entries {
		if e.Op == leave.OpReserve {
			assert.Equal(t, "req-1", e.ReferenceID)
			assert.True(t, e.Days.Equal(two))
		}
	}
}

func TestPutBalance_UpsertPreservesUsedAndPending(t *testing.T) {
	// Re-provisioning a year must not wipe the movement columns.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, aliceKey, decimal.NewFromInt(4), "req-1"))

	require.NoError(t, store.PutBalance(ctx, leave.Balance{
		EmployeeID: "alice", LeaveTypeID: "pto", Year: 2025,
		Allocated: decimal.NewFromInt(12), Carryover: decimal.NewFromInt(3),
	}, "reprovision"))

	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Allocated.Equal(decimal.NewFromInt(12)))
	assert.True(t, b.Carryover.Equal(decimal.NewFromInt(3)))
	assert.True(t, b.Pending.Equal(decimal.NewFromInt(4)))
	assert.True(t, b.Available().Equal(decimal.NewFromInt(11)))
}

func TestBalances_QuantitiesRoundTripExactly(t *testing.T) {
	// GIVEN: Quantities with more precision than a float64 can hold
	// WHEN: Storing them and moving a fractional amount through the
	// ledger
	// THEN: Every column reads back digit for digit

	store := newTestStore(t)
	ctx := context.Background()

	allocated := decimal.RequireFromString("10.123456789012345678901234567890")
	carryover := decimal.RequireFromString("0.000000000000000000000000000001")
	require.NoError(t, store.PutBalance(ctx, leave.Balance{
		EmployeeID: "alice", LeaveTypeID: "pto", Year: 2025,
		Allocated: allocated, Carryover: carryover,
	}, "precise-seed"))

	b := balanceOf(t, store, aliceKey)
	assert.Equal(t, allocated.String(), b.Allocated.String())
	assert.Equal(t, carryover.String(), b.Carryover.String())

	half := decimal.RequireFromString("0.5")
	require.NoError(t, store.Reserve(ctx, aliceKey, half, "req-1"))

	b = balanceOf(t, store, aliceKey)
	assert.Equal(t, "0.5", b.Pending.String())
	assert.Equal(t, allocated.Add(carryover).Sub(half).String(), b.Available().String())
}

// =============================================================================
// REQUEST TRANSITIONS
// =============================================================================

func TestTransitionRequest_GuardedUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := pendingRequest("r1",
		leave.NewDate(2025, time.June, 2), leave.NewDate(2025, time.June, 6), 5)
	require.NoError(t, store.InsertRequest(ctx, req))

	decided := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.TransitionRequest(ctx, "r1",
		leave.StatusPending, leave.StatusApproved, leave.RequestPatch{
			ApproverID: "bob", ApproverComment: "enjoy",
			DecidedAt: &decided, UpdatedAt: decided,
		}))

	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, "bob", got.ApproverID)
	assert.Equal(t, "enjoy", got.ApproverComment)
	require.NotNil(t, got.DecidedAt)
	assert.Equal(t, decided, got.DecidedAt.UTC())
}

func TestTransitionRequest_GuardMissNamesActualStatus(t *testing.T) {
	// The losing side of a race sees the status that actually won.
	store := newTestStore(t)
	ctx := context.Background()

	req := pendingRequest("r1",
		leave.NewDate(2025, time.June, 2), leave.NewDate(2025, time.June, 6), 5)
	require.NoError(t, store.InsertRequest(ctx, req))

	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.TransitionRequest(ctx, "r1",
		leave.StatusPending, leave.StatusRejected, leave.RequestPatch{
			ApproverID: "bob", RejectionReason: "blackout week", UpdatedAt: now,
		}))

	err := store.TransitionRequest(ctx, "r1",
		leave.StatusPending, leave.StatusApproved, leave.RequestPatch{
			ApproverID: "bob", UpdatedAt: now,
		})
	require.Error(t, err)

	var ite *leave.IllegalTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, leave.StatusRejected, ite.From)
	assert.Equal(t, "approve", ite.Action)
}

func TestTransitionRequest_MissingRequestIsNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.TransitionRequest(context.Background(), "ghost",
		leave.StatusPending, leave.StatusApproved,
		leave.RequestPatch{UpdatedAt: time.Now()})
	assert.True(t, leave.IsNotFound(err))
}

func TestListOverlapping_IgnoresTerminalRequests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := pendingRequest("r1",
		leave.NewDate(2025, time.June, 2), leave.NewDate(2025, time.June, 6), 5)
	require.NoError(t, store.InsertRequest(ctx, req))

	overlaps, err := store.ListOverlapping(ctx, "alice",
		leave.NewDate(2025, time.June, 4), leave.NewDate(2025, time.June, 10))
	require.NoError(t, err)
	require.Len(t, overlaps, 1)

	require.NoError(t, store.TransitionRequest(ctx, "r1",
		leave.StatusPending, leave.StatusCancelled,
		leave.RequestPatch{CancelledBy: "alice", UpdatedAt: time.Now()}))

	overlaps, err = store.ListOverlapping(ctx, "alice",
		leave.NewDate(2025, time.June, 4), leave.NewDate(2025, time.June, 10))
	require.NoError(t, err)
	assert.Empty(t, overlaps)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackEverything(t *testing.T) {
	// GIVEN: A transaction that inserts a request and reserves days
	// WHEN: The function returns an error
	// THEN: Neither write survives

	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx leave.Store) error {
		req := pendingRequest("r1",
			leave.NewDate(2025, time.June, 2), leave.NewDate(2025, time.June, 6), 5)
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.Reserve(ctx, aliceKey, decimal.NewFromInt(5), "r1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetRequest(ctx, "r1")
	assert.True(t, leave.IsNotFound(err))

	b := balanceOf(t, store, aliceKey)
	assert.True(t, b.Pending.IsZero())

	entries, err := store.LedgerEntries(ctx, aliceKey)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, leave.OpReserve, e.Op, "rolled-back reserve must not be audited")
	}
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx leave.Store) error {
		req := pendingRequest("r1",
			leave.NewDate(2025, time.June, 2), leave.NewDate(2025, time.June, 6), 5)
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		return tx.Reserve(ctx, aliceKey, decimal.NewFromInt(5), "r1")
	})
	require.NoError(t, err)

	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.True(t, balanceOf(t, store, aliceKey).Pending.Equal(decimal.NewFromInt(5)))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_RecurringAndCountryScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, leave.Holiday{
		ID: "h1", Name: "Independence Day", CountryCode: "US",
		Date: leave.NewDate(2025, time.July, 4), Recurring: true,
	}))
	require.NoError(t, store.SaveHoliday(ctx, leave.Holiday{
		ID: "h2", Name: "Company Offsite", CountryCode: "US",
		Date: leave.NewDate(2025, time.September, 12), Recurring: false,
	}))

	assert.True(t, store.IsHoliday("US", leave.NewDate(2025, time.July, 4)))
	assert.True(t, store.IsHoliday("US", leave.NewDate(2026, time.July, 4)), "recurring carries across years")
	assert.False(t, store.IsHoliday("US", leave.NewDate(2026, time.September, 12)), "one-off does not recur")
	assert.False(t, store.IsHoliday("FR", leave.NewDate(2025, time.July, 4)))

	in2026 := store.Holidays("US", 2026)
	require.Len(t, in2026, 1)
	assert.Equal(t, "Independence Day", in2026[0].Name)

	require.NoError(t, store.DeleteHoliday(ctx, "h1"))
	assert.False(t, store.IsHoliday("US", leave.NewDate(2025, time.July, 4)))
}

// =============================================================================
// NOTIFIER PERSISTENCE
// =============================================================================

func TestNotifiers_DueListingAndMarkSent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveNotifier(ctx, notify.DocumentNotifier{
		ID: "n1", EmployeeID: "alice", Subject: "Passport renewal",
		Frequency: notify.FrequencyWeekly, Status: notify.NotifierActive,
		NextDue: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.SaveNotifier(ctx, notify.DocumentNotifier{
		ID: "n2", EmployeeID: "alice", Subject: "Visa check",
		Frequency: notify.FrequencyWeekly, Status: notify.NotifierActive,
		NextDue: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now,
	}))

	due, err := store.ListDueNotifiers(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "n1", due[0].ID)

	entry := notify.NotificationLog{
		ID: "log-1", EmployeeID: "alice", Kind: notify.KindDocumentReminder,
		Subject: "Passport renewal", Reference: "n1",
		Status: notify.LogSent, CreatedAt: now,
	}
	require.NoError(t, store.MarkSent(ctx, "n1", now, now.Add(7*24*time.Hour), entry))

	got, err := store.GetNotifier(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, got.LastSent)
	assert.Equal(t, now, got.LastSent.UTC())
	assert.Equal(t, notify.NotifierActive, got.Status)

	due, err = store.ListDueNotifiers(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due, "sent notifier is no longer due")

	seen, err := store.HasLogReference(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestNotifiers_DocumentAndNoticeWindowRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, 60)

	n := notify.DocumentNotifier{
		ID: "n1", EmployeeID: "alice", DocumentID: "doc-passport",
		Subject: "Passport renewal", Frequency: notify.FrequencyWeekly,
		TargetExpiry: expiry, AdvanceNoticeDays: 30,
		Status: notify.NotifierActive, NextDue: expiry.AddDate(0, 0, -30),
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.SaveNotifier(ctx, n))

	got, err := store.GetNotifier(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "doc-passport", got.DocumentID)
	assert.Equal(t, 30, got.AdvanceNoticeDays)
	assert.Equal(t, expiry, got.TargetExpiry.UTC())
	assert.Equal(t, expiry.AddDate(0, 0, -30), got.NextDue.UTC())

	// The upsert path keeps both columns too.
	n.AdvanceNoticeDays = 14
	n.DocumentID = "doc-visa"
	require.NoError(t, store.SaveNotifier(ctx, n))

	got, err = store.GetNotifier(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "doc-visa", got.DocumentID)
	assert.Equal(t, 14, got.AdvanceNoticeDays)
}

func TestNotifiers_MarkSentWithZeroDueDeactivates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveNotifier(ctx, notify.DocumentNotifier{
		ID: "n1", EmployeeID: "alice", Subject: "Passport renewal",
		Frequency: notify.FrequencyWeekly, Status: notify.NotifierActive,
		NextDue: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, store.MarkSent(ctx, "n1", now, time.Time{}, notify.NotificationLog{
		ID: "log-1", EmployeeID: "alice", Kind: notify.KindDocumentReminder,
		Status: notify.LogSent, CreatedAt: now,
	}))

	got, err := store.GetNotifier(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, notify.NotifierInactive, got.Status)
}

func TestNotifiers_MarkFailedTracksAttempts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveNotifier(ctx, notify.DocumentNotifier{
		ID: "n1", EmployeeID: "alice", Subject: "Passport renewal",
		Frequency: notify.FrequencyWeekly, Status: notify.NotifierActive,
		NextDue: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now,
	}))

	entry := notify.NotificationLog{
		ID: "log-1", EmployeeID: "alice", Kind: notify.KindDocumentReminder,
		Reference: "n1", Status: notify.LogRetrying, Error: "smtp down", CreatedAt: now,
	}
	require.NoError(t, store.MarkFailed(ctx, "n1", now.Add(time.Minute), false, entry))

	got, err := store.GetNotifier(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, notify.NotifierActive, got.Status)

	entry.ID = "log-2"
	entry.Status = notify.LogFailed
	require.NoError(t, store.MarkFailed(ctx, "n1", now.Add(2*time.Minute), true, entry))

	got, err = store.GetNotifier(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, notify.NotifierFailed, got.Status)

	require.NoError(t, store.ResetNotifier(ctx, "n1", now))
	got, err = store.GetNotifier(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, notify.NotifierActive, got.Status)
	assert.Equal(t, 0, got.Attempts)

	logs, err := store.ListLogs(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

// =============================================================================
// SWEEP LEASE
// =============================================================================

func TestSweepLease_SingleHolderAndStaleSteal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	ttl := 30 * time.Minute

	held, err := store.AcquireSweepLease(ctx, "owner-a", now, ttl)
	require.NoError(t, err)
	assert.True(t, held)

	// A second owner is refused while the lease is live.
	held, err = store.AcquireSweepLease(ctx, "owner-b", now.Add(time.Minute), ttl)
	require.NoError(t, err)
	assert.False(t, held)

	// The holder can re-acquire its own lease.
	held, err = store.AcquireSweepLease(ctx, "owner-a", now.Add(time.Minute), ttl)
	require.NoError(t, err)
	assert.True(t, held)

	// A stale lease is stolen.
	held, err = store.AcquireSweepLease(ctx, "owner-b", now.Add(ttl+2*time.Minute), ttl)
	require.NoError(t, err)
	assert.True(t, held)

	// Release by a non-holder is a no-op; the holder's release frees it.
	require.NoError(t, store.ReleaseSweepLease(ctx, "owner-a"))
	held, err = store.AcquireSweepLease(ctx, "owner-a", now.Add(ttl+3*time.Minute), ttl)
	require.NoError(t, err)
	assert.False(t, held, "owner-b still holds the lease")

	require.NoError(t, store.ReleaseSweepLease(ctx, "owner-b"))
	held, err = store.AcquireSweepLease(ctx, "owner-a", now.Add(ttl+4*time.Minute), ttl)
	require.NoError(t, err)
	assert.True(t, held)
}

// =============================================================================
// LOW BALANCES
// =============================================================================

func TestListLowBalances_ThresholdScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Alice: 10 available. Bob: 2 available.
	require.NoError(t, store.PutBalance(ctx, leave.Balance{
		EmployeeID: "bob", LeaveTypeID: "pto", Year: 2025,
		Allocated: decimal.NewFromInt(2),
	}, "seed"))

	lows, err := store.ListLowBalances(ctx, 2025, decimal.NewFromInt(3))
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, "bob", lows[0].EmployeeID)
	assert.True(t, lows[0].Available.Equal(decimal.NewFromInt(2)))

	lows, err = store.ListLowBalances(ctx, 2024, decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Empty(t, lows, "other years are out of scope")
}
