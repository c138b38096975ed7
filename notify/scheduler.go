/*
scheduler.go - Notification sweep scheduler

PURPOSE:
  Periodically sweeps for due notifiers and dispatches them. The sweep
  is stateless between runs: due-ness lives entirely in each notifier's
  NextDue column, so a crashed or skipped sweep loses nothing and the
  next run picks up exactly where things stand.

DESIGN:
  - A lease row guards the sweep so two processes (or an overlapping
    tick) never double-send; losing the lease skips the run.
  - Each dispatch is bounded by DispatchTimeout.
  - A successful send updates LastSent/NextDue and appends the log
    entry in one transaction, so a send is recorded exactly once.
  - Failures back off exponentially (base * 2^attempts); after
    MaxAttempts the notifier is parked as failed until reset.
  - The same sweep raises low-balance warnings, deduplicated per
    employee/type/year through the log's Reference column.

USAGE:
  s := notify.NewScheduler(store, dispatcher, balances)
  s.Start()
  // ... later
  s.Stop()

SEE ALSO:
  - types.go: notifier and log records
  - store/sqlite: lease and atomic MarkSent/MarkFailed
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrSweepAlreadyRunning is returned by Sweep when the lease is held
// elsewhere.
var ErrSweepAlreadyRunning = errors.New("notification sweep already running")

// =============================================================================
// STORE CONTRACTS
// =============================================================================

// Store is the persistence the sweep needs. MarkSent and MarkFailed
// must update the notifier and append the log entry atomically.
type Store interface {
	SaveNotifier(ctx context.Context, n DocumentNotifier) error
	GetNotifier(ctx context.Context, id string) (*DocumentNotifier, error)
	ListNotifiers(ctx context.Context, employeeID string) ([]DocumentNotifier, error)

	// ListDueNotifiers returns active notifiers with NextDue <= now.
	ListDueNotifiers(ctx context.Context, now time.Time) ([]DocumentNotifier, error)

	// MarkSent records a successful send: LastSent = sentAt, NextDue =
	// nextDue (zero deactivates the notifier), Attempts reset, plus
	// the log entry, in one transaction.
	MarkSent(ctx context.Context, notifierID string, sentAt, nextDue time.Time, entry NotificationLog) error

	// MarkFailed records a failed attempt: Attempts incremented,
	// NextDue = retryAt, status set to failed when terminal is true,
	// plus the log entry, in one transaction.
	MarkFailed(ctx context.Context, notifierID string, retryAt time.Time, terminal bool, entry NotificationLog) error

	// ResetNotifier reactivates a failed notifier with zeroed attempts
	// and the given due time.
	ResetNotifier(ctx context.Context, notifierID string, nextDue time.Time) error

	AppendLog(ctx context.Context, entry NotificationLog) error
	ListLogs(ctx context.Context, employeeID string, limit int) ([]NotificationLog, error)

	// HasLogReference reports whether any log entry carries the
	// reference, the dedup check for one-shot warnings.
	HasLogReference(ctx context.Context, reference string) (bool, error)

	// AcquireSweepLease takes the singleton sweep lease. It returns
	// false when a live lease (younger than ttl) is held by another
	// owner; stale leases are stolen.
	AcquireSweepLease(ctx context.Context, owner string, now time.Time, ttl time.Duration) (bool, error)
	ReleaseSweepLease(ctx context.Context, owner string) error
}

// LowBalance is a ledger row under the warning threshold.
type LowBalance struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int
	Available   decimal.Decimal
}

// BalanceSource feeds the low-balance warning pass.
type BalanceSource interface {
	ListLowBalances(ctx context.Context, year int, threshold decimal.Decimal) ([]LowBalance, error)
}

// =============================================================================
// SCHEDULER
// =============================================================================

type Scheduler struct {
	Store      Store
	Dispatcher Dispatcher
	Balances   BalanceSource

	Interval        time.Duration
	DispatchTimeout time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration

	// LowBalanceThreshold is the available-days floor below which a
	// warning is raised. Zero disables the pass.
	LowBalanceThreshold decimal.Decimal

	Now   func() time.Time
	NewID func() string

	owner  string
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler(store Store, d Dispatcher, balances BalanceSource) *Scheduler {
	return &Scheduler{
		Store:           store,
		Dispatcher:      d,
		Balances:        balances,
		Interval:        15 * time.Minute,
		DispatchTimeout: 10 * time.Second,
		MaxAttempts:     5,
		BackoffBase:     time.Minute,
		Now:             time.Now,
		NewID:           uuid.NewString,
		owner:           uuid.NewString(),
		stop:            make(chan bool),
	}
}

// Start begins the background sweep loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Notify] Scheduler started, sweep interval %v", s.Interval)
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Notify] Scheduler stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Sweep immediately on start
	s.sweepLogged()

	for {
		select {
		case <-s.ticker.C:
			s.sweepLogged()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) sweepLogged() {
	if err := s.Sweep(context.Background()); err != nil && !errors.Is(err, ErrSweepAlreadyRunning) {
		log.Printf("[Notify] Sweep error: %v", err)
	}
}

// Sweep runs one pass: due notifiers first, then low-balance warnings.
// Safe to call concurrently with the background loop; the lease lets
// exactly one pass through.
func (s *Scheduler) Sweep(ctx context.Context) error {
	now := s.Now()

	ok, err := s.Store.AcquireSweepLease(ctx, s.owner, now, 2*s.Interval)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSweepAlreadyRunning
	}
	defer func() {
		if err := s.Store.ReleaseSweepLease(context.Background(), s.owner); err != nil {
			log.Printf("[Notify] Error releasing sweep lease: %v", err)
		}
	}()

	due, err := s.Store.ListDueNotifiers(ctx, now)
	if err != nil {
		return err
	}

	sent, failed := 0, 0
	for _, n := range due {
		if err := s.dispatchOne(ctx, n); err != nil {
			failed++
		} else {
			sent++
		}
	}
	if sent > 0 || failed > 0 {
		log.Printf("[Notify] Sweep completed: %d sent, %d failed", sent, failed)
	}

	return s.sweepLowBalances(ctx, now)
}

func (s *Scheduler) dispatchOne(ctx context.Context, n DocumentNotifier) error {
	sctx, cancel := context.WithTimeout(ctx, s.DispatchTimeout)
	err := s.Dispatcher.Send(sctx, n.EmployeeID, n.Subject, n.Message)
	cancel()

	now := s.Now()
	entry := NotificationLog{
		ID:         s.NewID(),
		EmployeeID: n.EmployeeID,
		Kind:       KindDocumentReminder,
		Subject:    n.Subject,
		Message:    n.Message,
		Reference:  n.ID,
		CreatedAt:  now,
	}

	if err != nil {
		attempts := n.Attempts + 1
		terminal := attempts >= s.MaxAttempts
		retryAt := now.Add(s.BackoffBase * (1 << n.Attempts))
		entry.Status = LogRetrying
		if terminal {
			entry.Status = LogFailed
		}
		entry.Error = err.Error()
		if merr := s.Store.MarkFailed(ctx, n.ID, retryAt, terminal, entry); merr != nil {
			log.Printf("[Notify] Error recording failure for %s: %v", n.ID, merr)
		}
		return err
	}

	entry.Status = LogSent
	return s.Store.MarkSent(ctx, n.ID, now, n.NextAfter(now), entry)
}

func (s *Scheduler) sweepLowBalances(ctx context.Context, now time.Time) error {
	if s.Balances == nil || !s.LowBalanceThreshold.IsPositive() {
		return nil
	}

	lows, err := s.Balances.ListLowBalances(ctx, now.Year(), s.LowBalanceThreshold)
	if err != nil {
		return err
	}
	for _, lb := range lows {
		// One warning per employee/type/year, keyed through the log.
		ref := balanceLowRef(lb)
		seen, err := s.Store.HasLogReference(ctx, ref)
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		subject := "Leave balance running low"
		message := "Your remaining balance is " + lb.Available.String() + " days for this year."

		sctx, cancel := context.WithTimeout(ctx, s.DispatchTimeout)
		sendErr := s.Dispatcher.Send(sctx, lb.EmployeeID, subject, message)
		cancel()

		entry := NotificationLog{
			ID:         s.NewID(),
			EmployeeID: lb.EmployeeID,
			Kind:       KindBalanceLow,
			Subject:    subject,
			Message:    message,
			Reference:  ref,
			Status:     LogSent,
			CreatedAt:  s.Now(),
		}
		if sendErr != nil {
			// No retry machinery for warnings; the next sweep sees no
			// log entry and tries again.
			log.Printf("[Notify] Error sending balance warning to %s: %v", lb.EmployeeID, sendErr)
			continue
		}
		if err := s.Store.AppendLog(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func balanceLowRef(lb LowBalance) string {
	return fmt.Sprintf("balance-low:%s:%s:%d", lb.EmployeeID, lb.LeaveTypeID, lb.Year)
}
