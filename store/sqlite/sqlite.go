/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements leave.TxStore, leave.HolidayCalendar, notify.Store and
  notify.BalanceSource on a single SQLite database. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

BALANCE PRIMITIVES:
  Reserve/Commit/Release/Revert are each a single conditional UPDATE
  whose WHERE clause re-checks the guard (available >= days, pending >=
  days, used >= days). The check and the write cannot be separated, so
  two racing reservations can never jointly overdraw a row: one UPDATE
  matches, the other doesn't. The CHECK constraints on leave_balances
  are the backstop; no code path relies on them firing.

  Every primitive appends its ledger_entries audit row inside the same
  database transaction as the column update.

GUARDED TRANSITIONS:
  TransitionRequest is UPDATE ... WHERE id = ? AND status = ?. When the
  guard misses, the actual status is read back and the caller gets a
  leave.IllegalTransitionError naming it.

KEY TABLES:
  employees, leave_types:  Reference data
  leave_balances:          One ledger row per (employee, type, year)
  leave_requests:          Requests with their status lifecycle
  ledger_entries:          Immutable audit of every balance mutation
  holidays:                Country holiday calendar
  document_notifiers:      Standing reminders for the sweep
  notification_log:        Every dispatch attempt
  sweep_lease:             Singleton lease guarding the sweep

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. In production
  with PostgreSQL, database-level concurrency control handles this
  instead.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions and primitive contracts
  - notify/scheduler.go: Consumer of the lease and notifier tables
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/peopleops/leave-engine/leave"
	"github.com/peopleops/leave-engine/notify"
)

// execer is the subset of *sql.DB and *sql.Tx the row-level helpers
// need, so the same code runs standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent (each
	// connection would otherwise get its own) and sidesteps
	// SQLITE_BUSY under write contention.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		manager_id TEXT,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Leave types
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		default_allocation_days TEXT NOT NULL,
		max_carryover_days TEXT NOT NULL,
		max_request_days INTEGER NOT NULL DEFAULT 0,
		accrual_json TEXT NOT NULL,
		requires_approval BOOLEAN NOT NULL DEFAULT TRUE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Balance ledger rows. Quantities are exact decimal strings, like
	-- ledger_entries.days; the four primitives guard the invariant in
	-- exact arithmetic before writing.
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		allocated TEXT NOT NULL DEFAULT '0',
		used TEXT NOT NULL DEFAULT '0',
		pending TEXT NOT NULL DEFAULT '0',
		carryover TEXT NOT NULL DEFAULT '0',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type_id, year)
	);

	-- Requests
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days_count INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'rejected', 'cancelled')),
		reason TEXT,
		approver_id TEXT,
		approver_comment TEXT,
		rejection_reason TEXT,
		cancelled_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		decided_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	-- Overlap scan (hot path on create)
	CREATE INDEX IF NOT EXISTS idx_requests_employee_dates
		ON leave_requests(employee_id, start_date, end_date);

	-- Immutable audit of balance mutations. No UPDATE or DELETE ever
	-- touches this table.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		op TEXT NOT NULL
			CHECK (op IN ('reserve', 'commit', 'release', 'revert', 'allocate', 'carryover')),
		days TEXT NOT NULL,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_key
		ON ledger_entries(employee_id, leave_type_id, year, created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;

	-- Holidays (per-country, optionally recurring)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		country_code TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_country_date
		ON holidays(country_code, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(country_code, date, name);

	-- Document notifiers
	CREATE TABLE IF NOT EXISTS document_notifiers (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		document_id TEXT,
		subject TEXT NOT NULL,
		message TEXT,
		frequency TEXT NOT NULL,
		custom_interval_sec INTEGER NOT NULL DEFAULT 0,
		target_expiry TEXT,
		advance_notice_days INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'inactive', 'failed')),
		attempts INTEGER NOT NULL DEFAULT 0,
		last_sent TEXT,
		next_due TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Due scan (hot path of the sweep)
	CREATE INDEX IF NOT EXISTS idx_notifiers_due
		ON document_notifiers(status, next_due);
	CREATE INDEX IF NOT EXISTS idx_notifiers_employee
		ON document_notifiers(employee_id);

	-- Notification log (append-only)
	CREATE TABLE IF NOT EXISTS notification_log (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		subject TEXT NOT NULL,
		message TEXT,
		reference TEXT,
		status TEXT NOT NULL,
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notification_log_employee
		ON notification_log(employee_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_notification_log_reference
		ON notification_log(reference) WHERE reference IS NOT NULL;

	-- Singleton sweep lease
	CREATE TABLE IF NOT EXISTS sweep_lease (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		owner TEXT NOT NULL,
		acquired_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEmployee(ctx, s.db, emp)
}

func (s *Store) saveEmployee(ctx context.Context, q execer, emp leave.Employee) error {
	query := `
		INSERT INTO employees (id, name, email, role, manager_id, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			manager_id = excluded.manager_id,
			hire_date = excluded.hire_date
	`
	_, err := q.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email, string(emp.Role), nullString(emp.ManagerID),
		emp.HireDate.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEmployee(ctx, s.db, id)
}

func (s *Store) getEmployee(ctx context.Context, q execer, id string) (*leave.Employee, error) {
	var (
		emp                 leave.Employee
		managerID           sql.NullString
		hireDate, createdAt string
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, name, email, role, manager_id, hire_date, created_at FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &emp.Email, (*string)(&emp.Role), &managerID, &hireDate, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("employee %s: %w", id, leave.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	emp.ManagerID = managerID.String
	emp.HireDate, _ = leave.ParseDate(hireDate)
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEmployees(ctx, s.db)
}

func (s *Store) listEmployees(ctx context.Context, q execer) ([]leave.Employee, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, email, role, manager_id, hire_date, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		var (
			emp                 leave.Employee
			managerID           sql.NullString
			hireDate, createdAt string
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Email, (*string)(&emp.Role), &managerID, &hireDate, &createdAt); err != nil {
			return nil, err
		}
		emp.ManagerID = managerID.String
		emp.HireDate, _ = leave.ParseDate(hireDate)
		emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// LEAVE TYPE STORE
// =============================================================================

// SaveLeaveType inserts or updates a leave type. The accrual rule is
// validated before anything is written.
func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLeaveType(ctx, s.db, lt)
}

func (s *Store) saveLeaveType(ctx context.Context, q execer, lt leave.LeaveType) error {
	if err := lt.Accrual.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO leave_types
		(id, code, name, default_allocation_days, max_carryover_days, max_request_days,
		 accrual_json, requires_approval, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			default_allocation_days = excluded.default_allocation_days,
			max_carryover_days = excluded.max_carryover_days,
			max_request_days = excluded.max_request_days,
			accrual_json = excluded.accrual_json,
			requires_approval = excluded.requires_approval,
			active = excluded.active
	`
	_, err := q.ExecContext(ctx, query,
		lt.ID, lt.Code, lt.Name,
		lt.DefaultAllocationDays.String(), lt.MaxCarryoverDays.String(), lt.MaxRequestDays,
		lt.Accrual.JSON(), lt.RequiresApproval, lt.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetLeaveType retrieves a leave type by ID.
func (s *Store) GetLeaveType(ctx context.Context, id string) (*leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLeaveType(ctx, s.db, id)
}

func (s *Store) getLeaveType(ctx context.Context, q execer, id string) (*leave.LeaveType, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, code, name, default_allocation_days, max_carryover_days, max_request_days,
		        accrual_json, requires_approval, active, created_at
		 FROM leave_types WHERE id = ?`, id)
	lt, err := scanLeaveType(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("leave type %s: %w", id, leave.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return lt, nil
}

// ListLeaveTypes returns all leave types.
func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLeaveTypes(ctx, s.db)
}

func (s *Store) listLeaveTypes(ctx context.Context, q execer) ([]leave.LeaveType, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, code, name, default_allocation_days, max_carryover_days, max_request_days,
		        accrual_json, requires_approval, active, created_at
		 FROM leave_types ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows.Scan)
		if err != nil {
			return nil, err
		}
		types = append(types, *lt)
	}
	return types, rows.Err()
}

func scanLeaveType(scan func(dest ...any) error) (*leave.LeaveType, error) {
	var (
		lt                   leave.LeaveType
		allocation, carry    string
		accrualJSON          string
		createdAt            string
	)
	err := scan(&lt.ID, &lt.Code, &lt.Name, &allocation, &carry, &lt.MaxRequestDays,
		&accrualJSON, &lt.RequiresApproval, &lt.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	lt.DefaultAllocationDays, _ = decimal.NewFromString(allocation)
	lt.MaxCarryoverDays, _ = decimal.NewFromString(carry)
	lt.Accrual, err = leave.ParseAccrualRule([]byte(accrualJSON))
	if err != nil {
		return nil, fmt.Errorf("leave type %s has invalid accrual config: %w", lt.ID, err)
	}
	lt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &lt, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// InsertRequest inserts a new request.
func (s *Store) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertRequest(ctx, s.db, r)
}

func (s *Store) insertRequest(ctx context.Context, q execer, r leave.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests
		(id, employee_id, leave_type_id, start_date, end_date, days_count, status,
		 reason, approver_id, approver_comment, rejection_reason, cancelled_by,
		 created_at, updated_at, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		r.ID, r.EmployeeID, r.LeaveTypeID,
		r.StartDate.String(), r.EndDate.String(), r.DaysCount, string(r.Status),
		r.Reason, nullString(r.ApproverID), nullString(r.ApproverComment),
		nullString(r.RejectionReason), nullString(r.CancelledBy),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
		nullTime(r.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

const requestColumns = `id, employee_id, leave_type_id, start_date, end_date, days_count, status,
	reason, approver_id, approver_comment, rejection_reason, cancelled_by,
	created_at, updated_at, decided_at`

// GetRequest retrieves a request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRequest(ctx, s.db, id)
}

func (s *Store) getRequest(ctx context.Context, q execer, id string) (*leave.LeaveRequest, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)
	r, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("request %s: %w", id, leave.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRequestsByEmployee returns an employee's requests, newest first.
func (s *Store) ListRequestsByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryRequests(ctx, s.db,
		"SELECT "+requestColumns+" FROM leave_requests WHERE employee_id = ? ORDER BY created_at DESC",
		employeeID)
}

// ListRequestsByStatus returns all requests in a status, oldest first
// (approval queues read top-down).
func (s *Store) ListRequestsByStatus(ctx context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryRequests(ctx, s.db,
		"SELECT "+requestColumns+" FROM leave_requests WHERE status = ? ORDER BY created_at ASC",
		string(status))
}

// ListOverlapping returns the employee's pending/approved requests that
// intersect [start, end].
func (s *Store) ListOverlapping(ctx context.Context, employeeID string, start, end leave.Date) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listOverlapping(ctx, s.db, employeeID, start, end)
}

func (s *Store) listOverlapping(ctx context.Context, q execer, employeeID string, start, end leave.Date) ([]leave.LeaveRequest, error) {
	query := "SELECT " + requestColumns + ` FROM leave_requests
		WHERE employee_id = ? AND status IN ('pending', 'approved')
		  AND end_date >= ? AND start_date <= ?
		ORDER BY start_date ASC`
	return s.queryRequests(ctx, q, query, employeeID, start.String(), end.String())
}

// TransitionRequest atomically moves a request between statuses. The
// UPDATE is guarded on the expected current status; a guard miss means
// either the request is gone or a concurrent transition won.
func (s *Store) TransitionRequest(ctx context.Context, id string, from, to leave.RequestStatus, patch leave.RequestPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionRequest(ctx, s.db, id, from, to, patch)
}

func (s *Store) transitionRequest(ctx context.Context, q execer, id string, from, to leave.RequestStatus, patch leave.RequestPatch) error {
	query := `
		UPDATE leave_requests
		SET status = ?,
		    approver_id = COALESCE(NULLIF(?, ''), approver_id),
		    approver_comment = COALESCE(NULLIF(?, ''), approver_comment),
		    rejection_reason = COALESCE(NULLIF(?, ''), rejection_reason),
		    cancelled_by = COALESCE(NULLIF(?, ''), cancelled_by),
		    decided_at = COALESCE(?, decided_at),
		    updated_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := q.ExecContext(ctx, query,
		string(to),
		patch.ApproverID, patch.ApproverComment, patch.RejectionReason, patch.CancelledBy,
		nullTime(patch.DecidedAt),
		patch.UpdatedAt.UTC().Format(time.RFC3339),
		id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to transition request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Guard miss: name the status actually observed.
	var actual string
	err = q.QueryRowContext(ctx, "SELECT status FROM leave_requests WHERE id = ?", id).Scan(&actual)
	if err == sql.ErrNoRows {
		return fmt.Errorf("request %s: %w", id, leave.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return &leave.IllegalTransitionError{
		RequestID: id,
		From:      leave.RequestStatus(actual),
		Action:    actionFor(to),
	}
}

func actionFor(to leave.RequestStatus) string {
	switch to {
	case leave.StatusApproved:
		return "approve"
	case leave.StatusRejected:
		return "reject"
	case leave.StatusCancelled:
		return "cancel"
	}
	return string(to)
}

func (s *Store) queryRequests(ctx context.Context, q execer, query string, args ...any) ([]leave.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func scanRequest(scan func(dest ...any) error) (*leave.LeaveRequest, error) {
	var (
		r                                        leave.LeaveRequest
		startDate, endDate, createdAt, updatedAt string
		reason, approverID, comment              sql.NullString
		rejection, cancelledBy, decidedAt        sql.NullString
	)
	err := scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &startDate, &endDate, &r.DaysCount,
		(*string)(&r.Status), &reason, &approverID, &comment, &rejection, &cancelledBy,
		&createdAt, &updatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	r.StartDate, _ = leave.ParseDate(startDate)
	r.EndDate, _ = leave.ParseDate(endDate)
	r.Reason = reason.String
	r.ApproverID = approverID.String
	r.ApproverComment = comment.String
	r.RejectionReason = rejection.String
	r.CancelledBy = cancelledBy.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if decidedAt.Valid {
		t, _ := time.Parse(time.RFC3339, decidedAt.String)
		r.DecidedAt = &t
	}
	return &r, nil
}

// =============================================================================
// BALANCE STORE - The four primitives
// =============================================================================

// GetBalance retrieves one ledger row.
func (s *Store) GetBalance(ctx context.Context, key leave.BalanceKey) (*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBalance(ctx, s.db, key)
}

func (s *Store) getBalance(ctx context.Context, q execer, key leave.BalanceKey) (*leave.Balance, error) {
	row := q.QueryRowContext(ctx,
		`SELECT employee_id, leave_type_id, year, allocated, used, pending, carryover, updated_at
		 FROM leave_balances WHERE employee_id = ? AND leave_type_id = ? AND year = ?`,
		key.EmployeeID, key.LeaveTypeID, key.Year,
	)
	b, err := scanBalance(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("balance %s/%s/%d: %w", key.EmployeeID, key.LeaveTypeID, key.Year, leave.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// scanBalance parses one row's decimal-string quantities exactly.
func scanBalance(scan func(dest ...any) error) (*leave.Balance, error) {
	var (
		b                               leave.Balance
		allocated, used, pending, carry string
		updatedAt                       string
	)
	if err := scan(&b.EmployeeID, &b.LeaveTypeID, &b.Year, &allocated, &used, &pending, &carry, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.Allocated, err = decimal.NewFromString(allocated); err != nil {
		return nil, fmt.Errorf("corrupt allocated quantity %q: %w", allocated, err)
	}
	if b.Used, err = decimal.NewFromString(used); err != nil {
		return nil, fmt.Errorf("corrupt used quantity %q: %w", used, err)
	}
	if b.Pending, err = decimal.NewFromString(pending); err != nil {
		return nil, fmt.Errorf("corrupt pending quantity %q: %w", pending, err)
	}
	if b.Carryover, err = decimal.NewFromString(carry); err != nil {
		return nil, fmt.Errorf("corrupt carryover quantity %q: %w", carry, err)
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

// ListBalances returns an employee's ledger rows for a year.
func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listBalances(ctx, s.db, employeeID, year)
}

func (s *Store) listBalances(ctx context.Context, q execer, employeeID string, year int) ([]leave.Balance, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT employee_id, leave_type_id, year, allocated, used, pending, carryover, updated_at
		 FROM leave_balances WHERE employee_id = ? AND year = ? ORDER BY leave_type_id`,
		employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows.Scan)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *b)
	}
	return balances, rows.Err()
}

// PutBalance creates or updates a ledger row's Allocated/Carryover,
// preserving Used/Pending on an existing row, and records the write in
// the audit log.
func (s *Store) PutBalance(ctx context.Context, b leave.Balance, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q execer) error {
		return s.putBalance(ctx, q, b, ref)
	})
}

func (s *Store) putBalance(ctx context.Context, q execer, b leave.Balance, ref string) error {
	query := `
		INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated, used, pending, carryover, updated_at)
		VALUES (?, ?, ?, ?, '0', '0', ?, ?)
		ON CONFLICT(employee_id, leave_type_id, year) DO UPDATE SET
			allocated = excluded.allocated,
			carryover = excluded.carryover,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		b.EmployeeID, b.LeaveTypeID, b.Year,
		b.Allocated.String(), b.Carryover.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put balance: %w", err)
	}
	if err := s.appendEntry(ctx, q, b.Key(), leave.OpAllocate, b.Allocated, ref); err != nil {
		return err
	}
	if b.Carryover.IsPositive() {
		return s.appendEntry(ctx, q, b.Key(), leave.OpCarryover, b.Carryover, ref)
	}
	return nil
}

// Reserve increments pending iff the derived available quantity stays
// non-negative. The row is read and re-written as exact decimal
// strings inside one transaction under the store's write lock, so the
// availability check runs in exact arithmetic with no read-then-write
// gap for a concurrent reservation to race past.
func (s *Store) Reserve(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q execer) error {
		return s.reserve(ctx, q, key, days, ref)
	})
}

func (s *Store) reserve(ctx context.Context, q execer, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	b, err := s.getBalance(ctx, q, key)
	if err != nil {
		return err
	}
	if b.Available().LessThan(days) {
		return &leave.InsufficientBalanceError{Key: key, Available: b.Available(), Requested: days}
	}
	b.Pending = b.Pending.Add(days)
	if err := s.writeQuantities(ctx, q, b); err != nil {
		return fmt.Errorf("failed to reserve: %w", err)
	}
	return s.appendEntry(ctx, q, key, leave.OpReserve, days, ref)
}

// Commit moves days from pending to used (approval).
func (s *Store) Commit(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q execer) error {
		return s.commit(ctx, q, key, days, ref)
	})
}

func (s *Store) commit(ctx context.Context, q execer, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	b, err := s.getBalance(ctx, q, key)
	if err != nil {
		return err
	}
	pending := b.Pending.Sub(days)
	if pending.IsNegative() {
		return negativeColumnErr(leave.OpCommit, days, key)
	}
	b.Pending = pending
	b.Used = b.Used.Add(days)
	if err := s.writeQuantities(ctx, q, b); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return s.appendEntry(ctx, q, key, leave.OpCommit, days, ref)
}

// Release decrements pending (rejection, cancel of a pending request).
func (s *Store) Release(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q execer) error {
		return s.release(ctx, q, key, days, ref)
	})
}

func (s *Store) release(ctx context.Context, q execer, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	b, err := s.getBalance(ctx, q, key)
	if err != nil {
		return err
	}
	pending := b.Pending.Sub(days)
	if pending.IsNegative() {
		return negativeColumnErr(leave.OpRelease, days, key)
	}
	b.Pending = pending
	if err := s.writeQuantities(ctx, q, b); err != nil {
		return fmt.Errorf("failed to release: %w", err)
	}
	return s.appendEntry(ctx, q, key, leave.OpRelease, days, ref)
}

// Revert decrements used (cancel of an approved request).
func (s *Store) Revert(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q execer) error {
		return s.revert(ctx, q, key, days, ref)
	})
}

func (s *Store) revert(ctx context.Context, q execer, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	b, err := s.getBalance(ctx, q, key)
	if err != nil {
		return err
	}
	used := b.Used.Sub(days)
	if used.IsNegative() {
		return negativeColumnErr(leave.OpRevert, days, key)
	}
	b.Used = used
	if err := s.writeQuantities(ctx, q, b); err != nil {
		return fmt.Errorf("failed to revert: %w", err)
	}
	return s.appendEntry(ctx, q, key, leave.OpRevert, days, ref)
}

// writeQuantities persists all four quantity columns of a balance row
// as decimal strings.
func (s *Store) writeQuantities(ctx context.Context, q execer, b *leave.Balance) error {
	_, err := q.ExecContext(ctx, `
		UPDATE leave_balances
		SET allocated = ?, used = ?, pending = ?, carryover = ?, updated_at = ?
		WHERE employee_id = ? AND leave_type_id = ? AND year = ?`,
		b.Allocated.String(), b.Used.String(), b.Pending.String(), b.Carryover.String(),
		time.Now().UTC().Format(time.RFC3339),
		b.EmployeeID, b.LeaveTypeID, b.Year,
	)
	return err
}

// A guard miss on commit, release or revert means the ledger and the
// request table disagree, which should be impossible when every
// transition goes through the state machine.
func negativeColumnErr(op leave.LedgerOp, days decimal.Decimal, key leave.BalanceKey) error {
	return fmt.Errorf("ledger %s of %s days on %s/%s/%d would drive a column negative",
		op, days, key.EmployeeID, key.LeaveTypeID, key.Year)
}

func (s *Store) appendEntry(ctx context.Context, q execer, key leave.BalanceKey, op leave.LedgerOp, days decimal.Decimal, ref string) error {
	query := `
		INSERT INTO ledger_entries (id, employee_id, leave_type_id, year, op, days, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id := "le-" + uuid.NewString()
	_, err := q.ExecContext(ctx, query,
		id, key.EmployeeID, key.LeaveTypeID, key.Year,
		string(op), days.String(), nullString(ref),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// LedgerEntries returns the audit trail for one ledger row, oldest
// first.
func (s *Store) LedgerEntries(ctx context.Context, key leave.BalanceKey) ([]leave.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledgerEntries(ctx, s.db, key)
}

func (s *Store) ledgerEntries(ctx context.Context, q execer, key leave.BalanceKey) ([]leave.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, employee_id, leave_type_id, year, op, days, reference_id, created_at
		 FROM ledger_entries
		 WHERE employee_id = ? AND leave_type_id = ? AND year = ?
		 ORDER BY created_at ASC, id ASC`,
		key.EmployeeID, key.LeaveTypeID, key.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []leave.LedgerEntry
	for rows.Next() {
		var (
			e               leave.LedgerEntry
			days, createdAt string
			ref             sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.LeaveTypeID, &e.Year, (*string)(&e.Op), &days, &ref, &createdAt); err != nil {
			return nil, err
		}
		e.Days, _ = decimal.NewFromString(days)
		e.ReferenceID = ref.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	ts := &txStore{tx: sqlTx, parent: s}
	if err := fn(ts); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// inTx runs fn in its own transaction. Callers hold the mutex.
func (s *Store) inTx(ctx context.Context, fn func(q execer) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transaction-scoped view handed to WithTx callbacks.
// It delegates to the parent's unexported helpers with the *sql.Tx; no
// locking here, WithTx already holds the write lock.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	return ts.parent.saveEmployee(ctx, ts.tx, emp)
}

func (ts *txStore) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	return ts.parent.getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	return ts.parent.listEmployees(ctx, ts.tx)
}

func (ts *txStore) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	return ts.parent.saveLeaveType(ctx, ts.tx, lt)
}

func (ts *txStore) GetLeaveType(ctx context.Context, id string) (*leave.LeaveType, error) {
	return ts.parent.getLeaveType(ctx, ts.tx, id)
}

func (ts *txStore) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	return ts.parent.listLeaveTypes(ctx, ts.tx)
}

func (ts *txStore) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	return ts.parent.insertRequest(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return ts.parent.getRequest(ctx, ts.tx, id)
}

func (ts *txStore) ListRequestsByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	return ts.parent.queryRequests(ctx, ts.tx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE employee_id = ? ORDER BY created_at DESC",
		employeeID)
}

func (ts *txStore) ListRequestsByStatus(ctx context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	return ts.parent.queryRequests(ctx, ts.tx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE status = ? ORDER BY created_at ASC",
		string(status))
}

func (ts *txStore) ListOverlapping(ctx context.Context, employeeID string, start, end leave.Date) ([]leave.LeaveRequest, error) {
	return ts.parent.listOverlapping(ctx, ts.tx, employeeID, start, end)
}

func (ts *txStore) TransitionRequest(ctx context.Context, id string, from, to leave.RequestStatus, patch leave.RequestPatch) error {
	return ts.parent.transitionRequest(ctx, ts.tx, id, from, to, patch)
}

func (ts *txStore) GetBalance(ctx context.Context, key leave.BalanceKey) (*leave.Balance, error) {
	return ts.parent.getBalance(ctx, ts.tx, key)
}

func (ts *txStore) ListBalances(ctx context.Context, employeeID string, year int) ([]leave.Balance, error) {
	return ts.parent.listBalances(ctx, ts.tx, employeeID, year)
}

func (ts *txStore) PutBalance(ctx context.Context, b leave.Balance, ref string) error {
	return ts.parent.putBalance(ctx, ts.tx, b, ref)
}

func (ts *txStore) Reserve(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	return ts.parent.reserve(ctx, ts.tx, key, days, ref)
}

func (ts *txStore) Commit(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	return ts.parent.commit(ctx, ts.tx, key, days, ref)
}

func (ts *txStore) Release(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	return ts.parent.release(ctx, ts.tx, key, days, ref)
}

func (ts *txStore) Revert(ctx context.Context, key leave.BalanceKey, days decimal.Decimal, ref string) error {
	return ts.parent.revert(ctx, ts.tx, key, days, ref)
}

func (ts *txStore) LedgerEntries(ctx context.Context, key leave.BalanceKey) ([]leave.LedgerEntry, error) {
	return ts.parent.ledgerEntries(ctx, ts.tx, key)
}

// =============================================================================
// HOLIDAY STORE (leave.HolidayCalendar)
// =============================================================================

// SaveHoliday inserts a holiday. Duplicate (country, date, name)
// triples are rejected by the unique index.
func (s *Store) SaveHoliday(ctx context.Context, h leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, country_code, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.CountryCode, h.Date.String(), h.Name, h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil && isUniqueConstraintError(err) {
		return fmt.Errorf("holiday %s on %s already exists for %s", h.Name, h.Date, h.CountryCode)
	}
	return err
}

// DeleteHoliday removes a holiday.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// IsHoliday checks if a date is a public holiday for the country.
// Country-less holidays ('') apply everywhere.
func (s *Store) IsHoliday(countryCode string, d leave.Date) bool {
	for _, h := range s.loadHolidays(countryCode) {
		if h.Matches(d) {
			return true
		}
	}
	return false
}

// Holidays returns the country's holidays for a year, with recurring
// holidays projected into that year.
func (s *Store) Holidays(countryCode string, year int) []leave.Holiday {
	var out []leave.Holiday
	for _, h := range s.loadHolidays(countryCode) {
		if h.Recurring {
			h.Date = leave.NewDate(year, h.Date.Month(), h.Date.Day())
			out = append(out, h)
			continue
		}
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) loadHolidays(countryCode string) []leave.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, country_code, date, name, recurring FROM holidays WHERE country_code IN (?, '')",
		countryCode)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		var date string
		if err := rows.Scan(&h.ID, &h.CountryCode, &date, &h.Name, &h.Recurring); err != nil {
			return nil
		}
		h.Date, _ = leave.ParseDate(date)
		holidays = append(holidays, h)
	}
	return holidays
}

// =============================================================================
// NOTIFIER STORE (notify.Store)
// =============================================================================

// SaveNotifier inserts or updates a document notifier.
func (s *Store) SaveNotifier(ctx context.Context, n notify.DocumentNotifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO document_notifiers
		(id, employee_id, document_id, subject, message, frequency, custom_interval_sec,
		 target_expiry, advance_notice_days, status, attempts, last_sent, next_due, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			subject = excluded.subject,
			message = excluded.message,
			frequency = excluded.frequency,
			custom_interval_sec = excluded.custom_interval_sec,
			target_expiry = excluded.target_expiry,
			advance_notice_days = excluded.advance_notice_days,
			status = excluded.status,
			next_due = excluded.next_due,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.EmployeeID, nullString(n.DocumentID), n.Subject, n.Message,
		string(n.Frequency), int64(n.CustomInterval/time.Second),
		nullTimeValue(n.TargetExpiry), n.AdvanceNoticeDays,
		string(n.Status), n.Attempts,
		nullTime(n.LastSent), nullTimeValue(n.NextDue),
		now, now,
	)
	return err
}

const notifierColumns = `id, employee_id, document_id, subject, message, frequency, custom_interval_sec,
	target_expiry, advance_notice_days, status, attempts, last_sent, next_due, created_at, updated_at`

// GetNotifier retrieves a notifier by ID.
func (s *Store) GetNotifier(ctx context.Context, id string) (*notify.DocumentNotifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+notifierColumns+" FROM document_notifiers WHERE id = ?", id)
	n, err := scanNotifier(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("notifier %s: %w", id, leave.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifiers returns an employee's notifiers.
func (s *Store) ListNotifiers(ctx context.Context, employeeID string) ([]notify.DocumentNotifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryNotifiers(ctx,
		"SELECT "+notifierColumns+" FROM document_notifiers WHERE employee_id = ? ORDER BY created_at",
		employeeID)
}

// ListDueNotifiers returns active notifiers whose next_due has passed.
func (s *Store) ListDueNotifiers(ctx context.Context, now time.Time) ([]notify.DocumentNotifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryNotifiers(ctx,
		"SELECT "+notifierColumns+` FROM document_notifiers
		 WHERE status = 'active' AND next_due IS NOT NULL AND next_due <= ?
		 ORDER BY next_due ASC`,
		now.UTC().Format(time.RFC3339))
}

func (s *Store) queryNotifiers(ctx context.Context, query string, args ...any) ([]notify.DocumentNotifier, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifiers []notify.DocumentNotifier
	for rows.Next() {
		n, err := scanNotifier(rows.Scan)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, *n)
	}
	return notifiers, rows.Err()
}

func scanNotifier(scan func(dest ...any) error) (*notify.DocumentNotifier, error) {
	var (
		n                    notify.DocumentNotifier
		intervalSec          int64
		documentID, message  sql.NullString
		expiry, last, due    sql.NullString
		createdAt, updatedAt string
	)
	err := scan(&n.ID, &n.EmployeeID, &documentID, &n.Subject, &message, (*string)(&n.Frequency), &intervalSec,
		&expiry, &n.AdvanceNoticeDays, (*string)(&n.Status), &n.Attempts, &last, &due, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	n.DocumentID = documentID.String
	n.Message = message.String
	n.CustomInterval = time.Duration(intervalSec) * time.Second
	if expiry.Valid {
		n.TargetExpiry, _ = time.Parse(time.RFC3339, expiry.String)
	}
	if last.Valid {
		t, _ := time.Parse(time.RFC3339, last.String)
		n.LastSent = &t
	}
	if due.Valid {
		n.NextDue, _ = time.Parse(time.RFC3339, due.String)
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	n.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &n, nil
}

// MarkSent records a successful dispatch: the notifier's schedule
// advances and the log entry lands in the same transaction. A zero
// nextDue ends the series (the target expired).
func (s *Store) MarkSent(ctx context.Context, notifierID string, sentAt, nextDue time.Time, entry notify.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(q execer) error {
		status := "active"
		if nextDue.IsZero() {
			status = "inactive"
		}
		res, err := q.ExecContext(ctx, `
			UPDATE document_notifiers
			SET last_sent = ?, next_due = ?, attempts = 0, status = ?, updated_at = ?
			WHERE id = ?`,
			sentAt.UTC().Format(time.RFC3339), nullTimeValue(nextDue), status,
			time.Now().UTC().Format(time.RFC3339), notifierID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("notifier %s: %w", notifierID, leave.ErrNotFound)
		}
		return s.appendLog(ctx, q, entry)
	})
}

// MarkFailed records a failed attempt: the retry time and attempt count
// advance with the log entry in one transaction. Terminal failures park
// the notifier until ResetNotifier.
func (s *Store) MarkFailed(ctx context.Context, notifierID string, retryAt time.Time, terminal bool, entry notify.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(q execer) error {
		status := "active"
		if terminal {
			status = "failed"
		}
		res, err := q.ExecContext(ctx, `
			UPDATE document_notifiers
			SET attempts = attempts + 1, next_due = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			retryAt.UTC().Format(time.RFC3339), status,
			time.Now().UTC().Format(time.RFC3339), notifierID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("notifier %s: %w", notifierID, leave.ErrNotFound)
		}
		return s.appendLog(ctx, q, entry)
	})
}

// ResetNotifier reactivates a parked notifier.
func (s *Store) ResetNotifier(ctx context.Context, notifierID string, nextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE document_notifiers
		SET attempts = 0, status = 'active', next_due = ?, updated_at = ?
		WHERE id = ?`,
		nextDue.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), notifierID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("notifier %s: %w", notifierID, leave.ErrNotFound)
	}
	return nil
}

// AppendLog writes one log entry.
func (s *Store) AppendLog(ctx context.Context, entry notify.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLog(ctx, s.db, entry)
}

func (s *Store) appendLog(ctx context.Context, q execer, entry notify.NotificationLog) error {
	query := `
		INSERT INTO notification_log
		(id, employee_id, kind, subject, message, reference, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		entry.ID, entry.EmployeeID, entry.Kind, entry.Subject, entry.Message,
		nullString(entry.Reference), string(entry.Status), nullString(entry.Error),
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}
	return nil
}

// ListLogs returns an employee's log entries, newest first.
func (s *Store) ListLogs(ctx context.Context, employeeID string, limit int) ([]notify.NotificationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, kind, subject, message, reference, status, error, created_at
		FROM notification_log
		WHERE employee_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		employeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []notify.NotificationLog
	for rows.Next() {
		var (
			entry                    notify.NotificationLog
			message, ref, errMsg     sql.NullString
			createdAt                string
		)
		if err := rows.Scan(&entry.ID, &entry.EmployeeID, &entry.Kind, &entry.Subject,
			&message, &ref, (*string)(&entry.Status), &errMsg, &createdAt); err != nil {
			return nil, err
		}
		entry.Message = message.String
		entry.Reference = ref.String
		entry.Error = errMsg.String
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// HasLogReference reports whether a sent entry with the reference
// exists.
func (s *Store) HasLogReference(ctx context.Context, reference string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notification_log WHERE reference = ? AND status = 'sent'",
		reference,
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// SWEEP LEASE
// =============================================================================

// AcquireSweepLease takes the singleton lease in one atomic upsert: the
// conflict branch only fires when the holder is us or the lease is
// older than ttl, so RowsAffected tells whether we hold it.
func (s *Store) AcquireSweepLease(ctx context.Context, owner string, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sweep_lease (id, owner, acquired_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			acquired_at = excluded.acquired_at
		WHERE sweep_lease.owner = excluded.owner
		   OR sweep_lease.acquired_at < ?
	`
	staleBefore := now.Add(-ttl).UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, query,
		owner, now.UTC().Format(time.RFC3339), staleBefore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseSweepLease releases the lease if the owner still holds it.
func (s *Store) ReleaseSweepLease(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM sweep_lease WHERE owner = ?", owner)
	return err
}

// =============================================================================
// LOW BALANCE SCAN (notify.BalanceSource)
// =============================================================================

// ListLowBalances returns ledger rows whose derived available quantity
// is below the threshold for the year. The quantities are decimal
// strings, so the comparison happens here in exact arithmetic rather
// than in SQL.
func (s *Store) ListLowBalances(ctx context.Context, year int, threshold decimal.Decimal) ([]notify.LowBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, leave_type_id, year, allocated, used, pending, carryover, updated_at
		FROM leave_balances
		WHERE year = ?
		ORDER BY employee_id, leave_type_id`,
		year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lows []notify.LowBalance
	for rows.Next() {
		b, err := scanBalance(rows.Scan)
		if err != nil {
			return nil, err
		}
		available := b.Available()
		if available.GreaterThanOrEqual(threshold) {
			continue
		}
		lows = append(lows, notify.LowBalance{
			EmployeeID:  b.EmployeeID,
			LeaveTypeID: b.LeaveTypeID,
			Year:        b.Year,
			Available:   available,
		})
	}
	return lows, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullTimeValue(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
