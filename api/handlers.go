/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List all employees
    POST   /api/employees                    Create employee
    GET    /api/employees/{id}               Get employee details
    GET    /api/employees/{id}/balance       Balances for a year (?year=)
    GET    /api/employees/{id}/ledger        Ledger audit trail (?leaveType=&year=)
    GET    /api/employees/{id}/requests      Request history
    GET    /api/employees/{id}/notifications Notification log

  Leave types:
    GET    /api/leave-types                  List leave types
    POST   /api/leave-types                  Create/update a leave type

  Requests:
    POST   /api/requests                     Submit a request
    POST   /api/requests/validate            Dry-run validation
    GET    /api/requests/pending             Approval queue
    GET    /api/requests/{id}                Get one request
    POST   /api/requests/{id}/approve        Approve
    POST   /api/requests/{id}/reject         Reject (reason required)
    POST   /api/requests/{id}/cancel         Cancel

  Holidays:
    GET    /api/holidays                     List (?country=&year=)
    POST   /api/holidays                     Create
    DELETE /api/holidays/{id}                Delete

  Notifiers:
    POST   /api/notifiers                    Create a document notifier
    GET    /api/notifiers/{id}               Get one
    POST   /api/notifiers/{id}/reset         Reactivate a failed notifier

  Admin:
    POST   /api/admin/rollover               Provision balances for a year
    POST   /api/admin/sweep                  Run a notification sweep now

ERROR HANDLING:
  Domain errors map to HTTP status by category:
  - 400: Validation failures (full issue list in the body)
  - 403: Unauthorized actor
  - 404: Missing records
  - 409: Insufficient balance, illegal/raced transitions
  - 500: Everything else

SECURITY NOTE:
  No authentication middleware. Actor identity rides in request bodies;
  an API gateway is expected to establish it in production.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peopleops/leave-engine/leave"
	"github.com/peopleops/leave-engine/notify"
	"github.com/peopleops/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Validator   *leave.Validator
	Lifecycle   *leave.StateMachine
	Provisioner *leave.Provisioner
	Scheduler   *notify.Scheduler

	Country string
}

// NewHandler wires the domain components around a store.
func NewHandler(store *sqlite.Store, scheduler *notify.Scheduler, country string) *Handler {
	validator := leave.NewValidator(store, store, country)
	return &Handler{
		Store:       store,
		Validator:   validator,
		Lifecycle:   leave.NewStateMachine(store, validator, NewManagerAuthority(store)),
		Provisioner: leave.NewProvisioner(store, leave.NewAccrualEngine()),
		Scheduler:   scheduler,
		Country:     country,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	hireDate, err := leave.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hireDate format (use YYYY-MM-DD)", err)
		return
	}
	role := leave.Role(req.Role)
	if role == "" {
		role = leave.RoleEmployee
	}
	switch role {
	case leave.RoleEmployee, leave.RoleManager, leave.RoleHR, leave.RoleAdmin:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown role %q", req.Role), nil)
		return
	}

	emp := leave.Employee{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		ManagerID: req.ManagerID,
		HireDate:  hireDate,
		CreatedAt: time.Now().UTC(),
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetBalances returns an employee's balances for a year, provisioning
// missing rows from accrual policy on the way.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	year := yearParam(r, time.Now().Year())

	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}

	// Make sure every active leave type has a row before reading.
	types, err := h.Store.ListLeaveTypes(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}
	for _, lt := range types {
		if !lt.Active {
			continue
		}
		key := leave.BalanceKey{EmployeeID: id, LeaveTypeID: lt.ID, Year: year}
		if _, err := h.Provisioner.EnsureBalance(ctx, key); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to provision balance", err)
			return
		}
	}

	balances, err := h.Store.ListBalances(ctx, id, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list balances", err)
		return
	}
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLedger returns the audit trail for one balance row.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	leaveTypeID := r.URL.Query().Get("leaveType")
	if leaveTypeID == "" {
		writeError(w, http.StatusBadRequest, "leaveType query parameter is required", nil)
		return
	}
	year := yearParam(r, time.Now().Year())

	entries, err := h.Store.LedgerEntries(r.Context(), leave.BalanceKey{
		EmployeeID: id, LeaveTypeID: leaveTypeID, Year: year,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = LedgerEntryDTO{
			ID:          e.ID,
			Op:          string(e.Op),
			Days:        e.Days.String(),
			ReferenceID: e.ReferenceID,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListEmployeeRequests returns an employee's request history.
func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	requests, err := h.Store.ListRequestsByEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListEmployeeNotifications returns an employee's notification log.
func (h *Handler) ListEmployeeNotifications(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.Store.ListLogs(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// =============================================================================
// LEAVE TYPE HANDLERS
// =============================================================================

// ListLeaveTypes returns all leave types.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}
	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = toLeaveTypeDTO(lt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLeaveType creates or updates a leave type. The accrual rule is
// validated before anything persists.
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Code and name are required", nil)
		return
	}
	allocation, err := decimal.NewFromString(orZero(req.DefaultAllocationDays))
	if err != nil || allocation.IsNegative() {
		writeError(w, http.StatusBadRequest, "defaultAllocationDays must be a non-negative number", err)
		return
	}
	carryover, err := decimal.NewFromString(orZero(req.MaxCarryoverDays))
	if err != nil || carryover.IsNegative() {
		writeError(w, http.StatusBadRequest, "maxCarryoverDays must be a non-negative number", err)
		return
	}
	if err := req.Accrual.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid accrual rule", err)
		return
	}

	lt := leave.LeaveType{
		ID:                    req.ID,
		Code:                  req.Code,
		Name:                  req.Name,
		DefaultAllocationDays: allocation,
		MaxCarryoverDays:      carryover,
		MaxRequestDays:        req.MaxRequestDays,
		Accrual:               req.Accrual,
		RequiresApproval:      true,
		Active:                true,
		CreatedAt:             time.Now().UTC(),
	}
	if req.RequiresApproval != nil {
		lt.RequiresApproval = *req.RequiresApproval
	}
	if req.Active != nil {
		lt.Active = *req.Active
	}
	if lt.ID == "" {
		lt.ID = uuid.NewString()
	}

	if err := h.Store.SaveLeaveType(r.Context(), lt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save leave type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(lt))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

func (h *Handler) parseRequestInput(w http.ResponseWriter, r *http.Request) (*leave.RequestInput, bool) {
	var req SubmitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	if req.EmployeeID == "" || req.LeaveTypeID == "" {
		writeError(w, http.StatusBadRequest, "employeeId and leaveTypeId are required", nil)
		return nil, false
	}
	start, err := leave.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate format (use YYYY-MM-DD)", err)
		return nil, false
	}
	end, err := leave.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid endDate format (use YYYY-MM-DD)", err)
		return nil, false
	}
	return &leave.RequestInput{
		EmployeeID:  req.EmployeeID,
		LeaveTypeID: req.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
	}, true
}

// SubmitRequest validates and creates a request, reserving its days.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, ok := h.parseRequestInput(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.GetEmployee(ctx, in.EmployeeID); err != nil {
		writeDomainError(w, err)
		return
	}

	// Provision the target year's row so first requests of a year
	// don't fail on a missing balance.
	key := leave.BalanceKey{EmployeeID: in.EmployeeID, LeaveTypeID: in.LeaveTypeID, Year: in.StartDate.Year()}
	if _, err := h.Provisioner.EnsureBalance(ctx, key); err != nil && !leave.IsNotFound(err) {
		writeError(w, http.StatusInternalServerError, "Failed to provision balance", err)
		return
	}

	req, err := h.Lifecycle.Create(ctx, *in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*req))
}

// ValidateRequest runs the full rule set without creating anything.
func (h *Handler) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, ok := h.parseRequestInput(w, r)
	if !ok {
		return
	}

	key := leave.BalanceKey{EmployeeID: in.EmployeeID, LeaveTypeID: in.LeaveTypeID, Year: in.StartDate.Year()}
	if _, err := h.Provisioner.EnsureBalance(ctx, key); err != nil && !leave.IsNotFound(err) {
		writeError(w, http.StatusInternalServerError, "Failed to provision balance", err)
		return
	}

	res, err := h.Validator.Validate(ctx, *in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Validation error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               res.OK(),
		"workingDays":      res.WorkingDays,
		"availableBalance": res.AvailableBalance,
		"issues":           res.Issues,
	})
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Store.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// ListPendingRequests returns the approval queue, oldest first.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListRequestsByStatus(r.Context(), leave.StatusPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending requests", err)
		return
	}
	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var body DecideRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.ApproverID == "" {
		writeError(w, http.StatusBadRequest, "approverId is required", nil)
		return
	}

	req, err := h.Lifecycle.Approve(r.Context(), chi.URLParam(r, "id"), body.ApproverID, body.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// RejectRequest rejects a pending request. A reason is required.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var body DecideRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.ApproverID == "" {
		writeError(w, http.StatusBadRequest, "approverId is required", nil)
		return
	}

	req, err := h.Lifecycle.Reject(r.Context(), chi.URLParam(r, "id"), body.ApproverID, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// CancelRequest cancels a pending or approved request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	var body CancelRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actorId is required", nil)
		return
	}
	actor, err := h.Store.GetEmployee(r.Context(), body.ActorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	req, err := h.Lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"), *actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns a country's holidays for a year.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		country = h.Country
	}
	year := yearParam(r, time.Now().Year())

	holidays := h.Store.Holidays(country, year)
	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{
			ID:          hd.ID,
			CountryCode: hd.CountryCode,
			Date:        hd.Date.String(),
			Name:        hd.Name,
			Recurring:   hd.Recurring,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	date, err := leave.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := leave.Holiday{
		ID:          uuid.NewString(),
		CountryCode: req.CountryCode,
		Date:        date,
		Name:        req.Name,
		Recurring:   req.Recurring,
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusConflict, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:          holiday.ID,
		CountryCode: holiday.CountryCode,
		Date:        holiday.Date.String(),
		Name:        holiday.Name,
		Recurring:   holiday.Recurring,
	})
}

// DeleteHoliday removes a holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// NOTIFIER HANDLERS
// =============================================================================

// CreateNotifier registers a standing document reminder.
func (h *Handler) CreateNotifier(w http.ResponseWriter, r *http.Request) {
	var req CreateNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.Subject == "" {
		writeError(w, http.StatusBadRequest, "employeeId and subject are required", nil)
		return
	}
	freq := notify.Frequency(req.Frequency)
	switch freq {
	case notify.FrequencyWeekly, notify.FrequencyMonthly, notify.FrequencyCustom:
	case "":
		freq = notify.FrequencyWeekly
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown frequency %q", req.Frequency), nil)
		return
	}
	if _, err := h.Store.GetEmployee(r.Context(), req.EmployeeID); err != nil {
		writeDomainError(w, err)
		return
	}

	if req.AdvanceNoticeDays < 0 {
		writeError(w, http.StatusBadRequest, "advanceNoticeDays must not be negative", nil)
		return
	}

	now := time.Now().UTC()
	n := notify.DocumentNotifier{
		ID:                uuid.NewString(),
		EmployeeID:        req.EmployeeID,
		DocumentID:        req.DocumentID,
		Subject:           req.Subject,
		Message:           req.Message,
		Frequency:         freq,
		CustomInterval:    time.Duration(req.CustomIntervalSec) * time.Second,
		AdvanceNoticeDays: req.AdvanceNoticeDays,
		Status:            notify.NotifierActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.TargetExpiry != "" {
		t, err := time.Parse(time.RFC3339, req.TargetExpiry)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid targetExpiry (use RFC3339)", err)
			return
		}
		n.TargetExpiry = t
	}
	// Reminders start at the advance-notice window's opening unless an
	// explicit first due time overrides it.
	n.NextDue = n.FirstDue(now)
	if req.FirstDue != "" {
		t, err := time.Parse(time.RFC3339, req.FirstDue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid firstDue (use RFC3339)", err)
			return
		}
		n.NextDue = t
	}

	if err := h.Store.SaveNotifier(r.Context(), n); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save notifier", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNotifierDTO(n))
}

// GetNotifier returns one notifier.
func (h *Handler) GetNotifier(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.GetNotifier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotifierDTO(*n))
}

// ResetNotifier reactivates a failed notifier.
func (h *Handler) ResetNotifier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.ResetNotifier(r.Context(), id, time.Now().UTC()); err != nil {
		writeDomainError(w, err)
		return
	}
	n, err := h.Store.GetNotifier(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotifierDTO(*n))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerRollover provisions balances for a year across all employees
// and active leave types.
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	var req RolloverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year == 0 {
		req.Year = time.Now().Year() + 1
	}

	created, err := h.Provisioner.Rollover(r.Context(), req.Year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RolloverResponse{Year: req.Year, Created: created})
}

// TriggerSweep runs one notification sweep immediately.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Notification scheduler is not configured", nil)
		return
	}
	if err := h.Scheduler.Sweep(r.Context()); err != nil {
		if errors.Is(err, notify.ErrSweepAlreadyRunning) {
			writeError(w, http.StatusConflict, "A sweep is already running", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// =============================================================================
// HELPERS
// =============================================================================

func yearParam(r *http.Request, fallback int) int {
	if y := r.URL.Query().Get("year"); y != "" {
		if year, err := strconv.Atoi(y); err == nil {
			return year
		}
	}
	return fallback
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	var vres *leave.ValidationResult
	if errors.As(err, &vres) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Issues: vres.Issues,
		})
		return
	}

	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, leave.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "Insufficient balance", err)
	case errors.Is(err, leave.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "Illegal transition", err)
	case errors.Is(err, leave.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
