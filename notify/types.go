/*
types.go - Notification domain types

PURPOSE:
  Defines the notifier records the sweep operates on and the immutable
  log it writes. A notifier is a standing instruction ("remind this
  employee about this document on this cadence"); the log is the record
  of every attempt, successful or not.

SEE ALSO:
  - scheduler.go: the sweep that consumes these types
*/
package notify

import (
	"context"
	"log"
	"time"
)

// =============================================================================
// NOTIFIER
// =============================================================================

// Frequency is the cadence of a recurring notifier.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// IntervalFor returns the duration between sends. Custom frequencies
// carry their own interval; zero falls back to weekly.
func (f Frequency) IntervalFor(custom time.Duration) time.Duration {
	switch f {
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	case FrequencyCustom:
		if custom > 0 {
			return custom
		}
		fallthrough
	default:
		return 7 * 24 * time.Hour
	}
}

type NotifierStatus string

const (
	NotifierActive   NotifierStatus = "active"
	NotifierInactive NotifierStatus = "inactive"
	NotifierFailed   NotifierStatus = "failed"
)

// DocumentNotifier is a standing reminder about an expiring document
// or deadline. The sweep picks it up once NextDue passes.
type DocumentNotifier struct {
	ID         string
	EmployeeID string

	// DocumentID references the document the reminder is about
	// (passport, visa, certification). Optional for free-standing
	// deadlines.
	DocumentID string

	Subject string
	Message string

	Frequency      Frequency
	CustomInterval time.Duration

	// TargetExpiry caps the reminder series: no send is scheduled
	// past it.
	TargetExpiry time.Time

	// AdvanceNoticeDays opens the reminder window: the first send is
	// scheduled that many days ahead of TargetExpiry. Zero means the
	// series starts immediately.
	AdvanceNoticeDays int

	Status   NotifierStatus
	Attempts int
	LastSent *time.Time
	NextDue  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FirstDue returns when the reminder series opens: AdvanceNoticeDays
// ahead of TargetExpiry when both are set, otherwise now. A window
// already underway starts immediately.
func (n DocumentNotifier) FirstDue(now time.Time) time.Time {
	if n.TargetExpiry.IsZero() || n.AdvanceNoticeDays <= 0 {
		return now
	}
	start := n.TargetExpiry.AddDate(0, 0, -n.AdvanceNoticeDays)
	if start.After(now) {
		return start
	}
	return now
}

// NextAfter returns the due time following a send at sent. The slot is
// clamped to TargetExpiry so the final reminder lands on the expiry
// itself; a send at or past the expiry ends the series (zero time).
func (n DocumentNotifier) NextAfter(sent time.Time) time.Time {
	next := sent.Add(n.Frequency.IntervalFor(n.CustomInterval))
	if n.TargetExpiry.IsZero() || !next.After(n.TargetExpiry) {
		return next
	}
	if sent.Before(n.TargetExpiry) {
		return n.TargetExpiry
	}
	return time.Time{}
}

// =============================================================================
// LOG
// =============================================================================

type LogStatus string

const (
	LogSent     LogStatus = "sent"
	LogFailed   LogStatus = "failed"
	LogPending  LogStatus = "pending"
	LogRetrying LogStatus = "retrying"
)

// NotificationLog is one attempt. Reference ties the entry back to
// what triggered it (a notifier id, or a balance key for low-balance
// warnings).
type NotificationLog struct {
	ID         string
	EmployeeID string
	Kind       string
	Subject    string
	Message    string
	Reference  string
	Status     LogStatus
	Error      string
	CreatedAt  time.Time
}

const (
	KindDocumentReminder = "document_reminder"
	KindBalanceLow       = "balance_low"
)

// =============================================================================
// DISPATCH
// =============================================================================

// Dispatcher delivers a notification to its channel (mail, chat, ...).
// Send must respect ctx cancellation; the sweep bounds each attempt
// with a timeout.
type Dispatcher interface {
	Send(ctx context.Context, employeeID, subject, message string) error
}

// LogDispatcher writes deliveries to the process log. The default in
// development and the stand-in when no mail transport is configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, employeeID, subject, _ string) error {
	log.Printf("[Notify] -> %s: %s", employeeID, subject)
	return nil
}
