/*
rules.go - Typed accrual rule configuration

PURPOSE:
  Accrual rules arrive as configuration (JSON in the leave_types table or
  an admin request body). Instead of passing the blob around and
  interpreting it at use time, the rule is parsed into a typed struct and
  validated once, at configuration-load time. Anything that survives
  ParseAccrualRule is safe for the accrual engine to consume blindly.

RULE KINDS:
  annual:          DefaultAllocationDays granted for the year, optionally
                   prorated in the hire year
  monthly:         Rate days accrued per month since hire
  per_pay_period:  Rate days accrued per biweekly pay period since hire

SEE ALSO:
  - accrual.go: consumes validated rules
*/
package leave

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL RULE - Tagged union, one variant per accrual kind
// =============================================================================

type AccrualKind string

const (
	AccrualAnnual       AccrualKind = "annual"
	AccrualMonthly      AccrualKind = "monthly"
	AccrualPerPayPeriod AccrualKind = "per_pay_period"
)

// AccrualRule is the validated accrual configuration for a leave type.
type AccrualRule struct {
	Kind AccrualKind `json:"kind"`

	// Rate is the days accrued per period. Unused for annual rules,
	// where DefaultAllocationDays on the leave type governs.
	Rate decimal.Decimal `json:"rate"`

	// ProrateFirstYear prorates the hire-year allocation by the months
	// remaining after the hire month. Annual rules only.
	ProrateFirstYear bool `json:"prorate_first_year,omitempty"`

	// MaxAccrualCap clamps the accumulated allocation. Nil means
	// uncapped.
	MaxAccrualCap *decimal.Decimal `json:"max_accrual_cap,omitempty"`
}

// Validate checks the rule at configuration-load time so use sites never
// have to.
func (r AccrualRule) Validate() error {
	switch r.Kind {
	case AccrualAnnual:
		// Rate is ignored; nothing more to check.
	case AccrualMonthly, AccrualPerPayPeriod:
		if r.Rate.IsNegative() || r.Rate.IsZero() {
			return fmt.Errorf("accrual rule %q requires a positive rate, got %s", r.Kind, r.Rate.String())
		}
	default:
		return fmt.Errorf("unknown accrual kind %q", r.Kind)
	}

	if r.MaxAccrualCap != nil && r.MaxAccrualCap.IsNegative() {
		return fmt.Errorf("accrual cap must be non-negative, got %s", r.MaxAccrualCap.String())
	}
	return nil
}

// ParseAccrualRule decodes and validates a JSON rule blob.
func ParseAccrualRule(data []byte) (AccrualRule, error) {
	var r AccrualRule
	if err := json.Unmarshal(data, &r); err != nil {
		return AccrualRule{}, fmt.Errorf("failed to parse accrual rule: %w", err)
	}
	if err := r.Validate(); err != nil {
		return AccrualRule{}, err
	}
	return r, nil
}

// JSON encodes the rule for storage.
func (r AccrualRule) JSON() string {
	b, _ := json.Marshal(r)
	return string(b)
}
