/*
Package billing provides the money engine behind student dues and payments.

PURPOSE:
  This package holds the pure arithmetic of the payment ledger. It never
  touches storage: callers load batch costs, the discount and the payment
  history, hand them over, and get back a due breakdown or a verdict on
  whether a payment may be posted.

KEY CONCEPTS IN THIS FILE (types.go):
  - Due: the four-part breakdown of what a student owes

DUE IDENTITY:
  FinalDue = InitialDue - Discount - TotalPaid

  InitialDue is the gross cost of the batches the student is enrolled in
  right now. Enrollment, cost and discount all change independently of the
  ledger, so the breakdown is recomputed on every read and never stored.

PRECISION:
  All amounts are decimal.Decimal. Costs of 0.1 + 0.2 must equal 0.3.

SEE ALSO:
  - due.go: Calculate, the Due Calculator
  - installment.go: installment numbering and payment amount rules
  - portal/payments.go: transactional coordinator built on this package
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DUE - Computed breakdown, never persisted
// =============================================================================

// Due is the breakdown of a student's outstanding balance.
type Due struct {
	InitialDue decimal.Decimal
	Discount   decimal.Decimal
	TotalPaid  decimal.Decimal
	FinalDue   decimal.Decimal
}

// AfterPayment returns the breakdown as it would look once amount is paid.
func (d Due) AfterPayment(amount decimal.Decimal) Due {
	d.TotalPaid = d.TotalPaid.Add(amount)
	d.FinalDue = d.FinalDue.Sub(amount)
	return d
}

// Settled reports whether nothing is left to pay.
func (d Due) Settled() bool { return !d.FinalDue.IsPositive() }

// Overdrawn reports whether payments exceed what is owed.
func (d Due) Overdrawn() bool { return d.FinalDue.IsNegative() }
