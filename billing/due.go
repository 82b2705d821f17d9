/*
due.go - The Due Calculator

PURPOSE:
  Turns a student's enrolled batch costs, discount and payment history into
  a Due breakdown. Side-effect free: the same inputs always give the same
  answer, so callers can run it inside a transaction snapshot and trust it.

RULES:
  InitialDue = sum of enrolled batch costs (a NULL cost counts as 0)
  Discount   = student discount (NULL counts as 0)
  TotalPaid  = sum of every payment amount, over the full history
  FinalDue   = InitialDue - Discount - TotalPaid

NEGATIVE FINAL DUE:
  A student with no batches but with payments ends up below zero. That is a
  data-entry inconsistency the UI should surface, so it is returned as is.

EXAMPLE:
  costs 5000 + 3000, discount 1000, no payments:
    InitialDue=8000 Discount=1000 TotalPaid=0 FinalDue=7000
*/
package billing

import "github.com/shopspring/decimal"

// Calculate computes the due breakdown.
func Calculate(costs []decimal.NullDecimal, discount decimal.NullDecimal, payments []decimal.Decimal) Due {
	initial := decimal.Zero
	for _, c := range costs {
		if c.Valid {
			initial = initial.Add(c.Decimal)
		}
	}

	disc := decimal.Zero
	if discount.Valid {
		disc = discount.Decimal
	}

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p)
	}

	return Due{
		InitialDue: initial,
		Discount:   disc,
		TotalPaid:  paid,
		FinalDue:   initial.Sub(disc).Sub(paid),
	}
}

// Costs wraps plain decimals as non-null costs.
func Costs(values ...decimal.Decimal) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewNullDecimal(v)
	}
	return out
}
