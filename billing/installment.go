/*
installment.go - Installment numbering and payment amount rules

INSTALLMENT NUMBERS:
  Per student the sequence is 1, 2, 3, ... with no gaps and no duplicates.
  NextInstallment only does the arithmetic; the caller must read the last
  number and insert the new row while holding the student's lock, otherwise
  two concurrent payments both see the same "last" number.

AMOUNT RULES:
  New payment:     amount > 0
  Edited payment:  amount >= 0
  Every amount:    at most 2 decimal places and below MaxAmount, the range
                   of the NUMERIC(12, 2) money columns. CheckMoney applies
                   the same limits to costs and discounts.

OVERDRAFT:
  A payment is accepted only if FinalDue - amount >= 0. CheckPayment
  returns *OverdraftError otherwise.
*/
package billing

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places money is kept to.
const MoneyScale = 2

// MaxAmount is the first value too large to store.
var MaxAmount = decimal.New(1, 10)

// NextInstallment returns the number following last. last is 0 when the
// student has no payments yet.
func NextInstallment(last int) int {
	if last < 0 {
		last = 0
	}
	return last + 1
}

// ValidateNewAmount checks the amount of a payment about to be created.
func ValidateNewAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &AmountError{Amount: amount, Rule: "amount must be a positive number"}
	}
	return CheckMoney(amount)
}

// ValidateEditedAmount checks the amount of an existing payment being edited.
func ValidateEditedAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &AmountError{Amount: amount, Rule: "amount must be a non-negative number"}
	}
	return CheckMoney(amount)
}

// CheckMoney rejects values that cannot be stored exactly: more than
// MoneyScale decimal places, or a magnitude of MaxAmount or more.
func CheckMoney(v decimal.Decimal) error {
	if !v.Equal(v.Round(MoneyScale)) {
		return &AmountError{Amount: v, Rule: "at most 2 decimal places are allowed"}
	}
	if v.Abs().GreaterThanOrEqual(MaxAmount) {
		return &AmountError{Amount: v, Rule: "must be less than " + MaxAmount.String()}
	}
	return nil
}

// CheckPayment projects the due after paying amount and rejects the
// payment if the final due would go below zero.
func CheckPayment(current Due, amount decimal.Decimal) (Due, error) {
	projected := current.AfterPayment(amount)
	if projected.Overdrawn() {
		return current, &OverdraftError{
			FinalDue:  current.FinalDue,
			Requested: amount,
			Excess:    projected.FinalDue.Neg(),
		}
	}
	return projected, nil
}

// CheckEdit applies an amount change to an existing payment. Raising the
// amount is rejected if the final due would go below zero; lowering it is
// always accepted since it can only move the due up.
func CheckEdit(current Due, oldAmount, newAmount decimal.Decimal) (Due, error) {
	delta := newAmount.Sub(oldAmount)
	if !delta.IsPositive() {
		return current.AfterPayment(delta), nil
	}
	return CheckPayment(current, delta)
}
