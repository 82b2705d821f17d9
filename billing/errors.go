/*
errors.go - Error types for the billing engine

Domain packages map these onto their own taxonomy:
  ErrInvalidAmount -> validation failure
  ErrOverdraft     -> business-rule violation
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when a payment amount breaks an amount rule.
	ErrInvalidAmount = errors.New("invalid payment amount")

	// ErrOverdraft is returned when a payment would push the final due below zero.
	ErrOverdraft = errors.New("final due cannot be less than zero")
)

// AmountError carries the rejected amount and the rule it broke.
type AmountError struct {
	Amount decimal.Decimal
	Rule   string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("%s (got %s)", e.Rule, e.Amount.String())
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// OverdraftError provides details about a rejected payment.
type OverdraftError struct {
	FinalDue  decimal.Decimal
	Requested decimal.Decimal
	Excess    decimal.Decimal
}

func (e *OverdraftError) Error() string {
	return fmt.Sprintf("final due cannot be less than zero: outstanding %s, payment %s exceeds it by %s",
		e.FinalDue.String(), e.Requested.String(), e.Excess.String())
}

func (e *OverdraftError) Unwrap() error { return ErrOverdraft }
