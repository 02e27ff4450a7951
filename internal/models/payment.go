package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment was made.
type PaymentMethod string

// Payment method enumeration
const (
	MethodCash       PaymentMethod = "cash"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodMobile     PaymentMethod = "mobile"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodDebitCard, MethodMobile:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle state of a single payment.
type PaymentStatus string

// Payment status enumeration
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment is one of possibly several payments against a session.
//
// Invariants: RefundAmount never exceeds Amount, and a refund can only be
// issued from a completed payment.
type Payment struct {
	ID           string          `json:"id" validate:"required,uuid4"`
	SessionID    string          `json:"session_id" validate:"required,uuid4"`
	Amount       decimal.Decimal `json:"amount"`
	Method       PaymentMethod   `json:"method"`
	Status       PaymentStatus   `json:"status"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NaturalKey returns the payment id, stable across stores.
func (p *Payment) NaturalKey() string { return p.ID }

// Validate checks enum values and the refund invariants.
func (p *Payment) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid payment %s: %w", p.ID, err)
	}
	if !p.Method.Valid() {
		return fmt.Errorf("invalid payment %s: unknown method %q", p.ID, p.Method)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid payment %s: unknown status %q", p.ID, p.Status)
	}
	if p.Amount.IsNegative() {
		return fmt.Errorf("invalid payment %s: negative amount %s", p.ID, p.Amount)
	}
	if p.RefundAmount.IsNegative() {
		return fmt.Errorf("invalid payment %s: negative refund %s", p.ID, p.RefundAmount)
	}
	if p.RefundAmount.GreaterThan(p.Amount) {
		return fmt.Errorf("invalid payment %s: refund %s exceeds amount %s", p.ID, p.RefundAmount, p.Amount)
	}
	if p.RefundAmount.IsPositive() && p.Status != PaymentStatusRefunded && p.Status != PaymentStatusCompleted {
		return fmt.Errorf("invalid payment %s: refund from status %q", p.ID, p.Status)
	}
	return nil
}
