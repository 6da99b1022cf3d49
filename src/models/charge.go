package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeStatus represents the lifecycle state of a charge.
// A charge is created pending, reaches exactly one terminal state, and
// never re-enters pending.
type ChargeStatus string

const (
	ChargeStatusPending  ChargeStatus = "pending"
	ChargeStatusCaptured ChargeStatus = "captured"
	ChargeStatusFailed   ChargeStatus = "failed"
	ChargeStatusRefunded ChargeStatus = "refunded"
)

// Charge is the persisted record of a fee being collected. The ID doubles
// as the idempotency key: the same key submitted twice must resolve to the
// same record, never a second capture.
type Charge struct {
	ID       string    `json:"id" db:"id"` // Caller-supplied idempotency key
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`

	FeeCode    string          `json:"fee_code" db:"fee_code"`
	Quantity   int64           `json:"quantity" db:"quantity"`
	BaseAmount decimal.Decimal `json:"base_amount" db:"base_amount"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Currency   string          `json:"currency" db:"currency"`

	Status        ChargeStatus `json:"status" db:"status"`
	FailureReason *string      `json:"failure_reason,omitempty" db:"failure_reason"`

	// External payment collaborator tracking
	PaymentMethodRef  string  `json:"payment_method_ref" db:"payment_method_ref"`
	ExternalReference *string `json:"external_reference,omitempty" db:"external_reference"`

	// What business event triggered the charge, e.g. "tax_report"
	ReferenceType *string    `json:"reference_type,omitempty" db:"reference_type"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty" db:"reference_id"`

	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`

	InvoiceID *uuid.UUID `json:"invoice_id,omitempty" db:"invoice_id"`

	// Refund tracking
	RefundedAt   *time.Time       `json:"refunded_at,omitempty" db:"refunded_at"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty" db:"refund_amount"`
	RefundReason *string          `json:"refund_reason,omitempty" db:"refund_reason"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	CapturedAt *time.Time `json:"captured_at,omitempty" db:"captured_at"`
	FailedAt   *time.Time `json:"failed_at,omitempty" db:"failed_at"`
}

// CanTransitionTo reports whether the charge may move to the given status.
// pending -> captured | failed, failed -> captured | failed (retry),
// captured -> refunded. Nothing ever transitions back to pending.
func (c *Charge) CanTransitionTo(next ChargeStatus) bool {
	switch c.Status {
	case ChargeStatusPending:
		return next == ChargeStatusCaptured || next == ChargeStatusFailed
	case ChargeStatusFailed:
		return next == ChargeStatusCaptured || next == ChargeStatusFailed
	case ChargeStatusCaptured:
		return next == ChargeStatusRefunded
	default:
		return false
	}
}

// IsTerminal reports whether the charge has reached a state that a plain
// retry must return unchanged.
func (c *Charge) IsTerminal() bool {
	return c.Status == ChargeStatusCaptured || c.Status == ChargeStatusRefunded
}

// Matches reports whether a charge request with the given fee code, amount
// and currency is the same logical charge as this record. A mismatch means
// the idempotency key is being reused for a different charge.
func (c *Charge) Matches(feeCode string, amount decimal.Decimal, currency string) bool {
	return c.FeeCode == feeCode && c.Amount.Equal(amount) && c.Currency == currency
}
