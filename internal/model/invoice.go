package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VerdictStatus is the outcome of auditing one invoice.
type VerdictStatus string

const (
	VerdictApproved             VerdictStatus = "APPROVED"
	VerdictServiceCodeViolation VerdictStatus = "SERVICE_CODE_VIOLATION"
)

// AuditVerdict is the audit outcome attached to an invoice. It carries a
// human-readable reason alongside the status.
type AuditVerdict struct {
	Status VerdictStatus `json:"status"`
	Reason string        `json:"reason"`
}

// Invoice is the canonical record extracted from one uploaded service
// invoice document. Immutable once audited; re-importing the same physical
// invoice creates a new record.
type Invoice struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`

	// Number is the invoice number, verbatim from the source document.
	Number int64 `json:"number"`

	// IssueDate is a calendar date; time-of-day from the source is dropped.
	IssueDate time.Time `json:"issue_date"`

	// ServiceCode is the municipal service code the issuer declared ("Cae").
	ServiceCode string `json:"service_code"`

	// TotalValue is kept as an exact decimal, never a binary float.
	TotalValue decimal.Decimal `json:"total_value"`

	ValidationKey string `json:"validation_key,omitempty"`
	PayerTaxID    string `json:"payer_tax_id,omitempty"`

	// RawXML retains the original document bytes for the audit trail.
	RawXML []byte `json:"-"`

	Verdict    AuditVerdict `json:"verdict"`
	ImportedAt time.Time    `json:"imported_at"`
}
