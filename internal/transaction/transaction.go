package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
)

// LocalPrefix marks identifiers assigned while the store was unreachable.
const LocalPrefix = "local_"

// IsLocalID reports whether id was synthesized in degraded mode and has no
// row behind it.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}

// Status represents the verification state of a transaction.
type Status string

const (
	StatusPending                  Status = "PENDING"
	StatusPendingAdminVerification Status = "PENDING_ADMIN_VERIFICATION"
	StatusSuccess                  Status = "SUCCESS"
	StatusFailed                   Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPendingAdminVerification, StatusSuccess, StatusFailed:
		return true
	}

	return false
}

// openStatuses are the states a claim or a verification may start from.
var openStatuses = []Status{StatusPending, StatusPendingAdminVerification}

// Transaction is one attempt to pay a fee through a QR payment.
type Transaction struct {
	ID             string
	OrganizationID string
	StudentID      string
	ReferenceCode  string
	Amount         decimal.Decimal
	RoutingID      string
	FeeComponent   string
	AcademicPeriod string
	PaymentDate    time.Time
	PaymentPayload string
	Status         Status

	ClaimNotes        string
	AdminID           *string
	VerifiedAt        *time.Time
	VerificationNotes *string
	BankReference     *string

	LedgerEntryID *string
	// LedgerEntry is populated by a successful verification.
	LedgerEntry   *ledger.Entry

	// Local marks a record, or a state change, that exists only in the
	// response and was never written to the store.
	Local bool

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// NeedsReconciliation reports whether staff must reconcile this record by
// hand: it was synthesized locally, or it succeeded without a ledger link.
func (t *Transaction) NeedsReconciliation() bool {
	if t.Local {
		return true
	}

	if t.LedgerEntry != nil && t.LedgerEntry.Local {
		return true
	}

	return t.Status == StatusSuccess && t.LedgerEntryID == nil
}

// Draft is what a payer-facing flow submits to start a payment.
type Draft struct {
	OrganizationID string
	StudentID      string
	// StudentName and Seed make the payment note and reference code readable.
	StudentName    string
	Seed           string
	FeeComponent   string
	Amount         decimal.Decimal
	AcademicPeriod string
	PaymentDate    time.Time
	// PaymentPayload is kept as-is when set; otherwise a UPI URI is built.
	PaymentPayload string
}

type VerifyParams struct {
	Decision      Status
	AdminID       string
	Notes         string
	BankReference string
	// VerifiedAmount is the amount staff saw credited, when they entered one.
	VerifiedAmount *decimal.Decimal
}

// Change is the set of columns a state transition writes.
type Change struct {
	Status            Status
	ClaimNotes        *string
	AdminID           *string
	VerifiedAt        *time.Time
	VerificationNotes *string
	BankReference     *string
}

type ListFilter struct {
	OrganizationID      string
	StudentID           string
	Status              *Status
	NeedsReconciliation bool
	Limit               int
}

// AcademicPeriod formats the academic year starting in t's year, e.g. "2026-27".
func AcademicPeriod(t time.Time) string {
	y := t.Year()
	return fmt.Sprintf("%d-%02d", y, (y+1)%100)
}

func apply(tx *Transaction, c Change) {
	tx.Status = c.Status

	if c.ClaimNotes != nil {
		tx.ClaimNotes = *c.ClaimNotes
	}

	if c.AdminID != nil {
		tx.AdminID = c.AdminID
	}

	if c.VerifiedAt != nil {
		tx.VerifiedAt = c.VerifiedAt
	}

	if c.VerificationNotes != nil {
		tx.VerificationNotes = c.VerificationNotes
	}

	if c.BankReference != nil {
		tx.BankReference = c.BankReference
	}
}
