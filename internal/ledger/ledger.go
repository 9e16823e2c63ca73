// Package ledger owns the authoritative fee-ledger entries and their
// sequential receipt numbers.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptBase is the receipt number of the first entry in an empty ledger.
// It is also a floor: while every existing receipt is below it (numbers
// carried over from an older register), the next receipt is ReceiptBase
// rather than max+1. Numbers stay strictly increasing either way.
const ReceiptBase int64 = 1000

type Mode string

const (
	ModeElectronicTransfer Mode = "electronic_transfer"
	ModeCash               Mode = "cash"
)

var (
	ErrInvalidEntry = errors.New("invalid ledger entry")

	// ErrReceiptTaken is returned by the repository when another writer
	// claimed the receipt number first.
	ErrReceiptTaken = errors.New("receipt number already assigned")

	// ErrAlreadyLinked is returned by the repository when the transaction
	// already has a ledger entry.
	ErrAlreadyLinked = errors.New("transaction already has a ledger entry")

	// ErrBackLink means the entry was created but the transaction could not
	// be pointed at it.
	ErrBackLink = errors.New("linking entry back to transaction")

	ErrReceiptAllocation = errors.New("receipt number allocation kept conflicting")
)

type Entry struct {
	ID             string
	OrganizationID string
	StudentID      string
	FeeComponent   string
	AmountPaid     decimal.Decimal
	PaymentDate    time.Time
	Mode           Mode
	AcademicPeriod string
	// ReceiptNumber is zero for entries that were never persisted.
	ReceiptNumber int64
	TransactionID *string
	// Local marks an entry synthesized while the store was unreachable.
	Local     bool
	CreatedAt time.Time
}

// LinkRequest carries what the linker copies from a successful transaction.
type LinkRequest struct {
	TransactionID  string
	OrganizationID string
	StudentID      string
	FeeComponent   string
	Amount         decimal.Decimal
	PaymentDate    time.Time
	AcademicPeriod string
	// LinkedEntryID is the entry the transaction already points at, if any.
	LinkedEntryID string
}

type CashPayment struct {
	OrganizationID string
	StudentID      string
	FeeComponent   string
	Amount         decimal.Decimal
	PaymentDate    time.Time
	AcademicPeriod string
}
