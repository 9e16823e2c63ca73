package transaction

import (
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
)

const localIDLength = 16

// Synthesizer fabricates the records returned while the store is
// unreachable. They have the shape of persisted records, carry Local and a
// LocalPrefix id, and are never written anywhere.
type Synthesizer struct {
	newID func() string
	now   func() time.Time
}

func NewSynthesizer(now func() time.Time) *Synthesizer {
	newID, err := nanoid.Standard(localIDLength)
	if err != nil {
		// Standard only rejects lengths outside 2..255.
		panic(err)
	}

	if now == nil {
		now = time.Now
	}

	return &Synthesizer{newID: newID, now: now}
}

// ID returns a fresh local identifier.
func (s *Synthesizer) ID() string {
	return LocalPrefix + s.newID()
}

// Transaction returns a local copy of tx as if it had just been inserted.
func (s *Synthesizer) Transaction(tx *Transaction) *Transaction {
	local := *tx
	local.ID = s.ID()
	local.Local = true
	local.CreatedAt = s.now()

	return &local
}

// Placeholder stands in for a record that cannot be read: either a local
// id, or a real one while the store is down.
func (s *Synthesizer) Placeholder(id string) *Transaction {
	return &Transaction{ID: id, Status: StatusPending, Local: true, CreatedAt: s.now()}
}

// Apply returns a local copy of base with change applied. base keeps its id,
// so a real transaction stays addressable once the store is back.
func (s *Synthesizer) Apply(base *Transaction, change Change) *Transaction {
	local := *base
	apply(&local, change)
	local.Local = true

	now := s.now()
	local.UpdatedAt = &now

	return &local
}

// LedgerEntry returns a local entry for a SUCCESS transaction. Its receipt
// number stays zero until staff enter the payment into the ledger.
func (s *Synthesizer) LedgerEntry(tx *Transaction, amount decimal.Decimal) *ledger.Entry {
	txID := tx.ID

	return &ledger.Entry{
		ID:             s.ID(),
		OrganizationID: tx.OrganizationID,
		StudentID:      tx.StudentID,
		FeeComponent:   tx.FeeComponent,
		AmountPaid:     amount,
		PaymentDate:    s.paymentDate(tx),
		Mode:           ledger.ModeElectronicTransfer,
		AcademicPeriod: tx.AcademicPeriod,
		TransactionID:  &txID,
		Local:          true,
		CreatedAt:      s.now(),
	}
}

func (s *Synthesizer) paymentDate(tx *Transaction) time.Time {
	if tx.PaymentDate.IsZero() {
		return s.now()
	}

	return tx.PaymentDate
}
