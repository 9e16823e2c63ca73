// Package reconcile matches bank statement credits to open transactions and
// verifies the ones whose reference code and amount agree.
package reconcile

import (
	"encoding/json"

	"github.com/MrJamesThe3rd/feeflow/internal/statement"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

// SystemAdmin is recorded as the verifying administrator.
const SystemAdmin = "system:statement"

type Outcome string

const (
	OutcomeMatched          Outcome = "matched"
	OutcomeAlreadyFinalized Outcome = "already_finalized"
	OutcomeAmountMismatch   Outcome = "amount_mismatch"
	OutcomeUnmatched        Outcome = "unmatched"
)

// Result is the outcome for one credit line.
type Result struct {
	Line          statement.Line
	Outcome       Outcome
	ReferenceCode string
	TransactionID string
	Status        transaction.Status
	LedgerEntryID *string
	Local         bool
}

type Report struct {
	Profile string
	Charset string
	Debits  int
	Results []Result
}

// Count returns how many credit lines ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0

	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}

	return n
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row           int                `json:"row"`
		Date          string             `json:"date"`
		Description   string             `json:"description"`
		BankReference string             `json:"bank_reference,omitempty"`
		Amount        string             `json:"amount"`
		Outcome       Outcome            `json:"outcome"`
		ReferenceCode string             `json:"reference_code,omitempty"`
		TransactionID string             `json:"transaction_id,omitempty"`
		Status        transaction.Status `json:"status,omitempty"`
		LedgerEntryID *string            `json:"ledger_entry_id,omitempty"`
		Local         bool               `json:"local,omitempty"`
	}{
		Row:           r.Line.Row,
		Date:          r.Line.Date.Format("2006-01-02"),
		Description:   r.Line.Description,
		BankReference: r.Line.Reference,
		Amount:        r.Line.Amount.StringFixed(2),
		Outcome:       r.Outcome,
		ReferenceCode: r.ReferenceCode,
		TransactionID: r.TransactionID,
		Status:        r.Status,
		LedgerEntryID: r.LedgerEntryID,
		Local:         r.Local,
	})
}
