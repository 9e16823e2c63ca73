package transaction

import (
	"time"

	ledgerHandler "github.com/MrJamesThe3rd/feeflow/internal/http/ledger"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

type transactionResponse struct {
	ID                  string                       `json:"id"`
	OrganizationID      string                       `json:"organization_id"`
	StudentID           string                       `json:"student_id"`
	ReferenceCode       string                       `json:"reference_code"`
	Amount              string                       `json:"amount"`
	RoutingID           string                       `json:"routing_id"`
	FeeComponent        string                       `json:"fee_component,omitempty"`
	AcademicPeriod      string                       `json:"academic_period,omitempty"`
	PaymentDate         time.Time                    `json:"payment_date"`
	PaymentPayload      string                       `json:"payment_payload"`
	Status              transaction.Status           `json:"status"`
	ClaimNotes          string                       `json:"claim_notes,omitempty"`
	AdminID             *string                      `json:"admin_id,omitempty"`
	VerifiedAt          *time.Time                   `json:"verified_at,omitempty"`
	VerificationNotes   *string                      `json:"verification_notes,omitempty"`
	BankReference       *string                      `json:"bank_reference,omitempty"`
	LedgerEntryID       *string                      `json:"ledger_entry_id,omitempty"`
	LedgerEntry         *ledgerHandler.EntryResponse `json:"ledger_entry,omitempty"`
	Local               bool                         `json:"local"`
	NeedsReconciliation bool                         `json:"needs_reconciliation"`
	CreatedAt           time.Time                    `json:"created_at"`
	UpdatedAt           *time.Time                   `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                  tx.ID,
		OrganizationID:      tx.OrganizationID,
		StudentID:           tx.StudentID,
		ReferenceCode:       tx.ReferenceCode,
		Amount:              tx.Amount.StringFixed(2),
		RoutingID:           tx.RoutingID,
		FeeComponent:        tx.FeeComponent,
		AcademicPeriod:      tx.AcademicPeriod,
		PaymentDate:         tx.PaymentDate,
		PaymentPayload:      tx.PaymentPayload,
		Status:              tx.Status,
		ClaimNotes:          tx.ClaimNotes,
		AdminID:             tx.AdminID,
		VerifiedAt:          tx.VerifiedAt,
		VerificationNotes:   tx.VerificationNotes,
		BankReference:       tx.BankReference,
		LedgerEntryID:       tx.LedgerEntryID,
		Local:               tx.Local,
		NeedsReconciliation: tx.NeedsReconciliation(),
		CreatedAt:           tx.CreatedAt,
		UpdatedAt:           tx.UpdatedAt,
	}

	if tx.LedgerEntry != nil {
		resp.LedgerEntry = new(ledgerHandler.ToEntryResponse(tx.LedgerEntry))
	}

	return resp
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
