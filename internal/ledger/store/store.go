package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
)

const (
	constraintReceiptNumber = "ledger_entries_receipt_number_key"
	constraintTransactionID = "ledger_entries_transaction_id_key"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, organization_id, student_id, fee_component, amount_paid, payment_date,
// payment_mode, academic_year, receipt_number, transaction_id, created_at
func scanEntry(s scanner) (*ledger.Entry, error) {
	var (
		e    ledger.Entry
		mode string
		txID sql.NullString
		fee  sql.NullString
		year sql.NullString
	)

	if err := s.Scan(
		&e.ID, &e.OrganizationID, &e.StudentID, &fee, &e.AmountPaid, &e.PaymentDate,
		&mode, &year, &e.ReceiptNumber, &txID, &e.CreatedAt,
	); err != nil {
		return nil, err
	}

	e.Mode = ledger.Mode(mode)
	e.FeeComponent = fee.String
	e.AcademicPeriod = year.String

	if txID.Valid {
		e.TransactionID = &txID.String
	}

	return &e, nil
}

const selectEntryColumns = `
	id, organization_id, student_id, fee_component, amount_paid, payment_date,
	payment_mode, academic_year, receipt_number, transaction_id, created_at
`

func (s *Store) MaxReceiptNumber(ctx context.Context) (int64, error) {
	var highest sql.NullInt64

	if err := s.db.QueryRowContext(ctx, `SELECT MAX(receipt_number) FROM ledger_entries`).Scan(&highest); err != nil {
		return 0, storage.Classify("reading max receipt number", err)
	}

	return highest.Int64, nil
}

func (s *Store) CreateEntry(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (
			organization_id, student_id, fee_component, amount_paid, payment_date,
			payment_mode, academic_year, receipt_number, transaction_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		e.OrganizationID,
		e.StudentID,
		e.FeeComponent,
		e.AmountPaid,
		e.PaymentDate,
		e.Mode,
		e.AcademicPeriod,
		e.ReceiptNumber,
		e.TransactionID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		err = storage.Classify("creating ledger entry", err)

		if errors.Is(err, storage.ErrConflict) {
			switch storage.ConstraintName(err) {
			case constraintReceiptNumber:
				return fmt.Errorf("%w: %d", ledger.ErrReceiptTaken, e.ReceiptNumber)
			case constraintTransactionID:
				return ledger.ErrAlreadyLinked
			}
		}

		return err
	}

	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*ledger.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("getting ledger entry %q: %w", id, storage.ErrNotFound)
	}

	query := `SELECT ` + selectEntryColumns + ` FROM ledger_entries WHERE id = $1`

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storage.Classify("getting ledger entry", err)
	}

	return e, nil
}

func (s *Store) FindByTransaction(ctx context.Context, transactionID string) (*ledger.Entry, error) {
	if _, err := uuid.Parse(transactionID); err != nil {
		return nil, fmt.Errorf("finding ledger entry for %q: %w", transactionID, storage.ErrNotFound)
	}

	query := `SELECT ` + selectEntryColumns + ` FROM ledger_entries WHERE transaction_id = $1`

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		return nil, storage.Classify("finding ledger entry by transaction", err)
	}

	return e, nil
}
