package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/feeflow/internal/storage"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

const constraintReference = "transactions_organization_id_reference_code_key"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a transaction row from the scanner.
// Expected column order matches selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var (
		tx            transaction.Transaction
		status        string
		feeComponent  sql.NullString
		academicYear  sql.NullString
		claimNotes    sql.NullString
		adminID       sql.NullString
		verifiedAt    sql.NullTime
		notes         sql.NullString
		bankReference sql.NullString
		ledgerEntryID sql.NullString
		updatedAt     sql.NullTime
	)

	if err := s.Scan(
		&tx.ID, &tx.OrganizationID, &tx.StudentID, &tx.ReferenceCode, &tx.Amount, &tx.RoutingID,
		&feeComponent, &academicYear, &tx.PaymentDate, &tx.PaymentPayload, &status,
		&claimNotes, &adminID, &verifiedAt, &notes, &bankReference, &ledgerEntryID,
		&tx.CreatedAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	tx.Status = transaction.Status(status)
	tx.FeeComponent = feeComponent.String
	tx.AcademicPeriod = academicYear.String
	tx.ClaimNotes = claimNotes.String
	tx.AdminID = nullString(adminID)
	tx.VerificationNotes = nullString(notes)
	tx.BankReference = nullString(bankReference)
	tx.LedgerEntryID = nullString(ledgerEntryID)

	if verifiedAt.Valid {
		tx.VerifiedAt = &verifiedAt.Time
	}

	if updatedAt.Valid {
		tx.UpdatedAt = &updatedAt.Time
	}

	return &tx, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}

	return &ns.String
}

const selectTransactionColumns = `
	id, organization_id, student_id, reference_code, amount, routing_id,
	fee_component, academic_year, payment_date, payment_payload, status,
	claim_notes, admin_id, verified_at, verification_notes, bank_reference_number, ledger_entry_id,
	created_at, updated_at
`

// inTenant runs fn inside a database transaction scoped to the organization,
// so row-level security policies keyed on app.current_tenant_id apply.
func (s *Store) inTenant(ctx context.Context, organizationID string, fn func(*sql.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Classify("beginning transaction", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `SELECT set_config('app.current_tenant_id', $1, true)`, organizationID); err != nil {
		return storage.Classify("setting tenant context", err)
	}

	if err := fn(dbTx); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return storage.Classify("committing transaction", err)
	}

	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			organization_id, student_id, reference_code, amount, routing_id,
			fee_component, academic_year, payment_date, payment_payload, status,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at
	`

	return s.inTenant(ctx, tx.OrganizationID, func(dbTx *sql.Tx) error {
		err := dbTx.QueryRowContext(ctx, query,
			tx.OrganizationID,
			tx.StudentID,
			tx.ReferenceCode,
			tx.Amount,
			tx.RoutingID,
			tx.FeeComponent,
			tx.AcademicPeriod,
			tx.PaymentDate,
			tx.PaymentPayload,
			tx.Status,
		).Scan(&tx.ID, &tx.CreatedAt)
		if err != nil {
			err = storage.Classify("creating transaction", err)
			if storage.ConstraintName(err) == constraintReference {
				return fmt.Errorf("%w: %s", transaction.ErrDuplicateReference, tx.ReferenceCode)
			}

			return err
		}

		return nil
	})
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*transaction.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("getting transaction %q: %w", id, storage.ErrNotFound)
	}

	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storage.Classify("getting transaction", err)
	}

	return tx, nil
}

func (s *Store) GetByReference(ctx context.Context, organizationID, code string) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE organization_id = $1 AND reference_code = $2`

	var tx *transaction.Transaction

	err := s.inTenant(ctx, organizationID, func(dbTx *sql.Tx) error {
		var err error

		tx, err = scanTransaction(dbTx.QueryRowContext(ctx, query, organizationID, code))
		if err != nil {
			return storage.Classify("getting transaction by reference", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Store) ReferenceExists(ctx context.Context, organizationID, code string) (bool, error) {
	var exists bool

	err := s.inTenant(ctx, organizationID, func(dbTx *sql.Tx) error {
		err := dbTx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM transactions WHERE organization_id = $1 AND reference_code = $2)`,
			organizationID, code,
		).Scan(&exists)

		return storage.Classify("checking reference code", err)
	})

	return exists, err
}

func (s *Store) Transition(ctx context.Context, id string, from []transaction.Status, change transaction.Change) (*transaction.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("updating transaction %q: %w", id, storage.ErrNotFound)
	}

	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	query := `
		UPDATE transactions
		SET status = $2,
			claim_notes = COALESCE($3, claim_notes),
			admin_id = COALESCE($4, admin_id),
			verified_at = COALESCE($5, verified_at),
			verification_notes = COALESCE($6, verification_notes),
			bank_reference_number = COALESCE($7, bank_reference_number),
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($8)
		RETURNING ` + selectTransactionColumns

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query,
		id,
		change.Status,
		change.ClaimNotes,
		change.AdminID,
		change.VerifiedAt,
		change.VerificationNotes,
		change.BankReference,
		statuses,
	))
	if err == nil {
		return tx, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storage.Classify("updating transaction status", err)
	}

	return nil, s.whyUnchanged(ctx, id)
}

func (s *Store) LinkLedgerEntry(ctx context.Context, transactionID, entryID string) error {
	query := `
		UPDATE transactions
		SET ledger_entry_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND (ledger_entry_id IS NULL OR ledger_entry_id = $2)
	`

	res, err := s.db.ExecContext(ctx, query, transactionID, entryID, transaction.StatusSuccess)
	if err != nil {
		return storage.Classify("linking ledger entry", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storage.Classify("linking ledger entry", err)
	}

	if n == 0 {
		return s.whyUnchanged(ctx, transactionID)
	}

	return nil
}

// whyUnchanged tells a missing row from one whose state refused the update.
func (s *Store) whyUnchanged(ctx context.Context, id string) error {
	var status string

	err := s.db.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return storage.Classify("reading transaction status", err)
	}

	return fmt.Errorf("%w: status is %s", transaction.ErrTransitionRejected, status)
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.OrganizationID != "" {
		query += fmt.Sprintf(" AND organization_id = $%d", argIdx)

		args = append(args, filter.OrganizationID)
		argIdx++
	}

	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", argIdx)

		args = append(args, filter.StudentID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.NeedsReconciliation {
		query += fmt.Sprintf(" AND status = $%d AND ledger_entry_id IS NULL", argIdx)

		args = append(args, transaction.StatusSuccess)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Classify("listing transactions", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, storage.Classify("iterating transaction rows", err)
	}

	return txs, nil
}
