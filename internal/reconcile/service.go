package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MrJamesThe3rd/feeflow/internal/statement"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=transactions_mock.go -package=reconcile
type Transactions interface {
	GetByReference(ctx context.Context, organizationID, code string) (*transaction.Transaction, error)
	Verify(ctx context.Context, id string, p transaction.VerifyParams) (*transaction.Transaction, error)
}

type Parser interface {
	Parse(r io.Reader) (*statement.Statement, error)
}

// CodeFinder extracts reference codes shaped like the ones issued to payers.
type CodeFinder interface {
	Find(s string) []string
}

// Recorder observes per-line outcomes.
type Recorder interface {
	StatementLine(outcome string)
}

type Service struct {
	parser   Parser
	codes    CodeFinder
	txs      Transactions
	recorder Recorder
}

func NewService(parser Parser, codes CodeFinder, txs Transactions, recorder Recorder) *Service {
	return &Service{parser: parser, codes: codes, txs: txs, recorder: recorder}
}

// Reconcile parses a statement and settles every credit line it can attribute
// to an open transaction of the organization. Store failures abort the run;
// lines already settled stay settled.
func (s *Service) Reconcile(ctx context.Context, organizationID string, r io.Reader) (*Report, error) {
	if organizationID == "" {
		return nil, &transaction.ValidationError{Field: "organization_id", Reason: "is required"}
	}

	st, err := s.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}

	report := &Report{Profile: st.Profile, Charset: st.Charset}

	for _, line := range st.Lines {
		if !line.Credit {
			report.Debits++
			continue
		}

		res, err := s.settle(ctx, organizationID, line)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line.Row, err)
		}

		if s.recorder != nil {
			s.recorder.StatementLine(string(res.Outcome))
		}

		report.Results = append(report.Results, res)
	}

	slog.Info("statement reconciled",
		"organization_id", organizationID,
		"profile", report.Profile,
		"matched", report.Count(OutcomeMatched),
		"already_finalized", report.Count(OutcomeAlreadyFinalized),
		"amount_mismatch", report.Count(OutcomeAmountMismatch),
		"unmatched", report.Count(OutcomeUnmatched),
	)

	return report, nil
}

// settle resolves the first candidate code that names a transaction.
func (s *Service) settle(ctx context.Context, organizationID string, line statement.Line) (Result, error) {
	res := Result{Line: line, Outcome: OutcomeUnmatched}

	for _, code := range s.candidates(line) {
		tx, err := s.txs.GetByReference(ctx, organizationID, code)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}

		if err != nil {
			return res, fmt.Errorf("look up %s: %w", code, err)
		}

		res.ReferenceCode = tx.ReferenceCode
		res.TransactionID = tx.ID
		res.Status = tx.Status
		res.LedgerEntryID = tx.LedgerEntryID

		switch {
		case tx.Status.IsTerminal():
			res.Outcome = OutcomeAlreadyFinalized
		case !tx.Amount.Equal(line.Amount):
			res.Outcome = OutcomeAmountMismatch
		default:
			return s.verify(ctx, tx, res)
		}

		return res, nil
	}

	return res, nil
}

func (s *Service) verify(ctx context.Context, tx *transaction.Transaction, res Result) (Result, error) {
	amount := res.Line.Amount

	verified, err := s.txs.Verify(ctx, tx.ID, transaction.VerifyParams{
		Decision:       transaction.StatusSuccess,
		AdminID:        SystemAdmin,
		Notes:          notes(res.Line),
		BankReference:  res.Line.Reference,
		VerifiedAmount: &amount,
	})

	var finalized *transaction.AlreadyFinalizedError
	if errors.As(err, &finalized) {
		res.Outcome = OutcomeAlreadyFinalized
		res.Status = finalized.Status

		return res, nil
	}

	if err != nil {
		return res, fmt.Errorf("verify %s: %w", tx.ReferenceCode, err)
	}

	res.Outcome = OutcomeMatched
	res.Status = verified.Status
	res.LedgerEntryID = verified.LedgerEntryID
	res.Local = verified.Local

	return res, nil
}

func (s *Service) candidates(line statement.Line) []string {
	seen := make(map[string]bool)

	var out []string

	for _, code := range s.codes.Find(line.Description + " " + line.Reference) {
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}

	return out
}

func notes(line statement.Line) string {
	return fmt.Sprintf("Bank statement %s row %d: %s", line.Date.Format("2006-01-02"), line.Row, line.Description)
}
