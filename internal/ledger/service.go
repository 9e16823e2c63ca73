package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/feeflow/internal/storage"
)

const defaultAllocationAttempts = 5

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	// MaxReceiptNumber returns the highest receipt number in the ledger, or
	// zero when it is empty.
	MaxReceiptNumber(ctx context.Context) (int64, error)
	// CreateEntry inserts e and fills in its ID and CreatedAt. It returns
	// ErrReceiptTaken or ErrAlreadyLinked when a unique constraint rejects it.
	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, id string) (*Entry, error)
	// FindByTransaction returns storage.ErrNotFound when the transaction has
	// no entry.
	FindByTransaction(ctx context.Context, transactionID string) (*Entry, error)
}

// BackLinker records the entry id on the originating transaction.
type BackLinker interface {
	LinkLedgerEntry(ctx context.Context, transactionID, entryID string) error
}

type Service struct {
	repo     Repository
	backLink BackLinker
	attempts int
	now      func() time.Time
}

func NewService(repo Repository, backLink BackLinker) *Service {
	return &Service{
		repo:     repo,
		backLink: backLink,
		attempts: defaultAllocationAttempts,
		now:      time.Now,
	}
}

// Link turns a successful transaction into its ledger entry. Calling it again
// for the same transaction returns the entry created the first time.
// Store outages are returned wrapped in storage.ErrUnreachable; the caller
// decides whether to degrade.
func (s *Service) Link(ctx context.Context, req LinkRequest) (*Entry, error) {
	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidEntry)
	}

	if err := validate(req.OrganizationID, req.StudentID, req.Amount); err != nil {
		return nil, err
	}

	if existing, err := s.existing(ctx, req); err != nil || existing != nil {
		return existing, err
	}

	txID := req.TransactionID
	e := &Entry{
		OrganizationID: req.OrganizationID,
		StudentID:      req.StudentID,
		FeeComponent:   req.FeeComponent,
		AmountPaid:     req.Amount,
		PaymentDate:    s.paymentDate(req.PaymentDate),
		Mode:           ModeElectronicTransfer,
		AcademicPeriod: req.AcademicPeriod,
		TransactionID:  &txID,
	}

	err := s.create(ctx, e)
	if errors.Is(err, ErrAlreadyLinked) {
		// A concurrent verification won the insert.
		found, findErr := s.repo.FindByTransaction(ctx, txID)
		if findErr != nil {
			return nil, fmt.Errorf("finding concurrent ledger entry: %w", findErr)
		}

		return found, s.linkBack(ctx, txID, found.ID)
	}

	if err != nil {
		return nil, err
	}

	slog.Info("ledger entry created",
		"entry_id", e.ID,
		"receipt_number", e.ReceiptNumber,
		"transaction_id", txID,
		"organization_id", e.OrganizationID,
	)

	return e, s.linkBack(ctx, txID, e.ID)
}

// RecordCash books a payment taken at the counter. It shares receipt
// numbering with linked entries and has no originating transaction.
func (s *Service) RecordCash(ctx context.Context, p CashPayment) (*Entry, error) {
	if err := validate(p.OrganizationID, p.StudentID, p.Amount); err != nil {
		return nil, err
	}

	e := &Entry{
		OrganizationID: p.OrganizationID,
		StudentID:      p.StudentID,
		FeeComponent:   p.FeeComponent,
		AmountPaid:     p.Amount,
		PaymentDate:    s.paymentDate(p.PaymentDate),
		Mode:           ModeCash,
		AcademicPeriod: p.AcademicPeriod,
	}

	if err := s.create(ctx, e); err != nil {
		return nil, err
	}

	slog.Info("cash ledger entry created", "entry_id", e.ID, "receipt_number", e.ReceiptNumber)

	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

func (s *Service) existing(ctx context.Context, req LinkRequest) (*Entry, error) {
	if req.LinkedEntryID != "" {
		e, err := s.repo.GetEntry(ctx, req.LinkedEntryID)
		switch {
		case err == nil:
			return e, nil
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("getting linked ledger entry: %w", err)
		}

		slog.Warn("transaction points at a missing ledger entry",
			"transaction_id", req.TransactionID,
			"entry_id", req.LinkedEntryID,
		)
	}

	e, err := s.repo.FindByTransaction(ctx, req.TransactionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("finding ledger entry: %w", err)
	}

	if e.ID != req.LinkedEntryID {
		return e, s.linkBack(ctx, req.TransactionID, e.ID)
	}

	return e, nil
}

// create assigns max+1 and inserts, moving to the next number when another
// writer took it first.
func (s *Service) create(ctx context.Context, e *Entry) error {
	for range s.attempts {
		highest, err := s.repo.MaxReceiptNumber(ctx)
		if err != nil {
			return fmt.Errorf("reading max receipt number: %w", err)
		}

		e.ReceiptNumber = nextReceipt(highest)

		err = s.repo.CreateEntry(ctx, e)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrReceiptTaken) {
			return fmt.Errorf("creating ledger entry: %w", err)
		}

		slog.Debug("receipt number taken, retrying", "receipt_number", e.ReceiptNumber)
	}

	e.ReceiptNumber = 0

	return ErrReceiptAllocation
}

func (s *Service) linkBack(ctx context.Context, transactionID, entryID string) error {
	if s.backLink == nil {
		return nil
	}

	if err := s.backLink.LinkLedgerEntry(ctx, transactionID, entryID); err != nil {
		return fmt.Errorf("%w: %w", ErrBackLink, err)
	}

	return nil
}

func (s *Service) paymentDate(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}

	return t
}

func nextReceipt(highest int64) int64 {
	if highest < ReceiptBase {
		return ReceiptBase
	}

	return highest + 1
}

func validate(organizationID, studentID string, amount decimal.Decimal) error {
	switch {
	case strings.TrimSpace(organizationID) == "":
		return fmt.Errorf("%w: organization id is required", ErrInvalidEntry)
	case strings.TrimSpace(studentID) == "":
		return fmt.Errorf("%w: student id is required", ErrInvalidEntry)
	case !amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}

	return nil
}
