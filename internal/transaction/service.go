package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/feeflow/internal/alert"
	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
	"github.com/MrJamesThe3rd/feeflow/internal/refcode"
	"github.com/MrJamesThe3rd/feeflow/internal/routing"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
	"github.com/MrJamesThe3rd/feeflow/internal/upi"
)

// DefaultStoreTimeout bounds every store call. A call that runs past it is
// treated as the store being unreachable.
const DefaultStoreTimeout = 5 * time.Second

// createAttempts bounds inserts that lose the reference code to a concurrent
// creator between lookup and insert.
const createAttempts = 3

// publishTimeout bounds the alert hand-off on the request path.
const publishTimeout = 500 * time.Millisecond

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	// CreateTransaction inserts tx and fills in its ID and CreatedAt. It
	// returns ErrDuplicateReference when the reference code is taken.
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	GetByReference(ctx context.Context, organizationID, code string) (*Transaction, error)
	ReferenceExists(ctx context.Context, organizationID, code string) (bool, error)

	// Transition writes change only while the stored status is one of from,
	// and returns the updated row. It returns ErrTransitionRejected when the
	// status moved on and storage.ErrNotFound when there is no such row.
	Transition(ctx context.Context, id string, from []Status, change Change) (*Transaction, error)

	// LinkLedgerEntry records the ledger entry of a SUCCESS transaction. A
	// transaction already linked to a different entry is left unchanged and
	// ErrTransitionRejected is returned.
	LinkLedgerEntry(ctx context.Context, transactionID, entryID string) error

	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
}

type Service struct {
	repo    Repository
	codes   CodeGenerator
	routes  PayloadSource
	linker  Linker
	synth   *Synthesizer
	alerts  alert.Publisher
	metrics Recorder
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Service)

func WithAlerts(p alert.Publisher) Option {
	return func(s *Service) {
		s.alerts = p
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.metrics = r
	}
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithSynthesizer(synth *Synthesizer) Option {
	return func(s *Service) {
		s.synth = synth
	}
}

func NewService(repo Repository, codes CodeGenerator, routes PayloadSource, linker Linker, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		codes:   codes,
		routes:  routes,
		linker:  linker,
		alerts:  alert.LogPublisher{},
		metrics: nopRecorder{},
		timeout: DefaultStoreTimeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.synth == nil {
		s.synth = NewSynthesizer(s.now)
	}

	return s
}

// Create persists a PENDING transaction with a fresh reference code and the
// QR payload payers scan. When the store cannot be reached it returns a
// local record instead of an error.
func (s *Service) Create(ctx context.Context, d Draft) (*Transaction, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	// A settings store that does not answer yields the cached or fallback
	// identity once the store timeout passes.
	payload, err := callValue(ctx, s, func(ctx context.Context) (routing.Payload, error) {
		return s.routes.Payload(ctx, d.OrganizationID)
	})
	if err != nil {
		return nil, fmt.Errorf("resolving routing payload: %w", err)
	}

	tx := s.newTransaction(d, payload.RoutingID)

	for range createAttempts {
		code, err := s.generateCode(ctx, d)
		if err != nil {
			if storage.IsUnreachable(err) {
				return s.degradeCreate(ctx, tx, d, payload.DisplayName, err)
			}

			return nil, err
		}

		if err := s.setReference(tx, d, code, payload.DisplayName); err != nil {
			return nil, err
		}

		err = s.call(ctx, func(ctx context.Context) error {
			return s.repo.CreateTransaction(ctx, tx)
		})

		switch {
		case err == nil:
			s.metrics.TransactionCreated(false)
			slog.Info("transaction created",
				"transaction_id", tx.ID,
				"organization_id", tx.OrganizationID,
				"reference_code", tx.ReferenceCode,
				"fallback_routing", payload.Fallback,
			)

			return tx, nil
		case errors.Is(err, ErrDuplicateReference):
			slog.Debug("reference code taken at insert, regenerating", "reference_code", code)
			continue
		case degradable(err):
			return s.degradeCreate(ctx, tx, d, payload.DisplayName, err)
		default:
			return nil, fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: reference taken at insert %d times", refcode.ErrCodeGenerationExhausted, createAttempts)
}

// Claim records the payer's assertion that the payment was made and moves
// the transaction to PENDING_ADMIN_VERIFICATION. No ledger entry is created.
func (s *Service) Claim(ctx context.Context, id, notes string) (*Transaction, error) {
	notes = strings.TrimSpace(notes)
	change := Change{Status: StatusPendingAdminVerification, ClaimNotes: &notes}

	if IsLocalID(id) {
		s.metrics.LocalShortCircuit("claim")
		return s.synth.Apply(s.synth.Placeholder(id), change), nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		if storage.IsUnreachable(err) {
			return s.degradeChange(ctx, "claim", s.synth.Placeholder(id), change, err), nil
		}

		return nil, err
	}

	if current.Status.IsTerminal() {
		return nil, &AlreadyFinalizedError{ID: id, Status: current.Status}
	}

	updated, err := s.transition(ctx, current, change)
	if err != nil {
		if degradable(err) {
			return s.degradeChange(ctx, "claim", current, change, err), nil
		}

		return nil, err
	}

	slog.Info("payment claimed by payer", "transaction_id", id, "reference_code", updated.ReferenceCode)

	return updated, nil
}

// Verify resolves a transaction to SUCCESS or FAILED. A SUCCESS is linked to
// its ledger entry before Verify returns. Verifying a terminal transaction
// fails with AlreadyFinalizedError and leaves it untouched.
func (s *Service) Verify(ctx context.Context, id string, p VerifyParams) (*Transaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	change := s.verification(p)

	if IsLocalID(id) {
		if err := p.requireAmount(); err != nil {
			return nil, err
		}

		s.metrics.LocalShortCircuit("verify")

		return s.localVerified(s.synth.Placeholder(id), change, p.VerifiedAmount), nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		if storage.IsUnreachable(err) {
			if amountErr := p.requireAmount(); amountErr != nil {
				return nil, amountErr
			}

			return s.degradeVerify(ctx, s.synth.Placeholder(id), change, p.VerifiedAmount, err), nil
		}

		return nil, err
	}

	if current.Status.IsTerminal() {
		return nil, &AlreadyFinalizedError{ID: id, Status: current.Status}
	}

	if p.VerifiedAmount != nil && !p.VerifiedAmount.Equal(current.Amount) {
		return nil, &ValidationError{
			Field:  "verified_amount",
			Reason: fmt.Sprintf("%s does not match transaction amount %s", p.VerifiedAmount.StringFixed(2), current.Amount.StringFixed(2)),
		}
	}

	updated, err := s.transition(ctx, current, change)
	if err != nil {
		if degradable(err) {
			return s.degradeVerify(ctx, current, change, p.VerifiedAmount, err), nil
		}

		return nil, err
	}

	s.metrics.TransactionVerified(updated.Status, false)
	slog.Info("transaction verified",
		"transaction_id", id,
		"status", updated.Status,
		"admin_id", p.AdminID,
		"reference_code", updated.ReferenceCode,
	)

	if updated.Status != StatusSuccess {
		return updated, nil
	}

	return s.link(ctx, updated), nil
}

// Relink retries the ledger link of a SUCCESS transaction that has none.
// It is the manual reconciliation path; linking is idempotent, so an
// already-linked transaction returns its existing entry. A local id is
// answered without the store: its placeholder comes back with no entry, since
// a local record carries no amount to enter.
func (s *Service) Relink(ctx context.Context, id string) (*Transaction, error) {
	if IsLocalID(id) {
		s.metrics.LocalShortCircuit("link")
		return s.synth.Placeholder(id), nil
	}

	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if tx.Status != StatusSuccess {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("only SUCCESS transactions are linked, got %s", tx.Status)}
	}

	return s.link(ctx, tx), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	return callValue(ctx, s, func(ctx context.Context) (*Transaction, error) {
		return s.repo.GetTransaction(ctx, id)
	})
}

func (s *Service) GetByReference(ctx context.Context, organizationID, code string) (*Transaction, error) {
	code = refcode.Normalize(code)

	return callValue(ctx, s, func(ctx context.Context) (*Transaction, error) {
		return s.repo.GetByReference(ctx, organizationID, code)
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return callValue(ctx, s, func(ctx context.Context) ([]*Transaction, error) {
		return s.repo.ListTransactions(ctx, filter)
	})
}

func (s *Service) newTransaction(d Draft, routingID string) *Transaction {
	date := d.PaymentDate
	if date.IsZero() {
		date = s.now()
	}

	period := strings.TrimSpace(d.AcademicPeriod)
	if period == "" {
		period = AcademicPeriod(date)
	}

	return &Transaction{
		OrganizationID: d.OrganizationID,
		StudentID:      d.StudentID,
		Amount:         d.Amount,
		RoutingID:      routingID,
		FeeComponent:   strings.TrimSpace(d.FeeComponent),
		AcademicPeriod: period,
		PaymentDate:    date,
		PaymentPayload: d.PaymentPayload,
		Status:         StatusPending,
	}
}

func (s *Service) generateCode(ctx context.Context, d Draft) (string, error) {
	return callValue(ctx, s, func(ctx context.Context) (string, error) {
		return s.codes.Generate(ctx, d.OrganizationID, seed(d))
	})
}

func (s *Service) setReference(tx *Transaction, d Draft, code, displayName string) error {
	tx.ReferenceCode = code

	if d.PaymentPayload != "" {
		return nil
	}

	uri, err := upi.PaymentURI(upi.Params{
		PayeeAddress: tx.RoutingID,
		PayeeName:    displayName,
		Amount:       tx.Amount,
		Note:         upi.PaymentNote(d.StudentName, d.Seed, tx.FeeComponent),
		Reference:    code,
	})
	if err != nil {
		return fmt.Errorf("building payment payload: %w", err)
	}

	tx.PaymentPayload = uri

	return nil
}

func (s *Service) verification(p VerifyParams) Change {
	now := s.now()
	admin := strings.TrimSpace(p.AdminID)

	c := Change{
		Status:     p.Decision,
		AdminID:    &admin,
		VerifiedAt: &now,
	}

	if notes := strings.TrimSpace(p.Notes); notes != "" {
		c.VerificationNotes = &notes
	}

	if ref := strings.TrimSpace(p.BankReference); ref != "" {
		c.BankReference = &ref
	}

	return c
}

// transition applies change to current. A rejected transition means another
// caller moved the transaction first; the fresh state decides the error.
func (s *Service) transition(ctx context.Context, current *Transaction, change Change) (*Transaction, error) {
	updated, err := callValue(ctx, s, func(ctx context.Context) (*Transaction, error) {
		return s.repo.Transition(ctx, current.ID, openStatuses, change)
	})
	if err == nil {
		return updated, nil
	}

	if !errors.Is(err, ErrTransitionRejected) {
		return nil, fmt.Errorf("updating transaction status: %w", err)
	}

	fresh, getErr := s.Get(ctx, current.ID)
	if getErr != nil {
		return nil, fmt.Errorf("reloading transaction after rejected transition: %w", getErr)
	}

	if fresh.Status.IsTerminal() {
		return nil, &AlreadyFinalizedError{ID: fresh.ID, Status: fresh.Status}
	}

	return nil, fmt.Errorf("%w: status is %s", ErrTransitionRejected, fresh.Status)
}

// link creates the ledger entry of a SUCCESS transaction. A failure never
// undoes the SUCCESS: an unreachable store yields a local entry, anything
// else leaves the transaction unlinked and raises an alert.
func (s *Service) link(ctx context.Context, tx *Transaction) *Transaction {
	req := ledger.LinkRequest{
		TransactionID:  tx.ID,
		OrganizationID: tx.OrganizationID,
		StudentID:      tx.StudentID,
		FeeComponent:   tx.FeeComponent,
		Amount:         tx.Amount,
		PaymentDate:    tx.PaymentDate,
		AcademicPeriod: tx.AcademicPeriod,
	}

	if tx.LedgerEntryID != nil {
		req.LinkedEntryID = *tx.LedgerEntryID
	}

	entry, err := callValue(ctx, s, func(ctx context.Context) (*ledger.Entry, error) {
		return s.linker.Link(ctx, req)
	})

	switch {
	case err == nil:
		tx.LedgerEntry = entry
		tx.LedgerEntryID = &entry.ID
		s.metrics.LedgerLink(LinkLinked)

		return tx
	case entry != nil && errors.Is(err, ledger.ErrBackLink):
		// The entry exists and points at the transaction; only the reverse
		// pointer is missing, and the next link call repairs it.
		tx.LedgerEntry = entry
		s.reportInconsistency(ctx, tx, err)

		return tx
	case storage.IsUnreachable(err):
		tx.LedgerEntry = s.synth.LedgerEntry(tx, tx.Amount)
		s.metrics.LedgerLink(LinkDegraded)
		s.metrics.StoreUnreachable("link")
		s.publish(ctx, s.degradedAlert("link", tx, err))

		slog.Warn("ledger unreachable, returning local ledger entry",
			"transaction_id", tx.ID,
			"reference_code", tx.ReferenceCode,
			"error", err,
		)

		return tx
	default:
		s.reportInconsistency(ctx, tx, err)
		return tx
	}
}

func (s *Service) reportInconsistency(ctx context.Context, tx *Transaction, err error) {
	inconsistency := &LinkInconsistencyError{
		TransactionID:  tx.ID,
		OrganizationID: tx.OrganizationID,
		ReferenceCode:  tx.ReferenceCode,
		Err:            err,
	}

	s.metrics.LedgerLink(LinkInconsistent)
	slog.Error("transaction succeeded without ledger link",
		"transaction_id", tx.ID,
		"organization_id", tx.OrganizationID,
		"reference_code", tx.ReferenceCode,
		"error", err,
	)

	a := alert.New(alert.KindLinkInconsistency, "link", inconsistency.Error())
	a.OrganizationID = tx.OrganizationID
	a.TransactionID = tx.ID
	a.ReferenceCode = tx.ReferenceCode

	s.publish(ctx, a)
}

func (s *Service) degradeCreate(ctx context.Context, tx *Transaction, d Draft, displayName string, cause error) (*Transaction, error) {
	if tx.ReferenceCode == "" {
		if err := s.setReference(tx, d, s.codes.Candidate(seed(d)), displayName); err != nil {
			return nil, err
		}
	}

	local := s.synth.Transaction(tx)

	s.metrics.TransactionCreated(true)
	s.metrics.StoreUnreachable("create")
	s.publish(ctx, s.degradedAlert("create", local, cause))

	slog.Warn("store unreachable, returning local transaction",
		"transaction_id", local.ID,
		"organization_id", local.OrganizationID,
		"reference_code", local.ReferenceCode,
		"error", cause,
	)

	return local, nil
}

func (s *Service) degradeChange(ctx context.Context, op string, base *Transaction, change Change, cause error) *Transaction {
	local := s.synth.Apply(base, change)

	s.metrics.StoreUnreachable(op)
	s.publish(ctx, s.degradedAlert(op, local, cause))

	slog.Warn("store unreachable, returning unsynced state change",
		"operation", op,
		"transaction_id", local.ID,
		"status", local.Status,
		"error", cause,
	)

	return local
}

func (s *Service) degradeVerify(ctx context.Context, base *Transaction, change Change, verified *decimal.Decimal, cause error) *Transaction {
	local := s.degradeChange(ctx, "verify", base, change, cause)
	s.metrics.TransactionVerified(local.Status, true)

	if local.Status == StatusSuccess {
		local.LedgerEntry = s.synth.LedgerEntry(local, ledgerAmount(local, verified))
	}

	return local
}

func (s *Service) localVerified(base *Transaction, change Change, verified *decimal.Decimal) *Transaction {
	local := s.synth.Apply(base, change)
	s.metrics.TransactionVerified(local.Status, true)

	if local.Status == StatusSuccess {
		local.LedgerEntry = s.synth.LedgerEntry(local, ledgerAmount(local, verified))
	}

	return local
}

func (s *Service) degradedAlert(op string, tx *Transaction, cause error) alert.Alert {
	a := alert.New(alert.KindDegradedMode, op, cause.Error())
	a.OrganizationID = tx.OrganizationID
	a.TransactionID = tx.ID
	a.ReferenceCode = tx.ReferenceCode

	return a
}

func (s *Service) publish(ctx context.Context, a alert.Alert) {
	// The caller's outcome does not depend on delivery.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.alerts.Publish(ctx, a); err != nil {
		slog.Error("failed to publish alert", "alert_id", a.ID, "kind", a.Kind, "error", err)
	}
}

// call runs fn under the store timeout.
func (s *Service) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	return fn(ctx)
}

func callValue[T any](ctx context.Context, s *Service, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	return fn(ctx)
}

// degradable reports whether a write failed with one of the signatures that
// switch the engine to a local record: the store is unreachable, or a row that
// was just read is gone.
func degradable(err error) bool {
	return storage.IsUnreachable(err) || errors.Is(err, storage.ErrNotFound)
}

func ledgerAmount(tx *Transaction, verified *decimal.Decimal) decimal.Decimal {
	if verified != nil {
		return *verified
	}

	return tx.Amount
}

func seed(d Draft) string {
	if s := strings.TrimSpace(d.Seed); s != "" {
		return s
	}

	return d.StudentName
}

func (d Draft) validate() error {
	switch {
	case strings.TrimSpace(d.OrganizationID) == "":
		return &ValidationError{Field: "organization_id", Reason: "is required"}
	case strings.TrimSpace(d.StudentID) == "":
		return &ValidationError{Field: "student_id", Reason: "is required"}
	case !d.Amount.IsPositive():
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	return nil
}

func (p VerifyParams) validate() error {
	if p.Decision != StatusSuccess && p.Decision != StatusFailed {
		return &ValidationError{Field: "decision", Reason: fmt.Sprintf("must be %s or %s", StatusSuccess, StatusFailed)}
	}

	if strings.TrimSpace(p.AdminID) == "" {
		return &ValidationError{Field: "admin_id", Reason: "is required"}
	}

	if p.VerifiedAmount != nil && !p.VerifiedAmount.IsPositive() {
		return &ValidationError{Field: "verified_amount", Reason: "must be positive"}
	}

	return nil
}

// requireAmount guards approvals of records whose amount cannot be read. The
// synthesized ledger entry takes VerifiedAmount as the amount paid.
func (p VerifyParams) requireAmount() error {
	if p.Decision == StatusSuccess && p.VerifiedAmount == nil {
		return &ValidationError{Field: "verified_amount", Reason: "is required to approve a record the store cannot return"}
	}

	return nil
}
