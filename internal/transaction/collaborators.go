package transaction

import (
	"context"

	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
	"github.com/MrJamesThe3rd/feeflow/internal/routing"
)

type CodeGenerator interface {
	Generate(ctx context.Context, organizationID, seed string) (string, error)
	// Candidate returns a well-formed code without checking uniqueness. It
	// is only used for local records.
	Candidate(seed string) string
}

type PayloadSource interface {
	Payload(ctx context.Context, organizationID string) (routing.Payload, error)
}

type Linker interface {
	Link(ctx context.Context, req ledger.LinkRequest) (*ledger.Entry, error)
}

// Ledger link outcomes reported to the Recorder.
const (
	LinkLinked       = "linked"
	LinkDegraded     = "degraded"
	LinkInconsistent = "inconsistent"
)

// Recorder observes state machine outcomes.
type Recorder interface {
	TransactionCreated(local bool)
	TransactionVerified(status Status, local bool)
	LedgerLink(outcome string)
	StoreUnreachable(operation string)
	LocalShortCircuit(operation string)
}

type nopRecorder struct{}

func (nopRecorder) TransactionCreated(bool) {}
func (nopRecorder) TransactionVerified(Status, bool) {}
func (nopRecorder) LedgerLink(string) {}
func (nopRecorder) StoreUnreachable(string) {}
func (nopRecorder) LocalShortCircuit(string) {}
