package transaction

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid transaction")
	ErrAlreadyFinalized  = errors.New("transaction already finalized")
	ErrLinkInconsistency = errors.New("ledger link inconsistency")

	// ErrDuplicateReference is returned by the repository when the reference
	// code was taken between the lookup and the insert.
	ErrDuplicateReference = errors.New("reference code already used in organization")

	// ErrTransitionRejected is returned by the repository when the stored
	// status no longer allows the requested transition.
	ErrTransitionRejected = errors.New("transition rejected by current status")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type AlreadyFinalizedError struct {
	ID     string
	Status Status
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("transaction %s is already %s", e.ID, e.Status)
}

func (e *AlreadyFinalizedError) Is(target error) bool {
	return target == ErrAlreadyFinalized
}

// LinkInconsistencyError describes a SUCCESS transaction left without a
// ledger link.
type LinkInconsistencyError struct {
	TransactionID  string
	OrganizationID string
	ReferenceCode  string
	Err            error
}

func (e *LinkInconsistencyError) Error() string {
	return fmt.Sprintf("transaction %s succeeded without a ledger entry: %v", e.TransactionID, e.Err)
}

func (e *LinkInconsistencyError) Unwrap() error {
	return e.Err
}

func (e *LinkInconsistencyError) Is(target error) bool {
	return target == ErrLinkInconsistency
}
