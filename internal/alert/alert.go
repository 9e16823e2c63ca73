// Package alert reports conditions staff must reconcile by hand to an
// operational channel.
package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	// KindLinkInconsistency: a transaction reached SUCCESS but has no ledger link.
	KindLinkInconsistency Kind = "link_inconsistency"
	// KindDegradedMode: a record was synthesized locally because the store
	// was unreachable.
	KindDegradedMode Kind = "degraded_mode"
)

type Alert struct {
	ID             string    `json:"id"`
	Kind           Kind      `json:"kind"`
	Operation      string    `json:"operation"`
	OrganizationID string    `json:"organization_id,omitempty"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	ReferenceCode  string    `json:"reference_code,omitempty"`
	Detail         string    `json:"detail"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func New(kind Kind, operation, detail string) Alert {
	return Alert{
		ID:         uuid.NewString(),
		Kind:       kind,
		Operation:  operation,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, a Alert) error
}

// LogPublisher writes alerts to the structured log. It is the publisher used
// when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, a Alert) error {
	slog.Error("operational alert",
		"alert_id", a.ID,
		"kind", a.Kind,
		"operation", a.Operation,
		"organization_id", a.OrganizationID,
		"transaction_id", a.TransactionID,
		"reference_code", a.ReferenceCode,
		"detail", a.Detail,
	)

	return nil
}
