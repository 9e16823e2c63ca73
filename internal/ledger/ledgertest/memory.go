// Package ledgertest provides an in-memory ledger repository for tests that
// span several linker calls.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
)

// Memory enforces the same unique receipt and transaction constraints as
// the Postgres schema.
type Memory struct {
	mu      sync.Mutex
	entries []*ledger.Entry

	// Err, when set, is returned by every call.
	Err error
}

// Seed stores entries as if they were already persisted.
func (m *Memory) Seed(entries ...ledger.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if e.ID == "" {
			e.ID = fmt.Sprintf("entry-%d", len(m.entries)+1)
		}

		m.entries = append(m.entries, &e)
	}
}

func (m *Memory) Entries() []ledger.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}

	return out
}

func (m *Memory) MaxReceiptNumber(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}

	var highest int64
	for _, e := range m.entries {
		highest = max(highest, e.ReceiptNumber)
	}

	return highest, nil
}

func (m *Memory) CreateEntry(_ context.Context, e *ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	for _, existing := range m.entries {
		if existing.ReceiptNumber == e.ReceiptNumber {
			return ledger.ErrReceiptTaken
		}

		if e.TransactionID != nil && existing.TransactionID != nil && *existing.TransactionID == *e.TransactionID {
			return ledger.ErrAlreadyLinked
		}
	}

	e.ID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	e.CreatedAt = time.Now()

	stored := *e
	m.entries = append(m.entries, &stored)

	return nil
}

func (m *Memory) GetEntry(_ context.Context, id string) (*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	for _, e := range m.entries {
		if e.ID == id {
			found := *e
			return &found, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (m *Memory) FindByTransaction(_ context.Context, transactionID string) (*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	for _, e := range m.entries {
		if e.TransactionID != nil && *e.TransactionID == transactionID {
			found := *e
			return &found, nil
		}
	}

	return nil, storage.ErrNotFound
}
