package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/feeflow/internal/reconcile"
	"github.com/MrJamesThe3rd/feeflow/internal/refcode"
	"github.com/MrJamesThe3rd/feeflow/internal/statement"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

const header = "Date,Description,Reference,Amount\n"

func pending(id, code, amount string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:             id,
		OrganizationID: "org-1",
		ReferenceCode:  code,
		Amount:         decimal.RequireFromString(amount),
		Status:         transaction.StatusPending,
	}
}

type outcomes map[string]int

func (o outcomes) StatementLine(outcome string) { o[outcome]++ }

func newService(t *testing.T, setup func(m *reconcile.MockTransactions), opts ...refcode.Option) (*reconcile.Service, outcomes) {
	t.Helper()

	codes, err := refcode.New(nil, opts...)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	txs := reconcile.NewMockTransactions(ctrl)

	if setup != nil {
		setup(txs)
	}

	rec := outcomes{}

	return reconcile.NewService(statement.NewParser(), codes, txs, rec), rec
}

func TestService_Reconcile_Matched(t *testing.T) {
	entryID := "entry-7"

	svc, rec := newService(t, func(m *reconcile.MockTransactions) {
		m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").
			Return(pending("tx-1", "GRNK7Q2M", "12500"), nil)

		m.EXPECT().Verify(gomock.Any(), "tx-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, p transaction.VerifyParams) (*transaction.Transaction, error) {
				assert.Equal(t, transaction.StatusSuccess, p.Decision)
				assert.Equal(t, reconcile.SystemAdmin, p.AdminID)
				assert.Equal(t, "615312345678", p.BankReference)
				assert.Equal(t, "Bank statement 2026-06-02 row 2: UPI asha@okicici fee grnk7q2m", p.Notes)
				require.NotNil(t, p.VerifiedAmount)
				assert.True(t, decimal.NewFromInt(12500).Equal(*p.VerifiedAmount))

				tx := pending("tx-1", "GRNK7Q2M", "12500")
				tx.Status = transaction.StatusSuccess
				tx.LedgerEntryID = &entryID

				return tx, nil
			})
	})

	csv := header + "2026-06-02,UPI asha@okicici fee grnk7q2m,615312345678,\"12,500.00\"\n"

	report, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, reconcile.OutcomeMatched, res.Outcome)
	assert.Equal(t, "tx-1", res.TransactionID)
	assert.Equal(t, transaction.StatusSuccess, res.Status)
	assert.Equal(t, &entryID, res.LedgerEntryID)
	assert.Equal(t, "generic", report.Profile)
	assert.Equal(t, 1, rec[string(reconcile.OutcomeMatched)])
}

func TestService_Reconcile_CustomCodeLength(t *testing.T) {
	svc, rec := newService(t, func(m *reconcile.MockTransactions) {
		m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2MAB").
			Return(pending("tx-1", "GRNK7Q2MAB", "900"), nil)

		m.EXPECT().Verify(gomock.Any(), "tx-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ transaction.VerifyParams) (*transaction.Transaction, error) {
				tx := pending("tx-1", "GRNK7Q2MAB", "900")
				tx.Status = transaction.StatusSuccess

				return tx, nil
			})
	}, refcode.WithLength(10))

	csv := header + "2026-06-02,UPI fee grnk7q2mab,615312345678,900.00\n"

	report, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, reconcile.OutcomeMatched, report.Results[0].Outcome)
	assert.Equal(t, 1, rec[string(reconcile.OutcomeMatched)])
}

func TestService_Reconcile_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		setupMock func(m *reconcile.MockTransactions)
		want      reconcile.Outcome
		wantCode  string
	}{
		{
			name: "AmountMismatch",
			csv:  "2026-06-02,Fee GRNK7Q2M,R1,12000.00\n",
			setupMock: func(m *reconcile.MockTransactions) {
				m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").
					Return(pending("tx-1", "GRNK7Q2M", "12500"), nil)
			},
			want:     reconcile.OutcomeAmountMismatch,
			wantCode: "GRNK7Q2M",
		},
		{
			name: "AlreadyFinalized",
			csv:  "2026-06-02,Fee GRNK7Q2M,R1,12500.00\n",
			setupMock: func(m *reconcile.MockTransactions) {
				tx := pending("tx-1", "GRNK7Q2M", "12500")
				tx.Status = transaction.StatusFailed
				m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").Return(tx, nil)
			},
			want:     reconcile.OutcomeAlreadyFinalized,
			wantCode: "GRNK7Q2M",
		},
		{
			name: "FinalizedConcurrently",
			csv:  "2026-06-02,Fee GRNK7Q2M,R1,12500.00\n",
			setupMock: func(m *reconcile.MockTransactions) {
				m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").
					Return(pending("tx-1", "GRNK7Q2M", "12500"), nil)
				m.EXPECT().Verify(gomock.Any(), "tx-1", gomock.Any()).
					Return(nil, &transaction.AlreadyFinalizedError{ID: "tx-1", Status: transaction.StatusSuccess})
			},
			want:     reconcile.OutcomeAlreadyFinalized,
			wantCode: "GRNK7Q2M",
		},
		{
			name: "UnknownCode",
			csv:  "2026-06-02,Fee GRNK7Q2M,R1,12500.00\n",
			setupMock: func(m *reconcile.MockTransactions) {
				m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").
					Return(nil, fmt.Errorf("get: %w", storage.ErrNotFound))
			},
			want: reconcile.OutcomeUnmatched,
		},
		{
			name: "NoCandidate",
			csv:  "2026-06-02,Cash deposit,R1,500.00\n",
			want: reconcile.OutcomeUnmatched,
		},
		{
			name: "LookalikeWordSkipped",
			csv:  "2026-06-02,TRANSFER GRNP4X8T,R1,8000.00\n",
			setupMock: func(m *reconcile.MockTransactions) {
				gomock.InOrder(
					m.EXPECT().GetByReference(gomock.Any(), "org-1", "TRANSFER").Return(nil, storage.ErrNotFound),
					m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNP4X8T").
						Return(pending("tx-2", "GRNP4X8T", "9000"), nil),
				)
			},
			want:     reconcile.OutcomeAmountMismatch,
			wantCode: "GRNP4X8T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rec := newService(t, tt.setupMock)

			report, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader(header+tt.csv))
			require.NoError(t, err)
			require.Len(t, report.Results, 1)

			assert.Equal(t, tt.want, report.Results[0].Outcome)
			assert.Equal(t, tt.wantCode, report.Results[0].ReferenceCode)
			assert.Equal(t, 1, report.Count(tt.want))
			assert.Equal(t, 1, rec[string(tt.want)])
		})
	}
}

func TestService_Reconcile_DebitsSkipped(t *testing.T) {
	svc, _ := newService(t, nil)

	csv := header + "2026-06-02,Refund GRNK7Q2M,R1,-12500.00\n"

	report, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, 1, report.Debits)
}

func TestService_Reconcile_StoreFailureAborts(t *testing.T) {
	svc, _ := newService(t, func(m *reconcile.MockTransactions) {
		m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").
			Return(nil, fmt.Errorf("get: %w", storage.ErrUnreachable))
	})

	csv := header + "2026-06-02,Fee GRNK7Q2M,R1,12500.00\n"

	_, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader(csv))
	require.ErrorIs(t, err, storage.ErrUnreachable)
	assert.Contains(t, err.Error(), "row 2")
}

func TestService_Reconcile_VerifyFailure(t *testing.T) {
	errBoom := errors.New("boom")

	svc, _ := newService(t, func(m *reconcile.MockTransactions) {
		m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").
			Return(pending("tx-1", "GRNK7Q2M", "12500"), nil)
		m.EXPECT().Verify(gomock.Any(), "tx-1", gomock.Any()).Return(nil, errBoom)
	})

	csv := header + "2026-06-02,Fee GRNK7Q2M,R1,12500.00\n"

	_, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader(csv))
	require.ErrorIs(t, err, errBoom)
}

func TestService_Reconcile_MissingOrganization(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.Reconcile(context.Background(), "", strings.NewReader(header))
	require.ErrorIs(t, err, transaction.ErrValidation)
}

func TestService_Reconcile_UnknownFormat(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader("foo,bar\n1,2\n"))
	require.ErrorIs(t, err, statement.ErrUnknownFormat)
}

func TestResult_MarshalJSON(t *testing.T) {
	svc, _ := newService(t, func(m *reconcile.MockTransactions) {
		m.EXPECT().GetByReference(gomock.Any(), "org-1", "GRNK7Q2M").
			Return(pending("tx-1", "GRNK7Q2M", "12500"), nil)
	})

	csv := header + "2026-06-02,Fee GRNK7Q2M,R1,99.5\n"

	report, err := svc.Reconcile(context.Background(), "org-1", strings.NewReader(csv))
	require.NoError(t, err)

	raw, err := json.Marshal(report.Results[0])
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "99.50", got["amount"])
	assert.Equal(t, "2026-06-02", got["date"])
	assert.Equal(t, "amount_mismatch", got["outcome"])
	assert.Equal(t, "tx-1", got["transaction_id"])
	assert.NotContains(t, got, "local")
}
