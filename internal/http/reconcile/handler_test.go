package reconcile_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	reconcileHandler "github.com/MrJamesThe3rd/feeflow/internal/http/reconcile"
	"github.com/MrJamesThe3rd/feeflow/internal/reconcile"
	"github.com/MrJamesThe3rd/feeflow/internal/statement"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

func newRouter(t *testing.T, setupMock func(m *reconcileHandler.MockService)) http.Handler {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := reconcileHandler.NewMockService(ctrl)

	if setupMock != nil {
		setupMock(svc)
	}

	r := chi.NewRouter()
	r.Route("/reconcile", reconcileHandler.NewHandler(svc, 0).Routes)

	return r
}

func upload(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if file != "" {
		fw, err := mw.CreateFormFile("file", "statement.csv")
		require.NoError(t, err)

		_, err = io.WriteString(fw, file)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/reconcile/statements", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_Reconcile(t *testing.T) {
	const csv = "Date,Description,Amount\n2026-06-02,Fee GRNK7Q2M,300.00\n"

	h := newRouter(t, func(m *reconcileHandler.MockService) {
		m.EXPECT().Reconcile(gomock.Any(), "org-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, r io.Reader) (*reconcile.Report, error) {
				body, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, csv, string(body))

				return &reconcile.Report{
					Profile: "generic",
					Charset: "UTF-8",
					Debits:  2,
					Results: []reconcile.Result{{
						Line: statement.Line{
							Row:         2,
							Date:        time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
							Description: "Fee GRNK7Q2M",
							Amount:      decimal.NewFromInt(300),
							Credit:      true,
						},
						Outcome:       reconcile.OutcomeMatched,
						ReferenceCode: "GRNK7Q2M",
						TransactionID: "tx-1",
						Status:        transaction.StatusSuccess,
					}},
				}, nil
			})
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, upload(t, map[string]string{"organization_id": "org-1"}, csv))

	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Format  string         `json:"format"`
		Summary map[string]int `json:"summary"`
		Lines   []map[string]any
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))

	assert.Equal(t, "generic", got.Format)
	assert.Equal(t, 1, got.Summary["matched"])
	assert.Equal(t, 2, got.Summary["debits_skipped"])
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "matched", got.Lines[0]["outcome"])
	assert.Equal(t, "300.00", got.Lines[0]["amount"])
}

func TestHandler_ReconcileBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		file   string
	}{
		{name: "MissingOrganization", file: "Date,Description,Amount\n"},
		{name: "MissingFile", fields: map[string]string{"organization_id": "org-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRouter(t, nil)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, upload(t, tt.fields, tt.file))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_ReconcileUnknownFormat(t *testing.T) {
	h := newRouter(t, func(m *reconcileHandler.MockService) {
		m.EXPECT().Reconcile(gomock.Any(), "org-1", gomock.Any()).
			Return(nil, fmt.Errorf("parse statement: %w", statement.ErrUnknownFormat))
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, upload(t, map[string]string{"organization_id": "org-1"}, "foo,bar\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
