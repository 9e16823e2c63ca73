package reconcile

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/feeflow/internal/http/respond"
	"github.com/MrJamesThe3rd/feeflow/internal/reconcile"
)

const defaultMaxUpload = 10 << 20

//go:generate mockgen -source=handler.go -destination=service_mock.go -package=reconcile
type Service interface {
	Reconcile(ctx context.Context, organizationID string, r io.Reader) (*reconcile.Report, error)
}

type Handler struct {
	svc       Service
	maxUpload int64
}

// NewHandler accepts statements up to maxUpload bytes; zero means 10 MiB.
func NewHandler(svc Service, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	return &Handler{svc: svc, maxUpload: maxUpload}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/statements", h.reconcileStatement)
}

type summaryResponse struct {
	Matched          int `json:"matched"`
	AlreadyFinalized int `json:"already_finalized"`
	AmountMismatch   int `json:"amount_mismatch"`
	Unmatched        int `json:"unmatched"`
	Debits           int `json:"debits_skipped"`
}

type reportResponse struct {
	Format  string             `json:"format"`
	Charset string             `json:"charset"`
	Summary summaryResponse    `json:"summary"`
	Lines   []reconcile.Result `json:"lines"`
}

func (h *Handler) reconcileStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respond.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	org := r.FormValue("organization_id")
	if org == "" {
		respond.BadRequest(w, "organization_id field is required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	report, err := h.svc.Reconcile(r.Context(), org, file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	lines := report.Results
	if lines == nil {
		lines = []reconcile.Result{}
	}

	respond.JSON(w, http.StatusOK, reportResponse{
		Format:  report.Profile,
		Charset: report.Charset,
		Summary: summaryResponse{
			Matched:          report.Count(reconcile.OutcomeMatched),
			AlreadyFinalized: report.Count(reconcile.OutcomeAlreadyFinalized),
			AmountMismatch:   report.Count(reconcile.OutcomeAmountMismatch),
			Unmatched:        report.Count(reconcile.OutcomeUnmatched),
			Debits:           report.Debits,
		},
		Lines: lines,
	})
}
