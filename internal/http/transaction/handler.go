package transaction

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/feeflow/internal/http/respond"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

//go:generate mockgen -source=handler.go -destination=service_mock.go -package=transaction
type Service interface {
	Create(ctx context.Context, d transaction.Draft) (*transaction.Transaction, error)
	Claim(ctx context.Context, id, notes string) (*transaction.Transaction, error)
	Verify(ctx context.Context, id string, p transaction.VerifyParams) (*transaction.Transaction, error)
	Relink(ctx context.Context, id string) (*transaction.Transaction, error)
	Get(ctx context.Context, id string) (*transaction.Transaction, error)
	GetByReference(ctx context.Context, organizationID, code string) (*transaction.Transaction, error)
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/by-reference/{code}", h.getByReference)
	r.Get("/{id}", h.get)
	r.Post("/{id}/claim", h.claim)
	r.Post("/{id}/verify", h.verify)
	r.Post("/{id}/link", h.relink)
}

type createTransactionRequest struct {
	OrganizationID string          `json:"organization_id"`
	StudentID      string          `json:"student_id"`
	StudentName    string          `json:"student_name"`
	Seed           string          `json:"seed"`
	FeeComponent   string          `json:"fee_component"`
	Amount         decimal.Decimal `json:"amount"`
	AcademicPeriod string          `json:"academic_period"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty"`
	PaymentPayload string          `json:"payment_payload"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	d := transaction.Draft{
		OrganizationID: req.OrganizationID,
		StudentID:      req.StudentID,
		StudentName:    req.StudentName,
		Seed:           req.Seed,
		FeeComponent:   req.FeeComponent,
		Amount:         req.Amount,
		AcademicPeriod: req.AcademicPeriod,
		PaymentPayload: req.PaymentPayload,
	}
	if req.PaymentDate != nil {
		d.PaymentDate = *req.PaymentDate
	}

	tx, err := h.svc.Create(r.Context(), d)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := transaction.ListFilter{
		OrganizationID: q.Get("organization_id"),
		StudentID:      q.Get("student_id"),
	}

	if s := q.Get("status"); s != "" {
		st := transaction.Status(s)
		if !st.Valid() {
			respond.BadRequest(w, "invalid status: "+s)
			return
		}

		filter.Status = new(st)
	}

	if s := q.Get("needs_reconciliation"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			respond.BadRequest(w, "invalid needs_reconciliation: "+s)
			return
		}

		filter.NeedsReconciliation = v
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respond.BadRequest(w, "invalid limit: "+s)
			return
		}

		filter.Limit = n
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) getByReference(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organization_id")
	if org == "" {
		respond.BadRequest(w, "organization_id is required")
		return
	}

	tx, err := h.svc.GetByReference(r.Context(), org, chi.URLParam(r, "code"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

type claimRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	tx, err := h.svc.Claim(r.Context(), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

type verifyRequest struct {
	Decision       transaction.Status `json:"decision"`
	AdminID        string             `json:"admin_id"`
	Notes          string             `json:"notes"`
	BankReference  string             `json:"bank_reference"`
	VerifiedAmount *decimal.Decimal   `json:"verified_amount,omitempty"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	tx, err := h.svc.Verify(r.Context(), chi.URLParam(r, "id"), transaction.VerifyParams{
		Decision:       req.Decision,
		AdminID:        req.AdminID,
		Notes:          req.Notes,
		BankReference:  req.BankReference,
		VerifiedAmount: req.VerifiedAmount,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) relink(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Relink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}
