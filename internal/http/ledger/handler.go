package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/feeflow/internal/http/respond"
	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
)

//go:generate mockgen -source=handler.go -destination=service_mock.go -package=ledger
type Service interface {
	RecordCash(ctx context.Context, p ledger.CashPayment) (*ledger.Entry, error)
	Get(ctx context.Context, id string) (*ledger.Entry, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/cash", h.recordCash)
	r.Get("/entries/{id}", h.get)
}

// EntryResponse is the wire form of a ledger entry.
type EntryResponse struct {
	ID             string      `json:"id"`
	OrganizationID string      `json:"organization_id"`
	StudentID      string      `json:"student_id"`
	FeeComponent   string      `json:"fee_component,omitempty"`
	AmountPaid     string      `json:"amount_paid"`
	PaymentDate    time.Time   `json:"payment_date"`
	Mode           ledger.Mode `json:"payment_mode"`
	AcademicPeriod string      `json:"academic_period,omitempty"`
	ReceiptNumber  int64       `json:"receipt_number,omitempty"`
	TransactionID  *string     `json:"transaction_id,omitempty"`
	Local          bool        `json:"local"`
	CreatedAt      time.Time   `json:"created_at"`
}

func ToEntryResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		StudentID:      e.StudentID,
		FeeComponent:   e.FeeComponent,
		AmountPaid:     e.AmountPaid.StringFixed(2),
		PaymentDate:    e.PaymentDate,
		Mode:           e.Mode,
		AcademicPeriod: e.AcademicPeriod,
		ReceiptNumber:  e.ReceiptNumber,
		TransactionID:  e.TransactionID,
		Local:          e.Local,
		CreatedAt:      e.CreatedAt,
	}
}

type cashRequest struct {
	OrganizationID string          `json:"organization_id"`
	StudentID      string          `json:"student_id"`
	FeeComponent   string          `json:"fee_component"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty"`
	AcademicPeriod string          `json:"academic_period"`
}

func (h *Handler) recordCash(w http.ResponseWriter, r *http.Request) {
	var req cashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	p := ledger.CashPayment{
		OrganizationID: req.OrganizationID,
		StudentID:      req.StudentID,
		FeeComponent:   req.FeeComponent,
		Amount:         req.Amount,
		AcademicPeriod: req.AcademicPeriod,
	}
	if req.PaymentDate != nil {
		p.PaymentDate = *req.PaymentDate
	}

	e, err := h.svc.RecordCash(r.Context(), p)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToEntryResponse(e))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToEntryResponse(e))
}
