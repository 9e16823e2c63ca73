package routing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/feeflow/internal/http/respond"
	"github.com/MrJamesThe3rd/feeflow/internal/routing"
)

//go:generate mockgen -source=handler.go -destination=cache_mock.go -package=routing
type Cache interface {
	Payload(ctx context.Context, organizationID string) (routing.Payload, error)
	ForceRefresh(ctx context.Context, organizationID string) (*routing.Settings, error)
}

type SettingsWriter interface {
	UpsertSettings(ctx context.Context, rs routing.Settings) error
}

type Handler struct {
	cache       Cache
	settings    SettingsWriter
	invalidator routing.Invalidator
}

func NewHandler(cache Cache, settings SettingsWriter, invalidator routing.Invalidator) *Handler {
	return &Handler{cache: cache, settings: settings, invalidator: invalidator}
}

func (h *Handler) Routes(r chi.Router) {
	r.Delete("/cache", h.invalidate)
	r.Get("/{organizationID}/payload", h.payload)
	r.Put("/{organizationID}", h.update)
	r.Post("/{organizationID}/refresh", h.refresh)
}

type payloadResponse struct {
	RoutingID   string `json:"routing_id"`
	DisplayName string `json:"display_name"`
	Fallback    bool   `json:"fallback"`
}

type settingsResponse struct {
	OrganizationID string    `json:"organization_id"`
	PayeeAddress   string    `json:"payee_address"`
	DisplayName    string    `json:"display_name"`
	Primary        bool      `json:"is_primary"`
	FetchedAt      time.Time `json:"fetched_at,omitzero"`
}

func (h *Handler) payload(w http.ResponseWriter, r *http.Request) {
	p, err := h.cache.Payload(r.Context(), chi.URLParam(r, "organizationID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, payloadResponse{
		RoutingID:   p.RoutingID,
		DisplayName: p.DisplayName,
		Fallback:    p.Fallback,
	})
}

type updateSettingsRequest struct {
	PayeeAddress string `json:"payee_address"`
	DisplayName  string `json:"display_name"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "organizationID")

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	rs := routing.Settings{
		OrganizationID: org,
		PayeeAddress:   strings.TrimSpace(req.PayeeAddress),
		DisplayName:    strings.TrimSpace(req.DisplayName),
		Primary:        true,
	}

	if rs.PayeeAddress == "" || rs.DisplayName == "" {
		respond.BadRequest(w, "payee_address and display_name are required")
		return
	}

	if err := h.settings.UpsertSettings(r.Context(), rs); err != nil {
		respond.Error(w, r, err)
		return
	}

	h.notify(r.Context(), org)

	respond.JSON(w, http.StatusOK, toSettingsResponse(&rs))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	rs, err := h.cache.ForceRefresh(r.Context(), chi.URLParam(r, "organizationID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toSettingsResponse(rs))
}

// invalidate drops one organization's entry, or every entry when no
// organization_id is given.
func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organization_id")
	if org == "" {
		org = routing.AllOrganizations
	}

	h.notify(r.Context(), org)

	w.WriteHeader(http.StatusNoContent)
}

// notify never fails the request: the local cache is already invalidated and
// other processes catch up within the TTL.
func (h *Handler) notify(ctx context.Context, organizationID string) {
	if err := h.invalidator.Invalidate(ctx, organizationID); err != nil {
		slog.Warn("routing invalidation not broadcast", "organization_id", organizationID, "error", err)
	}
}

func toSettingsResponse(rs *routing.Settings) settingsResponse {
	return settingsResponse{
		OrganizationID: rs.OrganizationID,
		PayeeAddress:   rs.PayeeAddress,
		DisplayName:    rs.DisplayName,
		Primary:        rs.Primary,
		FetchedAt:      rs.FetchedAt,
	}
}
