package routing_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	routingHandler "github.com/MrJamesThe3rd/feeflow/internal/http/routing"
	"github.com/MrJamesThe3rd/feeflow/internal/routing"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
)

type mocks struct {
	cache       *routingHandler.MockCache
	settings    *routingHandler.MockSettingsWriter
	invalidator *routing.MockInvalidator
}

func newRouter(t *testing.T, setup func(m mocks)) http.Handler {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		cache:       routingHandler.NewMockCache(ctrl),
		settings:    routingHandler.NewMockSettingsWriter(ctrl),
		invalidator: routing.NewMockInvalidator(ctrl),
	}

	if setup != nil {
		setup(m)
	}

	r := chi.NewRouter()
	r.Route("/routing", routingHandler.NewHandler(m.cache, m.settings, m.invalidator).Routes)

	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))

	return w
}

func TestHandler_Payload(t *testing.T) {
	h := newRouter(t, func(m mocks) {
		m.cache.EXPECT().Payload(gomock.Any(), "org-1").
			Return(routing.Payload{RoutingID: "school@okaxis", DisplayName: "Greenfield School"}, nil)
	})

	w := serve(h, http.MethodGet, "/routing/org-1/payload", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"routing_id":"school@okaxis","display_name":"Greenfield School","fallback":false}`, w.Body.String())
}

func TestHandler_Update(t *testing.T) {
	h := newRouter(t, func(m mocks) {
		gomock.InOrder(
			m.settings.EXPECT().UpsertSettings(gomock.Any(), routing.Settings{
				OrganizationID: "org-1",
				PayeeAddress:   "new@okaxis",
				DisplayName:    "Greenfield School",
				Primary:        true,
			}).Return(nil),
			m.invalidator.EXPECT().Invalidate(gomock.Any(), "org-1").Return(nil),
		)
	})

	w := serve(h, http.MethodPut, "/routing/org-1", `{"payee_address":" new@okaxis ","display_name":"Greenfield School"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payee_address":"new@okaxis"`)
}

func TestHandler_UpdateBroadcastFailureStillSucceeds(t *testing.T) {
	h := newRouter(t, func(m mocks) {
		m.settings.EXPECT().UpsertSettings(gomock.Any(), gomock.Any()).Return(nil)
		m.invalidator.EXPECT().Invalidate(gomock.Any(), "org-1").Return(errors.New("redis down"))
	})

	w := serve(h, http.MethodPut, "/routing/org-1", `{"payee_address":"new@okaxis","display_name":"School"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_UpdateValidation(t *testing.T) {
	h := newRouter(t, nil)

	w := serve(h, http.MethodPut, "/routing/org-1", `{"payee_address":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Refresh(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m mocks)
		want  int
	}{
		{
			name: "Refreshed",
			setup: func(m mocks) {
				m.cache.EXPECT().ForceRefresh(gomock.Any(), "org-1").
					Return(&routing.Settings{OrganizationID: "org-1", PayeeAddress: "a@okaxis", DisplayName: "A"}, nil)
			},
			want: http.StatusOK,
		},
		{
			name: "NotConfigured",
			setup: func(m mocks) {
				m.cache.EXPECT().ForceRefresh(gomock.Any(), "org-1").
					Return(nil, fmt.Errorf("active settings: %w", storage.ErrNotFound))
			},
			want: http.StatusNotFound,
		},
		{
			name: "Unreachable",
			setup: func(m mocks) {
				m.cache.EXPECT().ForceRefresh(gomock.Any(), "org-1").Return(nil, storage.ErrUnreachable)
			},
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRouter(t, tt.setup)

			w := serve(h, http.MethodPost, "/routing/org-1/refresh", "")
			require.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandler_Invalidate(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "SingleOrganization", query: "?organization_id=org-1", want: "org-1"},
		{name: "All", query: "", want: routing.AllOrganizations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRouter(t, func(m mocks) {
				m.invalidator.EXPECT().Invalidate(gomock.Any(), tt.want).Return(nil)
			})

			w := serve(h, http.MethodDelete, "/routing/cache"+tt.query, "")
			assert.Equal(t, http.StatusNoContent, w.Code)
		})
	}
}
