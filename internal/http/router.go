package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/feeflow/internal/http/ledger"
	"github.com/MrJamesThe3rd/feeflow/internal/http/reconcile"
	"github.com/MrJamesThe3rd/feeflow/internal/http/respond"
	"github.com/MrJamesThe3rd/feeflow/internal/http/routing"
	"github.com/MrJamesThe3rd/feeflow/internal/http/transaction"
)

const healthTimeout = 2 * time.Second

type Options struct {
	CORSOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Health reports whether the store answers; nil means always healthy.
	Health func(ctx context.Context) error
}

func New(
	transactionsV1 *transaction.Handler,
	routingV1 *routing.Handler,
	ledgerV1 *ledger.Handler,
	reconcileV1 *reconcile.Handler,
	opts Options,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", healthz(opts.Health))

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			transactionsV1.Routes(r)
		})

		r.Route("/routing", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			routingV1.Routes(r)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			ledgerV1.Routes(r)
		})

		r.Route("/reconcile", reconcileV1.Routes)
	})

	return router
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()

			if err := check(ctx); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}

		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
