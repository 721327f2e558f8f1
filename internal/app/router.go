package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvacdesk/hvacdesk/internal/observability"
	"github.com/hvacdesk/hvacdesk/internal/prepurchase"
	"github.com/hvacdesk/hvacdesk/internal/settlement"
	"github.com/hvacdesk/hvacdesk/internal/warehouse"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
	"github.com/hvacdesk/hvacdesk/jobs"
)

const pingTimeout = 2 * time.Second

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	WorkOrderHandler   *workorders.Handler
	WarehouseHandler   *warehouse.Handler
	PrepurchaseHandler *prepurchase.Handler
	SettlementHandler  *settlement.Handler
	JobsHandler        *jobs.Handler
	Pool               *pgxpool.Pool
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := params.Pool.Ping(ctx); err != nil {
				params.Logger.Warn("readiness ping failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.WorkOrderHandler != nil {
			params.WorkOrderHandler.MountRoutes(api)
		}
		if params.WarehouseHandler != nil {
			params.WarehouseHandler.MountRoutes(api)
		}
		if params.PrepurchaseHandler != nil {
			params.PrepurchaseHandler.MountRoutes(api)
		}
		if params.SettlementHandler != nil {
			params.SettlementHandler.MountRoutes(api)
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobsHandler.MountRoutes(jr)
		})
	}

	return r
}
