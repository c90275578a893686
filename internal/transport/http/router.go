package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sprinq/cecs378project-sub000/internal/authz"
	"github.com/Sprinq/cecs378project-sub000/internal/migration"
	obsmw "github.com/Sprinq/cecs378project-sub000/internal/observability/middleware"
)

// NewRouter wires the migrator's admin surface. Auth middleware is chosen
// at boot (shared secret or JWKS) and applied to the /v1 group only so
// probes and scrapes stay open.
func NewRouter(worker *migration.Worker, defaultLimit int, adminAuth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(obsmw.LogRequests)
	r.Use(obsmw.WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(httprate.LimitByIP(30, 1*time.Minute))
		pr.Use(adminAuth)

		pr.Post("/v1/migrate/run", func(w http.ResponseWriter, r *http.Request) {
			reqID := chimw.GetReqID(r.Context())
			limit := defaultLimit
			if raw := r.URL.Query().Get("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 {
					http.Error(w, "invalid limit", http.StatusBadRequest)
					slog.Warn("manual migration bad limit", "limit", raw, "request_id", reqID)
					return
				}
				limit = n
			}

			rep, err := worker.RunOnce(r.Context(), limit, "manual")
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				slog.Warn("manual migration run failed", "error", err, "request_id", reqID)
				return
			}
			sub, _ := authz.SubjectFrom(r.Context())
			slog.Info("manual migration run",
				"subject", sub,
				"scanned", rep.Scanned,
				"migrated", rep.Migrated,
				"conflicts", rep.Conflicts,
				"failures", rep.Failures,
				"request_id", reqID,
			)
			writeJSON(w, http.StatusOK, rep)
		})

		pr.Get("/v1/migrate/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, worker.Status())
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
