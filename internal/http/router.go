// Package http expone el role-state core por HTTP: snapshot del estado,
// acciones imperativas y métricas. Es la cáscara mínima del daemon; las
// APIs de cursos/enrollment de la plataforma viven fuera de este core.
package http

import (
	"encoding/json"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aulaone/rolesync/internal/observability/logger"
	"github.com/aulaone/rolesync/internal/role"
	"github.com/aulaone/rolesync/internal/state"
)

// NewRouter arma el router chi sobre el orchestrator.
func NewRouter(o *state.Orchestrator) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/role", func(r chi.Router) {
		r.Get("/", handleGetRole(o))
		r.Post("/", handleSetRole(o))
		r.Delete("/", handleClearRole(o))
		r.Post("/refresh", handleRefresh(o))
	})

	return r
}

func handleHealthz(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
}

func handleGetRole(o *state.Orchestrator) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusOK, o.Snapshot())
	}
}

func handleSetRole(o *state.Orchestrator) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		var body struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, stdhttp.StatusBadRequest, "invalid_body")
			return
		}
		r, ok := role.Parse(body.Role)
		if !ok {
			writeError(w, stdhttp.StatusBadRequest, "invalid_role")
			return
		}
		o.SetRole(r)
		writeJSON(w, stdhttp.StatusOK, o.Snapshot())
	}
}

func handleClearRole(o *state.Orchestrator) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		o.ClearRole()
		writeJSON(w, stdhttp.StatusOK, o.Snapshot())
	}
}

func handleRefresh(o *state.Orchestrator) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		start := time.Now()
		err := o.RefreshRole(req.Context())
		if err != nil {
			logger.From(req.Context()).Warn("refresh failed",
				logger.Duration(time.Since(start)),
				logger.Err(err),
			)
		}
		// El estado ya refleja el resultado (ready o error+fallback)
		writeJSON(w, stdhttp.StatusOK, o.Snapshot())
	}
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w stdhttp.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
