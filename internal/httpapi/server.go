package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minervaai/minerva/internal/config"
	"github.com/minervaai/minerva/internal/observability"
	"github.com/minervaai/minerva/internal/pipeline"
	"github.com/minervaai/minerva/internal/policy"
)

// Asker answers one question for an authenticated requester.
type Asker interface {
	Ask(ctx context.Context, id pipeline.Identity, question string, withMetrics bool) (pipeline.Result, error)
}

// Identity headers set by the upstream authenticator. The service trusts
// them; it sits behind the gateway and is never exposed directly.
const (
	headerUser = "X-Auth-User"
	headerRole = "X-Auth-Role"
)

const headerRequestID = "X-Request-Id"

// requestID tags every response with an identifier so a failed ask can be
// correlated between client report and server log.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r)
	})
}

type Server struct {
	cfg     config.Config
	asker   Asker
	metrics *observability.Metrics
}

func New(cfg config.Config, asker Asker, metrics *observability.Metrics) *Server {
	return &Server{cfg: cfg, asker: asker, metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/ask", s.handleAsk(false))
	r.Post("/v1/ask_with_metrics", s.handleAsk(true))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"dev_mode": s.cfg.DevMode,
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "metrics not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotStages())
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string              `json:"answer"`
	Latency *pipeline.Latency   `json:"latency,omitempty"`
	Usage   *pipeline.Usage     `json:"usage,omitempty"`
	Cache   *pipeline.CacheInfo `json:"cache,omitempty"`
}

func (s *Server) handleAsk(withMetrics bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r)
		if !ok {
			respondError(w, http.StatusForbidden, "invalid_identity", "missing or unknown role")
			return
		}

		var req askRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			respondError(w, http.StatusBadRequest, "invalid_request", "question is required")
			return
		}

		res, err := s.asker.Ask(r.Context(), id, req.Question, withMetrics)
		if err != nil {
			if errors.Is(err, pipeline.ErrNotConfigured) {
				respondError(w, http.StatusServiceUnavailable, "not_configured", err.Error())
				return
			}
			detail, _ := policy.RedactPII(err.Error())
			log.Printf("ask failed: request=%s user=%s role=%s err=%s", w.Header().Get(headerRequestID), id.UserID, id.Role, detail)
			respondError(w, http.StatusBadGateway, "upstream_error", "answer generation failed")
			return
		}

		out := askResponse{Answer: res.Answer}
		if withMetrics && res.Metrics != nil {
			out.Latency = &res.Metrics.Latency
			out.Usage = &res.Metrics.Usage
			out.Cache = &res.Metrics.Cache
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// identityFrom resolves the requester from the trusted upstream headers.
// A request without a known role is rejected before any work happens.
func identityFrom(r *http.Request) (pipeline.Identity, bool) {
	user := strings.TrimSpace(r.Header.Get(headerUser))
	role, ok := policy.NormalizeRole(r.Header.Get(headerRole))
	if user == "" || !ok {
		return pipeline.Identity{}, false
	}
	return pipeline.Identity{UserID: user, Role: role}, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
