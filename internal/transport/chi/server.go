package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
	"github.com/kailas-cloud/jurisdoc/internal/domain/search/result"
	authuc "github.com/kailas-cloud/jurisdoc/internal/usecase/auth"
	decisionuc "github.com/kailas-cloud/jurisdoc/internal/usecase/decision"
	healthuc "github.com/kailas-cloud/jurisdoc/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface on top of the use case services.
type Server struct {
	decisions     *decisionuc.Service
	auth          *authuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	decisions *decisionuc.Service,
	auth *authuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		decisions: decisions,
		auth:      auth,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrDecisionNotFound, http.StatusNotFound, ErrorCodeDecisionNotFound),
		sentinelHandler(domain.ErrInvalidCredentials, http.StatusUnauthorized, ErrorCodeInvalidCredentials),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, ErrorCodeUnauthorized),
	}
	return s
}

// Login handles POST /login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "username and password are required")
		return
	}

	tok, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// ListDecisions handles GET /decisions.
func (s *Server) ListDecisions(w http.ResponseWriter, r *http.Request) {
	items, err := s.decisions.ListAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// FilterDecisions handles GET /decisions/formation.
func (s *Server) FilterDecisions(w http.ResponseWriter, r *http.Request, params FilterDecisionsParams) {
	items, err := s.decisions.FilterByFormation(r.Context(), deref(params.Formation))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// SearchDecisions handles GET /decisions/search.
func (s *Server) SearchDecisions(w http.ResponseWriter, r *http.Request, params SearchDecisionsParams) {
	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}

	results, err := s.decisions.Search(r.Context(), deref(params.Q), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits := make([]result.Hit, len(results))
	for i, res := range results {
		hits[i] = res.Hit()
	}
	writeJSON(w, http.StatusOK, hits)
}

// GetDecision handles GET /decisions/{id}.
func (s *Server) GetDecision(w http.ResponseWriter, r *http.Request, id string) {
	d, err := s.decisions.GetByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrDecisionNotFound,
		domain.ErrInvalidCredentials,
		domain.ErrUnauthorized,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Debug("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
