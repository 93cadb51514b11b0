package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is the machine-readable error kind in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeInvalidQuery       ErrorCode = "invalid_query"
	ErrorCodeDecisionNotFound   ErrorCode = "decision_not_found"
	ErrorCodeInvalidCredentials ErrorCode = "invalid_credentials"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// LoginRequest is the POST /login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// FilterDecisionsParams holds GET /decisions/formation query parameters.
type FilterDecisionsParams struct {
	Formation *string `form:"formation" json:"formation"`
}

// SearchDecisionsParams holds GET /decisions/search query parameters.
type SearchDecisionsParams struct {
	Q     *string `form:"q" json:"q"`
	Limit *int    `form:"limit" json:"limit"`
}

// ServerInterface lists the HTTP operations.
type ServerInterface interface {
	// (POST /login)
	Login(w http.ResponseWriter, r *http.Request)
	// (GET /decisions)
	ListDecisions(w http.ResponseWriter, r *http.Request)
	// (GET /decisions/formation)
	FilterDecisions(w http.ResponseWriter, r *http.Request, params FilterDecisionsParams)
	// (GET /decisions/search)
	SearchDecisions(w http.ResponseWriter, r *http.Request, params SearchDecisionsParams)
	// (GET /decisions/{id})
	GetDecision(w http.ResponseWriter, r *http.Request, id string)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// paramBinder unpacks request parameters before calling the handler.
type paramBinder struct {
	handler      ServerInterface
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

func (b *paramBinder) FilterDecisions(w http.ResponseWriter, r *http.Request) {
	var params FilterDecisionsParams
	if err := runtime.BindQueryParameter("form", true, false, "formation", r.URL.Query(), &params.Formation); err != nil {
		b.errorHandler(w, r, &InvalidParamFormatError{ParamName: "formation", Err: err})
		return
	}
	b.handler.FilterDecisions(w, r, params)
}

func (b *paramBinder) SearchDecisions(w http.ResponseWriter, r *http.Request) {
	var params SearchDecisionsParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "q", query, &params.Q); err != nil {
		b.errorHandler(w, r, &InvalidParamFormatError{ParamName: "q", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		b.errorHandler(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	b.handler.SearchDecisions(w, r, params)
}

func (b *paramBinder) GetDecision(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		b.errorHandler(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return
	}
	b.handler.GetDecision(w, r, id)
}

// HandlerWithOptions mounts the operations of si on a chi router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	b := &paramBinder{handler: si, errorHandler: options.ErrorHandlerFunc}

	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/login", si.Login)
		r.Get(options.BaseURL+"/decisions", si.ListDecisions)
		r.Get(options.BaseURL+"/decisions/formation", b.FilterDecisions)
		r.Get(options.BaseURL+"/decisions/search", b.SearchDecisions)
		r.Get(options.BaseURL+"/decisions/{id}", b.GetDecision)
		r.Get(options.BaseURL+"/health", si.HealthCheck)
		r.Get(options.BaseURL+"/metrics", si.Metrics)
	})
	return r
}
