package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jurisdoc/internal/db/memory"
	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/search/result"
	repodec "github.com/kailas-cloud/jurisdoc/internal/repository/decision"
	authuc "github.com/kailas-cloud/jurisdoc/internal/usecase/auth"
	decisionuc "github.com/kailas-cloud/jurisdoc/internal/usecase/decision"
	healthuc "github.com/kailas-cloud/jurisdoc/internal/usecase/health"
)

type testAPI struct {
	handler http.Handler
	repo    *repodec.Repo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	repo := repodec.New(store, repodec.Config{})
	if err := repo.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	for _, d := range []domdec.Decision{
		domdec.Reconstruct("1", domdec.Ptr("Arrêt 1"), domdec.Ptr("F"), domdec.Ptr("hello world")),
		domdec.Reconstruct("2", nil, domdec.Ptr("F"), domdec.Ptr("hello there")),
		domdec.Reconstruct("3", domdec.Ptr("Arrêt 3"), domdec.Ptr("G"), nil),
	} {
		if err := repo.Upsert(ctx, &d); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	auth, err := authuc.New(authuc.Config{
		Username: "clerk", Password: "s3cret", Secret: "0123456789abcdef0123456789abcdef",
	})
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	server := NewServer(decisionuc.New(repo), auth, healthuc.New(store, repo), zap.NewNop())
	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(auth))
	return &testAPI{handler: HandlerWithOptions(server, ChiServerOptions{BaseRouter: r}), repo: repo}
}

func (a *testAPI) token(t *testing.T) string {
	t.Helper()
	rr := a.do(t, "POST", "/login", `{"username":"clerk","password":"s3cret"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", rr.Code, rr.Body.String())
	}
	var tok authuc.Token
	decodeJSON(t, rr, &tok)
	return tok.AccessToken
}

func (a *testAPI) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	decodeJSON(t, rr, &e)
	return e
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d: %s", rr.Code, want, rr.Body.String())
	}
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) {
	t.Helper()
	expectStatus(t, rr, status)
	if got := decodeError(t, rr).Code; got != code {
		t.Errorf("error code = %q, want %q", got, code)
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, "POST", "/login", `{"username":"clerk","password":"nope"}`, "")
	expectError(t, rr, http.StatusUnauthorized, ErrorCodeInvalidCredentials)

	expectStatus(t, api.do(t, "POST", "/login", `{not json`, ""), http.StatusBadRequest)
	expectStatus(t, api.do(t, "POST", "/login", `{"username":"clerk"}`, ""), http.StatusBadRequest)

	if api.token(t) == "" {
		t.Error("expected a token")
	}
}

func TestDecisions_RequireToken(t *testing.T) {
	api := newTestAPI(t)
	expectStatus(t, api.do(t, "GET", "/decisions", "", ""), http.StatusUnauthorized)
}

func TestListDecisions(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, "GET", "/decisions", "", api.token(t))
	expectStatus(t, rr, http.StatusOK)

	var got []domdec.Summary
	decodeJSON(t, rr, &got)
	if len(got) != 3 {
		t.Errorf("got %d decisions, want 3", len(got))
	}
}

func TestFilterDecisions(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t)

	rr := api.do(t, "GET", "/decisions/formation?formation=F", "", tok)
	expectStatus(t, rr, http.StatusOK)
	var got []domdec.Summary
	decodeJSON(t, rr, &got)
	ids := []string{}
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"1", "2"}) {
		t.Errorf("ids = %v, want [1 2]", ids)
	}

	rr = api.do(t, "GET", "/decisions/formation?formation=f", "", tok)
	expectStatus(t, rr, http.StatusOK)
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("case-sensitive match: body = %s, want []", body)
	}

	rr = api.do(t, "GET", "/decisions/formation", "", tok)
	expectError(t, rr, http.StatusBadRequest, ErrorCodeInvalidQuery)
}

func TestSearchDecisions(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t)

	rr := api.do(t, "GET", "/decisions/search?q=world", "", tok)
	expectStatus(t, rr, http.StatusOK)
	var hits []result.Hit
	decodeJSON(t, rr, &hits)
	if len(hits) == 0 || hits[0].ID != "1" {
		t.Fatalf("hits = %+v, want decision 1 first", hits)
	}
	if hits[0].Content == nil || *hits[0].Content != "hello world" {
		t.Errorf("content = %v", hits[0].Content)
	}

	rr = api.do(t, "GET", "/decisions/search?q=hello&limit=1", "", tok)
	expectStatus(t, rr, http.StatusOK)
	hits = nil
	decodeJSON(t, rr, &hits)
	if len(hits) != 1 {
		t.Errorf("limit=1 returned %d hits", len(hits))
	}

	rr = api.do(t, "GET", "/decisions/search?q=", "", tok)
	expectError(t, rr, http.StatusBadRequest, ErrorCodeInvalidQuery)

	rr = api.do(t, "GET", "/decisions/search?q=x&limit=many", "", tok)
	expectError(t, rr, http.StatusBadRequest, ErrorCodeBadRequest)
}

func TestGetDecision(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t)

	rr := api.do(t, "GET", "/decisions/2", "", tok)
	expectStatus(t, rr, http.StatusOK)
	var got map[string]any
	decodeJSON(t, rr, &got)
	if got["id"] != "2" || got["title"] != nil || got["content"] != "hello there" {
		t.Errorf("decision = %v", got)
	}
	if _, ok := got["title"]; !ok {
		t.Error("absent title must be serialized as null")
	}

	rr = api.do(t, "GET", "/decisions/404", "", tok)
	expectError(t, rr, http.StatusNotFound, ErrorCodeDecisionNotFound)
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, "GET", "/health", "", "")
	expectStatus(t, rr, http.StatusOK)
	var h HealthResponse
	decodeJSON(t, rr, &h)
	if h.Status != "ok" || h.Checks["index"] != "ok" {
		t.Errorf("health = %+v", h)
	}
}
