package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/help-center/backend/internal/middleware"
	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/ai"
	"github.com/zhouzirui/help-center/backend/internal/service/helpdesk"
	personaservice "github.com/zhouzirui/help-center/backend/internal/service/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

func testDependencies(t *testing.T) Dependencies {
	t.Helper()

	store, err := article.LoadBundled()
	require.NoError(t, err)

	return Dependencies{
		Engine:     search.NewEngine(store),
		Personas:   personaservice.NewManager(persona.NewMemoryStorage(), nil),
		HelpDesk:   helpdesk.NewService(helpdesk.NewClient("http://127.0.0.1:0", 0), ai.NewService(nil, nil), nil),
		Visitors:   middleware.NewVisitors("test-secret-test-secret-test-sec", false, nil),
		AskLimiter: middleware.NewVisitorLimiter(20, 5),
	}
}

func newTestRouter(t *testing.T, mcp http.Handler) http.Handler {
	t.Helper()

	deps := testDependencies(t)
	deps.MCP = mcp
	return NewRouter(deps)
}

func errorMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	msg, _ := body["error"].(string)
	return msg
}

func TestRouterServesHomeAndIssuesCookie(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/home", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header().Get("Set-Cookie"), "help-center=")
}

func TestRouterPersonaFollowsCookie(t *testing.T) {
	r := newTestRouter(t, nil)

	put := httptest.NewRequest(http.MethodPut, "/api/persona", strings.NewReader(`{"role":"employee"}`))
	putResp := httptest.NewRecorder()
	r.ServeHTTP(putResp, put)
	require.Equal(t, http.StatusOK, putResp.Code)

	cookies := putResp.Result().Cookies()
	require.NotEmpty(t, cookies)

	get := httptest.NewRequest(http.MethodGet, "/api/persona", nil)
	for _, c := range cookies {
		get.AddCookie(c)
	}
	getResp := httptest.NewRecorder()
	r.ServeHTTP(getResp, get)
	require.Equal(t, http.StatusOK, getResp.Code)

	var state personaservice.State
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&state))
	assert.Equal(t, persona.RoleEmployee, state.Persona.Role)
	assert.True(t, state.HasSelected)

	// A new browser starts over at the default persona.
	fresh := httptest.NewRecorder()
	r.ServeHTTP(fresh, httptest.NewRequest(http.MethodGet, "/api/persona", nil))
	require.NoError(t, json.NewDecoder(fresh.Body).Decode(&state))
	assert.Equal(t, persona.RoleExploring, state.Persona.Role)
}

func TestRouterPreflight(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/search-help-center", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Headers"), "content-type")
}

func TestRouterIdentifyWithoutKey(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/identify-visitor", strings.NewReader(`{"ip":"203.0.113.9"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "identification API key not configured", errorMessage(t, resp))
}

func TestRouterAskRejectsBadQuery(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search-help-center", strings.NewReader(`{"query":42}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Missing or invalid query parameter", errorMessage(t, resp))
}

func TestRouterNotFoundAndMethod(t *testing.T) {
	r := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not found", errorMessage(t, resp))

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, "/api/home", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestRouterMountsMCP(t *testing.T) {
	var hit bool
	r := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		w.WriteHeader(http.StatusAccepted)
	}))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.True(t, hit)
	assert.Equal(t, http.StatusAccepted, resp.Code)
}

func TestRouterAskLimitIgnoresMissingCookie(t *testing.T) {
	deps := testDependencies(t)
	deps.AskLimiter = middleware.NewVisitorLimiter(60, 1)
	r := NewRouter(deps)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		// No cookie is sent back, so every request gets a new visitor id.
		req := httptest.NewRequest(http.MethodPost, "/api/search-help-center", strings.NewReader(`{"query":42}`))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}

	assert.Equal(t, []int{
		http.StatusBadRequest,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}
