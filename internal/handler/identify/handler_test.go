package identify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/help-center/backend/internal/service/identify"
)

func setupRouter(t *testing.T, apiKey string, upstream http.HandlerFunc) *chi.Mux {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	r := chi.NewRouter()
	New(identify.NewClient(apiKey, srv.URL, 0), nil).RegisterRoutes(r)
	return r
}

func post(r http.Handler, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/identify-visitor", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var decoded map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &decoded)
	return resp, decoded
}

func TestIdentifyVisitor(t *testing.T) {
	var gotIP string
	r := setupRouter(t, "key", func(w http.ResponseWriter, req *http.Request) {
		gotIP = req.URL.Query().Get("ip")
		_, _ = w.Write([]byte(`{"company":{"name":"Acme","industry":"Retail","employee_range":"11-50"}}`))
	})

	resp, body := post(r, "", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "203.0.113.9", gotIP)
	assert.Equal(t, true, body["identified"])

	company, ok := body["company"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Acme", company["name"])
	assert.Equal(t, "11-50", company["size"])
}

func TestIdentifyVisitorBodyOverridesHeaders(t *testing.T) {
	var gotIP string
	r := setupRouter(t, "key", func(w http.ResponseWriter, req *http.Request) {
		gotIP = req.URL.Query().Get("ip")
		_, _ = w.Write([]byte(`{}`))
	})

	resp, body := post(r, `{"ip":"198.51.100.7"}`, map[string]string{"X-Real-IP": "203.0.113.9"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "198.51.100.7", gotIP)
	assert.Equal(t, false, body["identified"])
	assert.Equal(t, identify.ReasonNoCompany, body["reason"])
}

func TestIdentifyVisitorNoIP(t *testing.T) {
	r := setupRouter(t, "key", func(http.ResponseWriter, *http.Request) {
		t.Error("upstream must not be called without an IP")
	})

	resp, body := post(r, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, identify.ReasonNoIP, body["reason"])
}

func TestIdentifyVisitorUpstreamError(t *testing.T) {
	r := setupRouter(t, "key", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	resp, body := post(r, `{"ip":"1.2.3.4"}`, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, false, body["identified"])
	assert.Equal(t, float64(http.StatusForbidden), body["status"])
}

func TestIdentifyVisitorNotConfigured(t *testing.T) {
	r := setupRouter(t, "", func(http.ResponseWriter, *http.Request) {})

	resp, body := post(r, `{"ip":"1.2.3.4"}`, nil)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, false, body["identified"])
	assert.NotEmpty(t, body["error"])
}
