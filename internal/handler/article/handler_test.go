package article

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/help-center/backend/internal/middleware"
	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/persona"
	personaservice "github.com/zhouzirui/help-center/backend/internal/service/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

func setupRouter(t *testing.T) (*chi.Mux, *personaservice.Manager) {
	t.Helper()
	store, err := article.LoadBundled()
	require.NoError(t, err)

	mgr := personaservice.NewManager(persona.NewMemoryStorage(), nil)
	handler := New(search.NewEngine(store), mgr, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, mgr
}

func get(t *testing.T, r http.Handler, target, visitorID string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if visitorID != "" {
		req = req.WithContext(middleware.WithVisitorID(req.Context(), visitorID))
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if out != nil && resp.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.Code
}

func TestHomeDefaultsToExploring(t *testing.T) {
	r, _ := setupRouter(t)

	var body homeResponse
	require.Equal(t, http.StatusOK, get(t, r, "/home", "", &body))
	assert.Equal(t, persona.RoleExploring, body.Persona.Role)
	assert.Len(t, body.Featured, search.FeaturedLimit)
	assert.Len(t, body.Categories, 3)
}

func TestHomeFiltersByPersona(t *testing.T) {
	r, mgr := setupRouter(t)
	_, err := mgr.Set(context.Background(), "v1", persona.Persona{Role: persona.RoleVendor})
	require.NoError(t, err)

	var body homeResponse
	require.Equal(t, http.StatusOK, get(t, r, "/home", "v1", &body))
	require.NotEmpty(t, body.Featured)
	for _, item := range body.Featured {
		assert.True(t, item.HasAudience(article.AudienceVendor), item.Slug)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	r, _ := setupRouter(t)

	var upper, lower searchResponse
	require.Equal(t, http.StatusOK, get(t, r, "/articles?q=ACH", "", &upper))
	require.Equal(t, http.StatusOK, get(t, r, "/articles?q=ach", "", &lower))
	assert.Equal(t, upper.Count, lower.Count)
	assert.Equal(t, upper.Results, lower.Results)
	assert.NotZero(t, upper.Count)
}

func TestSearchFilters(t *testing.T) {
	r, _ := setupRouter(t)

	var body searchResponse
	require.Equal(t, http.StatusOK, get(t, r, "/articles?q=mileage%20reimbursement", "", &body))
	require.NotEmpty(t, body.Results)
	assert.Equal(t, "submitting-reimbursements", body.Results[0].Slug)

	require.Equal(t, http.StatusOK, get(t, r, "/articles?category=Vendors&audience=vendor", "", &body))
	for _, item := range body.Results {
		assert.Equal(t, "Vendors", item.Category)
	}

	require.Equal(t, http.StatusOK, get(t, r, "/articles?q=zzzznotfound", "", &body))
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Results)
}

func TestSearchRejectsUnknownAudience(t *testing.T) {
	r, _ := setupRouter(t)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/articles?audience=wizard", "", nil))
}

func TestArticleDetail(t *testing.T) {
	r, _ := setupRouter(t)

	var body detailResponse
	require.Equal(t, http.StatusOK, get(t, r, "/articles/submitting-reimbursements", "", &body))
	assert.Equal(t, "submitting-reimbursements", body.Article.Slug)
	require.NotEmpty(t, body.Sections)
	assert.NotEmpty(t, body.Sections[0].Blocks)
	assert.LessOrEqual(t, len(body.Related), search.RelatedLimit)
	for _, rel := range body.Related {
		assert.NotEqual(t, body.Article.ID, rel.ID)
	}
}

func TestArticleDetailNotFound(t *testing.T) {
	r, _ := setupRouter(t)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/articles/does-not-exist", "", nil))
}

func TestGuides(t *testing.T) {
	r, _ := setupRouter(t)

	var body struct {
		Guides []search.Guide `json:"guides"`
	}
	require.Equal(t, http.StatusOK, get(t, r, "/guides", "", &body))
	assert.Len(t, body.Guides, 6)
}
