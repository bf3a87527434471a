package article

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/help-center/backend/internal/middleware"
	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
	"github.com/zhouzirui/help-center/backend/pkg/utils"
)

// PersonaReader 读取访客当前的 persona。
type PersonaReader interface {
	Get(ctx context.Context, visitorID string) (persona.Persona, error)
}

// Handler 文章浏览相关的HTTP处理器
type Handler struct {
	engine   *search.Engine
	personas PersonaReader
	logger   *slog.Logger
}

// New 创建文章处理器
func New(engine *search.Engine, personas PersonaReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, personas: personas, logger: logger}
}

// RegisterRoutes 注册文章相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/home", h.handleHome)
	r.Get("/articles", h.handleSearch)
	r.Get("/articles/{slug}", h.handleDetail)
	r.Get("/guides", h.handleGuides)
}

type homeResponse struct {
	Persona    persona.Persona    `json:"persona"`
	Featured   []article.Article  `json:"featured"`
	Categories []article.Category `json:"categories"`
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	p := h.visitorPersona(r)
	utils.RespondJSON(w, http.StatusOK, homeResponse{
		Persona:    p,
		Featured:   h.engine.Featured(p, search.FeaturedLimit),
		Categories: h.engine.Store().Categories(),
	})
}

type searchResponse struct {
	Query      string            `json:"query"`
	Audience   article.Audience  `json:"audience,omitempty"`
	Category   string            `json:"category,omitempty"`
	Count      int               `json:"count"`
	Results    []article.Article `json:"results"`
	Categories []string          `json:"categories"`
}

// handleSearch 按关键字、受众与分类过滤文章。
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	audience, err := article.ParseAudience(params.Get("audience"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := search.Query{
		Text:     strings.TrimSpace(params.Get("q")),
		Audience: audience,
		Category: strings.TrimSpace(params.Get("category")),
	}
	results := h.engine.Browse(q)

	utils.RespondJSON(w, http.StatusOK, searchResponse{
		Query:      q.Text,
		Audience:   q.Audience,
		Category:   q.Category,
		Count:      len(results),
		Results:    results,
		Categories: h.engine.Categories(),
	})
}

type sectionView struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Blocks []article.Block `json:"blocks"`
}

type detailResponse struct {
	Article  article.Article   `json:"article"`
	Sections []sectionView     `json:"sections"`
	Related  []article.Article `json:"related"`
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	item, ok := h.engine.Store().FindBySlug(slug)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "article not found")
		return
	}

	sections := make([]sectionView, 0, len(item.Sections))
	for _, s := range item.Sections {
		sections = append(sections, sectionView{ID: s.ID, Title: s.Title, Blocks: article.ParseBlocks(s.Body)})
	}

	utils.RespondJSON(w, http.StatusOK, detailResponse{
		Article:  item,
		Sections: sections,
		Related:  h.engine.Related(item, search.RelatedLimit),
	})
}

func (h *Handler) handleGuides(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"guides": h.engine.Guides()})
}

// visitorPersona 读取失败时退回默认 persona，首页不因存储故障而不可用。
func (h *Handler) visitorPersona(r *http.Request) persona.Persona {
	visitorID := middleware.VisitorID(r.Context())
	if visitorID == "" || h.personas == nil {
		return persona.Default()
	}

	p, err := h.personas.Get(r.Context(), visitorID)
	if err != nil {
		h.logger.Warn("failed to load persona for home view", "visitor", visitorID, "error", err)
		return persona.Default()
	}
	return p
}
