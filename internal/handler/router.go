package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	articleHandler "github.com/zhouzirui/help-center/backend/internal/handler/article"
	helpdeskHandler "github.com/zhouzirui/help-center/backend/internal/handler/helpdesk"
	identifyHandler "github.com/zhouzirui/help-center/backend/internal/handler/identify"
	personaHandler "github.com/zhouzirui/help-center/backend/internal/handler/persona"
	"github.com/zhouzirui/help-center/backend/internal/logging"
	middlewarePkg "github.com/zhouzirui/help-center/backend/internal/middleware"
	helpdeskService "github.com/zhouzirui/help-center/backend/internal/service/helpdesk"
	identifyService "github.com/zhouzirui/help-center/backend/internal/service/identify"
	personaService "github.com/zhouzirui/help-center/backend/internal/service/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
	"github.com/zhouzirui/help-center/backend/pkg/utils"
)

// Dependencies 汇总路由所需的服务。Detector、Identify、Visitors、AskLimiter 与 MCP 可为 nil。
type Dependencies struct {
	Logger     *slog.Logger
	Engine     *search.Engine
	Personas   *personaService.Manager
	Detector   *identifyService.Detector
	Identify   *identifyService.Client
	HelpDesk   *helpdeskService.Service
	Visitors   *middlewarePkg.Visitors
	AskLimiter *middlewarePkg.VisitorLimiter
	MCP        http.Handler
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Create handlers
	articles := articleHandler.New(deps.Engine, deps.Personas, logger)

	var detector personaHandler.Detector
	if deps.Detector != nil {
		detector = deps.Detector
	}
	personas := personaHandler.New(deps.Personas, detector, logger)

	var askLimiter func(http.Handler) http.Handler
	if deps.AskLimiter != nil {
		askLimiter = deps.AskLimiter.Middleware
	}
	answers := helpdeskHandler.New(deps.HelpDesk, askLimiter, logger)
	lookup := deps.Identify
	if lookup == nil {
		// 未配置时每次查询都返回 ErrNotConfigured
		lookup = identifyService.NewClient("", "", 0)
	}
	visitors := identifyHandler.New(lookup, logger)

	r.Route("/api", func(api chi.Router) {
		if deps.Visitors != nil {
			api.Use(deps.Visitors.Middleware)
		}

		articles.RegisterRoutes(api)
		personas.RegisterRoutes(api)
		visitors.RegisterRoutes(api)
		answers.RegisterRoutes(api)
	})

	if deps.MCP != nil {
		r.Handle("/mcp", deps.MCP)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
