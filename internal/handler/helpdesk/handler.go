package helpdesk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
	"github.com/zhouzirui/help-center/backend/internal/service/ai"
	helpdeskservice "github.com/zhouzirui/help-center/backend/internal/service/helpdesk"
	"github.com/zhouzirui/help-center/backend/pkg/utils"
)

// Asker 检索帮助中心并生成回答。
type Asker interface {
	Ask(ctx context.Context, query string) (helpdesk.Answer, error)
}

// Handler 帮助中心问答接口
type Handler struct {
	asker   Asker
	limiter func(http.Handler) http.Handler
	logger  *slog.Logger
}

// New 创建问答处理器。limiter 可为 nil。
func New(asker Asker, limiter func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{asker: asker, limiter: limiter, logger: logger}
}

// RegisterRoutes 注册问答路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	if h.limiter != nil {
		r.With(h.limiter).Post("/search-help-center", h.handleAsk)
		return
	}
	r.Post("/search-help-center", h.handleAsk)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query json.RawMessage `json:"query"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Missing or invalid query parameter")
		return
	}

	// query must be a JSON string; numbers, objects and null are rejected.
	var query string
	if err := json.Unmarshal(payload.Query, &query); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Missing or invalid query parameter")
		return
	}

	answer, err := h.asker.Ask(r.Context(), query)
	if err != nil {
		status, message := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("help center answer failed", "error", err)
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, answer)
}

// StatusFor maps an Ask failure to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, helpdeskservice.ErrInvalidQuery):
		return http.StatusBadRequest, "Missing or invalid query parameter"
	case errors.Is(err, helpdeskservice.ErrSearchBackend):
		return http.StatusBadGateway, "Failed to fetch from help center"
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusInternalServerError, "AI service not configured"
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."
	case errors.Is(err, ai.ErrQuotaExhausted):
		return http.StatusPaymentRequired, "AI credits exhausted. Please add funds to continue."
	case errors.Is(err, ai.ErrModel):
		return http.StatusBadGateway, "AI service error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
