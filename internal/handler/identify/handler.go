package identify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/help-center/backend/internal/service/identify"
	"github.com/zhouzirui/help-center/backend/pkg/utils"
)

// Lookuper 将 IP 解析为公司信息。
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (identify.Result, error)
}

// Handler 访客识别接口
type Handler struct {
	lookup Lookuper
	logger *slog.Logger
}

// New 创建访客识别处理器
func New(lookup Lookuper, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{lookup: lookup, logger: logger}
}

// RegisterRoutes 注册访客识别路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/identify-visitor", h.handleIdentify)
}

// handleIdentify 上游拒绝时仍返回 200，原因写在响应体中。
func (h *Handler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	ip := identify.VisitorIP(r)

	var payload struct {
		IP string `json:"ip"`
	}
	// A missing or unreadable body falls back to the header address.
	if err := utils.DecodeJSON(r, &payload); err == nil && payload.IP != "" {
		ip = payload.IP
	} else if err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug("ignoring identify request body", "error", err)
	}

	result, err := h.lookup.Lookup(r.Context(), ip)
	if err != nil {
		status := http.StatusInternalServerError
		message := "identification failed"
		if errors.Is(err, identify.ErrNotConfigured) {
			message = "identification API key not configured"
		}
		h.logger.Error("visitor identification failed", "error", err)
		utils.RespondJSON(w, status, map[string]any{"error": message, "identified": false})
		return
	}

	if !result.Identified {
		h.logger.Info("visitor not identified", "reason", result.Reason, "status", result.Status)
	}
	utils.RespondJSON(w, http.StatusOK, result)
}
