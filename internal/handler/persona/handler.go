package persona

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/help-center/backend/internal/middleware"
	"github.com/zhouzirui/help-center/backend/internal/model/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/identify"
	personaservice "github.com/zhouzirui/help-center/backend/internal/service/persona"
	"github.com/zhouzirui/help-center/backend/pkg/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Manager 是 persona 状态机对外暴露的操作。
type Manager interface {
	State(ctx context.Context, visitorID string) (personaservice.State, error)
	Set(ctx context.Context, visitorID string, p persona.Persona) (personaservice.State, error)
	Clear(ctx context.Context, visitorID string) (personaservice.State, error)
	Subscribe(visitorID string) (<-chan persona.Persona, func())
}

// Detector 执行一次性的访客公司识别。
type Detector interface {
	Detect(ctx context.Context, visitorID, ip string) (identify.Outcome, error)
}

// Handler persona服务的HTTP处理器
type Handler struct {
	personas Manager
	detector Detector
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New 创建persona处理器。detector 为 nil 时识别功能关闭。
func New(personas Manager, detector Detector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		personas: personas,
		detector: detector,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListOptions)
	r.Route("/persona", func(pr chi.Router) {
		pr.Get("/", h.handleGet)
		pr.Put("/", h.handleSet)
		pr.Delete("/", h.handleClear)
		pr.Post("/detect", h.handleDetect)
		pr.Get("/events", h.handleEvents)
		pr.Get("/stream", h.handleStream)
	})
}

// handleListOptions 列出可选的 persona
func (h *Handler) handleListOptions(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, persona.Options())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	state, err := h.personas.State(r.Context(), middleware.VisitorID(r.Context()))
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

// handleSet 显式选择 persona，覆盖任何进行中的自动识别结果。
func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	var payload persona.Persona
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.personas.Set(r.Context(), middleware.VisitorID(r.Context()), payload)
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	state, err := h.personas.Clear(r.Context(), middleware.VisitorID(r.Context()))
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

type detectResponse struct {
	Outcome identify.Outcome     `json:"outcome"`
	State   personaservice.State `json:"state"`
}

// handleDetect 运行一次公司识别。请求体中的 ip 优先于代理头。
func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitorID := middleware.VisitorID(ctx)

	var payload struct {
		IP string `json:"ip"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ip := payload.IP
	if ip == "" {
		ip = identify.VisitorIP(r)
	}

	outcome := identify.Outcome{Reason: "identification not configured"}
	if h.detector != nil {
		var err error
		outcome, err = h.detector.Detect(ctx, visitorID, ip)
		if err != nil {
			h.respondManagerError(w, err)
			return
		}
	}

	state, err := h.personas.State(ctx, visitorID)
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, detectResponse{Outcome: outcome, State: state})
}

type outgoingMessage struct {
	Type      string          `json:"type"`
	Persona   persona.Persona `json:"persona"`
	Timestamp int64           `json:"timestamp"`
}

// handleEvents 通过 WebSocket 推送 persona 变更，连接建立后先发送当前值。
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	visitorID := middleware.VisitorID(r.Context())
	state, err := h.personas.State(r.Context(), visitorID)
	if err != nil {
		h.respondManagerError(w, err)
		return
	}

	updates, unsubscribe := h.personas.Subscribe(visitorID)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "visitor", visitorID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The feed is one-way; reading only detects the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("persona feed read error", "visitor", visitorID, "error", err)
				}
				return
			}
		}
	}()

	if err := h.writeEvent(conn, state.Persona); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-updates:
			if !ok {
				return
			}
			if err := h.writeEvent(conn, p); err != nil {
				h.logger.Debug("persona feed write failed", "visitor", visitorID, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, p persona.Persona) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(outgoingMessage{Type: "persona", Persona: p, Timestamp: time.Now().Unix()})
}

// handleStream 以 SSE 推送 persona 变更，供不支持 WebSocket 的客户端使用。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	visitorID := middleware.VisitorID(ctx)
	state, err := h.personas.State(ctx, visitorID)
	if err != nil {
		h.respondManagerError(w, err)
		return
	}

	updates, unsubscribe := h.personas.Subscribe(visitorID)
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	if err := utils.SendSSEEvent(w, flusher, "persona", state.Persona); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "persona", p); err != nil {
				return
			}
		}
	}
}

func (h *Handler) respondManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, personaservice.ErrVisitorRequired):
		utils.RespondError(w, http.StatusBadRequest, "visitor session required")
	case errors.Is(err, personaservice.ErrInvalidPersona):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("persona request failed", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load persona")
	}
}
