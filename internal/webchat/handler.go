package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/franklinsmiles/webchat/internal/chat"
	"github.com/franklinsmiles/webchat/pkg/logging"
)

// Handler manages widget connections and forwards visitor intents to the
// per-session turn dispatcher. It is the render-surface boundary: the
// dispatcher owns conversational state, this package owns transport.
type Handler struct {
	sessionCfg chat.SessionConfig
	logger     *logging.Logger
	widgetJS   []byte

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	session  *chat.Session
	conn     *websocket.Conn
	lastSeen time.Time
}

// InboundMessage is what the widget sends over the socket.
type InboundMessage struct {
	Type   string           `json:"type"` // "message", "button", "reset", "ping", "open", "close"
	Text   string           `json:"text,omitempty"`
	Button *chat.ButtonInfo `json:"button,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string         `json:"type"` // "session", "history", "message", "busy", "pong", "error"
	SessionID string         `json:"session_id,omitempty"`
	Message   *chat.Message  `json:"message,omitempty"`
	Messages  []chat.Message `json:"messages,omitempty"`
	Busy      bool           `json:"busy,omitempty"`
	Text      string         `json:"text,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(sessionCfg chat.SessionConfig, widgetJS []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sessionCfg: sessionCfg,
		logger:     logger,
		widgetJS:   widgetJS,
		sessions:   make(map[string]*sessionEntry),
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// session returns the live session for id, restoring or seeding one on
// first sight.
func (h *Handler) session(ctx context.Context, id string) *chat.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.sessions[id]; ok {
		e.lastSeen = time.Now()
		return e.session
	}
	sess := chat.NewSession(ctx, id, h.sessionCfg)
	h.sessions[id] = &sessionEntry{session: sess, lastSeen: time.Now()}
	return sess
}

// Prune drops sessions idle longer than maxIdle and returns how many
// were removed. The durable slot is untouched; a pruned session restores
// from it on the next connect.
func (h *Handler) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for id, e := range h.sessions {
		if e.conn == nil && e.lastSeen.Before(cutoff) {
			delete(h.sessions, id)
			removed++
		}
	}
	return removed
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	ctx := r.Context()
	sess := h.session(ctx, sessionID)

	h.mu.Lock()
	if e, ok := h.sessions[sessionID]; ok {
		e.conn = conn
	}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if e, ok := h.sessions[sessionID]; ok && e.conn == conn {
			e.conn = nil
			e.lastSeen = time.Now()
		}
		h.mu.Unlock()
	}()

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: sess.Snapshot(), Busy: sess.Busy()})

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "open", "close":
			// hostNotify from the embedding page; informational only.
			h.logger.Debug("webchat: widget "+msg.Type, "session_id", sessionID)
		case "reset":
			seed := sess.ResetSession(ctx)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: []chat.Message{seed}})
		case "message":
			h.dispatch(ctx, conn, sess, func() ([]chat.Message, error) {
				return sess.HandleUserMessage(ctx, msg.Text)
			})
		case "button":
			if msg.Button == nil {
				continue
			}
			h.dispatch(ctx, conn, sess, func() ([]chat.Message, error) {
				return sess.HandleButtonIntent(ctx, *msg.Button)
			})
		}
	}
}

// dispatch runs one turn, bracketing it with busy indicators and
// streaming the appended entries back to the widget.
func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, sess *chat.Session, turn func() ([]chat.Message, error)) {
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "busy", Busy: true})
	defer func() {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "busy", Busy: false})
	}()

	appended, err := turn()
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return
		}
		if errors.Is(err, chat.ErrBusy) {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "One moment, still working on your last message."})
			return
		}
		h.logger.Error("webchat: turn failed", "session_id", sess.ID(), "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		return
	}
	for i := range appended {
		m := appended[i]
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "message", Message: &m})
	}
}

// HandleMessage is the HTTP fallback for submitting an utterance.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	sess := h.session(r.Context(), req.SessionID)
	appended, err := sess.HandleUserMessage(r.Context(), req.Text)
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"session_id": req.SessionID,
		"messages":   appended,
	})
}

// HandleButton is the HTTP fallback for a button click intent.
func (h *Handler) HandleButton(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string          `json:"session_id"`
		Button    chat.ButtonInfo `json:"button"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.Button.Label == "" {
		http.Error(w, "session_id and button are required", http.StatusBadRequest)
		return
	}

	sess := h.session(r.Context(), req.SessionID)
	appended, err := sess.HandleButtonIntent(r.Context(), req.Button)
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"session_id": req.SessionID,
		"messages":   appended,
	})
}

// HandleHistory returns the ordered transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	sess := h.session(r.Context(), sessionID)
	h.writeJSON(w, map[string]any{
		"session_id": sessionID,
		"state":      sess.State().String(),
		"busy":       sess.Busy(),
		"messages":   sess.Snapshot(),
	})
}

// HandleReset clears the session back to its seed state.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	sess := h.session(r.Context(), req.SessionID)
	seed := sess.ResetSession(r.Context())
	h.writeJSON(w, map[string]any{
		"session_id": req.SessionID,
		"messages":   []chat.Message{seed},
	})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		http.Error(w, "message is empty", http.StatusBadRequest)
	case errors.Is(err, chat.ErrBusy):
		http.Error(w, "a turn is already in flight", http.StatusTooManyRequests)
	default:
		h.logger.Error("webchat: turn failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
