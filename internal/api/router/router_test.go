package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/franklinsmiles/webchat/internal/chat"
	"github.com/franklinsmiles/webchat/internal/webchat"
	"github.com/franklinsmiles/webchat/pkg/logging"
)

type stubLLM struct{}

func (stubLLM) Complete(_ context.Context, req chat.LLMRequest) (chat.LLMResponse, error) {
	if len(req.System) == 0 {
		return chat.LLMResponse{Text: "NONE"}, nil
	}
	return chat.LLMResponse{Text: "Welcome to Franklin Bright Smiles!"}, nil
}

func newTestChatHandler(t *testing.T) *webchat.Handler {
	t.Helper()

	logger := logging.New("error")
	sessionCfg := chat.SessionConfig{
		Assistant:  chat.NewAssistant(stubLLM{}, logger, nil),
		Store:      chat.NewSessionStore(nil, logger),
		Logger:     logger,
		BookingURL: "https://book.example/slots",
		FactsURL:   "https://facts.example/sheets",
	}
	return webchat.NewHandler(sessionCfg, []byte("// widget"), logger)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	return New(&Config{
		Logger: logging.New("error"),
		Chat:   newTestChatHandler(t),
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterWidgetScript(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/widget.js", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Errorf("expected javascript content type, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "widget") {
		t.Errorf("expected widget script body, got %q", rr.Body.String())
	}
}

func TestRouterChatMessage(t *testing.T) {
	router := newTestRouter(t)

	body := `{"session_id":"router-test","text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp struct {
		SessionID string         `json:"session_id"`
		Messages  []chat.Message `json:"messages"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode turn response: %v", err)
	}
	if resp.SessionID != "router-test" {
		t.Errorf("expected session id 'router-test', got %q", resp.SessionID)
	}
	if len(resp.Messages) == 0 {
		t.Fatal("expected appended messages in response")
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := New(&Config{
		Logger:             logging.New("error"),
		Chat:               newTestChatHandler(t),
		CORSAllowedOrigins: []string{"https://franklinbrightsmiles.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/chat/history", nil)
	req.Header.Set("Origin", "https://franklinbrightsmiles.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://franklinbrightsmiles.com" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
