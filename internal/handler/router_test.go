package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/model"
	"solar-assistant-go/internal/repository"
	"solar-assistant-go/internal/service"
	"solar-assistant-go/pkg/llm"
	"solar-assistant-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLLM struct {
	chunks []string
}

func (s *stubLLM) Generate(context.Context, []llm.Message, *llm.GenerationParams) (string, error) {
	return strings.Join(s.chunks, ""), nil
}

func (s *stubLLM) StreamGenerate(_ context.Context, _ []llm.Message, _ *llm.GenerationParams, w llm.MessageWriter) error {
	for _, c := range s.chunks {
		if err := w.WriteMessage(websocket.TextMessage, []byte(c)); err != nil {
			return err
		}
	}
	return nil
}

type stubArchiveRepo struct{}

func (stubArchiveRepo) Create(context.Context, *model.ArchivedTurn) error { return nil }

func (stubArchiveRepo) ListRecent(_ context.Context, sessionID string, _ int) ([]model.ArchivedTurn, error) {
	return []model.ArchivedTurn{{ID: 1, SessionID: sessionID, Question: "solar?"}}, nil
}

func testConfig() config.Config {
	return config.Config{
		Assistant: config.AssistantConfig{
			Title:         "☀️ Solar Industry AI Assistant",
			Placeholder:   "Ask about solar technology...",
			Instructions:  config.DefaultInstructions,
			RefusalText:   "⚠️ Sorry, I can only answer questions related to solar energy.",
			ErrorPrefix:   "⚠️ Google Gemini API Error",
			LookbackDepth: 3,
		},
		Gemini:  config.GeminiConfig{Model: "gemini-2.0-flash", InstructionMode: config.InstructionModeInline},
		Session: config.SessionConfig{Secret: "test", CookieName: "solar_session", TTLHours: 1},
	}
}

func setupRouter(cfg config.Config, archiveRepo repository.ArchiveRepository) *gin.Engine {
	repo := repository.NewMemoryTranscriptRepository(0)
	chatSvc := service.NewChatService(service.NewDomainFilter(cfg.Assistant), &stubLLM{chunks: []string{"Panels ", "convert light."}}, repo, nil, cfg.Assistant, cfg.Gemini)
	services := Services{
		Chat:       chatSvc,
		Transcript: service.NewTranscriptService(repo),
		Archive:    service.NewArchiveService(archiveRepo),
	}
	return NewRouter(cfg, services, token.NewSessionManager(cfg.Session.Secret, cfg.Session.TTLHours))
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path string, body []byte, cookies []*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	}
	return resp, env
}

func TestAssistantInfo(t *testing.T) {
	r := setupRouter(testConfig(), nil)
	resp, env := do(t, r, http.MethodGet, "/api/v1/assistant", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "☀️ Solar Industry AI Assistant", data["title"])
	assert.Equal(t, "Ask about solar technology...", data["placeholder"])
}

func TestAskHistoryAndClearFlow(t *testing.T) {
	r := setupRouter(testConfig(), nil)

	resp, env := do(t, r, http.MethodPost, "/api/v1/chat", []byte(`{"question":"How do solar panels work?"}`), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	cookies := resp.Result().Cookies()
	require.NotEmpty(t, cookies)

	var turn model.Turn
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.Equal(t, "Panels convert light.", turn.Answer)
	assert.True(t, turn.InDomain)

	resp, env = do(t, r, http.MethodPost, "/api/v1/chat", []byte(`{"question":"Best pizza in town?"}`), cookies)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.False(t, turn.InDomain)
	assert.Equal(t, "⚠️ Sorry, I can only answer questions related to solar energy.", turn.Answer)

	_, env = do(t, r, http.MethodGet, "/api/v1/chat/history", nil, cookies)
	var entries []model.HistoryEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "How do solar panels work?", entries[0].Question)
	assert.Equal(t, "Best pizza in town?", entries[1].Question)

	// 其他会话看不到这些记录
	_, env = do(t, r, http.MethodGet, "/api/v1/chat/history", nil, nil)
	assert.Equal(t, "No previous chat history available.", env.Message)

	resp, _ = do(t, r, http.MethodDelete, "/api/v1/chat/history", nil, cookies)
	require.Equal(t, http.StatusOK, resp.Code)

	_, env = do(t, r, http.MethodGet, "/api/v1/chat/history", nil, cookies)
	assert.Equal(t, "No previous chat history available.", env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.Empty(t, entries)
}

func TestAskRejectsBadPayload(t *testing.T) {
	r := setupRouter(testConfig(), nil)

	resp, _ := do(t, r, http.MethodPost, "/api/v1/chat", []byte(`{}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, _ = do(t, r, http.MethodPost, "/api/v1/chat", []byte(`{"question":"   "}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminTurns(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Admin.KeyHash = string(hash)

	disabled := setupRouter(cfg, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/turns", nil)
	req.Header.Set("X-Admin-Key", "admin-key")
	resp := httptest.NewRecorder()
	disabled.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	enabled := setupRouter(cfg, stubArchiveRepo{})
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/turns?sessionId=abc&limit=5", nil)
	req.Header.Set("X-Admin-Key", "admin-key")
	resp = httptest.NewRecorder()
	enabled.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"sessionId":"abc"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/turns?limit=x", nil)
	req.Header.Set("X-Admin-Key", "admin-key")
	resp = httptest.NewRecorder()
	enabled.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/turns", nil)
	resp = httptest.NewRecorder()
	enabled.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWebSocketStreamsAnswer(t *testing.T) {
	srv := httptest.NewServer(setupRouter(testConfig(), nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("Is solar power reliable?")))

	var frames []map[string]interface{}
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		frames = append(frames, frame)
		if frame["type"] == "completion" {
			break
		}
	}
	require.Len(t, frames, 3)
	assert.Equal(t, "Panels ", frames[0]["chunk"])
	assert.Equal(t, "convert light.", frames[1]["chunk"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("  ")))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "error")
}
