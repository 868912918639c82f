package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"echochat-backend/internal/auth"
	"echochat-backend/internal/chat"
	"echochat-backend/internal/config"
	"echochat-backend/internal/database"
	"echochat-backend/internal/llm"
)

const testPrompt = "You are a test companion."

// fakeLLM is an OpenAI-compatible chat-completion endpoint
type fakeLLM struct {
	mu       sync.Mutex
	requests [][]llm.Message
	status   int
	reply    string
	srv      *httptest.Server
}

func newFakeLLM(t *testing.T) *fakeLLM {
	f := &fakeLLM{status: http.StatusOK, reply: "Hi! How are you?"}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []llm.Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.requests = append(f.requests, body.Messages)
		status, reply := f.status, f.reply
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"upstream failure"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeLLM) calls() [][]llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]llm.Message(nil), f.requests...)
}

type testApp struct {
	e     *echo.Echo
	llm   *fakeLLM
	users *database.UserRepo
}

type appOption func(cfg *appConfig)

type appConfig struct {
	backend string
	limiter *auth.RateLimiter
}

func withBackend(backend string) appOption {
	return func(cfg *appConfig) { cfg.backend = backend }
}

func withRateLimiter(rl *auth.RateLimiter) appOption {
	return func(cfg *appConfig) { cfg.limiter = rl }
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	cfg := appConfig{
		backend: config.BackendDatabase,
		limiter: auth.NewRateLimiter(100, time.Minute, time.Minute),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(context.Background(), database.Config{Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fake := newFakeLLM(t)
	client := llm.NewCompatClient(llm.Options{
		Provider:    config.ProviderTogether,
		BaseURL:     fake.srv.URL,
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: 0.7,
		MaxTokens:   100,
		Timeout:     5 * time.Second,
	})

	var store chat.Store = chat.NewDatabaseStore(database.NewChatRepo(db))
	if cfg.backend == config.BackendSession {
		store = chat.NewSessionStore()
	}

	users := database.NewUserRepo(db)
	authSvc := auth.NewService(users, logger)

	e := NewServer(ServerConfig{Development: true, AllowedOrigins: []string{"http://localhost:3000"}}, Deps{
		Auth:        authSvc,
		Sessions:    auth.NewSessionManager(database.NewSessionRepo(db), 30*time.Minute, false, logger),
		Chat:        chat.NewService(store, client, chat.Config{Window: 4, SystemPrompt: testPrompt}, logger),
		AuditRepo:   database.NewAuditRepo(db),
		CSRF:        auth.NewCSRFProtection(),
		RateLimiter: cfg.limiter,
		Logger:      logger,
	})

	return &testApp{e: e, llm: fake, users: users}
}

// browser keeps cookies between requests like a real client
type browser struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
	csrf    string
}

func (a *testApp) browser(t *testing.T) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if b.csrf != "" {
		req.Header.Set(auth.CSRFHeader, b.csrf)
	}
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

// restart drops session cookies, keeping persistent ones
func (b *browser) restart() {
	delete(b.cookies, auth.SessionCookieName)
	b.csrf = ""
}

func (b *browser) register(username, password string) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username":         username,
		"email":            username + "@x.com",
		"password":         password,
		"confirm_password": password,
	})
}

func (b *browser) login(username, password string, rememberMe bool) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, "/api/auth/login", map[string]any{
		"username":    username,
		"password":    password,
		"remember_me": rememberMe,
	})
}

// signIn registers and logs in a user and fetches a CSRF token
func (b *browser) signIn(username string) {
	b.t.Helper()

	require.Equal(b.t, http.StatusCreated, b.register(username, "Str0ngP@ss").Code)
	require.Equal(b.t, http.StatusOK, b.login(username, "Str0ngP@ss", false).Code)
	b.fetchCSRF()
}

func (b *browser) fetchCSRF() {
	b.t.Helper()

	rec := b.do(http.MethodGet, "/api/auth/csrf", nil)
	require.Equal(b.t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]string
	require.NoError(b.t, json.Unmarshal(rec.Body.Bytes(), &out))
	b.csrf = out["csrf_token"]
	require.NotEmpty(b.t, b.csrf)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), fmt.Sprintf("body: %s", rec.Body.String()))
	return out
}
