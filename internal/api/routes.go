package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"echochat-backend/internal/auth"
	"echochat-backend/internal/chat"
	"echochat-backend/internal/database"
	"echochat-backend/internal/models"
)

// Paths the remember-me middleware and the home handler redirect between
const (
	HomePath  = "/"
	LoginPath = "/api/auth/login"
)

// Deps are the services the HTTP layer is built from
type Deps struct {
	Auth        *auth.Service
	Sessions    *auth.SessionManager
	Chat        *chat.Service
	AuditRepo   *database.AuditRepo
	CSRF        *auth.CSRFProtection
	RateLimiter *auth.RateLimiter
	Logger      *slog.Logger
}

// ServerConfig holds the HTTP options taken from the app config
type ServerConfig struct {
	Development    bool
	AllowedOrigins []string
}

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	auth     *auth.Service
	sessions *auth.SessionManager
	chat     *chat.Service
	audit    *AuditLogger
	csrf     *auth.CSRFProtection
	limiter  *auth.RateLimiter
	upgrader *wsUpgrader
	secure   bool
	logger   *slog.Logger
}

// NewServer builds the echo instance with middleware and routes
func NewServer(cfg ServerConfig, deps Deps) *echo.Echo {
	h := &Handler{
		auth:     deps.Auth,
		sessions: deps.Sessions,
		chat:     deps.Chat,
		audit:    NewAuditLogger(deps.AuditRepo, deps.Logger),
		csrf:     deps.CSRF,
		limiter:  deps.RateLimiter,
		upgrader: newWSUpgrader(cfg.AllowedOrigins),
		secure:   !cfg.Development,
		logger:   deps.Logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = newErrorHandler(cfg.Development, deps.Logger)

	// Middleware
	e.Use(requestLogger(deps.Logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, auth.CSRFHeader},
		AllowCredentials: true,
	}))
	e.Use(deps.Sessions.Middleware())
	e.Use(auth.RememberMe(deps.Auth, auth.RememberMeConfig{
		LoginPath: LoginPath,
		HomePath:  HomePath,
		Secure:    h.secure,
		OnRestore: func(c echo.Context, user *models.User) {
			h.audit.Log(c, user.ID, user.Username, models.ActionRemember, user.Username, nil)
		},
	}, deps.Logger))

	RegisterRoutes(e, h)
	return e
}

// RegisterRoutes sets up all routes
func RegisterRoutes(e *echo.Echo, h *Handler) {
	requireAuth := auth.RequireAuth(h.auth)

	e.GET(HomePath, h.home)

	api := e.Group("/api")

	// Health check (public)
	api.GET("/health", healthCheck)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.GET("/login", h.loginPage)
	authGroup.POST("/login", h.login, h.limiter.Middleware())
	authGroup.POST("/register", h.register)

	// Protected auth routes
	authProtected := authGroup.Group("", requireAuth, h.csrf.Middleware())
	authProtected.POST("/logout", h.logout)
	authProtected.GET("/me", h.me)
	authProtected.GET("/csrf", h.csrfToken)
	authProtected.GET("/activity", h.activity)

	// Chat routes
	chatGroup := api.Group("/chat", requireAuth, h.csrf.Middleware())
	chatGroup.GET("/history", h.history)
	chatGroup.POST("/messages", h.sendMessage)
	chatGroup.DELETE("/history", h.clearHistory)
	chatGroup.GET("/ws", h.chatSocket)
}
