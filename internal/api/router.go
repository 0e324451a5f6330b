package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/hardcorelimbo/internal/api/handler"
	"github.com/mcoot/hardcorelimbo/internal/api/middleware"
	"github.com/mcoot/hardcorelimbo/internal/api/response"
	httpmiddleware "github.com/mcoot/hardcorelimbo/internal/middleware"
	"github.com/mcoot/hardcorelimbo/internal/services/admin"
	"github.com/mcoot/hardcorelimbo/internal/services/auth"
)

// BridgeEndpoint is the game server plugin's websocket
type BridgeEndpoint interface {
	http.Handler
	Connected() bool
}

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	Mode         string
	AuthService  *auth.Service
	AdminService *admin.Service
	Bridge       BridgeEndpoint
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AdminService)

	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := httpmiddleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg)).Methods(http.MethodGet)

	// Admin player routes
	players := api.PathPrefix("/players").Subrouter()
	players.Use(authMiddleware)
	players.HandleFunc("/{name}", playerHandler.Get).Methods(http.MethodGet)
	players.HandleFunc("/{name}/revive", playerHandler.Revive).Methods(http.MethodPost)
	players.HandleFunc("/{name}/lives", playerHandler.SetLives).Methods(http.MethodPut)

	// Game server plugin link, same token as the admin routes
	if cfg.Bridge != nil {
		bridge := api.PathPrefix("/bridge").Subrouter()
		bridge.Use(authMiddleware)
		bridge.Handle("", cfg.Bridge).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := response.Health{Status: "ok", Mode: cfg.Mode}
		if cfg.Bridge != nil {
			resp.BridgeConnected = cfg.Bridge.Connected()
		}
		response.JSON(w, http.StatusOK, resp)
	}
}
