package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/hardcorelimbo/internal/api/middleware"
	"github.com/mcoot/hardcorelimbo/internal/api/request"
	"github.com/mcoot/hardcorelimbo/internal/api/response"
	"github.com/mcoot/hardcorelimbo/internal/services/admin"
)

// PlayerHandler handles the admin player endpoints
type PlayerHandler struct {
	admin *admin.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(adminService *admin.Service) *PlayerHandler {
	return &PlayerHandler{
		admin: adminService,
	}
}

func playerName(r *http.Request) (string, error) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	if name == "" {
		return "", NewInvalidRequestError("player name is required")
	}
	return name, nil
}

// Get handles GET /api/v1/players/{name}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	name, err := playerName(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	status, err := h.admin.Status(r.Context(), name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerStatusFromAdmin(status))
}

// Revive handles POST /api/v1/players/{name}/revive
func (h *PlayerHandler) Revive(w http.ResponseWriter, r *http.Request) {
	name, err := playerName(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	status, err := h.admin.Revive(r.Context(), middleware.GetActor(r.Context()), name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerStatusFromAdmin(status))
}

// SetLives handles PUT /api/v1/players/{name}/lives
func (h *PlayerHandler) SetLives(w http.ResponseWriter, r *http.Request) {
	name, err := playerName(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.SetLivesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Lives == nil {
		WriteError(w, NewInvalidRequestError("lives is required"))
		return
	}

	status, err := h.admin.SetLives(r.Context(), middleware.GetActor(r.Context()), name, *req.Lives)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerStatusFromAdmin(status))
}
