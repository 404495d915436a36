package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// APIHandlers provides the account endpoints.
type APIHandlers struct {
	authService *auth.Service
	players     store.PlayerStore
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, players store.PlayerStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		players:     players,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// PlayerResponse is the chat-facing profile of a player: what decides which
// guild, party and premium channels they can open.
type PlayerResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Premium   bool   `json:"premium"`
	GuildID   *int64 `json:"guild_id,omitempty"`
	GuildRank int    `json:"guild_rank,omitempty"`
	PartyID   *int64 `json:"party_id,omitempty"`
}

func playerResponse(p *store.Player) PlayerResponse {
	resp := PlayerResponse{
		ID:      p.ID,
		Name:    p.Name,
		Premium: p.Premium,
		GuildID: p.GuildID,
		PartyID: p.PartyID,
	}
	if p.GuildID != nil {
		resp.GuildRank = p.GuildRank
	}
	return resp
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles player registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Register(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPlayerExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "player already exists"})
		case errors.Is(err, auth.ErrInvalidName), errors.Is(err, auth.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("player", req.Name).Msg("failed to register player")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("player", req.Name).Msg("player registered")
	c.JSON(http.StatusCreated, AuthResponse{Token: token})
}

// Login handles player login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("player", req.Name).Msg("failed to login player")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("player", req.Name).Msg("player logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// Me returns the authenticated player's profile.
// GET /api/me
func (h *APIHandlers) Me(c *gin.Context) {
	id, ok := playerID(c, h.log)
	if !ok {
		return
	}

	player, err := h.players.GetPlayerByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Token outlived the account.
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown player"})
			return
		}
		h.log.Error().Err(err).Int64("player_id", id).Msg("failed to load player")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, playerResponse(player))
}
