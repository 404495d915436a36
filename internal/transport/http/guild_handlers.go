package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// GuildHandlers provides HTTP handlers for guild management. Membership
// changes that affect a live guild channel are pushed to the hub.
type GuildHandlers struct {
	store store.Store
	hub   *core.Hub
	log   *zerolog.Logger
}

// NewGuildHandlers creates a new guild handlers instance.
func NewGuildHandlers(st store.Store, hub *core.Hub, logger *zerolog.Logger) *GuildHandlers {
	return &GuildHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// CreateGuildRequest represents the create guild request body.
type CreateGuildRequest struct {
	Name string `json:"name" binding:"required,min=3,max=32"`
}

// MOTDRequest represents the message-of-the-day update body.
type MOTDRequest struct {
	MOTD string `json:"motd" binding:"max=255"`
}

// GuildResponse represents a guild in API responses.
type GuildResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	MOTD      string `json:"motd"`
	LeaderID  int64  `json:"leader_id"`
	CreatedAt string `json:"created_at"`
}

func guildResponse(g *store.Guild) GuildResponse {
	return GuildResponse{
		ID:        g.ID,
		Name:      g.Name,
		MOTD:      g.MOTD,
		LeaderID:  g.LeaderID,
		CreatedAt: g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateGuild founds a guild led by the caller.
// POST /api/guilds
func (h *GuildHandlers) CreateGuild(c *gin.Context) {
	pid, ok := playerID(c, h.log)
	if !ok {
		return
	}

	var req CreateGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create guild request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	player, err := h.store.GetPlayerByID(c.Request.Context(), pid)
	if err != nil {
		h.log.Error().Err(err).Int64("player_id", pid).Msg("failed to load player")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if player.GuildID != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already in a guild"})
		return
	}

	guild, err := h.store.CreateGuild(c.Request.Context(), req.Name, pid)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "guild with this name already exists"})
			return
		}
		h.log.Error().Err(err).Str("guild", req.Name).Msg("failed to create guild")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("guild", guild.Name).Int64("guild_id", guild.ID).Int64("leader_id", pid).Msg("guild created")
	c.JSON(http.StatusCreated, guildResponse(guild))
}

// SetMOTD replaces the guild's message of the day. Leader only.
// PUT /api/guilds/:id/motd
func (h *GuildHandlers) SetMOTD(c *gin.Context) {
	guild, ok := h.leaderGuild(c)
	if !ok {
		return
	}

	var req MOTDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.SetGuildMOTD(c.Request.Context(), guild.ID, req.MOTD); err != nil {
		h.log.Error().Err(err).Int64("guild_id", guild.ID).Msg("failed to set motd")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	guild.MOTD = req.MOTD
	c.JSON(http.StatusOK, guildResponse(guild))
}

// JoinGuild enrolls the caller as a plain member.
// POST /api/guilds/:id/join
func (h *GuildHandlers) JoinGuild(c *gin.Context) {
	pid, ok := playerID(c, h.log)
	if !ok {
		return
	}
	gid, ok := pathID(c)
	if !ok {
		return
	}

	player, err := h.store.GetPlayerByID(c.Request.Context(), pid)
	if err != nil {
		h.log.Error().Err(err).Int64("player_id", pid).Msg("failed to load player")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if player.GuildID != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already in a guild"})
		return
	}

	if err := h.store.JoinGuild(c.Request.Context(), pid, gid, store.RankMember); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "guild not found"})
			return
		}
		h.log.Error().Err(err).Int64("guild_id", gid).Msg("failed to join guild")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// LeaveGuild takes the caller out of its guild and the guild channel. The
// leader must disband instead.
// POST /api/guilds/leave
func (h *GuildHandlers) LeaveGuild(c *gin.Context) {
	pid, ok := playerID(c, h.log)
	if !ok {
		return
	}

	player, err := h.store.GetPlayerByID(c.Request.Context(), pid)
	if err != nil {
		h.log.Error().Err(err).Int64("player_id", pid).Msg("failed to load player")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if player.GuildID == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not in a guild"})
		return
	}
	if player.GuildRank == store.RankLeader {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "the leader must disband the guild"})
		return
	}

	if err := h.store.LeaveGuild(c.Request.Context(), pid); err != nil {
		h.log.Error().Err(err).Int64("player_id", pid).Msg("failed to leave guild")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := h.hub.LeaveGuild(c.Request.Context(), chat.PlayerID(pid), chat.GuildID(*player.GuildID)); err != nil {
		h.log.Warn().Err(err).Int64("player_id", pid).Msg("failed to drop guild channel membership")
	}
	c.Status(http.StatusNoContent)
}

// DisbandGuild dissolves the guild and deletes its channel. Leader only.
// DELETE /api/guilds/:id
func (h *GuildHandlers) DisbandGuild(c *gin.Context) {
	guild, ok := h.leaderGuild(c)
	if !ok {
		return
	}

	if err := h.store.DeleteGuild(c.Request.Context(), guild.ID); err != nil {
		h.log.Error().Err(err).Int64("guild_id", guild.ID).Msg("failed to delete guild")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := h.hub.DisbandGuild(c.Request.Context(), chat.GuildID(guild.ID)); err != nil {
		h.log.Warn().Err(err).Int64("guild_id", guild.ID).Msg("failed to close guild channel")
	}

	h.log.Info().Int64("guild_id", guild.ID).Msg("guild disbanded")
	c.Status(http.StatusNoContent)
}

// leaderGuild loads the :id guild and checks the caller leads it.
func (h *GuildHandlers) leaderGuild(c *gin.Context) (*store.Guild, bool) {
	pid, ok := playerID(c, h.log)
	if !ok {
		return nil, false
	}
	gid, ok := pathID(c)
	if !ok {
		return nil, false
	}

	guild, err := h.store.GetGuild(c.Request.Context(), gid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "guild not found"})
			return nil, false
		}
		h.log.Error().Err(err).Int64("guild_id", gid).Msg("failed to load guild")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	if guild.LeaderID != pid {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the guild leader may do this"})
		return nil, false
	}
	return guild, true
}
