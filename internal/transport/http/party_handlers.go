package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// PartyHandlers provides HTTP handlers for party management.
type PartyHandlers struct {
	store store.Store
	hub   *core.Hub
	log   *zerolog.Logger
}

// NewPartyHandlers creates a new party handlers instance.
func NewPartyHandlers(st store.Store, hub *core.Hub, logger *zerolog.Logger) *PartyHandlers {
	return &PartyHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// PartyResponse represents a party in API responses.
type PartyResponse struct {
	ID       int64 `json:"id"`
	LeaderID int64 `json:"leader_id"`
}

// CreateParty forms a party led by the caller.
// POST /api/parties
func (h *PartyHandlers) CreateParty(c *gin.Context) {
	player, ok := h.player(c)
	if !ok {
		return
	}
	if player.PartyID != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already in a party"})
		return
	}

	party, err := h.store.CreateParty(c.Request.Context(), player.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("player_id", player.ID).Msg("failed to create party")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("party_id", party.ID).Int64("leader_id", player.ID).Msg("party created")
	c.JSON(http.StatusCreated, PartyResponse{ID: party.ID, LeaderID: party.LeaderID})
}

// JoinParty enrolls the caller in a party.
// POST /api/parties/:id/join
func (h *PartyHandlers) JoinParty(c *gin.Context) {
	player, ok := h.player(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if player.PartyID != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already in a party"})
		return
	}

	if err := h.store.JoinParty(c.Request.Context(), player.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "party not found"})
			return
		}
		h.log.Error().Err(err).Int64("party_id", id).Msg("failed to join party")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// LeaveParty takes the caller out of its party and the party channel. A
// leader leaving disbands the party.
// POST /api/parties/leave
func (h *PartyHandlers) LeaveParty(c *gin.Context) {
	player, ok := h.player(c)
	if !ok {
		return
	}
	if player.PartyID == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not in a party"})
		return
	}
	partyID := *player.PartyID

	party, err := h.store.GetParty(c.Request.Context(), partyID)
	if err != nil {
		h.log.Error().Err(err).Int64("party_id", partyID).Msg("failed to load party")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if party.LeaderID == player.ID {
		h.disband(c, partyID)
		return
	}

	if err := h.store.LeaveParty(c.Request.Context(), player.ID); err != nil {
		h.log.Error().Err(err).Int64("player_id", player.ID).Msg("failed to leave party")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := h.hub.LeaveParty(c.Request.Context(), chat.PlayerID(player.ID), chat.PartyID(partyID)); err != nil {
		h.log.Warn().Err(err).Int64("player_id", player.ID).Msg("failed to drop party channel membership")
	}
	c.Status(http.StatusNoContent)
}

// DisbandParty dissolves the party and deletes its channel. Leader only.
// DELETE /api/parties/:id
func (h *PartyHandlers) DisbandParty(c *gin.Context) {
	player, ok := h.player(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	party, err := h.store.GetParty(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "party not found"})
			return
		}
		h.log.Error().Err(err).Int64("party_id", id).Msg("failed to load party")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if party.LeaderID != player.ID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the party leader may do this"})
		return
	}
	h.disband(c, id)
}

func (h *PartyHandlers) disband(c *gin.Context, id int64) {
	if err := h.store.DeleteParty(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Int64("party_id", id).Msg("failed to delete party")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := h.hub.DisbandParty(c.Request.Context(), chat.PartyID(id)); err != nil {
		h.log.Warn().Err(err).Int64("party_id", id).Msg("failed to close party channel")
	}

	h.log.Info().Int64("party_id", id).Msg("party disbanded")
	c.Status(http.StatusNoContent)
}

func (h *PartyHandlers) player(c *gin.Context) (*store.Player, bool) {
	pid, ok := playerID(c, h.log)
	if !ok {
		return nil, false
	}
	player, err := h.store.GetPlayerByID(c.Request.Context(), pid)
	if err != nil {
		h.log.Error().Err(err).Int64("player_id", pid).Msg("failed to load player")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	return player, true
}
