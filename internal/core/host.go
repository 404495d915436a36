package core

import (
	"github.com/vovakirdan/wirechat-channels/internal/chat"
	"github.com/vovakirdan/wirechat-channels/internal/script"
)

// The hub is the game API seen by channel scripts. Hooks run on the hub
// loop, so these methods touch hub state directly.
var _ script.Host = (*Hub)(nil)

// SendTextMessage sends a status line to an online player.
func (h *Hub) SendTextMessage(player chat.PlayerID, text string) bool {
	c, ok := h.online[player]
	if !ok {
		return false
	}
	c.DeliverSystemMessage(chat.MessageStatus, text)
	return true
}

// BroadcastChannel sends an anonymous notice to every member of a static or
// private channel.
func (h *Hub) BroadcastChannel(id chat.ChannelID, text string) bool {
	if c, ok := h.registry.StaticChannel(id); ok {
		c.SendToAll(text, chat.SpeakChannelRed)
		return true
	}
	if c, ok := h.registry.PrivateChannel(id); ok {
		c.SendToAll(text, chat.SpeakChannelRed)
		return true
	}
	return false
}

// JoinChannel adds an online player to a channel.
func (h *Hub) JoinChannel(player chat.PlayerID, id chat.ChannelID) bool {
	c, ok := h.online[player]
	if !ok {
		return false
	}
	_, err := h.registry.AddUser(c.player, id)
	return err == nil
}

// IsPremium reports whether the player has a premium account.
func (h *Hub) IsPremium(player chat.PlayerID) bool {
	return h.dir.Premium(player)
}
