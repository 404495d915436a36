package core

import (
	"errors"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

// Error codes for domain errors.
const (
	ErrCodeChannelNotFound   = "channel_not_found"
	ErrCodeChannelExists     = "channel_exists"
	ErrCodeAlreadyJoined     = "already_joined"
	ErrCodeNotInChannel      = "not_in_channel"
	ErrCodePermissionDenied  = "permission_denied"
	ErrCodeCapacityExhausted = "capacity_exhausted"
	ErrCodeHookDenied        = "hook_denied"
	ErrCodePlayerNotOnline   = "player_not_online"
	ErrCodeAlreadyOnline     = "already_online"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeInternal          = "internal"
)

var (
	// ErrPlayerNotOnline is returned when a command names a player without a session.
	ErrPlayerNotOnline = errors.New("player is not online")
	// ErrAlreadyOnline is returned when a player opens a second session.
	ErrAlreadyOnline = errors.New("player already online")
	// ErrHubClosed is returned once the hub loop has stopped.
	ErrHubClosed = errors.New("hub closed")
	// ErrBadRequest is returned for malformed commands.
	ErrBadRequest = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// errorFrom maps registry and hub errors onto wire codes.
func errorFrom(err error) *CoreError {
	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, chat.ErrChannelNotFound),
		errors.Is(err, chat.ErrNoGuild),
		errors.Is(err, chat.ErrNoParty):
		return coreError(ErrCodeChannelNotFound, err.Error())
	case errors.Is(err, chat.ErrChannelExists):
		return coreError(ErrCodeChannelExists, err.Error())
	case errors.Is(err, chat.ErrAlreadyMember):
		return coreError(ErrCodeAlreadyJoined, err.Error())
	case errors.Is(err, chat.ErrNotMember):
		return coreError(ErrCodeNotInChannel, err.Error())
	case errors.Is(err, chat.ErrPermissionDenied):
		return coreError(ErrCodePermissionDenied, err.Error())
	case errors.Is(err, chat.ErrCapacityExhausted):
		return coreError(ErrCodeCapacityExhausted, err.Error())
	case errors.Is(err, chat.ErrHookDenied):
		return coreError(ErrCodeHookDenied, err.Error())
	case errors.Is(err, ErrPlayerNotOnline):
		return coreError(ErrCodePlayerNotOnline, err.Error())
	case errors.Is(err, ErrAlreadyOnline):
		return coreError(ErrCodeAlreadyOnline, err.Error())
	case errors.Is(err, ErrBadRequest):
		return coreError(ErrCodeBadRequest, err.Error())
	default:
		return coreError(ErrCodeInternal, err.Error())
	}
}
