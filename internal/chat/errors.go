package chat

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyMember     = errors.New("already a member")
	ErrNotMember         = errors.New("not a member")
	ErrHookDenied        = errors.New("denied by channel hook")
	ErrChannelExists     = errors.New("channel already exists")
	ErrChannelNotFound   = errors.New("channel not found")
	ErrNoGuild           = errors.New("player has no guild")
	ErrNoParty           = errors.New("player is not in a party")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrCapacityExhausted = errors.New("no free private channel id")
	ErrInvalidDefinition = errors.New("invalid static channel definition")

	ErrNotPremium   = fmt.Errorf("%w: private channels require premium", ErrPermissionDenied)
	ErrAlreadyOwner = fmt.Errorf("%w: player already owns a private channel", ErrPermissionDenied)
)
