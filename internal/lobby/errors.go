package lobby

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomLimit          = errors.New("room limit reached")
	ErrRoomTerminated     = errors.New("room terminated")
	ErrInboxFull          = errors.New("room inbox full")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrInvalidOptions     = errors.New("invalid room options")
)
