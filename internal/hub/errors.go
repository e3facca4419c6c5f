package hub

import "errors"

var (
	ErrRoomUnavailable   = errors.New("room unavailable: empty room key")
	ErrInvalidIdentifier = errors.New("invalid identifier format")
	ErrNotFound          = errors.New("room or user not found")
	ErrForbidden         = errors.New("not a member of this channel")
)

// WebSocket close codes sent when the connection handshake fails.
// Each failure mode gets its own code so clients can tell a bad token
// from a missing room from a membership refusal.
const (
	CloseInvalidIdentifier = 4000
	CloseInvalidToken      = 4001
	CloseForbidden         = 4003
	CloseNotFound          = 4004
)
