package hub

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// ServeChannelWS upgrades the request and runs the channel handshake:
// validate the channel id, authenticate the bearer token, check
// membership, then activate the connection. Each failure closes the
// socket with its own code before any registration happens.
func (h *Hub) ServeChannelWS(w http.ResponseWriter, r *http.Request, channelID, token string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	if _, err := uuid.Parse(channelID); err != nil {
		h.closeWith(conn, CloseInvalidIdentifier, "invalid channel id")
		return
	}

	userID, err := h.deps.Verifier.Verify(token)
	if err != nil {
		h.closeWith(conn, CloseInvalidToken, "invalid credential")
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, repoOpTimeout)
	defer cancel()

	exists, err := h.deps.Directory.ChannelExists(ctx, channelID)
	if err != nil {
		h.logger.Error("channel lookup failed",
			zap.String("channel", channelID), zap.Error(err))
		h.closeWith(conn, websocket.CloseInternalServerErr, "lookup failed")
		return
	}
	if !exists {
		h.closeWith(conn, CloseNotFound, "channel not found")
		return
	}

	member, err := h.deps.Directory.IsChannelMember(ctx, channelID, userID)
	if err != nil {
		h.logger.Error("membership lookup failed",
			zap.String("channel", channelID), zap.Error(err))
		h.closeWith(conn, websocket.CloseInternalServerErr, "lookup failed")
		return
	}
	if !member {
		h.closeWith(conn, CloseForbidden, "not a member of this channel")
		return
	}

	h.activate(userID, ChannelRoomKey(channelID), conn)
}

// ServeDMWS upgrades the request and runs the direct-message
// handshake: validate the peer id, authenticate, check the peer
// exists, then activate. Both directions of a pair land in the same
// room.
func (h *Hub) ServeDMWS(w http.ResponseWriter, r *http.Request, otherUserID, token string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	if _, err := uuid.Parse(otherUserID); err != nil {
		h.closeWith(conn, CloseInvalidIdentifier, "invalid user id")
		return
	}

	userID, err := h.deps.Verifier.Verify(token)
	if err != nil {
		h.closeWith(conn, CloseInvalidToken, "invalid credential")
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, repoOpTimeout)
	defer cancel()

	exists, err := h.deps.Directory.UserExists(ctx, otherUserID)
	if err != nil {
		h.logger.Error("user lookup failed",
			zap.String("user", otherUserID), zap.Error(err))
		h.closeWith(conn, websocket.CloseInternalServerErr, "lookup failed")
		return
	}
	if !exists {
		h.closeWith(conn, CloseNotFound, "user not found")
		return
	}

	h.activate(userID, DMRoomKey(userID, otherUserID), conn)
}

func (h *Hub) activate(userID, roomKey string, conn *websocket.Conn) {
	c := newClient(userID, roomKey, conn, h)
	if err := h.attach(c); err != nil {
		h.logger.Error("failed to attach client",
			zap.String("room", roomKey), zap.Error(err))
		h.closeWith(conn, websocket.CloseInternalServerErr, "registration failed")
	}
}

func (h *Hub) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}
