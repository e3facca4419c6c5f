package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/event"
)

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	workerPoolSize     = 16                     // number of workers to process inbound frames
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound frames
	unregisterTimeout  = 5 * time.Second        // timeout for scheduling a client removal
	inboundSendTimeout = 500 * time.Millisecond // timeout for handing a frame to the worker queue
)

// Client is one live WebSocket connection, bound to exactly one room
// for its whole lifetime.
type Client struct {
	ID        string
	UserID    string
	RoomKey   string
	CreatedAt time.Time

	conn   *websocket.Conn
	hub    *Hub
	egress chan event.Frame
	reg    *Registration

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce   sync.Once
	cleanupOnce sync.Once

	connClosed     chan struct{}
	connClosedOnce sync.Once

	closed   bool
	closedMu sync.RWMutex
}

func newClient(userID, roomKey string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	return &Client{
		ID:         uuid.New().String(),
		UserID:     userID,
		RoomKey:    roomKey,
		CreatedAt:  time.Now().UTC(),
		conn:       conn,
		hub:        h,
		egress:     make(chan event.Frame, sendBufSize),
		ctx:        ctx,
		cancel:     cancel,
		connClosed: make(chan struct{}),
	}
}

func (c *Client) readPump() {
	defer c.hub.detach(c)

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var f event.Frame

			if err := c.conn.ReadJSON(&f); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.hub.logger.Debug("client disconnected", zap.String("client", c.ID))
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					c.hub.logger.Warn("unexpected close",
						zap.String("client", c.ID), zap.Error(err))
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.hub.logger.Warn("client timed out, closing connection",
						zap.String("client", c.ID))
					return
				}

				// Malformed frames are fatal too: leave the loop and
				// let the deferred detach run the cleanup path.
				c.hub.logger.Warn("read error",
					zap.String("client", c.ID), zap.Error(err))
				return
			}

			// Non-blocking hand-off to the worker queue to avoid
			// stalling the reader.
			select {
			case c.hub.inboundQueue(c) <- inboundFrame{client: c, frame: f}:
				// accepted for processing
			case <-time.After(inboundSendTimeout):
				c.hub.logger.Warn("inbound queue full, dropping client",
					zap.String("client", c.ID))
				return
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case f := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				c.hub.logger.Warn("write error",
					zap.String("client", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Debug("ping failed",
					zap.String("client", c.ID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// trySend enqueues a frame for delivery. A closed client or a full
// egress buffer that does not drain within sendTimeout refuses the
// frame; the caller decides what that means.
func (c *Client) trySend(f event.Frame) bool {
	if c.isClosed() {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- f:
		return true
	case <-time.After(sendTimeout):
		return false
	}
}

func (c *Client) isClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// close tears down the client exactly once. The egress channel is
// never closed; cancelling the context stops both pumps and unblocks
// any sender. The write pump owns the connection close; a safety
// timer forces it if the pump is already gone.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()

		if c.conn == nil {
			return
		}

		go func() {
			select {
			case <-c.connClosed:
				// writePump closed it
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
			}
		}()
	})
}
