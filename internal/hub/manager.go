package hub

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/event"
	"github.com/NZmikeyG/messaging-app/internal/model"
)

const repoOpTimeout = 5 * time.Second

// Options tunes hub behaviour that varies per deployment.
type Options struct {
	TypingTTL      time.Duration
	AllowedOrigins []string
}

type inboundFrame struct {
	frame  event.Frame
	client *Client
}

// Hub owns the connection registry, presence and typing trackers, and
// the worker pool that processes inbound frames. One hub per process.
type Hub struct {
	registry *Registry
	presence *PresenceTracker
	typing   *TypingTracker
	deps     Deps
	logger   *zap.Logger

	unregister chan *Client
	inbound    []chan inboundFrame
	upgrader   websocket.Upgrader

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(deps Deps, opts Options, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry:   NewRegistry(logger),
		presence:   NewPresenceTracker(),
		typing:     NewTypingTracker(opts.TypingTTL),
		deps:       deps,
		logger:     logger,
		unregister: make(chan *Client, 1024),
		inbound:    make([]chan inboundFrame, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	h.upgrader = buildUpgrader(opts.AllowedOrigins)

	// run manager loop
	go h.run()

	// One queue per worker; frames are routed by connection id, so a
	// single connection's frames stay in receipt order while distinct
	// connections proceed in parallel.
	for i := 0; i < workerPoolSize; i++ {
		h.inbound[i] = make(chan inboundFrame, 256)
		h.wg.Add(1)
		go func(queue chan inboundFrame) {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-queue:
					h.handleFrame(in.client, in.frame)
				}
			}
		}(h.inbound[i])
	}

	go h.typing.Sweep(ctx)

	return h
}

// Presence exposes the tracker to the REST layer.
func (h *Hub) Presence() *PresenceTracker { return h.presence }

// Typing exposes the typing tracker to the REST layer.
func (h *Hub) Typing() *TypingTracker { return h.typing }

func (h *Hub) inboundQueue(c *Client) chan inboundFrame {
	return h.inbound[int(getShard(c.ID))%workerPoolSize]
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.unregister:
			h.detach(c)
		}
	}
}

// handleFrame dispatches one inbound frame from an active connection.
// Unknown frame types are ignored without surfacing an error.
func (h *Hub) handleFrame(c *Client, f event.Frame) {
	switch f.Type {
	case event.TypeMessage:
		h.handleMessage(c, f)
	case event.TypeTyping:
		h.typing.StartTyping(c.RoomKey, c.UserID)
		h.broadcast(c.RoomKey, event.Frame{
			Type:   event.TypeTypingIndicator,
			RoomID: c.RoomKey,
			UserID: c.UserID,
			Typing: h.typing.ListTyping(c.RoomKey),
		})
	case event.TypeStoppedTyping:
		h.typing.StopTyping(c.RoomKey, c.UserID)
		h.broadcast(c.RoomKey, event.Frame{
			Type:   event.TypeStoppedTyping,
			RoomID: c.RoomKey,
			UserID: c.UserID,
		})
	case event.TypePresence:
		h.handlePresence(c, f)
	case event.TypeReadReceipt:
		h.handleReadReceipt(c, f)
	default:
		h.logger.Debug("ignoring unknown frame type",
			zap.String("type", f.Type), zap.String("client", c.ID))
	}
}

func (h *Hub) handleMessage(c *Client, f event.Frame) {
	if strings.TrimSpace(f.Content) == "" {
		c.trySend(h.stamp(event.Frame{
			Type: event.TypeError,
			Error: &event.Error{
				Code:    event.CodeEmptyMessage,
				Message: "message content cannot be empty",
			},
		}))
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, repoOpTimeout)
	defer cancel()

	msg, err := h.deps.Messages.Store(ctx, c.RoomKey, c.UserID, f.Content)
	if err != nil {
		h.logger.Error("failed to store message",
			zap.String("room", c.RoomKey),
			zap.String("user", c.UserID),
			zap.Error(err))
		// The sender is told the message failed, so nobody else may
		// see it: no broadcast on a failed store.
		c.trySend(h.stamp(event.Frame{
			Type: event.TypeError,
			Error: &event.Error{
				Code:    event.CodeStoreFailed,
				Message: "message could not be stored",
			},
		}))
		return
	}

	h.broadcast(c.RoomKey, event.Frame{
		Type:   event.TypeMessage,
		RoomID: c.RoomKey,
		UserID: c.UserID,
		Message: &event.Message{
			MessageID: msg.MessageID,
			RoomID:    msg.RoomID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			StoredAt:  msg.CreatedAt,
		},
	})

	// Sending a message implicitly ends the sender's typing state.
	h.typing.StopTyping(c.RoomKey, c.UserID)
	h.broadcast(c.RoomKey, event.Frame{
		Type:   event.TypeStoppedTyping,
		RoomID: c.RoomKey,
		UserID: c.UserID,
	})
}

func (h *Hub) handlePresence(c *Client, f event.Frame) {
	if !model.ValidStatus(f.Status) {
		h.logger.Debug("ignoring unknown presence status",
			zap.String("status", f.Status), zap.String("user", c.UserID))
		return
	}

	rec := h.presence.SetStatus(c.UserID, f.Status)
	go h.savePresence(rec)

	h.broadcast(c.RoomKey, event.Frame{
		Type:   event.TypePresenceUpdate,
		RoomID: c.RoomKey,
		UserID: c.UserID,
		Status: rec.Status,
	})
}

func (h *Hub) handleReadReceipt(c *Client, f event.Frame) {
	if f.MessageID == "" {
		h.logger.Debug("read receipt without message id",
			zap.String("client", c.ID))
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, repoOpTimeout)
	defer cancel()

	exists, err := h.deps.Receipts.Exists(ctx, f.MessageID, c.UserID)
	if err != nil {
		h.logger.Error("failed to check read receipt",
			zap.String("message", f.MessageID), zap.Error(err))
		return
	}
	if exists {
		// Already recorded; marking read twice is a no-op.
		return
	}

	readAt := time.Now().UTC()
	if err := h.deps.Receipts.Create(ctx, f.MessageID, c.UserID, readAt); err != nil {
		h.logger.Error("failed to create read receipt",
			zap.String("message", f.MessageID), zap.Error(err))
		return
	}

	h.broadcast(c.RoomKey, event.Frame{
		Type:      event.TypeMessageRead,
		RoomID:    c.RoomKey,
		UserID:    c.UserID,
		MessageID: f.MessageID,
	})
}

// broadcast stamps the frame and fans it out; connections that refuse
// delivery are queued for removal without affecting the rest.
func (h *Hub) broadcast(roomKey string, f event.Frame) DeliveryReport {
	report := h.registry.Broadcast(roomKey, h.stamp(f))
	for _, c := range report.Failed {
		select {
		case h.unregister <- c:
			// scheduled for removal
		case <-time.After(unregisterTimeout):
			h.logger.Warn("unregister queue full",
				zap.String("client", c.ID))
		}
	}
	return report
}

func (h *Hub) stamp(f event.Frame) event.Frame {
	f.Timestamp = time.Now().UTC()
	return f
}

func (h *Hub) savePresence(rec PresenceRecord) {
	if h.deps.Presence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoOpTimeout)
	defer cancel()

	snapshot := model.Presence{
		UserID:   rec.UserID,
		Online:   rec.Online,
		Status:   rec.Status,
		LastSeen: rec.LastSeen,
	}
	if err := h.deps.Presence.Save(ctx, snapshot); err != nil {
		h.logger.Warn("failed to persist presence",
			zap.String("user", rec.UserID), zap.Error(err))
	}
}

// attach registers a freshly authenticated connection, flips the user
// online, starts the pumps and announces the join to the room.
func (h *Hub) attach(c *Client) error {
	reg, err := h.registry.Register(c.RoomKey, c)
	if err != nil {
		return err
	}
	c.reg = reg

	rec := h.presence.MarkOnline(c.UserID)
	go h.savePresence(rec)

	go c.readPump()
	go c.writePump()

	// Best-effort: the join notice is not required for correctness.
	h.broadcast(c.RoomKey, event.Frame{
		Type:   event.TypeUserJoined,
		RoomID: c.RoomKey,
		UserID: c.UserID,
	})

	h.logger.Info("client joined",
		zap.String("client", c.ID),
		zap.String("user", c.UserID),
		zap.String("room", c.RoomKey))
	return nil
}

// detach runs the cleanup path for a connection exactly once, no
// matter how many paths race into it. The three steps are independent
// so one failing cannot skip the others; unregister and mark-offline
// are idempotent on their own.
func (h *Hub) detach(c *Client) {
	c.cleanupOnce.Do(func() {
		h.registry.Unregister(c.reg)

		rec := h.presence.MarkOffline(c.UserID)
		go h.savePresence(rec)

		h.broadcast(c.RoomKey, event.Frame{
			Type:   event.TypeUserLeft,
			RoomID: c.RoomKey,
			UserID: c.UserID,
		})

		c.close()
		h.logger.Info("client left",
			zap.String("client", c.ID),
			zap.String("user", c.UserID),
			zap.String("room", c.RoomKey))
	})
}

// Stop shuts the hub down: closes every live connection and waits for
// the workers to drain.
func (h *Hub) Stop() {
	h.cancel()

	h.registry.each(func(c *Client) {
		c.close()
	})

	h.wg.Wait()
}
