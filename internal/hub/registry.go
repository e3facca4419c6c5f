package hub

import (
	"crypto/sha1"
	"encoding/binary"
	"sync"

	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/event"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type clientBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client
}

// Registration is the handle returned by Register. Passing it back to
// Unregister removes the connection; doing so twice is a no-op.
type Registration struct {
	roomKey string
	client  *Client
}

// DeliveryReport summarises one broadcast: how many connections the
// frame was handed to and which ones refused it.
type DeliveryReport struct {
	Delivered int
	Failed    []*Client
}

// Registry maps room keys to the set of live connections in that
// room. Buckets are sharded by room key so unrelated rooms never
// contend on the same lock.
type Registry struct {
	shards [shardCount]*clientBucket
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{logger: logger}
	for i := 0; i < shardCount; i++ {
		r.shards[i] = &clientBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}
	return r
}

func getShard(roomKey string) uint32 {
	if roomKey == "" {
		return 0
	}

	h := sha1.Sum([]byte(roomKey))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

// Register adds a connection to a room's set and returns its handle.
// Fan-out is unbounded: registration never fails for capacity, only
// for a room key that cannot exist.
func (r *Registry) Register(roomKey string, c *Client) (*Registration, error) {
	if roomKey == "" {
		return nil, ErrRoomUnavailable
	}

	sh := getShard(roomKey)
	b := r.shards[sh]
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[roomKey]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[roomKey] = room
	}

	room[c.ID] = c
	r.logger.Debug("client registered",
		zap.String("client", c.ID),
		zap.String("room", roomKey),
		zap.Uint32("shard", sh))

	return &Registration{roomKey: roomKey, client: c}, nil
}

// Unregister removes the connection named by the handle. Removing a
// connection that is already gone is a no-op.
func (r *Registry) Unregister(reg *Registration) {
	if reg == nil {
		return
	}

	sh := getShard(reg.roomKey)
	b := r.shards[sh]
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[reg.roomKey]
	if !ok {
		return
	}

	if _, exists := room[reg.client.ID]; !exists {
		return
	}

	delete(room, reg.client.ID)
	if len(room) == 0 {
		delete(b.rooms, reg.roomKey)
	}

	r.logger.Debug("client removed",
		zap.String("client", reg.client.ID),
		zap.String("room", reg.roomKey),
		zap.Uint32("shard", sh))
}

// Broadcast sends a frame to every live connection in the room. The
// connection set is snapshotted under the read lock and delivery
// happens lock-free, so a slow receiver never blocks registration in
// the same room. A refused send fails only that one connection.
func (r *Registry) Broadcast(roomKey string, f event.Frame) DeliveryReport {
	sh := getShard(roomKey)
	b := r.shards[sh]

	b.RLock()
	room, ok := b.rooms[roomKey]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return DeliveryReport{}
	}

	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	b.RUnlock()

	var report DeliveryReport
	for _, c := range clients {
		if c.trySend(f) {
			report.Delivered++
		} else {
			r.logger.Warn("delivery failed, scheduling removal",
				zap.String("client", c.ID),
				zap.String("room", roomKey))
			report.Failed = append(report.Failed, c)
		}
	}
	return report
}

// Clients returns a snapshot of the connections currently registered
// in the room.
func (r *Registry) Clients(roomKey string) []*Client {
	sh := getShard(roomKey)
	b := r.shards[sh]

	b.RLock()
	defer b.RUnlock()

	room := b.rooms[roomKey]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	return clients
}

// each walks every registered connection, used on shutdown.
func (r *Registry) each(fn func(*Client)) {
	for _, shard := range r.shards {
		shard.RLock()
		for _, room := range shard.rooms {
			for _, client := range room {
				fn(client)
			}
		}
		shard.RUnlock()
	}
}
