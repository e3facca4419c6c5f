package hub

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	typingShards      = 32
	defaultTypingTTL  = 10 * time.Second
	typingSweepPeriod = 5 * time.Second
)

type typingBucket struct {
	sync.RWMutex
	rooms map[string]map[string]time.Time // room key -> user id -> expiry
}

// TypingTracker keeps the set of users currently typing in each room.
// Entries expire after a TTL so a client that disconnects mid-typing
// cannot leave the indicator stuck; start_typing refreshes the TTL.
type TypingTracker struct {
	shards [typingShards]*typingBucket
	ttl    time.Duration
	now    func() time.Time
}

func NewTypingTracker(ttl time.Duration) *TypingTracker {
	if ttl <= 0 {
		ttl = defaultTypingTTL
	}

	t := &TypingTracker{ttl: ttl, now: time.Now}
	for i := 0; i < typingShards; i++ {
		t.shards[i] = &typingBucket{rooms: make(map[string]map[string]time.Time)}
	}
	return t
}

func (t *TypingTracker) bucket(roomKey string) *typingBucket {
	return t.shards[getShard(roomKey)%typingShards]
}

// StartTyping adds the user to the room's typing set, refreshing the
// expiry if already present.
func (t *TypingTracker) StartTyping(roomKey, userID string) {
	b := t.bucket(roomKey)
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[roomKey]
	if !ok {
		room = make(map[string]time.Time)
		b.rooms[roomKey] = room
	}
	room[userID] = t.now().Add(t.ttl)
}

// StopTyping removes the user from the room's typing set. Idempotent.
func (t *TypingTracker) StopTyping(roomKey, userID string) {
	b := t.bucket(roomKey)
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[roomKey]
	if !ok {
		return
	}

	delete(room, userID)
	if len(room) == 0 {
		delete(b.rooms, roomKey)
	}
}

// ListTyping returns the ids of users typing in the room, sorted for
// stable output. Expired entries are dropped on the way out.
func (t *TypingTracker) ListTyping(roomKey string) []string {
	b := t.bucket(roomKey)
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[roomKey]
	if !ok {
		return nil
	}

	now := t.now()
	users := make([]string, 0, len(room))
	for userID, expiry := range room {
		if now.After(expiry) {
			delete(room, userID)
			continue
		}
		users = append(users, userID)
	}

	if len(room) == 0 {
		delete(b.rooms, roomKey)
	}

	sort.Strings(users)
	return users
}

// Sweep periodically drops expired entries so rooms nobody reads from
// anymore do not accumulate stale state. Runs until ctx is cancelled.
func (t *TypingTracker) Sweep(ctx context.Context) {
	ticker := time.NewTicker(typingSweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweepOnce()
		}
	}
}

func (t *TypingTracker) sweepOnce() {
	now := t.now()
	for _, b := range t.shards {
		b.Lock()
		for roomKey, room := range b.rooms {
			for userID, expiry := range room {
				if now.After(expiry) {
					delete(room, userID)
				}
			}
			if len(room) == 0 {
				delete(b.rooms, roomKey)
			}
		}
		b.Unlock()
	}
}
