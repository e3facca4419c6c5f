package hub

import (
	"sync"
	"time"

	"github.com/NZmikeyG/messaging-app/internal/model"
)

const presenceShards = 32

// PresenceRecord is a user's presence as seen by the tracker. One
// record per user, created lazily on first contact and never deleted;
// after the last disconnect it persists as offline.
type PresenceRecord struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"is_online"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

type presenceBucket struct {
	sync.RWMutex
	records map[string]*PresenceRecord
}

// PresenceTracker keeps per-user presence in memory, sharded by user
// id. Every operation is total: no transition is ever rejected, and
// every call bumps last_seen.
type PresenceTracker struct {
	shards [presenceShards]*presenceBucket
	now    func() time.Time
}

func NewPresenceTracker() *PresenceTracker {
	t := &PresenceTracker{now: time.Now}
	for i := 0; i < presenceShards; i++ {
		t.shards[i] = &presenceBucket{records: make(map[string]*PresenceRecord)}
	}
	return t
}

func (t *PresenceTracker) bucket(userID string) *presenceBucket {
	return t.shards[getShard(userID)%presenceShards]
}

func (t *PresenceTracker) upsert(userID string, fn func(*PresenceRecord)) PresenceRecord {
	b := t.bucket(userID)
	b.Lock()
	defer b.Unlock()

	rec, ok := b.records[userID]
	if !ok {
		rec = &PresenceRecord{UserID: userID, Status: model.StatusOffline}
		b.records[userID] = rec
	}

	fn(rec)
	rec.LastSeen = t.now().UTC()
	return *rec
}

// MarkOnline flips the user online. Idempotent.
func (t *PresenceTracker) MarkOnline(userID string) PresenceRecord {
	return t.upsert(userID, func(rec *PresenceRecord) {
		rec.Online = true
		rec.Status = model.StatusOnline
	})
}

// MarkOffline flips the user offline. Idempotent.
func (t *PresenceTracker) MarkOffline(userID string) PresenceRecord {
	return t.upsert(userID, func(rec *PresenceRecord) {
		rec.Online = false
		rec.Status = model.StatusOffline
	})
}

// SetStatus records an explicit status. Accepted whether or not the
// user is currently online; clients may pre-set a status before
// connecting and the last writer wins.
func (t *PresenceTracker) SetStatus(userID, status string) PresenceRecord {
	return t.upsert(userID, func(rec *PresenceRecord) {
		rec.Status = status
	})
}

// Get returns the user's record, or ok=false if the user has never
// been seen.
func (t *PresenceTracker) Get(userID string) (PresenceRecord, bool) {
	b := t.bucket(userID)
	b.RLock()
	defer b.RUnlock()

	rec, ok := b.records[userID]
	if !ok {
		return PresenceRecord{}, false
	}
	return *rec, true
}
