package hub

import (
	"context"
	"time"

	"github.com/NZmikeyG/messaging-app/internal/model"
)

// TokenVerifier authenticates a bearer credential and yields the
// user id it was issued to.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Directory answers existence and membership questions. Channel and
// user records are owned by the account service; the hub only reads.
type Directory interface {
	ChannelExists(ctx context.Context, channelID string) (bool, error)
	IsChannelMember(ctx context.Context, channelID, userID string) (bool, error)
	UserExists(ctx context.Context, userID string) (bool, error)
}

// MessageStore durably persists chat messages before they are fanned
// out. A message that fails to store is never broadcast.
type MessageStore interface {
	Store(ctx context.Context, roomKey, senderID, content string) (*model.Message, error)
}

// ReceiptStore persists read receipts, at most one per
// (message, user) pair.
type ReceiptStore interface {
	Exists(ctx context.Context, messageID, userID string) (bool, error)
	Create(ctx context.Context, messageID, userID string, readAt time.Time) error
}

// PresenceStore persists presence snapshots. Writes are best-effort;
// the in-memory tracker remains authoritative while the process runs.
type PresenceStore interface {
	Save(ctx context.Context, rec model.Presence) error
}

// Deps bundles the collaborators the hub needs. All fields are
// required except Presence, which may be nil to disable write-through.
type Deps struct {
	Verifier  TokenVerifier
	Directory Directory
	Messages  MessageStore
	Receipts  ReceiptStore
	Presence  PresenceStore
}
