package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence status values. A user with Online=false always reports
// StatusOffline regardless of the stored status string.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusDND     = "dnd"
	StatusOffline = "offline"
)

// Presence is the durable snapshot of a user's presence, upserted
// best-effort from the in-memory tracker. Exactly one document per
// user; never deleted, it just goes offline.
type Presence struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID   string             `json:"userId" bson:"user_id"`
	Online   bool               `json:"isOnline" bson:"is_online"`
	Status   string             `json:"status" bson:"status"`
	LastSeen time.Time          `json:"lastSeen" bson:"last_seen"`
}

// ValidStatus reports whether s is one of the known status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusDND, StatusOffline:
		return true
	}
	return false
}
