package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReadReceipt records that a user has seen a message. At most one
// document per (message_id, user_id); immutable once written.
type ReadReceipt struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MessageID string             `json:"messageId" bson:"message_id"`
	UserID    string             `json:"userId" bson:"user_id"`
	ReadAt    time.Time          `json:"readAt" bson:"read_at"`
}
