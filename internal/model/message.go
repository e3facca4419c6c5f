package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message represents a chat message in MongoDB. RoomID is the
// canonical room key the message was sent to (channel or DM pair).
type Message struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MessageID string             `json:"messageId" bson:"message_id"`
	RoomID    string             `json:"roomId" bson:"room_id"`
	SenderID  string             `json:"senderId" bson:"sender_id"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}
