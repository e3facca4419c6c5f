package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel represents a channel document in MongoDB. Membership is
// owned by the account service; the realtime core only checks it.
type Channel struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ChannelID string             `json:"channelId" bson:"channel_id"`
	Name      string             `json:"name" bson:"name"`
	MemberIDs []string           `json:"memberIds" bson:"member_ids"`
	CreatedBy string             `json:"createdBy" bson:"created_by"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	IsActive  bool               `json:"isActive" bson:"is_active"`
}
