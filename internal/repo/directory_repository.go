package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/db"
	"github.com/NZmikeyG/messaging-app/internal/model"
)

type directoryRepository struct {
	channels *db.Repository[model.Channel]
	users    *db.Repository[model.User]
	logger   *zap.Logger
}

// DirectoryRepository answers channel/user existence and membership
// questions from the channels and users collections. Read-only: the
// account service owns these documents.
type DirectoryRepository interface {
	ChannelExists(ctx context.Context, channelID string) (bool, error)
	IsChannelMember(ctx context.Context, channelID, userID string) (bool, error)
	UserExists(ctx context.Context, userID string) (bool, error)
}

func NewDirectoryRepository(channels *db.Repository[model.Channel], users *db.Repository[model.User], logger *zap.Logger) DirectoryRepository {
	return &directoryRepository{
		channels: channels,
		users:    users,
		logger:   logger,
	}
}

func (d *directoryRepository) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return d.channels.Exists(ctx, bson.M{"channel_id": channelID, "is_active": true})
}

func (d *directoryRepository) IsChannelMember(ctx context.Context, channelID, userID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return d.channels.Exists(ctx, bson.M{
		"channel_id": channelID,
		"is_active":  true,
		"member_ids": userID,
	})
}

func (d *directoryRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return d.users.Exists(ctx, bson.M{"user_id": userID, "is_active": true})
}
