package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/db"
	"github.com/NZmikeyG/messaging-app/internal/model"
)

type presenceRepository struct {
	mongoRepo *db.Repository[model.Presence]
	logger    *zap.Logger
}

type PresenceRepository interface {
	Save(ctx context.Context, rec model.Presence) error
	Get(ctx context.Context, userID string) (*model.Presence, error)
}

func NewPresenceRepository(repo *db.Repository[model.Presence], logger *zap.Logger) PresenceRepository {
	return &presenceRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// Save upserts the user's presence snapshot; one document per user.
func (p *presenceRepository) Save(ctx context.Context, rec model.Presence) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{
		"is_online": rec.Online,
		"status":    rec.Status,
		"last_seen": rec.LastSeen,
	}

	if _, err := p.mongoRepo.Upsert(ctx, bson.M{"user_id": rec.UserID}, update); err != nil {
		p.logger.Error("failed to upsert presence",
			zap.String("user", rec.UserID), zap.Error(err))
		return fmt.Errorf("failed to upsert presence: %w", err)
	}
	return nil
}

// Get returns the stored snapshot, or (nil, nil) if the user has no
// presence document yet.
func (p *presenceRepository) Get(ctx context.Context, userID string) (*model.Presence, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	rec, err := p.mongoRepo.FindOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query presence: %w", err)
	}
	return rec, nil
}
