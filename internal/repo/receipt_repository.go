package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/db"
	"github.com/NZmikeyG/messaging-app/internal/model"
)

var ErrInvalidReceipt = errors.New("invalid receipt: message id and user id are required")

type receiptRepository struct {
	mongoRepo *db.Repository[model.ReadReceipt]
	logger    *zap.Logger
}

type ReceiptRepository interface {
	Exists(ctx context.Context, messageID, userID string) (bool, error)
	Create(ctx context.Context, messageID, userID string, readAt time.Time) error
}

func NewReceiptRepository(repo *db.Repository[model.ReadReceipt], logger *zap.Logger) ReceiptRepository {
	return &receiptRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *receiptRepository) Exists(ctx context.Context, messageID, userID string) (bool, error) {
	if messageID == "" || userID == "" {
		return false, ErrInvalidReceipt
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return r.mongoRepo.Exists(ctx, bson.M{"message_id": messageID, "user_id": userID})
}

// Create records that the user has read the message. Creating a
// receipt that already exists is a no-op; the first read_at wins.
func (r *receiptRepository) Create(ctx context.Context, messageID, userID string, readAt time.Time) error {
	if messageID == "" || userID == "" {
		return ErrInvalidReceipt
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	exists, err := r.mongoRepo.Exists(ctx, bson.M{"message_id": messageID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to check receipt: %w", err)
	}
	if exists {
		return nil
	}

	receipt := model.ReadReceipt{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    readAt,
	}

	if _, err := r.mongoRepo.Create(ctx, receipt); err != nil {
		r.logger.Error("failed to insert read receipt",
			zap.String("message", messageID),
			zap.String("user", userID),
			zap.Error(err))
		return fmt.Errorf("failed to insert read receipt: %w", err)
	}
	return nil
}
