package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/db"
	"github.com/NZmikeyG/messaging-app/internal/model"
)

var (
	ErrInvalidMessage = errors.New("invalid message: content cannot be empty")
	ErrInvalidRoomKey = errors.New("invalid room key: cannot be empty")
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

type MessageRepository interface {
	Store(ctx context.Context, roomKey, senderID, content string) (*model.Message, error)
	FilterByRoom(ctx context.Context, roomKey string, page int64) (*db.PaginatedResult[model.Message], error)
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// Store persists a message and returns it with its assigned id and
// creation time.
func (m *messageRepository) Store(ctx context.Context, roomKey, senderID, content string) (*model.Message, error) {
	if roomKey == "" {
		return nil, ErrInvalidRoomKey
	}
	if content == "" {
		return nil, ErrInvalidMessage
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg := model.Message{
		MessageID: uuid.New().String(),
		RoomID:    roomKey,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := m.mongoRepo.Create(ctx, msg); err != nil {
		m.logger.Error("failed to insert message",
			zap.String("room", roomKey), zap.Error(err))
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	m.logger.Debug("message stored",
		zap.String("message", msg.MessageID),
		zap.String("room", roomKey))
	return &msg, nil
}

// FilterByRoom returns one page of a room's message history, newest
// first.
func (m *messageRepository) FilterByRoom(ctx context.Context, roomKey string, page int64) (*db.PaginatedResult[model.Message], error) {
	if roomKey == "" {
		return nil, ErrInvalidRoomKey
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	params := db.PaginationParams{
		Page:     page,
		PageSize: 50,
		SortBy:   "created_at",
		SortDesc: true,
	}

	result, err := m.mongoRepo.FindWithPagination(ctx, bson.M{"room_id": roomKey}, params)
	if err != nil {
		m.logger.Error("failed to query messages",
			zap.String("room", roomKey), zap.Error(err))
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return result, nil
}

// ensureTimeout attaches a deadline to ctx unless it already has one.
func ensureTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
