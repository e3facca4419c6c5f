package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/db"
	"github.com/NZmikeyG/messaging-app/internal/hub"
	"github.com/NZmikeyG/messaging-app/internal/model"
	"github.com/NZmikeyG/messaging-app/internal/repo"
)

var (
	ErrPresenceNotFound = errors.New("user presence not found")
	ErrInvalidStatus    = errors.New("invalid presence status")
)

// ChatService is the REST-facing view of the realtime state: presence,
// typing sets, message history and read receipts. The hub remains the
// authority for anything in memory; the repos back it durably.
type ChatService interface {
	GetPresence(ctx context.Context, userID string) (hub.PresenceRecord, error)
	UpdatePresence(ctx context.Context, userID, status string) (hub.PresenceRecord, error)
	ListTyping(channelID string) []string
	GetRoomMessages(ctx context.Context, channelID string, page int64) (*db.PaginatedResult[model.Message], error)
	MarkMessageRead(ctx context.Context, messageID, userID string) (bool, error)
}

type chatService struct {
	hub          *hub.Hub
	messageRepo  repo.MessageRepository
	receiptRepo  repo.ReceiptRepository
	presenceRepo repo.PresenceRepository
	logger       *zap.Logger
}

func NewChatService(h *hub.Hub, messageRepo repo.MessageRepository, receiptRepo repo.ReceiptRepository, presenceRepo repo.PresenceRepository, logger *zap.Logger) ChatService {
	return &chatService{
		hub:          h,
		messageRepo:  messageRepo,
		receiptRepo:  receiptRepo,
		presenceRepo: presenceRepo,
		logger:       logger,
	}
}

// GetPresence prefers the in-memory tracker and falls back to the
// stored snapshot for users not seen since the last restart.
func (s *chatService) GetPresence(ctx context.Context, userID string) (hub.PresenceRecord, error) {
	if rec, ok := s.hub.Presence().Get(userID); ok {
		return rec, nil
	}

	stored, err := s.presenceRepo.Get(ctx, userID)
	if err != nil {
		return hub.PresenceRecord{}, err
	}
	if stored == nil {
		return hub.PresenceRecord{}, ErrPresenceNotFound
	}

	return hub.PresenceRecord{
		UserID:   stored.UserID,
		Online:   stored.Online,
		Status:   stored.Status,
		LastSeen: stored.LastSeen,
	}, nil
}

func (s *chatService) UpdatePresence(ctx context.Context, userID, status string) (hub.PresenceRecord, error) {
	if !model.ValidStatus(status) {
		return hub.PresenceRecord{}, ErrInvalidStatus
	}

	rec := s.hub.Presence().SetStatus(userID, status)

	snapshot := model.Presence{
		UserID:   rec.UserID,
		Online:   rec.Online,
		Status:   rec.Status,
		LastSeen: rec.LastSeen,
	}
	if err := s.presenceRepo.Save(ctx, snapshot); err != nil {
		// Tracker already holds the update; the snapshot will catch
		// up on the next write.
		s.logger.Warn("failed to persist presence update",
			zap.String("user", userID), zap.Error(err))
	}

	return rec, nil
}

func (s *chatService) ListTyping(channelID string) []string {
	return s.hub.Typing().ListTyping(hub.ChannelRoomKey(channelID))
}

func (s *chatService) GetRoomMessages(ctx context.Context, channelID string, page int64) (*db.PaginatedResult[model.Message], error) {
	return s.messageRepo.FilterByRoom(ctx, hub.ChannelRoomKey(channelID), page)
}

// MarkMessageRead creates a read receipt if one does not exist yet.
// Returns whether a new receipt was created.
func (s *chatService) MarkMessageRead(ctx context.Context, messageID, userID string) (bool, error) {
	exists, err := s.receiptRepo.Exists(ctx, messageID, userID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.receiptRepo.Create(ctx, messageID, userID, time.Now().UTC()); err != nil {
		return false, err
	}
	return true, nil
}
