package configuration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/auth"
	"github.com/NZmikeyG/messaging-app/internal/db"
	"github.com/NZmikeyG/messaging-app/internal/handler"
	"github.com/NZmikeyG/messaging-app/internal/hub"
	"github.com/NZmikeyG/messaging-app/internal/model"
	"github.com/NZmikeyG/messaging-app/internal/repo"
	"github.com/NZmikeyG/messaging-app/internal/service"
)

type Container struct {
	ChatHandler handler.ChatHandler
	Hub         *hub.Hub
	Verifier    *auth.Manager
	Config      Config
	Logger      *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
	if err != nil {
		return nil, err
	}

	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](con, config.Mongo.MessagesCollection), logger)
	receiptRepo := repo.NewReceiptRepository(
		db.NewRepository[model.ReadReceipt](con, config.Mongo.ReceiptsCollection), logger)
	presenceRepo := repo.NewPresenceRepository(
		db.NewRepository[model.Presence](con, config.Mongo.PresenceCollection), logger)
	directoryRepo := repo.NewDirectoryRepository(
		db.NewRepository[model.Channel](con, config.Mongo.ChannelsCollection),
		db.NewRepository[model.User](con, config.Mongo.UsersCollection), logger)

	verifier := auth.NewManager(auth.Config{
		SecretKey: config.Auth.JwtSecret,
		Issuer:    config.Auth.Issuer,
		TokenTTL:  time.Duration(config.Auth.TokenTTLMinutes) * time.Minute,
	})

	h := hub.NewHub(hub.Deps{
		Verifier:  verifier,
		Directory: directoryRepo,
		Messages:  messageRepo,
		Receipts:  receiptRepo,
		Presence:  presenceRepo,
	}, hub.Options{
		TypingTTL:      time.Duration(config.Hub.TypingTTLSeconds) * time.Second,
		AllowedOrigins: config.Hub.AllowedOrigins,
	}, logger)

	chatService := service.NewChatService(h, messageRepo, receiptRepo, presenceRepo, logger)
	chatHandler := handler.NewChatHandler(chatService)

	return &Container{
		ChatHandler: chatHandler,
		Hub:         h,
		Verifier:    verifier,
		Config:      *config,
		Logger:      logger,
		mongoClient: con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
