package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NZmikeyG/messaging-app/internal/service"
)

type ChatHandler interface {
	GetPresence(c *gin.Context)
	UpdatePresence(c *gin.Context)
	GetTypingUsers(c *gin.Context)
	GetRoomMessages(c *gin.Context)
	MarkMessageRead(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
}

func NewChatHandler(service service.ChatService) ChatHandler {
	return &chatHandler{
		service: service,
	}
}

type presenceUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *chatHandler) GetPresence(c *gin.Context) {
	userID := c.Param("userId")
	if _, err := uuid.Parse(userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	rec, err := h.service.GetPresence(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrPresenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User presence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get presence"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *chatHandler) UpdatePresence(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	var req presenceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	rec, err := h.service.UpdatePresence(c.Request.Context(), userID, req.Status)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid presence status"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update presence"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *chatHandler) GetTypingUsers(c *gin.Context) {
	channelID := c.Param("channelId")
	if _, err := uuid.Parse(channelID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel ID format"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel_id": channelID,
		"typing":     h.service.ListTyping(channelID),
	})
}

func (h *chatHandler) GetRoomMessages(c *gin.Context) {
	channelID := c.Param("channelId")
	if _, err := uuid.Parse(channelID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel ID format"})
		return
	}

	page := c.DefaultQuery("page", "1")
	pageNumber, err := strconv.ParseInt(page, 10, 64)
	if err != nil || pageNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page number"})
		return
	}

	result, err := h.service.GetRoomMessages(c.Request.Context(), channelID, pageNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *chatHandler) MarkMessageRead(c *gin.Context) {
	messageID := c.Param("messageId")
	if _, err := uuid.Parse(messageID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID format"})
		return
	}

	userID := c.GetString(ContextUserID)

	created, err := h.service.MarkMessageRead(c.Request.Context(), messageID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark message read"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"message_id": messageID,
		"user_id":    userID,
		"created":    created,
	})
}
