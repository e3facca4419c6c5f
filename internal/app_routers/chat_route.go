package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/NZmikeyG/messaging-app/internal/configuration"
	"github.com/NZmikeyG/messaging-app/internal/handler"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	api := router.Group("/api", handler.RequireAuth(container.Verifier))
	{
		api.GET("/presence/:userId", container.ChatHandler.GetPresence)
		api.POST("/presence/update", container.ChatHandler.UpdatePresence)
		api.GET("/channels/:channelId/typing", container.ChatHandler.GetTypingUsers)
		api.GET("/channels/:channelId/messages", container.ChatHandler.GetRoomMessages)
		api.POST("/messages/:messageId/read", container.ChatHandler.MarkMessageRead)
	}
}
