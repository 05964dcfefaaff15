package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, jwtSecret string, coachHandler *CoachHandler) {

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := AuthMiddleware(jwtSecret)

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		coachGroup := protected.Group("/coach")
		{
			// POST /api/v1/coach/conversations/{conversationId}/messages
			coachGroup.POST("/conversations/:conversationId/messages", coachHandler.SendMessage)
			// GET /api/v1/coach/conversations/{conversationId}/messages
			coachGroup.GET("/conversations/:conversationId/messages", coachHandler.GetConversation)

			// Approval protocol: decide first, then execute. Execute is a
			// separate call so clients can retry it safely.
			coachGroup.POST("/messages/:messageId/approve", coachHandler.ApproveMessage)
			coachGroup.POST("/messages/:messageId/reject", coachHandler.RejectMessage)
			coachGroup.POST("/messages/:messageId/execute", coachHandler.ExecuteMessage)
		}
	}
}
