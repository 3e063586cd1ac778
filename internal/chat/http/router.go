package http

import "github.com/gin-gonic/gin"

// Register attaches chat routes under an authenticated /matches group.
func (h *Handler) Register(rg *gin.RouterGroup, verified gin.HandlerFunc) {
	rg.GET("/:id/chat", h.ListMessages)
	rg.GET("/:id/chat/stream", h.StreamMessages)
	rg.POST("/:id/chat", verified, h.SendMessage)
}
