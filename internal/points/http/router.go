package http

import "github.com/gin-gonic/gin"

// RegisterMe attaches the caller's points routes under an authenticated group.
func (h *Handler) RegisterMe(rg *gin.RouterGroup) {
	rg.GET("/points", h.GetPoints)
	rg.GET("/points/stream", h.StreamPoints)
}

// RegisterPublic attaches routes that need no authentication.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/leaderboard", h.GetLeaderboard)
}
