package http

import "github.com/gin-gonic/gin"

// Register attaches the /me routes. rg must already run the Firebase auth
// middleware; verified is applied to writes.
func (h *Handler) Register(rg *gin.RouterGroup, verified gin.HandlerFunc) {
	rg.GET("", h.GetMe)
	rg.POST("/profile", verified, h.CompleteProfile)
	rg.PATCH("/profile", verified, h.UpdateNickname)
	rg.PUT("/avatar", verified, h.UpdateAvatar)
}
