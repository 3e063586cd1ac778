package http

import "github.com/gin-gonic/gin"

// RegisterPublic attaches read routes. The group may run optional auth so
// the detail view can tailor its panel to the caller.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("", h.ListMatches)
	rg.GET("/:id", h.GetMatch)
	rg.GET("/:id/stats", h.GetStats)
	rg.GET("/:id/lineups", h.GetLineups)
}

// RegisterVotes attaches vote routes under an authenticated group.
func (h *Handler) RegisterVotes(rg *gin.RouterGroup, verified gin.HandlerFunc) {
	rg.GET("/:id/vote", h.HasVoted)
	rg.POST("/:id/vote", verified, h.CastVote)
}

// RegisterAdmin attaches admin routes under an authenticated admin group.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.POST("/matches", h.CreateMatch)
	rg.POST("/matches/import", h.ImportMatches)
	rg.PUT("/teams/:name", h.PutTeam)
	rg.POST("/matches/:id/result", h.SetResult)
	rg.GET("/matches/:id/awards", h.ListAwards)
}
