package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authctx "github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/matches/domain"
)

func (h *Handler) CreateMatch(c *gin.Context) {
	var m domain.Match
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.matches.CreateMatch(c.Request.Context(), &m)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"match": created})
}

// ImportMatches upserts a batch of matches, stopping at the first invalid one.
func (h *Handler) ImportMatches(c *gin.Context) {
	var req struct {
		Matches []domain.Match `json:"matches"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Matches) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "matches are required"})
		return
	}

	n, err := h.matches.Import(c.Request.Context(), req.Matches)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "imported": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (h *Handler) PutTeam(c *gin.Context) {
	var req struct {
		Lineups domain.Lineup `json:"lineups"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	team := domain.Team{Name: strings.TrimSpace(c.Param("name")), Lineups: req.Lineups}
	if err := h.matches.PutTeam(c.Request.Context(), team); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"team": team})
}

// SetResult sets the admin result and credits the winners.
func (h *Handler) SetResult(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req struct {
		Result string `json:"result"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	outcome, err := h.results.SetResult(c.Request.Context(), authctx.UserEmail(c), id, req.Result)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) ListAwards(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	list, err := h.results.Awards(c.Request.Context(), authctx.UserEmail(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"awards": list})
}
