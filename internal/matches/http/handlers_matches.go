package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	authctx "github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/matches/domain"
)

// ListMatches returns one page of matches; ?page defaults to 1.
func (h *Handler) ListMatches(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}
		page = n
	}

	p, err := h.matches.Page(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetMatch returns the match with its voting stats and the panel mode for
// the caller.
func (h *Handler) GetMatch(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	ctx := c.Request.Context()

	m, err := h.matches.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	stats, err := h.votes.GetVotingStats(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	uid := authctx.UserFirebaseUID(c)
	loggedIn := uid != ""
	voted, isAdmin := false, false
	if loggedIn {
		if voted, err = h.votes.HasVoted(ctx, id, uid); err != nil {
			writeError(c, err)
			return
		}
		if isAdmin, err = h.admins.IsAdmin(ctx, authctx.UserEmail(c)); err != nil {
			slog.Warn("admin check failed", "uid", uid, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"match":    m,
		"stats":    statsBody(stats),
		"panel":    domain.PanelMode(*m, isAdmin, loggedIn, voted),
		"voted":    voted,
		"is_admin": isAdmin,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := h.matches.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	stats, err := h.votes.GetVotingStats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsBody(stats))
}

func (h *Handler) GetLineups(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	m, err := h.matches.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	lineups, err := h.matches.Lineups(c.Request.Context(), m)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lineups": lineups})
}

func (h *Handler) HasVoted(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	voted, err := h.votes.HasVoted(c.Request.Context(), id, authctx.UserFirebaseUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted})
}

// CastVote records the caller's prediction. A repeated vote answers 200
// with accepted=false and changes nothing.
func (h *Handler) CastVote(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	uid := authctx.UserFirebaseUID(c)

	var req struct {
		VoteType string `json:"voteType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.matches.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if m.Status != domain.StatusScheduled {
		c.JSON(http.StatusConflict, gin.H{"error": "voting is closed for this match"})
		return
	}

	accepted, err := h.votes.CastVote(c.Request.Context(), id, uid, req.VoteType)
	if err != nil && !accepted {
		writeError(c, err)
		return
	}
	if err != nil {
		slog.Warn("vote saved but ledger provisioning failed", "match_id", id, "uid", uid, "error", err)
	}

	stats, err := h.votes.GetVotingStats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if accepted {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"accepted": accepted, "stats": statsBody(stats)})
}

func statsBody(stats domain.Stats) gin.H {
	body := gin.H{"counts": stats, "has_votes": false}
	if pct, ok := stats.Percentages(); ok {
		body["percentages"] = pct
		body["has_votes"] = true
	}
	return body
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
	case errors.Is(err, domain.ErrInvalidVoteType), errors.Is(err, domain.ErrInvalidMatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrMatchExists),
		errors.Is(err, domain.ErrMatchNotFinished),
		errors.Is(err, domain.ErrResultAlreadySet):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case docstore.IsTransient(err):
		slog.Warn("match request hit a busy store", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service busy, try again"})
	default:
		slog.Error("match request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
