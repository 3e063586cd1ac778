package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hsp-league/league-backend/internal/api/http/sse"
	authctx "github.com/hsp-league/league-backend/internal/auth"
)

// GetPoints returns the caller's balance, provisioning it at zero.
func (h *Handler) GetPoints(c *gin.Context) {
	uid := authctx.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	points, err := h.ledger.GetPoints(c.Request.Context(), uid)
	if err != nil {
		slog.Error("get points failed", "uid", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load points"})
		return
	}
	c.JSON(http.StatusOK, pointsResponse{UID: uid, Points: points})
}

// StreamPoints pushes the caller's balance as "points" events on every
// committed change. The subscription ends with the request.
func (h *Handler) StreamPoints(c *gin.Context) {
	uid := authctx.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	ctx := c.Request.Context()

	// The watch delivers nothing while the entry is absent.
	if _, err := h.ledger.EnsureEntry(ctx, uid); err != nil {
		slog.Error("provision points failed", "uid", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load points"})
		return
	}

	latest := sse.NewLatest()
	sub, err := h.subscriber.Subscribe(ctx, uid, func(points int64) {
		latest.Put(pointsResponse{UID: uid, Points: points})
	})
	if err != nil {
		slog.Error("points subscription failed", "uid", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		return
	}
	defer sub.Close()

	sse.Serve(c, "points", latest, h.keepAlive)
}

// GetLeaderboard returns the top balances; ?limit defaults to 50.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		slog.Error("leaderboard failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
