package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hsp-league/league-backend/internal/api/http/sse"
	authctx "github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/chat/domain"
)

func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.chat.List(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage answers 201 with the stored message, or 204 when the text
// was blank.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.chat.Send(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		authctx.UserFirebaseUID(c),
		authctx.UserEmail(c),
		req.Text,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	if msg == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// StreamMessages pushes the full message list as "messages" events.
func (h *Handler) StreamMessages(c *gin.Context) {
	matchID := strings.TrimSpace(c.Param("id"))

	latest := sse.NewLatest()
	sub, err := h.chat.Watch(c.Request.Context(), matchID, func(msgs []domain.Message) {
		latest.Put(gin.H{"messages": msgs})
	})
	if err != nil {
		writeError(c, err)
		return
	}
	defer sub.Close()

	sse.Serve(c, "messages", latest, h.keepAlive)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMatchID), errors.Is(err, domain.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		slog.Error("chat request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
