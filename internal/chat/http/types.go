package http

import (
	"time"

	"github.com/hsp-league/league-backend/internal/api/http/sse"
	"github.com/hsp-league/league-backend/internal/chat/service"
)

type Handler struct {
	chat      *service.ChatService
	keepAlive time.Duration
}

func New(chat *service.ChatService) *Handler {
	return &Handler{chat: chat, keepAlive: sse.KeepAliveInterval}
}

type sendRequest struct {
	Text string `json:"text"`
}
