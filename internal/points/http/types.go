package http

import (
	"time"

	"github.com/hsp-league/league-backend/internal/points/service"
)

type Handler struct {
	ledger      *service.Ledger
	subscriber  *service.Subscriber
	leaderboard *service.Leaderboard
	keepAlive   time.Duration
}

func New(ledger *service.Ledger, subscriber *service.Subscriber, leaderboard *service.Leaderboard) *Handler {
	return &Handler{
		ledger:      ledger,
		subscriber:  subscriber,
		leaderboard: leaderboard,
	}
}

type pointsResponse struct {
	UID    string `json:"uid"`
	Points int64  `json:"points"`
}
