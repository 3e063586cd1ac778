package http

import (
	"context"

	"github.com/hsp-league/league-backend/internal/matches/service"
)

// AdminChecker reports admin privilege for an email.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

type Handler struct {
	matches *service.MatchService
	votes   *service.VoteService
	results *service.ResultService
	admins  AdminChecker
}

func New(matches *service.MatchService, votes *service.VoteService, results *service.ResultService, admins AdminChecker) *Handler {
	return &Handler{
		matches: matches,
		votes:   votes,
		results: results,
		admins:  admins,
	}
}
