package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hsp-league/league-backend/internal/auth/middleware"
	chathttp "github.com/hsp-league/league-backend/internal/chat/http"
	matchhttp "github.com/hsp-league/league-backend/internal/matches/http"
	pointshttp "github.com/hsp-league/league-backend/internal/points/http"
	profilehttp "github.com/hsp-league/league-backend/internal/profiles/http"
)

type V1Deps struct {
	// Auth rejects anonymous callers; OptionalAuth identifies them when it can.
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Admins       middleware.AdminChecker

	Profiles *profilehttp.Handler
	Points   *pointshttp.Handler
	Matches  *matchhttp.Handler
	Chat     *chathttp.Handler
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	verified := middleware.RequireVerifiedEmail()

	public := api.Group("", dep.OptionalAuth)
	dep.Points.RegisterPublic(public)
	dep.Matches.RegisterPublic(public.Group("/matches"))

	authed := api.Group("", dep.Auth)

	me := authed.Group("/me")
	dep.Profiles.Register(me, verified)
	dep.Points.RegisterMe(me)

	matches := authed.Group("/matches")
	dep.Matches.RegisterVotes(matches, verified)
	dep.Chat.Register(matches, verified)

	admin := authed.Group("/admin", middleware.RequireAdmin(dep.Admins))
	dep.Matches.RegisterAdmin(admin)
}
