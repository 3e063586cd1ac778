package http

import (
	"context"

	"github.com/hsp-league/league-backend/internal/profiles/service"
)

// PointsReader returns a user's balance, provisioning it when missing.
type PointsReader interface {
	GetPoints(ctx context.Context, uid string) (int64, error)
}

type Handler struct {
	profiles *service.ProfileService
	points   PointsReader
}

func New(profiles *service.ProfileService, points PointsReader) *Handler {
	return &Handler{
		profiles: profiles,
		points:   points,
	}
}
