package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hsp-league/league-backend/internal/matches/domain"
	"github.com/hsp-league/league-backend/internal/matches/repository"
)

const DefaultFinishAfter = 2 * time.Hour

// Finisher marks scheduled matches finished once their kickoff is far
// enough in the past. Matches without a kickoff time are left alone.
type Finisher struct {
	repo   *repository.MatchRepository
	after  time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewFinisher(repo *repository.MatchRepository, after time.Duration, logger *slog.Logger) *Finisher {
	if after <= 0 {
		after = DefaultFinishAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finisher{repo: repo, after: after, logger: logger, now: time.Now}
}

// FinishDue returns the IDs of the matches it moved to finished.
func (f *Finisher) FinishDue(ctx context.Context) ([]string, error) {
	scheduled, err := f.repo.ListByStatus(ctx, domain.StatusScheduled)
	if err != nil {
		return nil, err
	}

	now := f.now()
	var finished []string
	for _, m := range scheduled {
		if !f.due(m, now) {
			continue
		}

		_, err := f.repo.Update(ctx, m.ID, func(cur *domain.Match) error {
			if cur.Status != domain.StatusScheduled {
				return domain.ErrMatchNotScheduled
			}
			cur.Status = domain.StatusFinished
			return nil
		})
		if errors.Is(err, domain.ErrMatchNotScheduled) || errors.Is(err, domain.ErrMatchNotFound) {
			continue
		}
		if err != nil {
			f.logger.Warn("finish match failed", "match_id", m.ID, "error", err)
			continue
		}
		finished = append(finished, m.ID)
	}

	if len(finished) > 0 {
		f.logger.Info("matches finished", "count", len(finished), "ids", finished)
	}
	return finished, nil
}

func (f *Finisher) due(m domain.Match, now time.Time) bool {
	return m.KickoffAt != nil && !m.KickoffAt.IsZero() && !now.Before(m.KickoffAt.Add(f.after))
}
