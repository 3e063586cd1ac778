package service

import (
	"context"
	"sort"

	"github.com/hsp-league/league-backend/internal/points/domain"
	"github.com/hsp-league/league-backend/internal/points/repository"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

const DefaultLeaderboardLimit = 50

// ProfileLister loads every profile for nickname lookup.
type ProfileLister interface {
	List(ctx context.Context) ([]profiledomain.Profile, error)
}

type Leaderboard struct {
	repo     *repository.LedgerRepository
	profiles ProfileLister
}

func NewLeaderboard(repo *repository.LedgerRepository, profiles ProfileLister) *Leaderboard {
	return &Leaderboard{repo: repo, profiles: profiles}
}

// Top returns up to limit entries ordered by points descending, then uid.
// Tied balances share a rank.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	entries, err := l.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	profiles, err := l.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	byUID := make(map[string]profiledomain.Profile, len(profiles))
	for _, p := range profiles {
		byUID[p.UID] = p
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UID < entries[j].UID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		rank := i + 1
		if i > 0 && e.Points == entries[i-1].Points {
			rank = out[i-1].Rank
		}
		row := domain.LeaderboardEntry{Rank: rank, UID: e.UID, Points: e.Points}
		if p, ok := byUID[e.UID]; ok {
			row.Nickname = p.Nickname
			row.AvatarURL = p.AvatarURL
		}
		out = append(out, row)
	}
	return out, nil
}
