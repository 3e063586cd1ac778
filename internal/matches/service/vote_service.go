package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hsp-league/league-backend/internal/matches/domain"
	"github.com/hsp-league/league-backend/internal/matches/repository"
	"github.com/hsp-league/league-backend/internal/metrics"
)

// LedgerProvisioner creates zero points entries.
type LedgerProvisioner interface {
	EnsureEntry(ctx context.Context, uid string) (bool, error)
}

type VoteService struct {
	votes   *repository.VoteRepository
	ledger  LedgerProvisioner
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

func NewVoteService(votes *repository.VoteRepository, ledger LedgerProvisioner, rec metrics.Recorder, logger *slog.Logger) *VoteService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteService{votes: votes, ledger: ledger, metrics: rec, logger: logger, now: time.Now}
}

// CastVote records the vote of uid for matchID. It returns false without
// side effects when uid is empty or the user already voted on the match.
// A written vote provisions the voter's ledger entry so later credits have
// a target.
func (s *VoteService) CastVote(ctx context.Context, matchID, uid, voteType string) (bool, error) {
	if strings.TrimSpace(uid) == "" {
		s.logger.Debug("vote ignored without session", "match_id", matchID)
		return false, nil
	}
	if !domain.ValidVoteType(voteType) {
		return false, domain.ErrInvalidVoteType
	}

	exists, err := s.votes.Exists(ctx, matchID, uid)
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.Debug("duplicate vote ignored", "match_id", matchID, "uid", uid)
		return false, nil
	}

	created, err := s.votes.Create(ctx, &domain.Vote{
		MatchID:  matchID,
		UID:      uid,
		VoteType: voteType,
		VotedAt:  s.now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if !created {
		// A concurrent request from the same user won.
		return false, nil
	}
	s.metrics.RecordVote(voteType)

	if _, err := s.ledger.EnsureEntry(ctx, uid); err != nil {
		return true, err
	}
	return true, nil
}

func (s *VoteService) HasVoted(ctx context.Context, matchID, uid string) (bool, error) {
	if strings.TrimSpace(uid) == "" {
		return false, nil
	}
	return s.votes.Exists(ctx, matchID, uid)
}

// GetVotingStats tallies every vote of the match. No votes yields zeros.
func (s *VoteService) GetVotingStats(ctx context.Context, matchID string) (domain.Stats, error) {
	votes, err := s.votes.ListByMatch(ctx, matchID)
	if err != nil {
		return domain.Stats{}, err
	}

	var stats domain.Stats
	for _, v := range votes {
		stats.Add(v.VoteType)
	}
	return stats, nil
}
