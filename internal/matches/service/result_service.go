package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hsp-league/league-backend/internal/awards"
	"github.com/hsp-league/league-backend/internal/matches/domain"
	"github.com/hsp-league/league-backend/internal/matches/repository"
	"github.com/hsp-league/league-backend/internal/metrics"
	pointsdomain "github.com/hsp-league/league-backend/internal/points/domain"
)

const DefaultReward = 100

// AdminChecker reports admin privilege for an email.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// Creditor adds points to a ledger entry.
type Creditor interface {
	Credit(ctx context.Context, uid string, amount int64) (pointsdomain.CreditResult, error)
}

type ResultOption func(*ResultService)

// WithReward sets the points credited to each winner.
func WithReward(points int64) ResultOption {
	return func(s *ResultService) {
		if points > 0 {
			s.reward = points
		}
	}
}

// WithCreditAttempts sets how many times one winner's credit is tried.
func WithCreditAttempts(n int) ResultOption {
	return func(s *ResultService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) ResultOption {
	return func(s *ResultService) { s.retryDelay = d }
}

// ResultService sets admin results and pays out correct predictions.
type ResultService struct {
	matches    *repository.MatchRepository
	votes      *repository.VoteRepository
	admins     AdminChecker
	credits    Creditor
	journal    awards.Journal
	metrics    metrics.Recorder
	logger     *slog.Logger
	reward     int64
	attempts   int
	retryDelay time.Duration
}

func NewResultService(
	matches *repository.MatchRepository,
	votes *repository.VoteRepository,
	admins AdminChecker,
	credits Creditor,
	journal awards.Journal,
	rec metrics.Recorder,
	logger *slog.Logger,
	opts ...ResultOption,
) *ResultService {
	if journal == nil {
		journal = awards.Nop{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &ResultService{
		matches:    matches,
		votes:      votes,
		admins:     admins,
		credits:    credits,
		journal:    journal,
		metrics:    rec,
		logger:     logger,
		reward:     DefaultReward,
		attempts:   1,
		retryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetResult moves a finished match without a result to result, then
// credits every voter who predicted it. Privilege is checked on every call.
// The transition runs in a transaction that re-reads the match, so of two
// concurrent admins only one gets past ErrResultAlreadySet and pays out.
// Credits are independent: a failed winner is logged and journaled, and the
// loop moves on.
func (s *ResultService) SetResult(ctx context.Context, callerEmail, matchID, result string) (*domain.Outcome, error) {
	if !domain.ValidVoteType(result) {
		return nil, domain.ErrInvalidVoteType
	}

	admin, err := s.admins.IsAdmin(ctx, callerEmail)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, domain.ErrNotAdmin
	}

	// Votes are read before the result is committed: once it is, a retry
	// gets ErrResultAlreadySet and could never pay the winners.
	votes, err := s.votes.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	_, err = s.matches.Update(ctx, matchID, func(m *domain.Match) error {
		if m.Status != domain.StatusFinished {
			return domain.ErrMatchNotFinished
		}
		if m.AdminResult != "" {
			return domain.ErrResultAlreadySet
		}
		m.AdminResult = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("match result set", "match_id", matchID, "result", result, "admin", callerEmail)

	// The result is committed; finish paying out even if the caller leaves.
	ctx = context.WithoutCancel(ctx)

	outcome := &domain.Outcome{
		MatchID:  matchID,
		Result:   result,
		Reward:   s.reward,
		Winners:  []string{},
		Credited: []string{},
		Failed:   []string{},
	}
	for _, v := range votes {
		if v.VoteType == result {
			outcome.Winners = append(outcome.Winners, v.UID)
		}
	}

	for _, uid := range outcome.Winners {
		if s.creditWinner(ctx, matchID, uid) {
			outcome.Credited = append(outcome.Credited, uid)
		} else {
			outcome.Failed = append(outcome.Failed, uid)
		}
	}

	s.metrics.RecordResultSet(result, len(outcome.Winners))
	s.logger.Info("match rewards credited",
		"match_id", matchID,
		"winners", len(outcome.Winners),
		"credited", len(outcome.Credited),
		"failed", len(outcome.Failed),
	)
	return outcome, nil
}

func (s *ResultService) creditWinner(ctx context.Context, matchID, uid string) bool {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 && s.retryDelay > 0 {
			time.Sleep(time.Duration(attempt-1) * s.retryDelay)
		}

		res, err := s.credits.Credit(ctx, uid, s.reward)
		record := &awards.Award{
			MatchID:  matchID,
			UID:      uid,
			Amount:   s.reward,
			Attempt:  attempt,
			Strategy: res.Strategy,
			Status:   awards.StatusCredited,
		}
		if err != nil {
			record.Status = awards.StatusFailed
			record.Error = err.Error()
		}
		if jerr := s.journal.Record(ctx, record); jerr != nil && !errors.Is(jerr, awards.ErrDuplicateAward) {
			s.logger.Warn("award journal write failed", "match_id", matchID, "uid", uid, "error", jerr)
		}

		if err == nil {
			return true
		}
		s.logger.Error("winner credit failed",
			"match_id", matchID, "uid", uid, "attempt", attempt, "error", err)
	}
	return false
}

// Awards lists the journaled credit attempts of a match.
func (s *ResultService) Awards(ctx context.Context, callerEmail, matchID string) ([]awards.Award, error) {
	admin, err := s.admins.IsAdmin(ctx, callerEmail)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, domain.ErrNotAdmin
	}
	return s.journal.ListByMatch(ctx, matchID)
}
