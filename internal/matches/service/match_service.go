package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hsp-league/league-backend/internal/matches/domain"
	"github.com/hsp-league/league-backend/internal/matches/repository"
)

type MatchService struct {
	repo    *repository.MatchRepository
	perPage int
}

func NewMatchService(repo *repository.MatchRepository, perPage int) *MatchService {
	if perPage <= 0 {
		perPage = domain.DefaultPerPage
	}
	return &MatchService{repo: repo, perPage: perPage}
}

func (s *MatchService) Get(ctx context.Context, id string) (*domain.Match, error) {
	return s.repo.Get(ctx, id)
}

// Page returns matches in ID order. Pages below 1 clamp to 1 and pages past
// the end clamp to the last one.
func (s *MatchService) Page(ctx context.Context, page int) (*domain.Page, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := (len(all) + s.perPage - 1) / s.perPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := min((page-1)*s.perPage, len(all))
	end := min(start+s.perPage, len(all))

	return &domain.Page{
		Matches:    all[start:end],
		Page:       page,
		PerPage:    s.perPage,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}, nil
}

// Lineups prefers the teams collection and falls back to the lineup
// embedded in the match for a team whose stored lineup is empty.
func (s *MatchService) Lineups(ctx context.Context, m *domain.Match) (domain.Lineups, error) {
	home, err := s.repo.TeamLineup(ctx, m.HomeTeam)
	if err != nil {
		return domain.Lineups{}, err
	}
	away, err := s.repo.TeamLineup(ctx, m.AwayTeam)
	if err != nil {
		return domain.Lineups{}, err
	}

	if home.Empty() && m.Lineups != nil {
		home = m.Lineups.Home
	}
	if away.Empty() && m.Lineups != nil {
		away = m.Lineups.Away
	}
	return domain.Lineups{Home: normalizeLineup(home), Away: normalizeLineup(away)}, nil
}

// CreateMatch stores a new match. Status defaults to scheduled.
func (s *MatchService) CreateMatch(ctx context.Context, m *domain.Match) (*domain.Match, error) {
	if err := validateMatch(m); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Import writes matches, replacing existing ones with the same ID. It stops
// at the first invalid match.
func (s *MatchService) Import(ctx context.Context, matches []domain.Match) (int, error) {
	for i := range matches {
		m := &matches[i]
		if err := validateMatch(m); err != nil {
			return i, fmt.Errorf("match %d (%s): %w", i+1, m.ID, err)
		}
		if err := s.repo.Put(ctx, m); err != nil {
			return i, err
		}
	}
	return len(matches), nil
}

func (s *MatchService) PutTeam(ctx context.Context, team domain.Team) error {
	if strings.TrimSpace(team.Name) == "" || strings.Contains(team.Name, "/") {
		return fmt.Errorf("%w: team name", domain.ErrInvalidMatch)
	}
	return s.repo.PutTeam(ctx, team)
}

func validateMatch(m *domain.Match) error {
	m.ID = strings.TrimSpace(m.ID)
	m.HomeTeam = strings.TrimSpace(m.HomeTeam)
	m.AwayTeam = strings.TrimSpace(m.AwayTeam)
	m.Date = strings.TrimSpace(m.Date)

	var problems []error
	if m.ID == "" || strings.Contains(m.ID, "/") {
		problems = append(problems, errors.New("id is required and must not contain '/'"))
	}
	if m.HomeTeam == "" || m.AwayTeam == "" {
		problems = append(problems, errors.New("both teams are required"))
	} else if m.HomeTeam == m.AwayTeam {
		problems = append(problems, errors.New("teams must differ"))
	}
	if m.Date == "" {
		problems = append(problems, errors.New("date is required"))
	}
	if m.HomeScore < 0 || m.AwayScore < 0 {
		problems = append(problems, errors.New("scores must not be negative"))
	}

	switch m.Status {
	case "":
		m.Status = domain.StatusScheduled
	case domain.StatusScheduled, domain.StatusFinished, domain.StatusCancelled:
	default:
		problems = append(problems, fmt.Errorf("unknown status %q", m.Status))
	}
	if m.AdminResult != "" && !domain.ValidVoteType(m.AdminResult) {
		problems = append(problems, fmt.Errorf("unknown result %q", m.AdminResult))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidMatch, errors.Join(problems...))
	}
	return nil
}

func normalizeLineup(l domain.Lineup) domain.Lineup {
	if l.First == nil {
		l.First = []string{}
	}
	if l.Second == nil {
		l.Second = []string{}
	}
	if l.Third == nil {
		l.Third = []string{}
	}
	return l
}
