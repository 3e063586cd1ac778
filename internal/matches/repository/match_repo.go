package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/matches/domain"
)

// MatchRepository reads and writes matches and teams documents.
type MatchRepository struct {
	store docstore.Store
}

func NewMatchRepository(store docstore.Store) *MatchRepository {
	return &MatchRepository{store: store}
}

func matchRef(id string) docstore.Ref {
	return docstore.Doc(domain.Collection, id)
}

func (r *MatchRepository) Get(ctx context.Context, id string) (*domain.Match, error) {
	var m domain.Match
	err := r.store.Get(ctx, matchRef(id), &m)
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidRef) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	m.ID = id
	return &m, nil
}

// List returns every match ordered by ID.
func (r *MatchRepository) List(ctx context.Context) ([]domain.Match, error) {
	docs, err := r.store.List(ctx, domain.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return decodeMatches(docs)
}

func (r *MatchRepository) ListByStatus(ctx context.Context, status string) ([]domain.Match, error) {
	docs, err := r.store.Where(ctx, domain.Collection, "status", status)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	return decodeMatches(docs)
}

func (r *MatchRepository) Create(ctx context.Context, m *domain.Match) error {
	err := r.store.Create(ctx, matchRef(m.ID), m)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return domain.ErrMatchExists
	}
	if errors.Is(err, docstore.ErrInvalidRef) {
		return domain.ErrInvalidMatch
	}
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// Put writes the match, replacing any stored version.
func (r *MatchRepository) Put(ctx context.Context, m *domain.Match) error {
	if err := r.store.Set(ctx, matchRef(m.ID), m); err != nil {
		return fmt.Errorf("failed to write match: %w", err)
	}
	return nil
}

// Update applies fn to the stored match inside one transaction. fn's error
// aborts the update and is returned unchanged.
func (r *MatchRepository) Update(ctx context.Context, id string, fn func(m *domain.Match) error) (*domain.Match, error) {
	var updated domain.Match
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var m domain.Match
		err := tx.Get(matchRef(id), &m)
		if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidRef) {
			return domain.ErrMatchNotFound
		}
		if err != nil {
			return err
		}
		m.ID = id
		if err := fn(&m); err != nil {
			return err
		}
		updated = m
		return tx.Set(matchRef(id), m)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// TeamLineup returns the lineup stored at teams/{name}; a missing team has
// an empty lineup.
func (r *MatchRepository) TeamLineup(ctx context.Context, name string) (domain.Lineup, error) {
	var team domain.Team
	err := r.store.Get(ctx, docstore.Doc(domain.TeamCollection, name), &team)
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidRef) {
		return domain.Lineup{}, nil
	}
	if err != nil {
		return domain.Lineup{}, fmt.Errorf("failed to get team: %w", err)
	}
	return team.Lineups, nil
}

func (r *MatchRepository) PutTeam(ctx context.Context, team domain.Team) error {
	if err := r.store.Set(ctx, docstore.Doc(domain.TeamCollection, team.Name), team); err != nil {
		return fmt.Errorf("failed to write team: %w", err)
	}
	return nil
}

func decodeMatches(docs []docstore.Document) ([]domain.Match, error) {
	out := make([]domain.Match, 0, len(docs))
	for _, d := range docs {
		var m domain.Match
		if err := d.DataTo(&m); err != nil {
			return nil, fmt.Errorf("failed to decode match %s: %w", d.ID, err)
		}
		m.ID = d.ID
		out = append(out, m)
	}
	return out, nil
}
