package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/matches/domain"
)

// VoteRepository handles votes documents keyed by {matchId}_{uid}.
type VoteRepository struct {
	store docstore.Store
}

func NewVoteRepository(store docstore.Store) *VoteRepository {
	return &VoteRepository{store: store}
}

func voteRef(matchID, uid string) docstore.Ref {
	return docstore.Doc(domain.VoteCollection, domain.VoteID(matchID, uid))
}

func (r *VoteRepository) Exists(ctx context.Context, matchID, uid string) (bool, error) {
	var v domain.Vote
	err := r.store.Get(ctx, voteRef(matchID, uid), &v)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get vote: %w", err)
	}
	return true, nil
}

// Create writes the vote unless one exists; it reports whether it wrote.
func (r *VoteRepository) Create(ctx context.Context, v *domain.Vote) (bool, error) {
	err := r.store.Create(ctx, voteRef(v.MatchID, v.UID), v)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create vote: %w", err)
	}
	return true, nil
}

// ListByMatch returns the votes of one match ordered by document ID.
func (r *VoteRepository) ListByMatch(ctx context.Context, matchID string) ([]domain.Vote, error) {
	docs, err := r.store.Where(ctx, domain.VoteCollection, "matchId", matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}

	votes := make([]domain.Vote, 0, len(docs))
	for _, d := range docs {
		var v domain.Vote
		if err := d.DataTo(&v); err != nil {
			return nil, fmt.Errorf("failed to decode vote %s: %w", d.ID, err)
		}
		votes = append(votes, v)
	}
	return votes, nil
}
