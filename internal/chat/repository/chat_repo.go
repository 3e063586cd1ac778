package repository

import (
	"context"
	"fmt"

	"github.com/hsp-league/league-backend/internal/chat/domain"
	"github.com/hsp-league/league-backend/internal/docstore"
)

type ChatRepository struct {
	store docstore.Store
}

func NewChatRepository(store docstore.Store) *ChatRepository {
	return &ChatRepository{store: store}
}

// Append stores msg under its ID. Messages are never updated.
func (r *ChatRepository) Append(ctx context.Context, msg *domain.Message) error {
	ref := docstore.Doc(domain.Collection(msg.MatchID), msg.ID)
	if err := r.store.Create(ctx, ref, msg); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// List returns the match's messages oldest first.
func (r *ChatRepository) List(ctx context.Context, matchID string) ([]domain.Message, error) {
	docs, err := r.store.List(ctx, domain.Collection(matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return decodeMessages(docs), nil
}

// Watch delivers the full ordered message list on every change.
func (r *ChatRepository) Watch(ctx context.Context, matchID string, fn func([]domain.Message)) (docstore.Subscription, error) {
	return r.store.WatchCollection(ctx, domain.Collection(matchID), func(docs []docstore.Document) {
		fn(decodeMessages(docs))
	})
}

func decodeMessages(docs []docstore.Document) []domain.Message {
	out := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		var m domain.Message
		if err := doc.DataTo(&m); err != nil {
			continue
		}
		m.ID = doc.ID
		out = append(out, m)
	}
	return out
}
