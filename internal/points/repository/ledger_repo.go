package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/points/domain"
)

// LedgerRepository reads and writes user_points documents.
type LedgerRepository struct {
	store docstore.Store
}

func NewLedgerRepository(store docstore.Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func ref(uid string) docstore.Ref {
	return docstore.Doc(domain.Collection, uid)
}

// Get returns the entry or domain.ErrEntryNotFound.
func (r *LedgerRepository) Get(ctx context.Context, uid string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := r.store.Get(ctx, ref(uid), &entry)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

// CreateZero provisions a zero entry. It reports false when the entry
// already existed.
func (r *LedgerRepository) CreateZero(ctx context.Context, uid string) (bool, error) {
	now := time.Now().UTC()
	err := r.store.Create(ctx, ref(uid), domain.LedgerEntry{
		UID:       uid,
		Points:    0,
		CreatedAt: now,
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return true, nil
}

// SetPoints merge-writes the balance without reading it.
func (r *LedgerRepository) SetPoints(ctx context.Context, uid string, points int64) error {
	err := r.store.Merge(ctx, ref(uid), map[string]any{
		"uid":         uid,
		"points":      points,
		"lastUpdated": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return nil
}

// AddInTransaction adds amount inside one optimistic transaction. A missing
// entry counts as zero.
func (r *LedgerRepository) AddInTransaction(ctx context.Context, uid string, amount int64) (int64, error) {
	var newPoints int64
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var entry domain.LedgerEntry
		err := tx.Get(ref(uid), &entry)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}

		entry.UID = uid
		entry.Points += amount
		entry.LastUpdated = time.Now().UTC()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = entry.LastUpdated
		}
		newPoints = entry.Points
		return tx.Set(ref(uid), entry)
	})
	if err != nil {
		return 0, fmt.Errorf("points transaction: %w", err)
	}
	return newPoints, nil
}

func (r *LedgerRepository) List(ctx context.Context) ([]domain.LedgerEntry, error) {
	docs, err := r.store.List(ctx, domain.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}

	entries := make([]domain.LedgerEntry, 0, len(docs))
	for _, d := range docs {
		var e domain.LedgerEntry
		if err := d.DataTo(&e); err != nil {
			return nil, err
		}
		if e.UID == "" {
			e.UID = d.ID
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Watch pushes the balance of uid on every committed change. States where
// the entry is absent are skipped.
func (r *LedgerRepository) Watch(ctx context.Context, uid string, fn func(points int64)) (docstore.Subscription, error) {
	return r.store.Watch(ctx, ref(uid), func(doc docstore.Document, exists bool) {
		if !exists {
			return
		}
		var entry domain.LedgerEntry
		if err := doc.DataTo(&entry); err != nil {
			return
		}
		fn(entry.Points)
	})
}
