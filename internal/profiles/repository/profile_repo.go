package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/profiles/domain"
)

// ProfileRepository handles profiles and admins documents.
type ProfileRepository struct {
	store docstore.Store
}

func NewProfileRepository(store docstore.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

func (r *ProfileRepository) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.store.Get(ctx, docstore.Doc(domain.Collection, uid), &p)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p.UID == "" {
		p.UID = uid
	}
	return &p, nil
}

// Create writes the profile unless one exists; it reports whether it wrote.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) (bool, error) {
	err := r.store.Create(ctx, docstore.Doc(domain.Collection, p.UID), p)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create profile: %w", err)
	}
	return true, nil
}

func (r *ProfileRepository) Merge(ctx context.Context, uid string, fields map[string]any) error {
	if err := r.store.Merge(ctx, docstore.Doc(domain.Collection, uid), fields); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	docs, err := r.store.List(ctx, domain.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	out := make([]domain.Profile, 0, len(docs))
	for _, d := range docs {
		var p domain.Profile
		if err := d.DataTo(&p); err != nil {
			return nil, err
		}
		if p.UID == "" {
			p.UID = d.ID
		}
		out = append(out, p)
	}
	return out, nil
}

// IsAdmin reports whether admins/{email} exists.
func (r *ProfileRepository) IsAdmin(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	var a domain.Admin
	err := r.store.Get(ctx, docstore.Doc(domain.AdminCollection, email), &a)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return true, nil
}

// GrantAdmin creates admins/{email}.
func (r *ProfileRepository) GrantAdmin(ctx context.Context, email string) error {
	err := r.store.Set(ctx, docstore.Doc(domain.AdminCollection, email), domain.Admin{Email: email})
	if err != nil {
		return fmt.Errorf("failed to grant admin: %w", err)
	}
	return nil
}
