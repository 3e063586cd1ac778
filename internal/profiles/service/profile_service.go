package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"

	"github.com/hsp-league/league-backend/internal/profiles/domain"
	"github.com/hsp-league/league-backend/internal/profiles/repository"
	"github.com/hsp-league/league-backend/internal/storage/objectstore"
)

const (
	MaxImageBytes      = 5 << 20
	profileImagePrefix = "profile_images"
)

// AuthUpdater updates the auth provider's user record. *auth.Client
// implements it.
type AuthUpdater interface {
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

// LedgerProvisioner creates zero points entries.
type LedgerProvisioner interface {
	EnsureEntry(ctx context.Context, uid string) (bool, error)
}

type ProfileService struct {
	repo          *repository.ProfileRepository
	ledger        LedgerProvisioner
	files         objectstore.Store
	authUsers     AuthUpdater
	avatarBaseURL string
	logger        *slog.Logger
	now           func() time.Time
}

func NewProfileService(
	repo *repository.ProfileRepository,
	ledger LedgerProvisioner,
	files objectstore.Store,
	authUsers AuthUpdater,
	avatarBaseURL string,
	logger *slog.Logger,
) *ProfileService {
	if files == nil {
		files = objectstore.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		repo:          repo,
		ledger:        ledger,
		files:         files,
		authUsers:     authUsers,
		avatarBaseURL: avatarBaseURL,
		logger:        logger,
		now:           time.Now,
	}
}

// Get returns the stored profile.
func (s *ProfileService) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	return s.repo.Get(ctx, uid)
}

// Ensure returns the caller's profile, creating it from the auth user the
// first time it is requested. The points entry is provisioned as well.
func (s *ProfileService) Ensure(ctx context.Context, user domain.AuthUser) (*domain.Profile, error) {
	p, err := s.repo.Get(ctx, user.UID)
	switch {
	case err == nil:
		if p.AvatarURL == "" {
			p.AvatarURL = user.PhotoURL
		}
		if p.AvatarURL == "" {
			name := p.Nickname
			if name == "" {
				name = s.fallbackNickname(user)
			}
			p.AvatarURL = domain.AvatarURL(s.avatarBaseURL, name, domain.AvatarSizeSmall)
		}
	case errors.Is(err, domain.ErrProfileNotFound):
		nickname := s.fallbackNickname(user)
		avatar := user.PhotoURL
		if avatar == "" {
			avatar = domain.AvatarURL(s.avatarBaseURL, nickname, domain.AvatarSizeSmall)
		}
		p = &domain.Profile{
			UID:       user.UID,
			Email:     user.Email,
			Nickname:  nickname,
			AvatarURL: avatar,
			CreatedAt: s.now().UTC(),
		}
		created, err := s.repo.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		if !created {
			// Lost the race to a concurrent first request.
			if p, err = s.repo.Get(ctx, user.UID); err != nil {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	if _, err := s.ledger.EnsureEntry(ctx, user.UID); err != nil {
		return nil, err
	}
	return p, nil
}

// Complete stores the sign-up profile and the zero points entry exactly
// once. A repeated call returns the existing profile with created=false.
func (s *ProfileService) Complete(ctx context.Context, user domain.AuthUser, nickname, avatarURL string) (*domain.Profile, bool, error) {
	nickname, err := domain.NormalizeNickname(nickname)
	if err != nil {
		return nil, false, err
	}
	if avatarURL == "" {
		avatarURL = domain.AvatarURL(s.avatarBaseURL, nickname, domain.AvatarSizeLarge)
	}

	p := &domain.Profile{
		UID:       user.UID,
		Email:     user.Email,
		Nickname:  nickname,
		AvatarURL: avatarURL,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.ledger.EnsureEntry(ctx, user.UID); err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := s.repo.Get(ctx, user.UID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if err := s.updateAuthUser(ctx, user.UID, &nickname, &avatarURL); err != nil {
		s.logger.Warn("auth profile update after sign-up failed", "uid", user.UID, "error", err)
	}
	return p, true, nil
}

// UpdateNickname validates and stores a new nickname on both the auth user
// and the profile.
func (s *ProfileService) UpdateNickname(ctx context.Context, uid, nickname string) (*domain.Profile, error) {
	nickname, err := domain.NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}
	if err := s.updateAuthUser(ctx, uid, &nickname, nil); err != nil {
		return nil, err
	}
	if err := s.repo.Merge(ctx, uid, map[string]any{"nickname": nickname}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, uid)
}

// UpdateAvatar uploads a new profile image, points the profile and the auth
// user at it and deletes the previously uploaded image best-effort.
func (s *ProfileService) UpdateAvatar(ctx context.Context, uid, filename, contentType string, body []byte) (*domain.Profile, error) {
	if len(body) == 0 || len(body) > MaxImageBytes || !strings.HasPrefix(contentType, "image/") {
		return nil, domain.ErrInvalidImage
	}

	previous, err := s.repo.Get(ctx, uid)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	key := s.imageKey(uid, filename)
	url, err := s.files.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("upload profile image: %w", err)
	}

	if err := s.updateAuthUser(ctx, uid, nil, &url); err != nil {
		return nil, err
	}
	if err := s.repo.Merge(ctx, uid, map[string]any{"avatar_url": url}); err != nil {
		return nil, err
	}

	if previous != nil {
		if oldKey, ok := s.files.KeyFromURL(previous.AvatarURL); ok && oldKey != key {
			if err := s.files.Delete(ctx, oldKey); err != nil {
				s.logger.Warn("previous profile image not deleted", "uid", uid, "key", oldKey, "error", err)
			}
		}
	}
	return s.repo.Get(ctx, uid)
}

func (s *ProfileService) IsAdmin(ctx context.Context, email string) (bool, error) {
	return s.repo.IsAdmin(ctx, email)
}

func (s *ProfileService) List(ctx context.Context) ([]domain.Profile, error) {
	return s.repo.List(ctx)
}

func (s *ProfileService) fallbackNickname(user domain.AuthUser) string {
	if n := strings.TrimSpace(user.DisplayName); n != "" {
		return n
	}
	return domain.EmailLocalPart(user.Email)
}

func (s *ProfileService) imageKey(uid, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s/%s/%d_%s", profileImagePrefix, uid, s.now().UnixMilli(), name)
}

func (s *ProfileService) updateAuthUser(ctx context.Context, uid string, displayName, photoURL *string) error {
	if s.authUsers == nil {
		return nil
	}
	update := &auth.UserToUpdate{}
	if displayName != nil {
		update = update.DisplayName(*displayName)
	}
	if photoURL != nil {
		update = update.PhotoURL(*photoURL)
	}
	if _, err := s.authUsers.UpdateUser(ctx, uid, update); err != nil {
		return fmt.Errorf("update auth user: %w", err)
	}
	return nil
}
