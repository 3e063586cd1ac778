package service

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hsp-league/league-backend/internal/chat/domain"
	"github.com/hsp-league/league-backend/internal/chat/repository"
	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/metrics"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

const subscriptionKind = "chat"

// ProfileReader resolves the sender's nickname.
type ProfileReader interface {
	Get(ctx context.Context, uid string) (*profiledomain.Profile, error)
}

type ChatService struct {
	repo     *repository.ChatRepository
	profiles ProfileReader
	limiter  *SendLimiter
	policy   *bluemonday.Policy
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewChatService(repo *repository.ChatRepository, profiles ProfileReader, limiter *SendLimiter, rec metrics.Recorder, logger *slog.Logger) *ChatService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		repo:     repo,
		profiles: profiles,
		limiter:  limiter,
		policy:   bluemonday.StrictPolicy(),
		metrics:  rec,
		logger:   logger,
		now:      time.Now,
	}
}

// Send appends a message from uid. Blank text, including text that is
// blank once markup is stripped, is ignored and returns a nil message. The
// length limit applies to the stored text.
func (s *ChatService) Send(ctx context.Context, matchID, uid, email, text string) (*domain.Message, error) {
	if !domain.ValidMatchID(matchID) {
		return nil, domain.ErrInvalidMatchID
	}

	// Messages are stored as plain text: markup is stripped and the
	// entities the sanitizer escapes are decoded again.
	text = strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
	if text == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) > domain.MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}

	now := s.now()
	if !s.limiter.Allow(uid, now) {
		return nil, domain.ErrRateLimited
	}

	msg := &domain.Message{
		ID:       domain.MessageID(now, uid),
		MatchID:  matchID,
		UID:      uid,
		Nickname: s.nickname(ctx, uid, email),
		Text:     text,
		Time:     now.UTC(),
	}
	if err := s.repo.Append(ctx, msg); err != nil {
		return nil, err
	}

	s.metrics.RecordChatMessage()
	return msg, nil
}

func (s *ChatService) List(ctx context.Context, matchID string) ([]domain.Message, error) {
	if !domain.ValidMatchID(matchID) {
		return nil, domain.ErrInvalidMatchID
	}
	return s.repo.List(ctx, matchID)
}

// Watch calls fn with the full ordered message list on every change.
func (s *ChatService) Watch(ctx context.Context, matchID string, fn func([]domain.Message)) (docstore.Subscription, error) {
	if !domain.ValidMatchID(matchID) {
		return nil, domain.ErrInvalidMatchID
	}

	sub, err := s.repo.Watch(ctx, matchID, fn)
	if err != nil {
		return nil, err
	}
	s.metrics.SubscriptionOpened(subscriptionKind)

	return &countedSubscription{inner: sub, closed: func() {
		s.metrics.SubscriptionClosed(subscriptionKind)
	}}, nil
}

func (s *ChatService) nickname(ctx context.Context, uid, email string) string {
	p, err := s.profiles.Get(ctx, uid)
	if err == nil && p.Nickname != "" {
		return p.Nickname
	}
	if err != nil && !errors.Is(err, profiledomain.ErrProfileNotFound) {
		s.logger.Warn("nickname lookup failed", "uid", uid, "error", err)
	}
	return profiledomain.EmailLocalPart(email)
}

type countedSubscription struct {
	inner  docstore.Subscription
	closed func()
	once   sync.Once
}

func (c *countedSubscription) Close() {
	c.once.Do(func() {
		c.inner.Close()
		c.closed()
	})
}
