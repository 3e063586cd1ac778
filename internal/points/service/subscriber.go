package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/metrics"
	"github.com/hsp-league/league-backend/internal/points/domain"
	"github.com/hsp-league/league-backend/internal/points/repository"
)

const subscriptionKind = "points"

// Subscriber attaches live balance subscriptions.
type Subscriber struct {
	repo    *repository.LedgerRepository
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewSubscriber(repo *repository.LedgerRepository, rec metrics.Recorder, logger *slog.Logger) *Subscriber {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{repo: repo, metrics: rec, logger: logger}
}

// Subscribe calls onChange with the balance of uid for every committed
// state, in commit order. States where the entry is absent produce no call.
func (s *Subscriber) Subscribe(ctx context.Context, uid string, onChange func(points int64)) (docstore.Subscription, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, domain.ErrMissingUID
	}

	sub, err := s.repo.Watch(ctx, uid, onChange)
	if err != nil {
		return nil, err
	}
	s.metrics.SubscriptionOpened(subscriptionKind)
	s.logger.Debug("points subscription attached", "uid", uid)

	return &countedSubscription{inner: sub, closed: func() {
		s.metrics.SubscriptionClosed(subscriptionKind)
		s.logger.Debug("points subscription closed", "uid", uid)
	}}, nil
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
