package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/metrics"
	"github.com/hsp-league/league-backend/internal/points/domain"
	"github.com/hsp-league/league-backend/internal/points/repository"
)

// Strategy adds points to one ledger entry.
type Strategy interface {
	Name() string
	Credit(ctx context.Context, uid string, amount int64) (int64, error)
}

// AtomicStrategy credits inside a document store transaction. Concurrent
// credits to the same uid never lose updates.
type AtomicStrategy struct {
	repo *repository.LedgerRepository
}

func NewAtomicStrategy(repo *repository.LedgerRepository) *AtomicStrategy {
	return &AtomicStrategy{repo: repo}
}

func (s *AtomicStrategy) Name() string { return domain.StrategyAtomic }

func (s *AtomicStrategy) Credit(ctx context.Context, uid string, amount int64) (int64, error) {
	return s.repo.AddInTransaction(ctx, uid, amount)
}

// ReadModifyWriteStrategy reads the balance, adds and merge-writes it back
// without isolation. Two concurrent credits to the same uid can both read
// the same balance, and one of the additions is then lost.
type ReadModifyWriteStrategy struct {
	repo *repository.LedgerRepository
}

func NewReadModifyWriteStrategy(repo *repository.LedgerRepository) *ReadModifyWriteStrategy {
	return &ReadModifyWriteStrategy{repo: repo}
}

func (s *ReadModifyWriteStrategy) Name() string { return domain.StrategyReadModifyWrite }

func (s *ReadModifyWriteStrategy) Credit(ctx context.Context, uid string, amount int64) (int64, error) {
	var current int64
	entry, err := s.repo.Get(ctx, uid)
	switch {
	case err == nil:
		current = entry.Points
	case errors.Is(err, domain.ErrEntryNotFound):
	default:
		return 0, err
	}

	next := current + amount
	if err := s.repo.SetPoints(ctx, uid, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Ledger is the points ledger accessor. Credits go through the primary
// strategy and fall back to the secondary one only when the store is
// unavailable.
type Ledger struct {
	repo     *repository.LedgerRepository
	primary  Strategy
	fallback Strategy
	metrics  metrics.Recorder
	logger   *slog.Logger
}

type LedgerOption func(*Ledger)

// WithStrategies replaces the primary and fallback strategies. A nil
// fallback disables falling back.
func WithStrategies(primary, fallback Strategy) LedgerOption {
	return func(l *Ledger) {
		l.primary = primary
		l.fallback = fallback
	}
}

func NewLedger(repo *repository.LedgerRepository, rec metrics.Recorder, logger *slog.Logger, opts ...LedgerOption) *Ledger {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		repo:     repo,
		primary:  NewAtomicStrategy(repo),
		fallback: NewReadModifyWriteStrategy(repo),
		metrics:  rec,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetPoints returns the balance of uid, provisioning a zero entry when none
// exists.
func (l *Ledger) GetPoints(ctx context.Context, uid string) (int64, error) {
	if strings.TrimSpace(uid) == "" {
		return 0, domain.ErrMissingUID
	}

	entry, err := l.repo.Get(ctx, uid)
	if err == nil {
		return entry.Points, nil
	}
	if !errors.Is(err, domain.ErrEntryNotFound) {
		return 0, err
	}

	if _, err := l.repo.CreateZero(ctx, uid); err != nil {
		return 0, err
	}
	// A concurrent first read may have won the create and already been
	// credited, so report what is stored.
	entry, err = l.repo.Get(ctx, uid)
	if err != nil {
		return 0, err
	}
	return entry.Points, nil
}

// EnsureEntry provisions a zero entry if missing.
func (l *Ledger) EnsureEntry(ctx context.Context, uid string) (bool, error) {
	if strings.TrimSpace(uid) == "" {
		return false, domain.ErrMissingUID
	}
	return l.repo.CreateZero(ctx, uid)
}

// Credit adds amount to the balance of uid.
func (l *Ledger) Credit(ctx context.Context, uid string, amount int64) (domain.CreditResult, error) {
	if strings.TrimSpace(uid) == "" {
		return domain.CreditResult{}, domain.ErrMissingUID
	}
	if amount <= 0 {
		return domain.CreditResult{}, domain.ErrInvalidAmount
	}

	points, err := l.primary.Credit(ctx, uid, amount)
	if err == nil {
		l.metrics.RecordCredit(l.primary.Name(), "credited")
		return domain.CreditResult{UID: uid, Points: points, Strategy: l.primary.Name()}, nil
	}
	l.metrics.RecordCredit(l.primary.Name(), "failed")

	// Contention means concurrent writers on this entry, where an unisolated
	// write would lose updates. Fall back only when the store is unreachable.
	if l.fallback == nil || !docstore.IsUnavailable(err) || docstore.IsContention(err) {
		return domain.CreditResult{}, fmt.Errorf("credit %s: %w", uid, err)
	}

	l.logger.Warn("atomic credit failed, falling back to read-modify-write",
		"uid", uid, "amount", amount, "error", err)
	l.metrics.RecordCreditFallback()

	points, ferr := l.fallback.Credit(ctx, uid, amount)
	if ferr != nil {
		l.metrics.RecordCredit(l.fallback.Name(), "failed")
		return domain.CreditResult{}, fmt.Errorf("credit %s (fallback): %w", uid, ferr)
	}
	l.metrics.RecordCredit(l.fallback.Name(), "credited")
	return domain.CreditResult{UID: uid, Points: points, Strategy: l.fallback.Name()}, nil
}
