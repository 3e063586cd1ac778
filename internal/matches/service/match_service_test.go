package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsp-league/league-backend/internal/docstore/docstoretest"
	"github.com/hsp-league/league-backend/internal/matches/domain"
	"github.com/hsp-league/league-backend/internal/matches/repository"
)

func setupMatches(t *testing.T, n int) (*MatchService, *repository.MatchRepository) {
	store, _ := docstoretest.NewRedis(t)
	repo := repository.NewMatchRepository(store)
	svc := NewMatchService(repo, 5)
	for i := 1; i <= n; i++ {
		_, err := svc.CreateMatch(context.Background(), &domain.Match{
			ID:       fmt.Sprintf("m%02d", i),
			Date:     "2025-05-01",
			HomeTeam: "1-1",
			AwayTeam: "1-2",
		})
		require.NoError(t, err)
	}
	return svc, repo
}

func TestMatchService_Page(t *testing.T) {
	svc, _ := setupMatches(t, 12)
	ctx := context.Background()

	tests := []struct {
		name     string
		page     int
		wantPage int
		first    string
		count    int
		hasPrev  bool
		hasNext  bool
	}{
		{name: "first page", page: 1, wantPage: 1, first: "m01", count: 5, hasNext: true},
		{name: "middle page", page: 2, wantPage: 2, first: "m06", count: 5, hasPrev: true, hasNext: true},
		{name: "last partial page", page: 3, wantPage: 3, first: "m11", count: 2, hasPrev: true},
		{name: "below range clamps", page: 0, wantPage: 1, first: "m01", count: 5, hasNext: true},
		{name: "beyond range clamps", page: 9, wantPage: 3, first: "m11", count: 2, hasPrev: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Page(ctx, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, 3, p.TotalPages)
			require.Len(t, p.Matches, tt.count)
			assert.Equal(t, tt.first, p.Matches[0].ID)
			assert.Equal(t, tt.hasPrev, p.HasPrev)
			assert.Equal(t, tt.hasNext, p.HasNext)
		})
	}
}

func TestMatchService_PageEmpty(t *testing.T) {
	svc, _ := setupMatches(t, 0)
	p, err := svc.Page(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, p.Matches)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}

func TestMatchService_CreateMatch(t *testing.T) {
	svc, _ := setupMatches(t, 1)
	ctx := context.Background()

	m, err := svc.CreateMatch(ctx, &domain.Match{ID: " m99 ", Date: "2025-06-01", HomeTeam: "3-1", AwayTeam: "3-2"})
	require.NoError(t, err)
	assert.Equal(t, "m99", m.ID)
	assert.Equal(t, domain.StatusScheduled, m.Status)

	_, err = svc.CreateMatch(ctx, &domain.Match{ID: "m01", Date: "2025-06-01", HomeTeam: "3-1", AwayTeam: "3-2"})
	assert.ErrorIs(t, err, domain.ErrMatchExists)

	_, err = svc.CreateMatch(ctx, &domain.Match{ID: "bad", Date: "2025-06-01", HomeTeam: "3-1", AwayTeam: "3-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidMatch)

	_, err = svc.CreateMatch(ctx, &domain.Match{ID: "bad2", Date: "2025-06-01", HomeTeam: "3-1", AwayTeam: "3-2", Status: "postponed"})
	assert.ErrorIs(t, err, domain.ErrInvalidMatch)
}

func TestMatchService_Import(t *testing.T) {
	svc, repo := setupMatches(t, 1)
	ctx := context.Background()

	n, err := svc.Import(ctx, []domain.Match{
		{ID: "m01", Date: "2025-05-01", HomeTeam: "1-1", AwayTeam: "1-2", HomeScore: 2, AwayScore: 1, Status: domain.StatusFinished},
		{ID: "m02", Date: "2025-05-02", HomeTeam: "1-3", AwayTeam: "1-4"},
		{ID: "", Date: "2025-05-03", HomeTeam: "1-5", AwayTeam: "1-6"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMatch)
	assert.Equal(t, 2, n)

	m, err := repo.Get(ctx, "m01")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, m.Status)
	assert.Equal(t, 2, m.HomeScore)
}

func TestMatchService_Lineups(t *testing.T) {
	svc, repo := setupMatches(t, 0)
	ctx := context.Background()
	require.NoError(t, svc.PutTeam(ctx, domain.Team{Name: "1-1", Lineups: domain.Lineup{Third: []string{"Kim"}}}))

	m := &domain.Match{
		ID: "m1", HomeTeam: "1-1", AwayTeam: "1-2",
		Lineups: &domain.Lineups{
			Home: domain.Lineup{First: []string{"ignored"}},
			Away: domain.Lineup{Second: []string{"Lee"}},
		},
	}
	require.NoError(t, repo.Put(ctx, m))

	l, err := svc.Lineups(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kim"}, l.Home.Third)
	assert.Empty(t, l.Home.First)
	assert.Equal(t, []string{"Lee"}, l.Away.Second)

	l, err = svc.Lineups(ctx, &domain.Match{ID: "m2", HomeTeam: "9-9", AwayTeam: "9-8"})
	require.NoError(t, err)
	assert.NotNil(t, l.Away.First)
	assert.True(t, l.Away.Empty())
}

func TestFinisher_FinishDue(t *testing.T) {
	_, repo := setupMatches(t, 0)
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	for _, m := range []domain.Match{
		{ID: "due", Date: "d", HomeTeam: "a", AwayTeam: "b", Status: domain.StatusScheduled, KickoffAt: at(-3 * time.Hour)},
		{ID: "edge", Date: "d", HomeTeam: "a", AwayTeam: "b", Status: domain.StatusScheduled, KickoffAt: at(-2 * time.Hour)},
		{ID: "playing", Date: "d", HomeTeam: "a", AwayTeam: "b", Status: domain.StatusScheduled, KickoffAt: at(-time.Hour)},
		{ID: "undated", Date: "d", HomeTeam: "a", AwayTeam: "b", Status: domain.StatusScheduled},
		{ID: "cancelled", Date: "d", HomeTeam: "a", AwayTeam: "b", Status: domain.StatusCancelled, KickoffAt: at(-5 * time.Hour)},
	} {
		require.NoError(t, repo.Put(ctx, &m))
	}

	f := NewFinisher(repo, 2*time.Hour, nil)
	f.now = func() time.Time { return now }

	finished, err := f.FinishDue(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"due", "edge"}, finished)

	m, err := repo.Get(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, m.Status)
	assert.Empty(t, m.AdminResult)

	m, err = repo.Get(ctx, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, m.Status)

	again, err := f.FinishDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}
