package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsp-league/league-backend/internal/docstore/docstoretest"
	"github.com/hsp-league/league-backend/internal/points/repository"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

type staticProfiles []profiledomain.Profile

func (s staticProfiles) List(context.Context) ([]profiledomain.Profile, error) { return s, nil }

func TestLeaderboard_Top(t *testing.T) {
	store, _ := docstoretest.NewRedis(t)
	repo := repository.NewLedgerRepository(store)
	ledger := NewLedger(repo, nil, nil)
	ctx := context.Background()

	credits := map[string]int64{"a": 100, "b": 300, "c": 100, "d": 0}
	for uid, amount := range credits {
		if amount == 0 {
			_, err := ledger.EnsureEntry(ctx, uid)
			require.NoError(t, err)
			continue
		}
		_, err := ledger.Credit(ctx, uid, amount)
		require.NoError(t, err)
	}

	board := NewLeaderboard(repo, staticProfiles{
		{UID: "b", Nickname: "민수"},
		{UID: "a", Nickname: "지우"},
	})

	top, err := board.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "b", top[0].UID)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "민수", top[0].Nickname)

	assert.Equal(t, "a", top[1].UID)
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, "c", top[2].UID)
	assert.Equal(t, 2, top[2].Rank, "tied balances share a rank")
	assert.Empty(t, top[2].Nickname)
}
