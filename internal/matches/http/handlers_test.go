package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authctx "github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/auth/middleware"
	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/docstore/docstoretest"
	"github.com/hsp-league/league-backend/internal/matches/domain"
	"github.com/hsp-league/league-backend/internal/matches/repository"
	"github.com/hsp-league/league-backend/internal/matches/service"
	pointsrepo "github.com/hsp-league/league-backend/internal/points/repository"
	pointsservice "github.com/hsp-league/league-backend/internal/points/service"
)

type admins map[string]bool

func (a admins) IsAdmin(_ context.Context, email string) (bool, error) { return a[email], nil }

func setup(t *testing.T) (*gin.Engine, *pointsservice.Ledger) {
	gin.SetMode(gin.TestMode)
	store, _ := docstoretest.NewRedis(t)
	ledger := pointsservice.NewLedger(pointsrepo.NewLedgerRepository(store), nil, nil)
	matchRepo := repository.NewMatchRepository(store)
	voteRepo := repository.NewVoteRepository(store)
	allow := admins{"boss@hanilgo.cnehs.kr": true}

	h := New(
		service.NewMatchService(matchRepo, 5),
		service.NewVoteService(voteRepo, ledger, nil, nil),
		service.NewResultService(matchRepo, voteRepo, allow, ledger, nil, nil, nil),
		allow,
	)

	identify := func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-Uid"); uid != "" {
			c.Set(authctx.CtxFirebaseUID, uid)
			c.Set(authctx.CtxEmail, uid+"@hanilgo.cnehs.kr")
			c.Set(authctx.CtxEmailVerified, true)
		}
	}
	requireUser := func(c *gin.Context) {
		if authctx.UserFirebaseUID(c) == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
		}
	}

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublic(api.Group("/matches", identify))
	h.RegisterVotes(api.Group("/matches", identify, requireUser), middleware.RequireVerifiedEmail())
	h.RegisterAdmin(api.Group("/admin", identify, requireUser, middleware.RequireAdmin(allow)))
	return r, ledger
}

func call(r http.Handler, method, path, uid, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-Test-Uid", uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMatchFlow(t *testing.T) {
	r, ledger := setup(t)

	w := call(r, http.MethodPost, "/api/v1/admin/matches", "kim", `{"id":"m1","date":"2025-05-01","homeTeam":"1-1","awayTeam":"1-2"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(r, http.MethodPost, "/api/v1/admin/matches", "boss", `{"id":"m1","date":"2025-05-01","homeTeam":"1-1","awayTeam":"1-2"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(r, http.MethodGet, "/api/v1/matches/m1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"panel":"stats"`)
	assert.Contains(t, w.Body.String(), `"has_votes":false`)

	w = call(r, http.MethodGet, "/api/v1/matches/m1", "u1", "")
	assert.Contains(t, w.Body.String(), `"panel":"predict"`)

	w = call(r, http.MethodPost, "/api/v1/matches/m1/vote", "", `{"voteType":"homeWin"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for uid, vote := range map[string]string{"u1": "homeWin", "u2": "homeWin", "u3": "draw"} {
		w = call(r, http.MethodPost, "/api/v1/matches/m1/vote", uid, `{"voteType":"`+vote+`"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = call(r, http.MethodPost, "/api/v1/matches/m1/vote", "u1", `{"voteType":"awayWin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accepted":false`)

	w = call(r, http.MethodPost, "/api/v1/matches/m1/vote", "u4", `{"voteType":"lose"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodGet, "/api/v1/matches/m1/stats", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Counts      domain.Stats       `json:"counts"`
		Percentages domain.Percentages `json:"percentages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, domain.Stats{HomeWin: 2, Draw: 1, Total: 3}, stats.Counts)
	assert.Equal(t, domain.Percentages{HomeWin: 67, Draw: 33}, stats.Percentages)

	w = call(r, http.MethodPost, "/api/v1/admin/matches/m1/result", "boss", `{"result":"homeWin"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(r, http.MethodPost, "/api/v1/admin/matches/import", "boss",
		`{"matches":[{"id":"m1","date":"2025-05-01","homeTeam":"1-1","awayTeam":"1-2","homeScore":2,"awayScore":0,"status":"finished"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodGet, "/api/v1/matches/m1", "boss", "")
	assert.Contains(t, w.Body.String(), `"panel":"set-result"`)

	w = call(r, http.MethodPost, "/api/v1/admin/matches/m1/result", "boss", `{"result":"homeWin"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var outcome domain.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.ElementsMatch(t, []string{"u1", "u2"}, outcome.Credited)

	for uid, want := range map[string]int64{"u1": 100, "u2": 100, "u3": 0} {
		p, err := ledger.GetPoints(context.Background(), uid)
		require.NoError(t, err)
		assert.Equal(t, want, p, uid)
	}

	w = call(r, http.MethodPost, "/api/v1/admin/matches/m1/result", "boss", `{"result":"draw"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(r, http.MethodGet, "/api/v1/matches/m1", "u1", "")
	assert.Contains(t, w.Body.String(), `"panel":"result"`)

	w = call(r, http.MethodGet, "/api/v1/admin/matches/m1/awards", "boss", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/api/v1/matches/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMatchesAndLineups(t *testing.T) {
	r, _ := setup(t)
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		w := call(r, http.MethodPost, "/api/v1/admin/matches", "boss",
			`{"id":"`+id+`","date":"2025-05-01","homeTeam":"1-1","awayTeam":"1-2"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := call(r, http.MethodGet, "/api/v1/matches?page=2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page domain.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Matches, 1)
	assert.Equal(t, "m6", page.Matches[0].ID)

	w = call(r, http.MethodGet, "/api/v1/matches?page=x", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPut, "/api/v1/admin/teams/1-1", "boss", `{"lineups":{"third":["Kim"]}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/api/v1/matches/m1/lineups", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Kim"`)
}

func TestWriteError_BusyStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, err := range []error{
		fmt.Errorf("credit u1: %w", docstore.ErrContention),
		docstore.ErrUnavailable,
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, err)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, err)
	}
}
