package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	matchdomain "github.com/hsp-league/league-backend/internal/matches/domain"
	pointsdomain "github.com/hsp-league/league-backend/internal/points/domain"
	"github.com/hsp-league/league-backend/internal/session"
)

// fakeLeague serves the secure token refresh and the part of the league API
// the tests call.
type fakeLeague struct {
	mu       sync.Mutex
	auth     map[string]string
	queries  map[string]string
	imported []matchdomain.Match
	refresh  int
}

func newFakeLeague(t *testing.T) (*fakeLeague, *httptest.Server) {
	t.Helper()
	f := &fakeLeague{auth: map[string]string{}, queries: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("refresh_token") != "refresh-1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_REFRESH_TOKEN"}}`))
			return
		}
		f.mu.Lock()
		f.refresh++
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "id-token-1",
			"id_token":      "id-token-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("GET /api/v1/matches", func(w http.ResponseWriter, r *http.Request) {
		f.record("matches", r)
		writeJSON(w, http.StatusOK, matchdomain.Page{
			Matches: []matchdomain.Match{
				{ID: "m-1", Date: "2025-04-12", League: "봄 리그", HomeTeam: "1반", AwayTeam: "2반", Status: matchdomain.StatusScheduled},
				{ID: "m-0", Date: "2025-04-05", League: "봄 리그", HomeTeam: "3반", AwayTeam: "4반", HomeScore: 2, AwayScore: 1, Status: matchdomain.StatusFinished, AdminResult: matchdomain.HomeWin},
			},
			Page:       2,
			PerPage:    5,
			TotalPages: 3,
			HasPrev:    true,
			HasNext:    true,
		})
	})
	mux.HandleFunc("GET /api/v1/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		f.record("leaderboard", r)
		writeJSON(w, http.StatusOK, map[string]any{"entries": []pointsdomain.LeaderboardEntry{
			{Rank: 1, UID: "u1", Nickname: "민수", Points: 1300},
			{Rank: 2, UID: "u2", Nickname: "지현", Points: 1100},
		}})
	})
	mux.HandleFunc("POST /api/v1/admin/matches/import", func(w http.ResponseWriter, r *http.Request) {
		f.record("import", r)
		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
			return
		}
		var body struct {
			Matches []matchdomain.Match `json:"matches"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.imported = body.Matches
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]int{"imported": len(body.Matches)})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeLeague) record(name string, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth[name] = r.Header.Get("Authorization")
	f.queries[name] = r.URL.RawQuery
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func execute(t *testing.T, srv *httptest.Server, sessionPath string, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{
		"--api", srv.URL + "/api/v1",
		"--api-key", "test-key",
		"--session", sessionPath,
		"--identity-url", srv.URL + "/identitytoolkit/v3/relyingparty/",
		"--token-url", srv.URL + "/token",
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func storeSession(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	f := &sessionFile{UID: "u1", Email: "s1@hanilgo.cnehs.kr", EmailVerified: true, RefreshToken: "refresh-1"}
	require.NoError(t, f.save(path))
	return path
}

func TestSessionFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	empty, err := loadSessionFile(path)
	require.NoError(t, err)
	assert.Nil(t, empty.user())

	f := &sessionFile{
		Pending: &session.PendingSignup{Email: "s1@hanilgo.cnehs.kr", Password: "secret1", Nickname: "민수"},
		Page:    3,
	}
	f.setUser(nil)
	require.NoError(t, f.save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret1")

	got, err := loadSessionFile(path)
	require.NoError(t, err)
	require.NotNil(t, got.Pending)
	assert.Equal(t, "민수", got.Pending.Nickname)
	assert.Empty(t, got.Pending.Password)
	assert.Equal(t, 3, got.Page)
	assert.Nil(t, got.user())
}

func TestMatches_StoredSessionAndPage(t *testing.T) {
	league, srv := newFakeLeague(t)
	path := storeSession(t)

	out, err := execute(t, srv, path, "matches", "--page", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "1반")
	assert.Contains(t, out, "2:1")
	assert.Contains(t, out, "finished (homeWin)")
	assert.Contains(t, out, "page 2/3")
	assert.Equal(t, "page=2", league.queries["matches"])
	assert.Equal(t, "Bearer id-token-1", league.auth["matches"])

	f, err := loadSessionFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, "refresh-1", f.RefreshToken)
}

func TestLeaderboard_Anonymous(t *testing.T) {
	league, srv := newFakeLeague(t)
	path := filepath.Join(t.TempDir(), "session.json")

	out, err := execute(t, srv, path, "leaderboard", "--limit", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "민수")
	assert.Contains(t, out, "1300")
	assert.Equal(t, "limit=2", league.queries["leaderboard"])
	assert.Empty(t, league.auth["leaderboard"])
	assert.Zero(t, league.refresh)
}

func TestAdminImportMatches(t *testing.T) {
	league, srv := newFakeLeague(t)
	path := storeSession(t)

	fixtures := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(fixtures, []byte(`
matches:
  - id: 2025-05-03-a
    date: "2025-05-03"
    league: 봄 리그
    homeTeam: 1반
    awayTeam: 2반
    status: scheduled
    lineups:
      home:
        first: [김민수]
  - id: 2025-05-03-b
    date: "2025-05-03"
    league: 봄 리그
    homeTeam: 3반
    awayTeam: 4반
    status: scheduled
`), 0o600))

	out, err := execute(t, srv, path, "admin", "import-matches", fixtures)
	require.NoError(t, err)

	assert.Contains(t, out, "2개 경기를 등록했습니다.")
	require.Len(t, league.imported, 2)
	assert.Equal(t, "2025-05-03-a", league.imported[0].ID)
	require.NotNil(t, league.imported[0].Lineups)
	assert.Equal(t, []string{"김민수"}, league.imported[0].Lineups.Home.First)
	assert.Equal(t, "Bearer id-token-1", league.auth["import"])
}

func TestLoginRequired(t *testing.T) {
	_, srv := newFakeLeague(t)
	path := filepath.Join(t.TempDir(), "session.json")

	_, err := execute(t, srv, path, "vote", "m-1", matchdomain.Draw)
	require.Error(t, err)
	assert.Equal(t, "로그인이 필요합니다.", err.Error())

	_, err = execute(t, srv, path, "vote", "m-1", "lose")
	require.Error(t, err)
	assert.ErrorIs(t, err, matchdomain.ErrInvalidVoteType)
}

func TestParseFixtures(t *testing.T) {
	list, err := parseFixtures([]byte(`
- id: a
  homeTeam: 1반
  awayTeam: 2반
- id: b
`))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1반", list[0].HomeTeam)

	doc, err := parseFixtures([]byte("matches:\n  - id: c\n"))
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, "c", doc[0].ID)

	_, err = parseFixtures([]byte("fixtures:\n  - id: c\n"))
	assert.Error(t, err)

	none, err := parseFixtures(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
