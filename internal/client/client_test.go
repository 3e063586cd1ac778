package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	matchdomain "github.com/hsp-league/league-backend/internal/matches/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "id-token", TokenType: "Bearer"})
	return New(srv.URL+"/api/v1", ts, WithHTTPClient(srv.Client()))
}

func TestClient_BearerAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer id-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/matches", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"matches":[{"id":"m6","homeTeam":"A","awayTeam":"B","status":"scheduled"}],"page":2,"per_page":5,"total_pages":2,"has_prev":true,"has_next":false}`)
	})

	page, err := c.ListMatches(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page.Matches, 1)
	assert.Equal(t, "m6", page.Matches[0].ID)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":"match is not finished"}`)
	})

	_, err := c.SetResult(context.Background(), "m1", matchdomain.HomeWin)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusConflict))
	assert.Contains(t, err.Error(), "match is not finished")

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	})
	_, err = c.Me(context.Background())
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Contains(t, err.Error(), "upstream down")
}

func TestClient_VoteAndChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/v1/matches/m1/vote":
			assert.Equal(t, "homeWin", body["voteType"])
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"accepted":true,"stats":{"counts":{"homeWin":1,"draw":0,"awayWin":0,"total":1},"percentages":{"homeWin":100,"draw":0,"awayWin":0},"has_votes":true}}`)
		case "/api/v1/matches/m1/chat":
			if strings.TrimSpace(body["text"]) == "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"message":{"id":"001_u1","matchId":"m1","uid":"u1","nickname":"kim","text":%q}}`, body["text"])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	res, err := c.Vote(ctx, "m1", "homeWin")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	require.NotNil(t, res.Stats.Percentages)
	assert.Equal(t, 100, res.Stats.Percentages.HomeWin)

	msg, err := c.SendChat(ctx, "m1", "hello")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "001_u1", msg.ID)
	assert.Equal(t, "hello", msg.Text)

	msg, err = c.SendChat(ctx, "m1", "   ")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestClient_UploadAvatar(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		f, fh, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, png, data)
		assert.Equal(t, "me.png", fh.Filename)
		assert.Equal(t, "image/png", fh.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"profile":{"uid":"u1","nickname":"kim","avatar_url":"https://files.test/a.png"}}`)
	})

	p, err := c.UploadAvatar(context.Background(), "/tmp/me.png", png)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/a.png", p.AvatarURL)
}

func TestClient_WatchPoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, ": keep-alive\n\n")
		for _, p := range []int64{0, 100, 200} {
			fmt.Fprintf(w, "event: points\ndata: {\"uid\":\"u1\",\"points\":%d}\n\n", p)
			flusher.Flush()
		}
		fmt.Fprint(w, "event: other\ndata: {\"points\":999}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	})

	values := make(chan int64, 8)
	sub, err := c.WatchPoints(context.Background(), func(points int64) { values <- points })
	require.NoError(t, err)

	for _, want := range []int64{0, 100, 200} {
		select {
		case got := <-values:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for points event")
		}
	}

	sub.Close()
	select {
	case v := <-values:
		t.Fatalf("unexpected delivery: %d", v)
	default:
	}
}

func TestClient_WatchRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"user not authenticated"}`)
	})

	sub, err := c.WatchChat(context.Background(), "m1", nil)
	assert.Nil(t, sub)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestReadEvents(t *testing.T) {
	body := ": comment\n\nevent: messages\ndata: line1\ndata: line2\n\ndata: plain\n\nevent: empty\n\n"
	type ev struct{ name, data string }
	var got []ev
	err := readEvents(strings.NewReader(body), func(name string, data []byte) {
		got = append(got, ev{name, string(data)})
	})
	require.NoError(t, err)
	assert.Equal(t, []ev{{"messages", "line1\nline2"}, {"message", "plain"}}, got)
}
