package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authctx "github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/chat/domain"
	"github.com/hsp-league/league-backend/internal/chat/repository"
	"github.com/hsp-league/league-backend/internal/chat/service"
	"github.com/hsp-league/league-backend/internal/docstore/docstoretest"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

type noProfiles struct{}

func (noProfiles) Get(context.Context, string) (*profiledomain.Profile, error) {
	return nil, profiledomain.ErrProfileNotFound
}

func setup(t *testing.T, perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store, _ := docstoretest.NewRedis(t)
	svc := service.NewChatService(repository.NewChatRepository(store), noProfiles{}, service.NewSendLimiter(perMinute), nil, nil)
	h := New(svc)
	h.keepAlive = time.Hour

	r := gin.New()
	authed := r.Group("/api/v1/matches", func(c *gin.Context) {
		uid := c.Query("uid")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}
		c.Set(authctx.CtxFirebaseUID, uid)
		c.Set(authctx.CtxEmail, uid+"@hanilgo.cnehs.kr")
	})
	h.Register(authed, func(c *gin.Context) { c.Next() })
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendAndList(t *testing.T) {
	r := setup(t, 0)

	w := post(r, "/api/v1/matches/m1/chat", `{"text":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(r, "/api/v1/matches/m1/chat?uid=kim", `{"text":"  go 1-1!  "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"nickname":"kim"`)

	w = post(r, "/api/v1/matches/m1/chat?uid=kim", `{"text":"   "}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = post(r, "/api/v1/matches/m1/chat?uid=kim", `{"text":"`+strings.Repeat("a", domain.MaxMessageLength+1)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches/m1/chat?uid=lee", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "go 1-1!", body.Messages[0].Text)
	assert.Equal(t, "kim", body.Messages[0].UID)
}

func TestSendRateLimited(t *testing.T) {
	r := setup(t, 4)

	w := post(r, "/api/v1/matches/m1/chat?uid=kim", `{"text":"one"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = post(r, "/api/v1/matches/m1/chat?uid=kim", `{"text":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestStreamMessages(t *testing.T) {
	r := setup(t, 0)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/matches/m1/chat/stream?uid=kim", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan []domain.Message, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var body struct {
				Messages []domain.Message `json:"messages"`
			}
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &body) == nil {
				events <- body.Messages
			}
		}
		close(events)
	}()

	next := func() []domain.Message {
		select {
		case v, ok := <-events:
			require.True(t, ok, "stream closed")
			return v
		case <-ctx.Done():
			t.Fatal("timed out waiting for messages event")
			return nil
		}
	}

	assert.Empty(t, next())

	w := httptest.NewRecorder()
	sendReq := httptest.NewRequest(http.MethodPost, "/api/v1/matches/m1/chat?uid=lee", strings.NewReader(`{"text":"hello"}`))
	sendReq.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, sendReq)
	require.Equal(t, http.StatusCreated, w.Code)

	msgs := next()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "lee", msgs[0].Nickname)
}
