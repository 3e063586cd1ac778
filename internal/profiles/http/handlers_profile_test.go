package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authctx "github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/docstore/docstoretest"
	pointsrepo "github.com/hsp-league/league-backend/internal/points/repository"
	pointsservice "github.com/hsp-league/league-backend/internal/points/service"
	"github.com/hsp-league/league-backend/internal/profiles/repository"
	"github.com/hsp-league/league-backend/internal/profiles/service"
	"github.com/hsp-league/league-backend/internal/storage/objectstore"
)

type memFiles struct{ objects map[string][]byte }

func (m *memFiles) Upload(_ context.Context, key, _ string, body []byte) (string, error) {
	m.objects[key] = body
	return m.URL(key), nil
}

func (m *memFiles) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memFiles) URL(key string) string { return "https://files.test/" + key }

func (m *memFiles) KeyFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, "https://files.test/")
}

func setupRouter(t *testing.T, files objectstore.Store) (*gin.Engine, *repository.ProfileRepository) {
	gin.SetMode(gin.TestMode)
	store, _ := docstoretest.NewRedis(t)
	repo := repository.NewProfileRepository(store)
	ledger := pointsservice.NewLedger(pointsrepo.NewLedgerRepository(store), nil, nil)
	svc := service.NewProfileService(repo, ledger, files, nil, "", nil)

	r := gin.New()
	me := r.Group("/me", func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-Uid"); uid != "" {
			c.Set(authctx.CtxFirebaseUID, uid)
			c.Set(authctx.CtxEmail, c.GetHeader("X-Test-Email"))
			c.Set(authctx.CtxEmailVerified, true)
		}
	})
	New(svc, ledger).Register(me, func(c *gin.Context) { c.Next() })
	return r, repo
}

func do(r http.Handler, req *http.Request, uid string) *httptest.ResponseRecorder {
	if uid != "" {
		req.Header.Set("X-Test-Uid", uid)
		req.Header.Set("X-Test-Email", uid+"@hanilgo.cnehs.kr")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetMe(t *testing.T) {
	r, repo := setupRouter(t, objectstore.Disabled{})
	require.NoError(t, repo.GrantAdmin(context.Background(), "boss@hanilgo.cnehs.kr"))

	w := do(r, httptest.NewRequest(http.MethodGet, "/me", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/me", nil), "kim")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
		Points  int64 `json:"points"`
		IsAdmin bool  `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "kim", body.Profile.Nickname)
	assert.Equal(t, int64(0), body.Points)
	assert.False(t, body.IsAdmin)

	w = do(r, httptest.NewRequest(http.MethodGet, "/me", nil), "boss")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.IsAdmin)
}

func TestCompleteProfile(t *testing.T) {
	r, _ := setupRouter(t, objectstore.Disabled{})

	req := func(payload string) *http.Request {
		rq := httptest.NewRequest(http.MethodPost, "/me/profile", strings.NewReader(payload))
		rq.Header.Set("Content-Type", "application/json")
		return rq
	}

	w := do(r, req(`{"nickname":"x"}`), "kim")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, req(`{"nickname":"Striker"}`), "kim")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, req(`{"nickname":"Other"}`), "kim")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":false`)
	assert.Contains(t, w.Body.String(), "Striker")
}

func TestUpdateNickname(t *testing.T) {
	r, _ := setupRouter(t, objectstore.Disabled{})
	do(r, httptest.NewRequest(http.MethodGet, "/me", nil), "kim")

	rq := httptest.NewRequest(http.MethodPatch, "/me/profile", strings.NewReader(`{"nickname":"Keeper"}`))
	rq.Header.Set("Content-Type", "application/json")
	w := do(r, rq, "kim")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Keeper")
}

func TestUpdateAvatar(t *testing.T) {
	files := &memFiles{objects: make(map[string][]byte)}
	r, _ := setupRouter(t, files)
	do(r, httptest.NewRequest(http.MethodGet, "/me", nil), "kim")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rq := httptest.NewRequest(http.MethodPut, "/me/avatar", &buf)
	rq.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(r, rq, "kim")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "profile_images/kim/")
	assert.Len(t, files.objects, 1)

	rq = httptest.NewRequest(http.MethodPut, "/me/avatar", nil)
	w = do(r, rq, "kim")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAvatarStorageDisabled(t *testing.T) {
	r, _ := setupRouter(t, objectstore.Disabled{})
	do(r, httptest.NewRequest(http.MethodGet, "/me", nil), "kim")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rq := httptest.NewRequest(http.MethodPut, "/me/avatar", &buf)
	rq.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(r, rq, "kim")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
