package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/hsp-league/league-backend/internal/awards"
	chatdomain "github.com/hsp-league/league-backend/internal/chat/domain"
	matchdomain "github.com/hsp-league/league-backend/internal/matches/domain"
	pointsdomain "github.com/hsp-league/league-backend/internal/points/domain"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

// Stats is the vote distribution as served with a match.
type Stats struct {
	Counts      matchdomain.Stats        `json:"counts"`
	Percentages *matchdomain.Percentages `json:"percentages,omitempty"`
	HasVotes    bool                     `json:"has_votes"`
}

// MatchDetail is a match with its stats and the panel the caller sees.
type MatchDetail struct {
	Match   matchdomain.Match `json:"match"`
	Stats   Stats             `json:"stats"`
	Panel   string            `json:"panel"`
	Voted   bool              `json:"voted"`
	IsAdmin bool              `json:"is_admin"`
}

type VoteResult struct {
	Accepted bool  `json:"accepted"`
	Stats    Stats `json:"stats"`
}

// Me is the signed-in user's dashboard.
type Me struct {
	Profile       profiledomain.Profile `json:"profile"`
	Points        int64                 `json:"points"`
	IsAdmin       bool                  `json:"is_admin"`
	EmailVerified bool                  `json:"email_verified"`
}

func matchPath(id string, suffix string) string {
	return "/matches/" + url.PathEscape(id) + suffix
}

func (c *Client) ListMatches(ctx context.Context, page int) (*matchdomain.Page, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var out matchdomain.Page
	if _, err := c.do(ctx, http.MethodGet, "/matches", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetMatch(ctx context.Context, id string) (*MatchDetail, error) {
	var out MatchDetail
	if _, err := c.do(ctx, http.MethodGet, matchPath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Lineups(ctx context.Context, id string) (*matchdomain.Lineups, error) {
	var out struct {
		Lineups matchdomain.Lineups `json:"lineups"`
	}
	if _, err := c.do(ctx, http.MethodGet, matchPath(id, "/lineups"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Lineups, nil
}

// Vote casts a prediction. Accepted is false when the caller already voted.
func (c *Client) Vote(ctx context.Context, id, voteType string) (*VoteResult, error) {
	in := map[string]string{"voteType": voteType}
	var out VoteResult
	if _, err := c.do(ctx, http.MethodPost, matchPath(id, "/vote"), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var out Me
	if _, err := c.do(ctx, http.MethodGet, "/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteProfile stores the sign-up profile. created is false when the
// profile already existed and nothing was written.
func (c *Client) CompleteProfile(ctx context.Context, nickname, avatarURL string) (*profiledomain.Profile, bool, error) {
	in := map[string]string{"nickname": nickname, "avatar_url": avatarURL}
	var out struct {
		Profile profiledomain.Profile `json:"profile"`
		Created bool                  `json:"created"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/me/profile", nil, in, &out); err != nil {
		return nil, false, err
	}
	return &out.Profile, out.Created, nil
}

func (c *Client) UpdateNickname(ctx context.Context, nickname string) (*profiledomain.Profile, error) {
	in := map[string]string{"nickname": nickname}
	var out struct {
		Profile profiledomain.Profile `json:"profile"`
	}
	if _, err := c.do(ctx, http.MethodPatch, "/me/profile", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

// UploadAvatar sends image as the multipart "image" field.
func (c *Client) UploadAvatar(ctx context.Context, filename string, image []byte) (*profiledomain.Profile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", http.DetectContentType(image))
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint("/me/avatar", nil), &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var out struct {
		Profile profiledomain.Profile `json:"profile"`
	}
	if _, err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

func (c *Client) Points(ctx context.Context) (int64, error) {
	var out struct {
		Points int64 `json:"points"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/me/points", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Points, nil
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]pointsdomain.LeaderboardEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Entries []pointsdomain.LeaderboardEntry `json:"entries"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/leaderboard", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) Chat(ctx context.Context, matchID string) ([]chatdomain.Message, error) {
	var out struct {
		Messages []chatdomain.Message `json:"messages"`
	}
	if _, err := c.do(ctx, http.MethodGet, matchPath(matchID, "/chat"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendChat posts a message. It returns nil without error when the server
// dropped blank text.
func (c *Client) SendChat(ctx context.Context, matchID, text string) (*chatdomain.Message, error) {
	in := map[string]string{"text": text}
	var out struct {
		Message *chatdomain.Message `json:"message"`
	}
	status, err := c.do(ctx, http.MethodPost, matchPath(matchID, "/chat"), nil, in, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return out.Message, nil
}

func (c *Client) SetResult(ctx context.Context, matchID, result string) (*matchdomain.Outcome, error) {
	in := map[string]string{"result": result}
	var out matchdomain.Outcome
	path := "/admin" + matchPath(matchID, "/result")
	if _, err := c.do(ctx, http.MethodPost, path, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ImportMatches(ctx context.Context, matches []matchdomain.Match) (int, error) {
	in := map[string]any{"matches": matches}
	var out struct {
		Imported int `json:"imported"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/admin/matches/import", nil, in, &out); err != nil {
		return out.Imported, err
	}
	return out.Imported, nil
}

func (c *Client) Awards(ctx context.Context, matchID string) ([]awards.Award, error) {
	var out struct {
		Awards []awards.Award `json:"awards"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/admin"+matchPath(matchID, "/awards"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Awards, nil
}
