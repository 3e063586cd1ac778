package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	chatdomain "github.com/hsp-league/league-backend/internal/chat/domain"
	"github.com/hsp-league/league-backend/internal/docstore"
)

type stream struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops the stream and waits for the reader to exit. It must not be
// called from inside the delivery callback.
func (s *stream) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed when the server ends the stream or Close is called.
func (s *stream) Done() <-chan struct{} {
	return s.done
}

// subscribe opens an event stream and calls fn with the data of every event
// named event. The handshake is synchronous so HTTP errors are returned.
func (c *Client) subscribe(ctx context.Context, path, event string, fn func(data []byte)) (*stream, error) {
	subCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(subCtx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, decodeError(resp.StatusCode, data)
	}

	s := &stream{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer resp.Body.Close()
		err := readEvents(resp.Body, func(name string, data []byte) {
			if name == event {
				fn(data)
			}
		})
		if err != nil && subCtx.Err() == nil {
			c.logger.Warn("event stream ended", "path", path, "error", err)
		}
	}()
	return s, nil
}

// readEvents parses a text/event-stream body. Comment lines are skipped;
// multi-line data fields are joined with newlines.
func readEvents(r io.Reader, emit func(name string, data []byte)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	name := "message"
	var data []byte
	hasData := false
	for sc.Scan() {
		line := sc.Bytes()
		switch {
		case len(line) == 0:
			if hasData {
				emit(name, data)
			}
			name, data, hasData = "message", nil, false
		case line[0] == ':':
		default:
			field, value, _ := bytes.Cut(line, []byte(":"))
			value = bytes.TrimPrefix(value, []byte(" "))
			switch string(field) {
			case "event":
				name = string(value)
			case "data":
				if hasData {
					data = append(data, '\n')
				}
				data = append(data, value...)
				hasData = true
			}
		}
	}
	return sc.Err()
}

// WatchPoints streams the caller's balance. fn gets the current balance
// first and then every committed change.
func (c *Client) WatchPoints(ctx context.Context, fn func(points int64)) (docstore.Subscription, error) {
	s, err := c.subscribe(ctx, "/me/points/stream", "points", func(data []byte) {
		var body struct {
			Points int64 `json:"points"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			c.logger.Warn("dropping malformed points event", "error", err)
			return
		}
		fn(body.Points)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WatchChat streams the full ordered message list of a match chat.
func (c *Client) WatchChat(ctx context.Context, matchID string, fn func(msgs []chatdomain.Message)) (docstore.Subscription, error) {
	s, err := c.subscribe(ctx, matchPath(matchID, "/chat/stream"), "messages", func(data []byte) {
		var body struct {
			Messages []chatdomain.Message `json:"messages"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			c.logger.Warn("dropping malformed chat event", "error", err)
			return
		}
		fn(body.Messages)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
