// Package sse streams subscription deliveries as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const KeepAliveInterval = 15 * time.Second

// Latest keeps only the most recent value put by a subscription callback.
// Every delivery carries the full state, so a slow client skips
// intermediate states instead of blocking the subscription.
type Latest struct {
	mu    sync.Mutex
	value any
	set   bool
	ready chan struct{}
}

func NewLatest() *Latest {
	return &Latest{ready: make(chan struct{}, 1)}
}

// Put never blocks.
func (l *Latest) Put(v any) {
	l.mu.Lock()
	l.value = v
	l.set = true
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *Latest) Ready() <-chan struct{} {
	return l.ready
}

// Take returns the pending value and clears it.
func (l *Latest) Take() (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.set {
		return nil, false
	}
	v := l.value
	l.value, l.set = nil, false
	return v, true
}

// Serve writes values from src as SSE events named event, plus keep-alive
// comments, until the client disconnects.
func Serve(c *gin.Context, event string, src *Latest, keepAlive time.Duration) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	c.Status(http.StatusOK)
	flusher.Flush()

	if keepAlive <= 0 {
		keepAlive = KeepAliveInterval
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case <-src.Ready():
			v, ok := src.Take()
			if !ok {
				continue
			}
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		}
	}
}
