package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/hsp-league/league-backend/internal/docstore"
)

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Watch subscribes before reading the current state, and drops channel
// messages whose version is not newer than the last one delivered, so
// deliveries never go backwards.
func (s *Store) Watch(ctx context.Context, ref docstore.Ref, fn func(doc docstore.Document, exists bool)) (docstore.Subscription, error) {
	if !ref.Valid() {
		return nil, docstore.ErrInvalidRef
	}

	pubsub := s.client.Subscribe(ctx, docChannel(ref))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ref, err)
	}
	msgs := pubsub.Channel()

	version, data, exists, err := s.snapshot(ctx, ref)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer pubsub.Close()

		if exists {
			fn(jsonDocument(ref.ID, data), true)
		} else {
			fn(docstore.Document{ID: ref.ID}, false)
		}
		last := version

		for {
			select {
			case <-subCtx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var c change
				if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
					s.logger.Warn("dropping malformed change", "ref", ref.Path(), "error", err)
					continue
				}
				if c.Version <= last {
					continue
				}
				last = c.Version
				if c.Exists {
					fn(jsonDocument(ref.ID, c.Data), true)
				} else {
					fn(docstore.Document{ID: ref.ID}, false)
				}
			}
		}
	}()

	return sub, nil
}

func (s *Store) WatchCollection(ctx context.Context, collection string, fn func(docs []docstore.Document)) (docstore.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, colChannel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}
	msgs := pubsub.Channel()

	docs, err := s.List(ctx, collection)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer pubsub.Close()

		fn(docs)

		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				docs, err := s.List(subCtx, collection)
				if err != nil {
					if subCtx.Err() == nil {
						s.logger.Warn("collection reload failed", "collection", collection, "error", err)
					}
					continue
				}
				fn(docs)
			}
		}
	}()

	return sub, nil
}

// snapshot reads the document body and its version atomically.
func (s *Store) snapshot(ctx context.Context, ref docstore.Ref) (int64, []byte, bool, error) {
	var docCmd *redis.StringCmd
	var verCmd *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		docCmd = pipe.Get(ctx, docKey(ref))
		verCmd = pipe.Get(ctx, verKey(ref))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, nil, false, fmt.Errorf("failed to read %s: %w", ref, err)
	}

	version, err := verCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, nil, false, fmt.Errorf("failed to read version of %s: %w", ref, err)
	}

	data, err := docCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return version, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return version, data, true, nil
}
