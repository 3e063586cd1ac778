// Package redisstore implements docstore.Store on Redis. Documents are JSON
// strings, collections are sets of IDs and every committed write is
// published on the document and collection channels.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hsp-league/league-backend/internal/docstore"
)

const (
	docKeyPrefix     = "doc:"       // Document body: doc:{collection}/{id}
	verKeyPrefix     = "ver:"       // Monotonic document version: ver:{collection}/{id}
	colKeyPrefix     = "col:"       // Set of document IDs: col:{collection}
	docChannelPrefix = "watch:doc:" // Pub/Sub channel per document
	colChannelPrefix = "watch:col:" // Pub/Sub channel per collection
)

// Store is the Redis document store.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

var _ docstore.Store = (*Store)(nil)

// New creates a Store on an existing client.
func New(client *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, logger), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref, dst any) error {
	if !ref.Valid() {
		return docstore.ErrInvalidRef
	}

	data, err := s.client.Get(ctx, docKey(ref)).Bytes()
	if err == redis.Nil {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", ref, err)
	}
	return decode(data, dst)
}

func (s *Store) Set(ctx context.Context, ref docstore.Ref, src any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ref, src)
	})
}

func (s *Store) Merge(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.(*txn).merge(ref, fields)
	})
}

func (s *Store) Create(ctx context.Context, ref docstore.Ref, src any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.(*txn).create(ref, src)
	})
}

func (s *Store) Delete(ctx context.Context, ref docstore.Ref) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.(*txn).delete(ref)
	})
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	ids, err := s.client.SMembers(ctx, colKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(docstore.Doc(collection, id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}

	docs := make([]docstore.Document, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Deleted between SMEMBERS and MGET.
			continue
		}
		docs = append(docs, jsonDocument(ids[i], []byte(raw)))
	}
	return docs, nil
}

func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter value: %w", err)
	}

	var out []docstore.Document
	for _, d := range docs {
		var fields map[string]json.RawMessage
		if err := d.DataTo(&fields); err != nil {
			return nil, err
		}
		if got, ok := fields[field]; ok && jsonEqual(got, want) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Optimistic transactions retry on WATCH conflicts with jittered
// exponential backoff, so writers contending for one document spread out
// instead of failing together.
const (
	txMaxAttempts = 50
	txBaseDelay   = time.Millisecond
	txMaxDelay    = 50 * time.Millisecond
)

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, txBackoff(attempt)); err != nil {
				return fmt.Errorf("%w: %w", docstore.ErrContention, err)
			}
		}
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := newTxn(ctx, rtx)
			if err := fn(ctx, t); err != nil {
				return err
			}
			return t.commit()
		})
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("redis transaction conflict, retrying", "attempt", attempt+1)
			continue
		}
		return err
	}
	return docstore.ErrContention
}

// txBackoff picks a random delay below a ceiling that doubles per attempt
// from txBaseDelay up to txMaxDelay.
func txBackoff(attempt int) time.Duration {
	ceiling := txBaseDelay
	for i := 1; i < attempt && ceiling < txMaxDelay; i++ {
		ceiling *= 2
	}
	ceiling = min(ceiling, txMaxDelay)
	return time.Duration(rand.Int64N(int64(ceiling))) + 1
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func docKey(ref docstore.Ref) string      { return docKeyPrefix + ref.Path() }
func verKey(ref docstore.Ref) string      { return verKeyPrefix + ref.Path() }
func colKey(collection string) string     { return colKeyPrefix + collection }
func docChannel(ref docstore.Ref) string  { return docChannelPrefix + ref.Path() }
func colChannel(collection string) string { return colChannelPrefix + collection }

func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return nil
}

func jsonDocument(id string, data []byte) docstore.Document {
	return docstore.NewDocument(id, func(dst any) error {
		return decode(data, dst)
	})
}

func jsonEqual(a, b []byte) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return fmt.Sprint(va) == fmt.Sprint(vb)
}
