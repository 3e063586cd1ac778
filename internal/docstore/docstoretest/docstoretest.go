// Package docstoretest provides document stores for tests.
package docstoretest

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/docstore/redisstore"
)

// NewRedis returns a Redis-backed store running on miniredis. Both are
// closed when the test ends.
func NewRedis(t testing.TB) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	require.NoError(t, client.Ping(context.Background()).Err())

	store := redisstore.New(client, nil)
	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

// Faulty wraps a store and injects errors per operation.
type Faulty struct {
	docstore.Store

	mu       sync.Mutex
	TxErr    error
	GetErr   error
	MergeErr error
	WhereErr error
	// CreateErrFor fails Create for refs whose path is listed.
	CreateErrFor map[string]error
	TxCalls      int
}

func NewFaulty(inner docstore.Store) *Faulty {
	return &Faulty{Store: inner, CreateErrFor: make(map[string]error)}
}

func (f *Faulty) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	f.mu.Lock()
	f.TxCalls++
	err := f.TxErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.RunTransaction(ctx, fn)
}

func (f *Faulty) Get(ctx context.Context, ref docstore.Ref, dst any) error {
	f.mu.Lock()
	err := f.GetErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Get(ctx, ref, dst)
}

func (f *Faulty) Merge(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	f.mu.Lock()
	err := f.MergeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Merge(ctx, ref, fields)
}

func (f *Faulty) Create(ctx context.Context, ref docstore.Ref, src any) error {
	f.mu.Lock()
	err := f.CreateErrFor[ref.Path()]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Create(ctx, ref, src)
}

func (f *Faulty) Where(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	f.mu.Lock()
	err := f.WhereErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Where(ctx, collection, field, value)
}
