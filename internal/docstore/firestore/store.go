// Package firestore implements docstore.Store on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hsp-league/league-backend/internal/docstore"
)

// Store is the Firestore document store.
type Store struct {
	client *fs.Client
	logger *slog.Logger
}

var _ docstore.Store = (*Store)(nil)

func New(client *fs.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) doc(ref docstore.Ref) (*fs.DocumentRef, error) {
	if !ref.Valid() {
		return nil, docstore.ErrInvalidRef
	}
	d := s.client.Doc(ref.Path())
	if d == nil {
		return nil, docstore.ErrInvalidRef
	}
	return d, nil
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref, dst any) error {
	d, err := s.doc(ref)
	if err != nil {
		return err
	}
	snap, err := d.Get(ctx)
	if err != nil {
		return mapError(err)
	}
	return snap.DataTo(dst)
}

func (s *Store) Set(ctx context.Context, ref docstore.Ref, src any) error {
	d, err := s.doc(ref)
	if err != nil {
		return err
	}
	_, err = d.Set(ctx, src)
	return mapError(err)
}

func (s *Store) Merge(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	d, err := s.doc(ref)
	if err != nil {
		return err
	}
	_, err = d.Set(ctx, fields, fs.MergeAll)
	return mapError(err)
}

func (s *Store) Create(ctx context.Context, ref docstore.Ref, src any) error {
	d, err := s.doc(ref)
	if err != nil {
		return err
	}
	_, err = d.Create(ctx, src)
	return mapError(err)
}

func (s *Store) Delete(ctx context.Context, ref docstore.Ref) error {
	d, err := s.doc(ref)
	if err != nil {
		return err
	}
	_, err = d.Delete(ctx)
	return mapError(err)
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	col := s.client.Collection(collection)
	if col == nil {
		return nil, docstore.ErrInvalidRef
	}
	snaps, err := col.OrderBy(fs.DocumentID, fs.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err)
	}
	return toDocuments(snaps), nil
}

func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	col := s.client.Collection(collection)
	if col == nil {
		return nil, docstore.ErrInvalidRef
	}
	// Sorted locally to avoid requiring a composite index.
	snaps, err := col.Where(field, "==", value).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err)
	}
	docs := toDocuments(snaps)
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *fs.Transaction) error {
		return fn(ctx, &txn{store: s, t: t})
	}, fs.MaxAttempts(docstore.MaxTransactionAttempts))
	if status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w: %v", docstore.ErrContention, err)
	}
	return mapError(err)
}

type txn struct {
	store *Store
	t     *fs.Transaction
}

func (x *txn) Get(ref docstore.Ref, dst any) error {
	d, err := x.store.doc(ref)
	if err != nil {
		return err
	}
	snap, err := x.t.Get(d)
	if err != nil {
		return mapError(err)
	}
	return snap.DataTo(dst)
}

func (x *txn) Set(ref docstore.Ref, src any) error {
	d, err := x.store.doc(ref)
	if err != nil {
		return err
	}
	return x.t.Set(d, src)
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Store) Watch(ctx context.Context, ref docstore.Ref, fn func(doc docstore.Document, exists bool)) (docstore.Subscription, error) {
	d, err := s.doc(ref)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	it := d.Snapshots(subCtx)

	go func() {
		defer close(sub.done)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() == nil && !errors.Is(err, iterator.Done) {
					s.logger.Warn("document watch ended", "ref", ref.Path(), "error", err)
				}
				return
			}
			if snap.Exists() {
				fn(toDocument(snap), true)
			} else {
				fn(docstore.Document{ID: ref.ID}, false)
			}
		}
	}()

	return sub, nil
}

func (s *Store) WatchCollection(ctx context.Context, collection string, fn func(docs []docstore.Document)) (docstore.Subscription, error) {
	col := s.client.Collection(collection)
	if col == nil {
		return nil, docstore.ErrInvalidRef
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	it := col.OrderBy(fs.DocumentID, fs.Asc).Snapshots(subCtx)

	go func() {
		defer close(sub.done)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if subCtx.Err() == nil && !errors.Is(err, iterator.Done) {
					s.logger.Warn("collection watch ended", "collection", collection, "error", err)
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				s.logger.Warn("collection snapshot read failed", "collection", collection, "error", err)
				continue
			}
			fn(toDocuments(snaps))
		}
	}()

	return sub, nil
}

func toDocument(snap *fs.DocumentSnapshot) docstore.Document {
	return docstore.NewDocument(snap.Ref.ID, snap.DataTo)
}

func toDocuments(snaps []*fs.DocumentSnapshot) []docstore.Document {
	docs := make([]docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, toDocument(snap))
	}
	return docs
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", docstore.ErrAlreadyExists, err)
	case codes.Unavailable:
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}
	return err
}
