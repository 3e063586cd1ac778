// Package docstore defines the document database contract shared by the
// league services. Two backends implement it: Cloud Firestore and Redis.
package docstore

import (
	"context"
	"strings"
)

// Ref addresses one document. Collection may be a nested path such as
// "match_chats/{matchId}/messages".
type Ref struct {
	Collection string
	ID         string
}

func Doc(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

func (r Ref) String() string {
	return r.Path()
}

// Valid reports whether the reference names a document.
func (r Ref) Valid() bool {
	return strings.TrimSpace(r.Collection) != "" && strings.TrimSpace(r.ID) != "" && !strings.Contains(r.ID, "/")
}

// Document is a read snapshot of one stored document.
type Document struct {
	ID     string
	decode func(dst any) error
}

func NewDocument(id string, decode func(dst any) error) Document {
	return Document{ID: id, decode: decode}
}

// DataTo decodes the document into dst.
func (d Document) DataTo(dst any) error {
	if d.decode == nil {
		return ErrNotFound
	}
	return d.decode(dst)
}

// Subscription is an active push subscription. Close must not be called
// from inside the subscription callback.
type Subscription interface {
	Close()
}

// Tx is the read/write view handed to a transaction function. All reads
// must happen before the first write.
type Tx interface {
	Get(ref Ref, dst any) error
	Set(ref Ref, src any) error
}

// Store is the document database contract.
type Store interface {
	Get(ctx context.Context, ref Ref, dst any) error
	Set(ctx context.Context, ref Ref, src any) error
	// Merge writes the given top-level fields, keeping the others.
	Merge(ctx context.Context, ref Ref, fields map[string]any) error
	// Create fails with ErrAlreadyExists when the document exists.
	Create(ctx context.Context, ref Ref, src any) error
	Delete(ctx context.Context, ref Ref) error

	// List and Where return documents ordered by ID.
	List(ctx context.Context, collection string) ([]Document, error)
	Where(ctx context.Context, collection, field string, value any) ([]Document, error)

	// Watch delivers the current state of the document first and then every
	// committed change in commit order. exists is false while the document
	// is absent.
	Watch(ctx context.Context, ref Ref, fn func(doc Document, exists bool)) (Subscription, error)
	// WatchCollection delivers the full ordered document set on every change.
	WatchCollection(ctx context.Context, collection string, fn func(docs []Document)) (Subscription, error)

	// RunTransaction runs fn as an optimistic read-modify-write. fn may run
	// more than once; after the retry budget it fails with ErrContention.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// MaxTransactionAttempts bounds transaction retries in the Firestore backend.
const MaxTransactionAttempts = 5
