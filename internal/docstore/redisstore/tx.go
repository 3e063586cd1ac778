package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hsp-league/league-backend/internal/docstore"
)

var errReadAfterWrite = errors.New("transaction reads must happen before writes")

// change is the payload published on a document channel.
type change struct {
	Version int64           `json:"v"`
	Exists  bool            `json:"exists"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type pendingWrite struct {
	ref     docstore.Ref
	data    []byte
	deleted bool
}

// txn buffers writes and watches every key it reads so EXEC fails when a
// concurrent writer touched them.
type txn struct {
	ctx      context.Context
	rtx      *redis.Tx
	versions map[string]int64
	writes   []pendingWrite
}

func newTxn(ctx context.Context, rtx *redis.Tx) *txn {
	return &txn{ctx: ctx, rtx: rtx, versions: make(map[string]int64)}
}

func (t *txn) Get(ref docstore.Ref, dst any) error {
	data, ok, err := t.read(ref)
	if err != nil {
		return err
	}
	if !ok {
		return docstore.ErrNotFound
	}
	return decode(data, dst)
}

func (t *txn) Set(ref docstore.Ref, src any) error {
	if !ref.Valid() {
		return docstore.ErrInvalidRef
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", ref, err)
	}
	if _, err := t.watch(ref); err != nil {
		return err
	}
	t.writes = append(t.writes, pendingWrite{ref: ref, data: data})
	return nil
}

func (t *txn) merge(ref docstore.Ref, fields map[string]any) error {
	current, ok, err := t.read(ref)
	if err != nil {
		return err
	}

	doc := make(map[string]any)
	if ok {
		if err := decode(current, &doc); err != nil {
			return err
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return t.Set(ref, doc)
}

func (t *txn) create(ref docstore.Ref, src any) error {
	_, ok, err := t.read(ref)
	if err != nil {
		return err
	}
	if ok {
		return docstore.ErrAlreadyExists
	}
	return t.Set(ref, src)
}

func (t *txn) delete(ref docstore.Ref) error {
	if !ref.Valid() {
		return docstore.ErrInvalidRef
	}
	if _, err := t.watch(ref); err != nil {
		return err
	}
	t.writes = append(t.writes, pendingWrite{ref: ref, deleted: true})
	return nil
}

func (t *txn) read(ref docstore.Ref) ([]byte, bool, error) {
	if !ref.Valid() {
		return nil, false, docstore.ErrInvalidRef
	}
	if len(t.writes) > 0 {
		return nil, false, errReadAfterWrite
	}
	if _, err := t.watch(ref); err != nil {
		return nil, false, err
	}

	data, err := t.rtx.Get(t.ctx, docKey(ref)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", ref, err)
	}
	return data, true, nil
}

// watch adds the document and version keys to the WATCH set once and
// returns the version observed.
func (t *txn) watch(ref docstore.Ref) (int64, error) {
	path := ref.Path()
	if v, ok := t.versions[path]; ok {
		return v, nil
	}

	if err := t.rtx.Watch(t.ctx, docKey(ref), verKey(ref)).Err(); err != nil {
		return 0, fmt.Errorf("failed to watch %s: %w", ref, err)
	}

	v, err := t.rtx.Get(t.ctx, verKey(ref)).Int64()
	if err == redis.Nil {
		v = 0
	} else if err != nil {
		return 0, fmt.Errorf("failed to read version of %s: %w", ref, err)
	}

	t.versions[path] = v
	return v, nil
}

func (t *txn) commit() error {
	if len(t.writes) == 0 {
		return nil
	}

	_, err := t.rtx.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		for _, w := range t.writes {
			path := w.ref.Path()
			version := t.versions[path] + 1
			t.versions[path] = version

			msg := change{Version: version, Exists: !w.deleted}
			if w.deleted {
				pipe.Del(t.ctx, docKey(w.ref))
				pipe.SRem(t.ctx, colKey(w.ref.Collection), w.ref.ID)
			} else {
				msg.Data = w.data
				pipe.Set(t.ctx, docKey(w.ref), w.data, 0)
				pipe.SAdd(t.ctx, colKey(w.ref.Collection), w.ref.ID)
			}
			pipe.Set(t.ctx, verKey(w.ref), version, 0)

			payload, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("failed to marshal change: %w", err)
			}
			pipe.Publish(t.ctx, docChannel(w.ref), payload)
			pipe.Publish(t.ctx, colChannel(w.ref.Collection), version)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return err
}
