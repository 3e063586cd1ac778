package docstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSub struct {
	name   string
	closed *[]string
}

func (f *fakeSub) Close() { *f.closed = append(*f.closed, f.name) }

func TestSlot_Replace(t *testing.T) {
	var closed []string
	var slot Slot

	t.Run("attaches first subscription", func(t *testing.T) {
		err := slot.Replace(func() (Subscription, error) {
			return &fakeSub{name: "u1", closed: &closed}, nil
		})
		require.NoError(t, err)
		assert.True(t, slot.Active())
		assert.Empty(t, closed)
	})

	t.Run("closes prior before attaching", func(t *testing.T) {
		err := slot.Replace(func() (Subscription, error) {
			assert.Equal(t, []string{"u1"}, closed, "prior subscription must be closed before attach")
			return &fakeSub{name: "u2", closed: &closed}, nil
		})
		require.NoError(t, err)
		assert.True(t, slot.Active())
	})

	t.Run("failed attach leaves slot empty", func(t *testing.T) {
		err := slot.Replace(func() (Subscription, error) {
			return nil, errors.New("boom")
		})
		require.Error(t, err)
		assert.False(t, slot.Active())
		assert.Equal(t, []string{"u1", "u2"}, closed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		slot.Close()
		slot.Close()
		assert.False(t, slot.Active())
	})
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"already exists", ErrAlreadyExists, false},
		{"contention", fmt.Errorf("credit: %w", ErrContention), true},
		{"unavailable", ErrUnavailable, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), true},
		{"grpc aborted", status.Error(codes.Aborted, "conflict"), true},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "no"), false},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"plain error", errors.New("invalid argument"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestIsContentionAndIsUnavailable(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		contention  bool
		unavailable bool
	}{
		{"nil", nil, false, false},
		{"contention", fmt.Errorf("credit: %w", ErrContention), true, false},
		{"grpc aborted", status.Error(codes.Aborted, "conflict"), true, false},
		{"unavailable", fmt.Errorf("credit: %w", ErrUnavailable), false, true},
		{"deadline", context.DeadlineExceeded, false, true},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), false, true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, false, true},
		{"not found", ErrNotFound, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.contention, IsContention(tc.err))
			assert.Equal(t, tc.unavailable, IsUnavailable(tc.err))
		})
	}
}

func TestRef(t *testing.T) {
	ref := Doc("votes", "m1_u1")
	assert.Equal(t, "votes/m1_u1", ref.Path())
	assert.True(t, ref.Valid())
	assert.False(t, Doc("votes", "").Valid())
	assert.False(t, Doc("votes", "a/b").Valid())
	assert.True(t, Doc("match_chats/m1/messages", "x").Valid())
}
