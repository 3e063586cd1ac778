package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsp-league/league-backend/internal/chat/domain"
	"github.com/hsp-league/league-backend/internal/chat/repository"
	"github.com/hsp-league/league-backend/internal/docstore/docstoretest"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

type profiles map[string]string

func (p profiles) Get(_ context.Context, uid string) (*profiledomain.Profile, error) {
	nick, ok := p[uid]
	if !ok {
		return nil, profiledomain.ErrProfileNotFound
	}
	return &profiledomain.Profile{UID: uid, Nickname: nick}, nil
}

func newTestService(t *testing.T, limiter *SendLimiter) *ChatService {
	store, _ := docstoretest.NewRedis(t)
	svc := NewChatService(repository.NewChatRepository(store), profiles{"u1": "Striker"}, limiter, nil, nil)

	clock := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

func TestChatService_Send(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	t.Run("blank text is ignored", func(t *testing.T) {
		msg, err := svc.Send(ctx, "m1", "u1", "u1@hanilgo.cnehs.kr", "   ")
		require.NoError(t, err)
		assert.Nil(t, msg)

		msg, err = svc.Send(ctx, "m1", "u1", "u1@hanilgo.cnehs.kr", "<b></b>")
		require.NoError(t, err)
		assert.Nil(t, msg)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := svc.Send(ctx, "m1", "u1", "", strings.Repeat("a", domain.MaxMessageLength+1))
		assert.ErrorIs(t, err, domain.ErrMessageTooLong)

		_, err = svc.Send(ctx, "m1", "u1", "", "<i>"+strings.Repeat("a", domain.MaxMessageLength+1)+"</i>")
		assert.ErrorIs(t, err, domain.ErrMessageTooLong)
	})

	t.Run("limit applies to stored text", func(t *testing.T) {
		text := strings.Repeat("&", domain.MaxMessageLength)
		msg, err := svc.Send(ctx, "m3", "u1", "", text)
		require.NoError(t, err)
		assert.Equal(t, text, msg.Text)

		msg, err = svc.Send(ctx, "m3", "u1", "", "<b>"+strings.Repeat("<", domain.MaxMessageLength-2)+"</b>")
		require.NoError(t, err)
		assert.LessOrEqual(t, utf8.RuneCountInString(msg.Text), domain.MaxMessageLength)
	})

	t.Run("entities are stored unescaped", func(t *testing.T) {
		msg, err := svc.Send(ctx, "m3", "u1", "", `<b>Tom & Jerry</b> "3<4"`)
		require.NoError(t, err)
		assert.Equal(t, `Tom & Jerry "3<4"`, msg.Text)
	})

	t.Run("exactly the limit in multibyte runes", func(t *testing.T) {
		text := ""
		for i := 0; i < domain.MaxMessageLength; i++ {
			text += "골"
		}
		msg, err := svc.Send(ctx, "m2", "u1", "", text)
		require.NoError(t, err)
		assert.Equal(t, text, msg.Text)
	})

	t.Run("markup is stripped", func(t *testing.T) {
		msg, err := svc.Send(ctx, "m1", "u1", "", `  <script>alert(1)</script><b>nice</b> goal  `)
		require.NoError(t, err)
		assert.Equal(t, "nice goal", msg.Text)
	})

	t.Run("nickname falls back to email", func(t *testing.T) {
		msg, err := svc.Send(ctx, "m1", "u9", "kim@hanilgo.cnehs.kr", "hello")
		require.NoError(t, err)
		assert.Equal(t, "kim", msg.Nickname)
		assert.Equal(t, "m1", msg.MatchID)
	})

	t.Run("invalid match", func(t *testing.T) {
		_, err := svc.Send(ctx, "m1/x", "u1", "", "hello")
		assert.ErrorIs(t, err, domain.ErrInvalidMatchID)
	})

	list, err := svc.List(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Striker", list[0].Nickname)
	assert.Equal(t, "nice goal", list[0].Text)
	assert.Equal(t, "hello", list[1].Text)
	assert.Less(t, list[0].ID, list[1].ID)
}

func TestChatService_RateLimited(t *testing.T) {
	svc := newTestService(t, NewSendLimiter(4))
	ctx := context.Background()

	_, err := svc.Send(ctx, "m1", "u1", "", "one")
	require.NoError(t, err)

	_, err = svc.Send(ctx, "m1", "u1", "", "two")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = svc.Send(ctx, "m1", "u2", "", "other user")
	assert.NoError(t, err)
}

func TestChatService_Watch(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	got := make(chan []domain.Message, 8)
	sub, err := svc.Watch(ctx, "m1", func(msgs []domain.Message) { got <- msgs })
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, receive(t, got))

	_, err = svc.Send(ctx, "m1", "u1", "", "first")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "m1", "u2", "", "second")
	require.NoError(t, err)

	msgs := receive(t, got)
	if len(msgs) < 2 {
		msgs = receive(t, got)
	}
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
}

func TestSendLimiter(t *testing.T) {
	l := NewSendLimiter(4)
	t0 := time.Unix(1000, 0)

	assert.True(t, l.Allow("u1", t0))
	assert.False(t, l.Allow("u1", t0))
	assert.True(t, l.Allow("u1", t0.Add(15*time.Second)))

	assert.True(t, NewSendLimiter(0).Allow("u1", t0))
	assert.True(t, NewSendLimiter(0).Allow("u1", t0))
}

func receive(t *testing.T, ch <-chan []domain.Message) []domain.Message {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages")
		return nil
	}
}
