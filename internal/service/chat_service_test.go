package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/config"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultChatOptions_MatchConfigDefaults(t *testing.T) {
	def := DefaultChatOptions()
	chat := config.Default().Chat
	assert.Equal(t, chat.MaxMessageLength, def.MaxMessageLength)
	assert.Equal(t, chat.HistoryPageSize, def.DefaultPageSize)
	assert.Equal(t, chat.HistoryMaxPageSize, def.MaxPageSize)
}

func TestAppend(t *testing.T) {
	env := newTestEnv(t, ChatOptions{MaxMessageLength: 10})
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	msg, err := env.chat.Append(ctx, ch.ID, student, "  hi  ")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, "  hi  ", msg.Content)
	assert.Equal(t, student.ID, msg.SenderID)

	t.Run("empty body", func(t *testing.T) {
		_, err := env.chat.Append(ctx, ch.ID, student, " \n\t ")
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := env.chat.Append(ctx, ch.ID, student, strings.Repeat("가", 11))
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
		_, err = env.chat.Append(ctx, ch.ID, student, strings.Repeat("가", 10))
		assert.NoError(t, err)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := env.chat.Append(ctx, ch.ID, student2, "hello")
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("missing channel", func(t *testing.T) {
		_, err := env.chat.Append(ctx, 4242, student, "hello")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("bumps activity and sender marker", func(t *testing.T) {
		msg, err := env.chat.Append(ctx, ch.ID, company, "reply")
		require.NoError(t, err)

		got, err := repository.NewChannelRepository(env.db).FindByID(ctx, ch.ID)
		require.NoError(t, err)
		assert.True(t, got.LastActivityAt.Equal(msg.CreatedAt))

		marker, err := repository.NewReadMarkerRepository(env.db).Find(ctx, company.ID, ch.ID)
		require.NoError(t, err)
		assert.True(t, marker.LastReadAt.Equal(msg.CreatedAt))
	})
}

func TestHistory_PagesInOrder(t *testing.T) {
	env := newTestEnv(t, ChatOptions{DefaultPageSize: 2, MaxPageSize: 3})
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	var sent []uint64
	for i := 0; i < 5; i++ {
		sender := student
		if i%2 == 1 {
			sender = company
		}
		msg, err := env.chat.Append(ctx, ch.ID, sender, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		sent = append(sent, msg.ID)
	}

	var (
		got    []uint64
		cursor string
		pages  int
	)
	for {
		page, err := env.chat.History(ctx, ch.ID, company, cursor, 0)
		require.NoError(t, err)
		pages++
		assert.LessOrEqual(t, len(page.Messages), 2)
		for _, m := range page.Messages {
			got = append(got, m.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, sent, got)
	assert.Equal(t, 3, pages)

	page, err := env.chat.History(ctx, ch.ID, student, "", 100)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 3, "limit is capped at the max page size")

	_, err = env.chat.History(ctx, ch.ID, student2, "", 0)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = env.chat.History(ctx, ch.ID, student, "not a cursor!", 0)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestHistory_SameTimestampTieBreaksOnID(t *testing.T) {
	env := newTestEnv(t, ChatOptions{})
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	at := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.Create(&domain.ChatMessage{
			ChannelID: ch.ID, SenderID: student.ID, Content: fmt.Sprintf("t%d", i), CreatedAt: at,
		}).Error)
	}

	first, err := env.chat.History(ctx, ch.ID, student, "", 1)
	require.NoError(t, err)
	require.Len(t, first.Messages, 1)
	second, err := env.chat.History(ctx, ch.ID, student, first.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Messages, 2)
	assert.Empty(t, second.NextCursor)

	assert.Equal(t, "t0", first.Messages[0].Content)
	assert.Equal(t, "t1", second.Messages[0].Content)
	assert.Equal(t, "t2", second.Messages[1].Content)
}

func TestHistorySeq_Restartable(t *testing.T) {
	env := newTestEnv(t, ChatOptions{})
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	for i := 0; i < 7; i++ {
		_, err := env.chat.Append(ctx, ch.ID, student, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	seq := env.chat.HistorySeq(ctx, ch.ID, company, 3)
	collect := func() []string {
		var out []string
		for msg, err := range seq {
			require.NoError(t, err)
			out = append(out, msg.Content)
		}
		return out
	}

	want := []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6"}
	assert.Equal(t, want, collect())
	assert.Equal(t, want, collect(), "a second range starts over")

	var partial []string
	for msg, err := range seq {
		require.NoError(t, err)
		partial = append(partial, msg.Content)
		if len(partial) == 4 {
			break
		}
	}
	assert.Equal(t, want[:4], partial)

	for _, err := range env.chat.HistorySeq(ctx, ch.ID, student2, 3) {
		assert.ErrorIs(t, err, common.ErrForbidden)
	}
}

func TestMarkRead_Monotonic(t *testing.T) {
	env := newTestEnv(t, ChatOptions{})
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	t1 := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	t0 := t1.Add(-time.Minute)

	marker, err := env.chat.MarkRead(ctx, ch.ID, student, t1)
	require.NoError(t, err)
	assert.True(t, marker.LastReadAt.Equal(t1))

	marker, err = env.chat.MarkRead(ctx, ch.ID, student, t0)
	require.NoError(t, err)
	assert.True(t, marker.LastReadAt.Equal(t1), "marker must not move backwards")

	future := time.Now().Add(24 * time.Hour)
	marker, err = env.chat.MarkRead(ctx, ch.ID, student, future)
	require.NoError(t, err)
	assert.True(t, marker.LastReadAt.Before(future), "future timestamps are clamped")

	before := marker.LastReadAt
	marker, err = env.chat.MarkRead(ctx, ch.ID, student, time.Time{})
	require.NoError(t, err)
	assert.False(t, marker.LastReadAt.Before(before))

	_, err = env.chat.MarkRead(ctx, ch.ID, student2, time.Time{})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestUnreadCount(t *testing.T) {
	env := newTestEnv(t, ChatOptions{})
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	count, err := env.chat.UnreadCount(ctx, ch.ID, student)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = env.chat.Append(ctx, ch.ID, company, "one")
	require.NoError(t, err)
	last, err := env.chat.Append(ctx, ch.ID, company, "two")
	require.NoError(t, err)

	count, err = env.chat.UnreadCount(ctx, ch.ID, student)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = env.chat.UnreadCount(ctx, ch.ID, company)
	require.NoError(t, err)
	assert.Zero(t, count, "own messages are never unread")

	_, err = env.chat.MarkRead(ctx, ch.ID, student, last.CreatedAt)
	require.NoError(t, err)
	count, err = env.chat.UnreadCount(ctx, ch.ID, student)
	require.NoError(t, err)
	assert.Zero(t, count)

	time.Sleep(2 * time.Millisecond)
	_, err = env.chat.Append(ctx, ch.ID, student, "mine")
	require.NoError(t, err)
	count, err = env.chat.UnreadCount(ctx, ch.ID, company)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = env.chat.UnreadCount(ctx, ch.ID, student2)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestCursorRoundTrip(t *testing.T) {
	c := &repository.MessageCursor{CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC), ID: 77}
	decoded, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, c.ID, decoded.ID)

	empty, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}
