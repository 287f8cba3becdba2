package service

import (
	"context"
	"testing"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openChannel submits and approves a request, returning its channel
func openChannel(t *testing.T, env *testEnv, requester domain.Principal, listing *domain.Listing) *domain.Channel {
	t.Helper()
	ctx := context.Background()
	req, err := env.requests.Submit(ctx, requester, listing.ID)
	require.NoError(t, err)
	responder := domain.Principal{ID: listing.OwnerID, Role: domain.RoleResponder}
	_, err = env.requests.Approve(ctx, responder, req.ID)
	require.NoError(t, err)
	ch, err := env.channels.GetByRequest(ctx, requester, req.ID)
	require.NoError(t, err)
	return ch
}

func TestGetForParticipant(t *testing.T) {
	env := newTestEnv(t, ChatOptions{})
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	for _, p := range []domain.Principal{student, company} {
		got, err := env.channels.GetForParticipant(ctx, ch.ID, p)
		require.NoError(t, err)
		assert.Equal(t, ch.ID, got.ID)
	}

	_, err := env.channels.GetForParticipant(ctx, ch.ID, student2)
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = env.channels.GetForParticipant(ctx, ch.ID, admin)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = env.channels.GetForParticipant(ctx, 999, student)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetForParticipant_ServedFromCache(t *testing.T) {
	mc := newMemoryCache()
	env := newCachedTestEnv(t, ChatOptions{}, mc)
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	_, err := env.channels.GetForParticipant(ctx, ch.ID, student)
	require.NoError(t, err)
	require.True(t, mc.has(ch.ID), "first load fills the cache")

	got, err := env.channels.GetForParticipant(ctx, ch.ID, company)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.hits())
	assert.Equal(t, ch.RequesterID, got.RequesterID)
	assert.Equal(t, ch.ResponderID, got.ResponderID)

	_, err = env.channels.GetForParticipant(ctx, ch.ID, student2)
	assert.ErrorIs(t, err, common.ErrForbidden, "cached participants still gate access")
}

func TestGetForParticipant_DeletedRequestEvictsCache(t *testing.T) {
	mc := newMemoryCache()
	env := newCachedTestEnv(t, ChatOptions{}, mc)
	ctx := context.Background()
	ch := openChannel(t, env, student, env.listing)

	_, err := env.channels.GetForParticipant(ctx, ch.ID, student)
	require.NoError(t, err)
	require.True(t, mc.has(ch.ID))

	require.NoError(t, env.requests.Delete(ctx, admin, ch.RequestID))
	assert.False(t, mc.has(ch.ID))

	for _, p := range []domain.Principal{student, company} {
		_, err = env.channels.GetForParticipant(ctx, ch.ID, p)
		assert.ErrorIs(t, err, common.ErrChannelNotFound)
	}
}

func TestListFor_OrderedByLastActivity(t *testing.T) {
	env := newTestEnv(t, ChatOptions{})
	ctx := context.Background()

	first := openChannel(t, env, student, env.listing)
	second := openChannel(t, env, student2, env.listing)

	listing2 := &domain.Listing{OwnerID: company.ID, Title: "cook", Status: domain.ListingOpen}
	require.NoError(t, env.db.Create(listing2).Error)
	third := openChannel(t, env, student, listing2)

	// make the oldest channel the most recently active one
	time.Sleep(2 * time.Millisecond)
	_, err := env.chat.Append(ctx, first.ID, student, "ping")
	require.NoError(t, err)

	got, err := env.channels.ListFor(ctx, company)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, first.ID, got[0].ID)
	assert.ElementsMatch(t, []uint64{second.ID, third.ID}, []uint64{got[1].ID, got[2].ID})

	mine, err := env.channels.ListFor(ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, first.ID, mine[0].ID)
	assert.Equal(t, third.ID, mine[1].ID)

	none, err := env.channels.ListFor(ctx, company2)
	require.NoError(t, err)
	assert.Empty(t, none)
}
