package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
)

func ptr(s string) *string { return &s }

func TestUpsertEventCreatesThenPatches(t *testing.T) {
	s := New()
	ctx := context.Background()

	ev, err := s.UpsertEvent(ctx, 123, domain.EventPatch{Name: ptr("Concours A")})
	require.NoError(t, err)
	assert.Equal(t, "Concours A", ev.Name)
	assert.Equal(t, domain.StatusPrevisional, ev.Status)

	ev, err = s.UpsertEvent(ctx, 123, domain.EventPatch{Venue: ptr("Fontainebleau")})
	require.NoError(t, err)
	assert.Equal(t, "Concours A", ev.Name, "unrelated fields must survive a partial patch")
	assert.Equal(t, "Fontainebleau", ev.Venue)
}

func TestSetEventStatusOpensOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.UpsertEvent(ctx, 1, domain.EventPatch{})
	require.NoError(t, err)

	opened := time.Now()
	require.NoError(t, s.SetEventStatus(ctx, 1, domain.StatusEngagement, true, &opened))

	ev, ok, err := s.GetEvent(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ev.IsOpen)
	assert.NotNil(t, ev.OpenedAt)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Subscribe(ctx, "user-1", 42))
	require.NoError(t, s.Subscribe(ctx, "user-1", 42))

	subs, err := s.ListSubscribersUnnotified(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestUnsubscribeReportsWhetherRemoved(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Subscribe(ctx, "user-1", 42))

	removed, err := s.Unsubscribe(ctx, "user-1", 42)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Unsubscribe(ctx, "user-1", 42)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListSubscribersUnnotifiedExcludesNotified(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Subscribe(ctx, "user-1", 42))
	require.NoError(t, s.Subscribe(ctx, "user-2", 42))
	require.NoError(t, s.MarkNotified(ctx, "user-1", 42, time.Now()))

	subs, err := s.ListSubscribersUnnotified(ctx, 42)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "user-2", subs[0].Subscription.UserID)
}

func TestResetNotifiedAllowsRenotification(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Subscribe(ctx, "user-1", 42))
	require.NoError(t, s.MarkNotified(ctx, "user-1", 42, time.Now()))
	require.NoError(t, s.ResetNotified(ctx, 42))

	subs, err := s.ListSubscribersUnnotified(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestClaimDueQueueEntriesOnlyClaimsDueUnsent(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	due, err := s.Enqueue(ctx, "user-1", 42, domain.PlanPro, now.Add(-time.Second))
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, "user-2", 42, domain.PlanFree, now.Add(time.Hour))
	require.NoError(t, err)

	claimed, err := s.ClaimDueQueueEntries(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due, claimed[0].Entry.ID)

	// A second claim must not re-surface the same entry.
	claimedAgain, err := s.ClaimDueQueueEntries(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, claimedAgain)
}

func TestClaimDueQueueEntriesRespectsLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := s.Enqueue(ctx, "user-1", i, domain.PlanFree, now.Add(-time.Second))
		require.NoError(t, err)
	}

	claimed, err := s.ClaimDueQueueEntries(ctx, now, 2)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
}

func TestQueueDepthCountsUnsentOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	id, err := s.Enqueue(ctx, "user-1", 1, domain.PlanFree, now)
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, "user-2", 1, domain.PlanFree, now)
	require.NoError(t, err)

	require.NoError(t, s.MarkEntrySent(ctx, id, now))

	depth, err := s.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestListEventsInDateRangeFiltersByStartDate(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.UpsertEvent(ctx, 1, domain.EventPatch{StartDate: ptr("2026-08-01")})
	require.NoError(t, err)
	_, err = s.UpsertEvent(ctx, 2, domain.EventPatch{StartDate: ptr("2026-09-15")})
	require.NoError(t, err)

	start, _ := time.Parse("2006-01-02", "2026-08-01")
	end, _ := time.Parse("2006-01-02", "2026-08-31")

	out, err := s.ListEventsInDateRange(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Numero)
}
