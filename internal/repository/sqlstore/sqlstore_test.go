package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestUpsertEventCreatesThenPatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev, err := s.UpsertEvent(ctx, 100, domain.EventPatch{Name: strPtr("Concours A")})
	require.NoError(t, err)
	assert.Equal(t, "Concours A", ev.Name)

	ev, err = s.UpsertEvent(ctx, 100, domain.EventPatch{Venue: strPtr("Chantilly")})
	require.NoError(t, err)
	assert.Equal(t, "Concours A", ev.Name)
	assert.Equal(t, "Chantilly", ev.Venue)
}

func TestSetEventStatusOpensEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertEvent(ctx, 1, domain.EventPatch{})
	require.NoError(t, err)

	opened := time.Now().Truncate(time.Second)
	require.NoError(t, s.SetEventStatus(ctx, 1, domain.StatusDemande, true, &opened))

	got, ok, err := s.GetEvent(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.IsOpen)
	assert.Equal(t, domain.StatusDemande, got.Status)
}

func TestSetEventStatusMissingEventErrors(t *testing.T) {
	s := openTestStore(t)
	err := s.SetEventStatus(context.Background(), 999, domain.StatusDemande, true, nil)
	assert.Error(t, err)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Subscribe(ctx, "user-1", 7))
	require.NoError(t, s.Subscribe(ctx, "user-1", 7))

	subs, err := s.ListSubscribersUnnotified(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestClaimDueQueueEntriesDoesNotDoubleClaim(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := s.Enqueue(ctx, "user-1", 3, domain.PlanPro, now.Add(-time.Second))
	require.NoError(t, err)

	first, err := s.ClaimDueQueueEntries(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.ClaimDueQueueEntries(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestClaimDueQueueEntriesRespectsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := s.Enqueue(ctx, "user-1", i, domain.PlanFree, now.Add(-time.Second))
		require.NoError(t, err)
	}

	claimed, err := s.ClaimDueQueueEntries(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, claimed, 3)
}

func TestQueueDepthCountsUnsent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	id, err := s.Enqueue(ctx, "user-1", 1, domain.PlanFree, now)
	require.NoError(t, err)

	depth, err := s.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	require.NoError(t, s.MarkEntrySent(ctx, id, now))
	depth, err = s.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}
