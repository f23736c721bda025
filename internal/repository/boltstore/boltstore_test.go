package boltstore

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

func TestUpsertAndGetEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev, err := s.UpsertEvent(ctx, 1, domain.EventPatch{Name: strPtr("Concours de Printemps")})
	require.NoError(t, err)
	assert.Equal(t, "Concours de Printemps", ev.Name)

	got, ok, err := s.GetEvent(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Concours de Printemps", got.Name)
}

func TestSetEventStatusPersists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertEvent(ctx, 2, domain.EventPatch{})
	require.NoError(t, err)

	opened := time.Now()
	require.NoError(t, s.SetEventStatus(ctx, 2, domain.StatusEngagement, true, &opened))

	got, _, err := s.GetEvent(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got.IsOpen)
	assert.Equal(t, domain.StatusEngagement, got.Status)
}

func TestSubscribeUnsubscribeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Subscribe(ctx, "user-1", 10))
	subs, err := s.ListSubscribersUnnotified(ctx, 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	removed, err := s.Unsubscribe(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.True(t, removed)

	subs, err = s.ListSubscribersUnnotified(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestClaimDueQueueEntriesIsAtomicAcrossCalls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := s.Enqueue(ctx, "user-1", 5, domain.PlanPro, now.Add(-time.Minute))
	require.NoError(t, err)

	first, err := s.ClaimDueQueueEntries(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.ClaimDueQueueEntries(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, second, "a claimed entry must never be claimed twice")
}

func TestQueueDepthReflectsSentEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	id, err := s.Enqueue(ctx, "user-1", 5, domain.PlanFree, now)
	require.NoError(t, err)
	depth, err := s.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	require.NoError(t, s.MarkEntrySent(ctx, id, now))
	depth, err = s.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestRecordCheckAppendsWithoutError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordCheck(ctx, domain.CheckRecord{
		EventNumero: 1,
		CheckedAt:   time.Now(),
		Success:     true,
	}))
}
