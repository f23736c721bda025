package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/ratelimit"
	"github.com/cyprienbrisset/ffemonitor/internal/repository/memstore"
)

// sequenceFetcher returns one fixed snapshot per call, in order, then
// repeats its last snapshot for any call beyond the sequence.
type sequenceFetcher struct {
	snapshots []domain.Snapshot
	calls     int
}

func (f *sequenceFetcher) Fetch(ctx context.Context, url string) domain.Snapshot {
	i := f.calls
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	f.calls++
	return f.snapshots[i]
}

func testScheduler(fetcher Fetcher, store *memstore.Store) *Scheduler {
	cfg := config.Config{
		DelayFree:    0,
		DelayPremium: 0,
		DelayPro:     0,
	}
	limiter := ratelimit.New(ratelimit.Config{})
	return New(store, fetcher, limiter, nil, cfg)
}

// TestReopenSequenceProducesTwoFanOutRounds exercises a
// closed -> open -> closed -> open sequence: each Opened transition
// must independently enqueue the still-subscribed user, which requires
// the StatusChanged branch to clear notified when the event leaves the
// open set in between.
func TestReopenSequenceProducesTwoFanOutRounds(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	const numero = 7

	_, err := store.UpsertEvent(ctx, numero, domain.EventPatch{})
	require.NoError(t, err)
	require.NoError(t, store.Subscribe(ctx, "user-1", numero))
	store.PutProfile(domain.UserProfile{ID: "user-1", Plan: domain.PlanFree})

	fetcher := &sequenceFetcher{snapshots: []domain.Snapshot{
		{Name: "Open Meet", Status: domain.StatusEngagement, IsOpen: true},  // closed -> open
		{Name: "Open Meet", Status: domain.StatusCloture, IsOpen: false},    // open -> closed
		{Name: "Open Meet", Status: domain.StatusEngagement, IsOpen: true}, // closed -> open again
	}}
	sched := testScheduler(fetcher, store)

	for i := 0; i < 3; i++ {
		ev, ok, err := store.GetEvent(ctx, numero)
		require.True(t, ok)
		require.NoError(t, err)
		sched.pollEvent(ctx, ev)
	}

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth, "expected one queue entry per Opened transition")
}

// TestStatusChangeToClosedResetsNotified isolates the fix itself: a
// StatusChanged transition that leaves the event closed must clear
// notified so a later Opened transition can fan out again.
func TestStatusChangeToClosedResetsNotified(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	const numero = 11

	_, err := store.UpsertEvent(ctx, numero, domain.EventPatch{})
	require.NoError(t, err)
	require.NoError(t, store.Subscribe(ctx, "user-1", numero))
	require.NoError(t, store.MarkNotified(ctx, "user-1", numero, time.Now()))

	subs, err := store.ListSubscribersUnnotified(ctx, numero)
	require.NoError(t, err)
	require.Empty(t, subs, "precondition: subscriber starts out notified")

	fetcher := &sequenceFetcher{snapshots: []domain.Snapshot{
		{Name: "Closed Meet", Status: domain.StatusCloture, IsOpen: false},
	}}
	sched := testScheduler(fetcher, store)

	ev, ok, err := store.GetEvent(ctx, numero)
	require.True(t, ok)
	require.NoError(t, err)
	ev.Status = domain.StatusEngagement // statusBefore differs so Classify sees a change
	store.PutProfile(domain.UserProfile{ID: "user-1", Plan: domain.PlanFree})

	sched.pollEvent(ctx, ev)

	subs, err = store.ListSubscribersUnnotified(ctx, numero)
	require.NoError(t, err)
	assert.Len(t, subs, 1, "notified must be cleared once the event is observed closed again")
}
