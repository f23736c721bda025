package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/repository/memstore"
)

func baseConfig() config.Config {
	return config.Config{
		DelayFree:    600 * time.Second,
		DelayPremium: 60 * time.Second,
		DelayPro:     10 * time.Second,
	}
}

func TestPlanEnqueuesOnePerSubscriberWithPlanDelay(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	store.PutProfile(domain.UserProfile{ID: "user-free", Plan: domain.PlanFree})
	store.PutProfile(domain.UserProfile{ID: "user-pro", Plan: domain.PlanPro})

	require.NoError(t, store.Subscribe(ctx, "user-free", 1))
	require.NoError(t, store.Subscribe(ctx, "user-pro", 1))

	opened := domain.OpeningEvent{EventNumero: 1, OpenedAt: time.Now(), Status: domain.StatusEngagement}
	count, err := Plan(ctx, store, baseConfig(), opened)

	require.NoError(t, err)
	assert.Equal(t, 2, count)

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

func TestPlanMarksSubscriptionsNotified(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	store.PutProfile(domain.UserProfile{ID: "user-1", Plan: domain.PlanFree})
	require.NoError(t, store.Subscribe(ctx, "user-1", 5))

	opened := domain.OpeningEvent{EventNumero: 5, OpenedAt: time.Now()}
	_, err := Plan(ctx, store, baseConfig(), opened)
	require.NoError(t, err)

	subs, err := store.ListSubscribersUnnotified(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, subs, "a notified subscriber must not be re-planned on the next call")
}

func TestPlanUsesCorrectDelayPerPlan(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	store.PutProfile(domain.UserProfile{ID: "user-pro", Plan: domain.PlanPro})
	require.NoError(t, store.Subscribe(ctx, "user-pro", 9))

	opened := domain.OpeningEvent{EventNumero: 9, OpenedAt: time.Now()}
	_, err := Plan(ctx, store, baseConfig(), opened)
	require.NoError(t, err)

	claimed, err := store.ClaimDueQueueEntries(ctx, opened.OpenedAt.Add(11*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.WithinDuration(t, opened.OpenedAt.Add(10*time.Second), claimed[0].Entry.SendAt, time.Millisecond)
}
