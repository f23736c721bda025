package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/repository/memstore"
)

func testConfig() config.Config {
	return config.Config{
		BaseURL:           "https://ffe.example",
		EventURLTemplate:  "{BASE}/concours/{numero}",
		CheckInterval:     time.Hour,
		DelayFree:         600 * time.Second,
		DelayPremium:      60 * time.Second,
		DelayPro:          10 * time.Second,
		DispatchInterval:  time.Hour,
		DispatchLimit:     100,
		RateLimitInterval: 0,
		RateLimitRPM:      0,
	}
}

func TestSubscribeRejectsEmptyUserID(t *testing.T) {
	e := New(testConfig(), memstore.New())
	err := e.Subscribe(context.Background(), "", 1)
	assert.Error(t, err)
}

func TestSubscribeAndUnsubscribeRoundTrip(t *testing.T) {
	store := memstore.New()
	e := New(testConfig(), store)
	ctx := context.Background()

	require.NoError(t, e.Subscribe(ctx, "user-1", 42))
	removed, err := e.Unsubscribe(ctx, "user-1", 42)
	require.NoError(t, err)
	assert.True(t, removed)

	removedAgain, err := e.Unsubscribe(ctx, "user-1", 42)
	require.NoError(t, err)
	assert.False(t, removedAgain)
}

func TestTestPushFailsForUnknownUser(t *testing.T) {
	e := New(testConfig(), memstore.New())
	ok, _, err := e.TestPush(context.Background(), "ghost")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestHealthcheckReportsHealthyOverMemstore(t *testing.T) {
	e := New(testConfig(), memstore.New())
	healthy, results := e.Healthcheck(context.Background())
	assert.True(t, healthy)
	assert.Len(t, results, 1)
}

func TestStartStopDoesNotBlock(t *testing.T) {
	e := New(testConfig(), memstore.New())
	e.Start()
	e.Stop()
}

func TestQueueDepthStartsAtZero(t *testing.T) {
	e := New(testConfig(), memstore.New())
	depth, err := e.QueueDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}
