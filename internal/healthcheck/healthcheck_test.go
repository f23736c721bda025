package healthcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyprienbrisset/ffemonitor/internal/repository/memstore"
)

type failingChecker struct{ msg string }

func (f *failingChecker) Name() string { return "fake" }
func (f *failingChecker) Check(ctx context.Context) Result {
	return Result{Name: f.Name(), Healthy: false, Message: f.msg}
}

func TestRepositoryCheckerReportsHealthyOnPing(t *testing.T) {
	store := memstore.New()
	c := NewRepositoryChecker(store)
	r := c.Check(context.Background())
	assert.True(t, r.Healthy)
	assert.Equal(t, "repository", r.Name)
}

func TestAggregateIsUnhealthyIfAnyCheckerFails(t *testing.T) {
	store := memstore.New()
	agg := New(NewRepositoryChecker(store), &failingChecker{msg: "boom"})
	healthy, results := agg.Run(context.Background())
	assert.False(t, healthy)
	assert.Len(t, results, 2)
}

func TestAggregateIsHealthyWhenAllPass(t *testing.T) {
	store := memstore.New()
	agg := New(NewRepositoryChecker(store))
	healthy, _ := agg.Run(context.Background())
	assert.True(t, healthy)
}
