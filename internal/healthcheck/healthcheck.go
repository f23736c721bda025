// Package healthcheck adapts the teacher's pkg/health Checker/Result
// shape to the engine's own dependencies; the one Checker provided here
// probes the datastore. The admin API's /ready route aggregates every
// registered Checker into one readiness verdict.
package healthcheck

import (
	"context"
	"time"

	"github.com/cyprienbrisset/ffemonitor/internal/repository"
)

// Result is the outcome of one check, identical in shape to the
// teacher's health.Result.
type Result struct {
	Name      string
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker performs one readiness check against a single dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// RepositoryChecker verifies the configured datastore is reachable.
type RepositoryChecker struct {
	repo repository.Repository
}

// NewRepositoryChecker wraps repo as a Checker.
func NewRepositoryChecker(repo repository.Repository) *RepositoryChecker {
	return &RepositoryChecker{repo: repo}
}

func (c *RepositoryChecker) Name() string { return "repository" }

func (c *RepositoryChecker) Check(ctx context.Context) Result {
	start := time.Now()
	result := Result{Name: c.Name(), CheckedAt: start}

	if err := c.repo.Ping(ctx); err != nil {
		result.Healthy = false
		result.Message = err.Error()
	} else {
		result.Healthy = true
		result.Message = "ok"
	}
	result.Duration = time.Since(start)
	return result
}

// Aggregate runs every checker and reports overall health: healthy only
// if every individual check is healthy.
type Aggregate struct {
	checkers []Checker
}

// New constructs an Aggregate over the given checkers.
func New(checkers ...Checker) *Aggregate {
	return &Aggregate{checkers: checkers}
}

// Run executes every registered checker and returns their results along
// with the overall verdict.
func (a *Aggregate) Run(ctx context.Context) (bool, []Result) {
	results := make([]Result, 0, len(a.checkers))
	healthy := true
	for _, c := range a.checkers {
		r := c.Check(ctx)
		if !r.Healthy {
			healthy = false
		}
		results = append(results, r)
	}
	return healthy, results
}
