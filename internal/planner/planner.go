// Package planner turns one Opened transition into per-subscriber
// delayed queue entries (spec.md §4.7). It is a small, dependency-light
// function package — its job is three repository calls and arithmetic
// on time.Duration — grounded on the teacher's small leaf helpers for
// register and naming style rather than on any one large file.
package planner

import (
	"context"

	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/metrics"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
)

// Plan loads every not-yet-notified subscriber of opened.EventNumero,
// computes each subscriber's send_at from their plan's delay, enqueues
// a queue entry, and marks the subscription notified so a repeated
// poll of the same opening never double-enqueues (spec.md §4.7's
// invariant). It returns the number of entries enqueued.
func Plan(ctx context.Context, repo repository.Repository, cfg config.Config, opened domain.OpeningEvent) (int, error) {
	subscribers, err := repo.ListSubscribersUnnotified(ctx, opened.EventNumero)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, sub := range subscribers {
		delay := cfg.PlanDelay(string(sub.Profile.Plan))
		sendAt := opened.OpenedAt.Add(delay)

		if _, err := repo.Enqueue(ctx, sub.Subscription.UserID, opened.EventNumero, sub.Profile.Plan, sendAt); err != nil {
			return enqueued, err
		}
		if err := repo.MarkNotified(ctx, sub.Subscription.UserID, opened.EventNumero, opened.OpenedAt); err != nil {
			return enqueued, err
		}

		metrics.QueueEnqueuedTotal.WithLabelValues(string(sub.Profile.Plan)).Inc()
		enqueued++
	}
	return enqueued, nil
}
