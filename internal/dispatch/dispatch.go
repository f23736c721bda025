// Package dispatch implements the delivery worker (spec.md §4.8),
// the structural twin of internal/scheduler: same
// Start/Stop/stopCh shape and periodic-tick structure, grounded on the
// teacher's pkg/reconciler.Reconciler (timer-wrapped critical section,
// per-entry defensive error handling that never aborts the tick).
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/events"
	"github.com/cyprienbrisset/ffemonitor/internal/log"
	"github.com/cyprienbrisset/ffemonitor/internal/metrics"
	"github.com/cyprienbrisset/ffemonitor/internal/notify"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
)

// Worker drains due queue entries every tick and fans them out to
// channel adapters. Delivery is at-most-once per channel per opening:
// the queue row is marked sent regardless of per-channel outcome.
type Worker struct {
	repo     repository.Repository
	push     notify.ChannelAdapter
	email    notify.ChannelAdapter
	broker   *events.Broker
	interval time.Duration
	limit    int
	logger   zerolog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
}

// New constructs a Worker. push and email may be nil, in which case
// that channel is skipped entirely — useful for a deployment that
// only wires one notification medium.
func New(repo repository.Repository, push, email notify.ChannelAdapter, broker *events.Broker, cfg config.Config) *Worker {
	interval := cfg.DispatchInterval
	if interval == 0 {
		interval = time.Second
	}
	limit := cfg.DispatchLimit
	if limit == 0 {
		limit = 100
	}
	return &Worker{
		repo:     repo,
		push:     push,
		email:    email,
		broker:   broker,
		interval: interval,
		limit:    limit,
		logger:   log.WithComponent("dispatch"),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the dispatch loop in a new goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Stop signals the dispatch loop to exit at its next suspension point.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.stopCh:
		// already stopped
	default:
		close(w.stopCh)
	}
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Msg("dispatch worker started")

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-w.stopCh:
			w.logger.Info().Msg("dispatch worker stopped")
			return
		}
	}
}

func (w *Worker) tick() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DispatchCycleDuration)

	ctx := context.Background()
	claimed, err := w.repo.ClaimDueQueueEntries(ctx, time.Now(), w.limit)
	if err != nil {
		w.logger.Error().Err(err).Msg("claim_due_queue_entries failed")
		return
	}

	for _, entry := range claimed {
		w.deliver(ctx, entry)
	}

	if depth, err := w.repo.QueueDepth(ctx); err == nil {
		metrics.QueueDepth.Set(float64(depth))
	}
}

// deliver runs both channel sends (best-effort, independently) and
// then always marks the queue row sent — the queue row is the
// dedup key, not a per-channel success flag (spec.md §4.8 step 2c).
func (w *Worker) deliver(ctx context.Context, entry domain.ClaimedQueueEntry) {
	logger := log.WithQueueEntryID(log.WithEventNumero(w.logger, entry.Entry.EventNumero), entry.Entry.ID)
	delaySeconds := 0
	if entry.Event.OpenedAt != nil {
		delaySeconds = int(entry.Entry.SendAt.Sub(*entry.Event.OpenedAt).Seconds())
	}

	if w.push != nil && entry.Profile.PushEnabled && entry.Profile.PushToken != "" {
		w.send(ctx, w.push, entry, delaySeconds, logger)
	}
	if w.email != nil && entry.Profile.EmailEnabled && entry.Profile.Email != "" {
		w.send(ctx, w.email, entry, delaySeconds, logger)
	}

	now := time.Now()
	if err := w.repo.MarkEntrySent(ctx, entry.Entry.ID, now); err != nil {
		logger.Error().Err(err).Msg("mark_entry_sent failed")
	}
}

func (w *Worker) send(ctx context.Context, adapter notify.ChannelAdapter, entry domain.ClaimedQueueEntry, delaySeconds int, logger zerolog.Logger) {
	channel := adapter.Channel()
	ok, detail, err := adapter.SendOpening(ctx, entry.Profile, entry.Event)
	if err != nil {
		logger.Error().Err(err).Str("channel", string(channel)).Msg("channel adapter send failed")
		metrics.NotificationsFailedTotal.WithLabelValues(string(channel), "error").Inc()
		return
	}
	if !ok {
		logger.Warn().Str("channel", string(channel)).Str("detail", detail).Msg("channel adapter declined delivery")
		metrics.NotificationsFailedTotal.WithLabelValues(string(channel), "declined").Inc()
		return
	}

	if err := w.repo.RecordNotification(ctx, domain.NotificationLog{
		UserID:       entry.Entry.UserID,
		EventNumero:  entry.Entry.EventNumero,
		Channel:      channel,
		Plan:         entry.Entry.Plan,
		DelaySeconds: delaySeconds,
		SentAt:       time.Now(),
	}); err != nil {
		logger.Error().Err(err).Msg("record_notification failed")
	}
	metrics.NotificationsSentTotal.WithLabelValues(string(channel), string(entry.Entry.Plan)).Inc()

	if w.broker != nil {
		w.broker.Publish(&events.Event{
			Type:        events.TypeDelivered,
			EventNumero: entry.Entry.EventNumero,
			Timestamp:   time.Now(),
		})
	}
}
