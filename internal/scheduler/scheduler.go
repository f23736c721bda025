// Package scheduler implements the polling loop (spec.md §4.6),
// grounded line-for-line on the teacher's pkg/scheduler.Scheduler: a
// ticker-driven run() goroutine, a Start/Stop pair, per-cycle errors
// logged and never fatal.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/detector"
	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/events"
	"github.com/cyprienbrisset/ffemonitor/internal/log"
	"github.com/cyprienbrisset/ffemonitor/internal/metrics"
	"github.com/cyprienbrisset/ffemonitor/internal/planner"
	"github.com/cyprienbrisset/ffemonitor/internal/ratelimit"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
)

// Fetcher is the capability the scheduler needs from the scraper: one
// event page in, one snapshot out, no error (failures already
// collapse to an empty snapshot per spec.md §4.2 invariant 4).
type Fetcher interface {
	Fetch(ctx context.Context, url string) domain.Snapshot
}

// Scheduler walks every closed event at a fixed cadence, driving the
// scraper, the transition detector, and — on an Opened transition —
// the queue planner.
type Scheduler struct {
	repo    repository.Repository
	fetcher Fetcher
	limiter *ratelimit.Limiter
	broker  *events.Broker
	cfg     config.Config
	logger  zerolog.Logger

	mu                sync.Mutex
	stopCh            chan struct{}
	consecutiveErrors int
}

// New constructs a Scheduler. broker may be nil; it is purely for
// observability fan-out and never sits on the critical path.
func New(repo repository.Repository, fetcher Fetcher, limiter *ratelimit.Limiter, broker *events.Broker, cfg config.Config) *Scheduler {
	return &Scheduler{
		repo:    repo,
		fetcher: fetcher,
		limiter: limiter,
		broker:  broker,
		cfg:     cfg,
		logger:  log.WithComponent("scheduler"),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the polling loop in a new goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop signals the polling loop to exit at its next suspension point.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runTick()
		case <-s.stopCh:
			return
		}
	}
}

// runTick executes one poll of every candidate event, then applies the
// consecutive-failure backoff spec.md §4.6 mandates: three straight
// tick-level failures triggers a 60s cooldown and resets the counter.
func (s *Scheduler) runTick() {
	ctx := context.Background()
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulerCycleDuration)

	if err := s.tick(ctx); err != nil {
		s.logger.Error().Err(err).Msg("poll tick failed")

		s.mu.Lock()
		s.consecutiveErrors++
		backoff := s.consecutiveErrors >= 3
		if backoff {
			s.consecutiveErrors = 0
		}
		s.mu.Unlock()

		if backoff {
			s.logger.Warn().Msg("three consecutive tick failures, backing off for 60s")
			select {
			case <-time.After(60 * time.Second):
			case <-s.stopCh:
			}
		}
		return
	}

	s.mu.Lock()
	s.consecutiveErrors = 0
	s.mu.Unlock()
}

func (s *Scheduler) tick(ctx context.Context) error {
	candidates, err := s.candidateEvents(ctx)
	if err != nil {
		return err
	}

	for _, ev := range candidates {
		select {
		case <-s.stopCh:
			return nil
		default:
		}

		s.pollEvent(ctx, ev)

		select {
		case <-time.After(time.Second):
		case <-s.stopCh:
			return nil
		}
	}
	return nil
}

// candidateEvents loads every event that is not currently open for
// enrollment; already-open events are not re-polled by the default
// loop, mirroring the teacher's filterSchedulableNodes filter shape.
func (s *Scheduler) candidateEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEventsWhereClosed(ctx)
}

func (s *Scheduler) pollEvent(ctx context.Context, ev domain.Event) {
	logger := log.WithEventNumero(s.logger, ev.Numero)

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn().Err(err).Msg("rate limiter acquire aborted")
		return
	}

	timer := metrics.NewTimer()
	url := ev.URL
	if url == "" {
		url = s.cfg.EventURL(ev.Numero)
	}
	snap := s.fetcher.Fetch(ctx, url)
	timer.ObserveDuration(metrics.ScrapeDuration)
	elapsedMS := timer.Duration().Milliseconds()

	success := !snap.Empty()
	statusBefore := ev.Status

	if err := s.repo.RecordCheck(ctx, domain.CheckRecord{
		EventNumero:    ev.Numero,
		CheckedAt:      time.Now(),
		StatusBefore:   statusBefore,
		StatusAfter:    snap.Status,
		ResponseTimeMS: elapsedMS,
		Success:        success,
	}); err != nil {
		logger.Error().Err(err).Msg("record_check failed")
	}
	metrics.ChecksTotal.WithLabelValues(boolLabel(success)).Inc()

	if !success {
		return
	}

	patch := snapshotPatch(snap)
	if _, err := s.repo.UpsertEvent(ctx, ev.Numero, patch); err != nil {
		logger.Error().Err(err).Msg("upsert_event failed")
		return
	}

	transition := detector.Classify(statusBefore, snap)
	switch transition {
	case detector.Opened:
		s.handleOpened(ctx, ev.Numero, snap)
	case detector.StatusChanged:
		if err := s.repo.SetEventStatus(ctx, ev.Numero, snap.Status, snap.IsOpen, nil); err != nil {
			logger.Error().Err(err).Msg("set_event_status failed")
			return
		}
		if !snap.IsOpen {
			if err := s.repo.ResetNotified(ctx, ev.Numero); err != nil {
				logger.Error().Err(err).Msg("reset_notified failed")
			}
		}
	}
}

func (s *Scheduler) handleOpened(ctx context.Context, numero int, snap domain.Snapshot) {
	logger := log.WithEventNumero(s.logger, numero)
	now := time.Now()

	if err := s.repo.SetEventStatus(ctx, numero, snap.Status, true, &now); err != nil {
		logger.Error().Err(err).Msg("set_event_status(opened) failed")
		return
	}

	count, err := planner.Plan(ctx, s.repo, s.cfg, domain.OpeningEvent{
		EventNumero: numero,
		OpenedAt:    now,
		Status:      snap.Status,
	})
	if err != nil {
		logger.Error().Err(err).Msg("queue planner failed")
	} else {
		logger.Info().Int("enqueued", count).Msg("event opened, notifications queued")
	}

	if err := s.repo.RecordOpening(ctx, domain.OpeningEvent{
		EventNumero: numero,
		OpenedAt:    now,
		Status:      snap.Status,
	}); err != nil {
		logger.Error().Err(err).Msg("record_opening failed")
	}

	metrics.OpeningsTotal.Inc()
	if s.broker != nil {
		s.broker.Publish(&events.Event{Type: events.TypeOpened, EventNumero: numero, Timestamp: now})
	}
}

func snapshotPatch(snap domain.Snapshot) domain.EventPatch {
	patch := domain.EventPatch{}
	if snap.Name != "" {
		patch.Name = &snap.Name
	}
	if snap.Venue != "" {
		patch.Venue = &snap.Venue
	}
	if snap.StartDate != "" {
		patch.StartDate = &snap.StartDate
	}
	if snap.EndDate != "" {
		patch.EndDate = &snap.EndDate
	}
	if snap.Discipline != "" {
		patch.Discipline = &snap.Discipline
	}
	if snap.OrganizerName != "" {
		patch.OrganizerName = &snap.OrganizerName
	}
	if snap.ContactEmail != "" {
		patch.ContactEmail = &snap.ContactEmail
	}
	if snap.EntryFeeCents != 0 {
		patch.EntryFeeCents = &snap.EntryFeeCents
	}
	if snap.MaxParticipants != 0 {
		patch.MaxParticipants = &snap.MaxParticipants
	}
	return patch
}

func boolLabel(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}
