// Package engine wires the repository, scheduler, dispatch worker,
// event broker, and channel adapters into one value the command-line
// entrypoint and the admin API both depend on, replacing the package
// level globals the teacher's older cmd/warren wiring used to reach for.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/dispatch"
	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/events"
	"github.com/cyprienbrisset/ffemonitor/internal/healthcheck"
	"github.com/cyprienbrisset/ffemonitor/internal/log"
	"github.com/cyprienbrisset/ffemonitor/internal/notify"
	"github.com/cyprienbrisset/ffemonitor/internal/notify/email"
	"github.com/cyprienbrisset/ffemonitor/internal/notify/push"
	"github.com/cyprienbrisset/ffemonitor/internal/ratelimit"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
	"github.com/cyprienbrisset/ffemonitor/internal/scheduler"
	"github.com/cyprienbrisset/ffemonitor/internal/scraper"
)

// recentActivityCapacity bounds the in-memory ring buffer the admin
// "recent activity" endpoint reads from.
const recentActivityCapacity = 200

// activityFeed subscribes to the broker and retains the most recent
// events for the admin API, so that surface has no direct dependency on
// the scheduler or dispatcher.
type activityFeed struct {
	mu     sync.Mutex
	recent []events.Event
}

func newActivityFeed(broker *events.Broker) *activityFeed {
	feed := &activityFeed{}
	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			feed.record(*ev)
		}
	}()
	return feed
}

func (f *activityFeed) record(ev events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recent = append(f.recent, ev)
	if len(f.recent) > recentActivityCapacity {
		f.recent = f.recent[len(f.recent)-recentActivityCapacity:]
	}
}

// Recent returns the retained events, oldest first.
func (f *activityFeed) Recent() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]events.Event, len(f.recent))
	copy(out, f.recent)
	return out
}

// Engine owns every long-lived component and is the single object the
// process wires up at startup. Its exported methods are what the admin
// API calls — it never reaches into the scheduler or dispatcher
// directly.
type Engine struct {
	Repo   repository.Repository
	Broker *events.Broker

	push  notify.ChannelAdapter
	email notify.ChannelAdapter

	scheduler *scheduler.Scheduler
	dispatch  *dispatch.Worker
	health    *healthcheck.Aggregate
	activity  *activityFeed

	cfg config.Config
}

// New assembles an Engine from cfg and an already-opened repository.
// The caller owns repo's lifecycle (Init/Close); New does not call
// either.
func New(cfg config.Config, repo repository.Repository) *Engine {
	broker := events.NewBroker()

	pushAdapter := push.New(push.Config{AppID: cfg.PushAppID, APIKey: cfg.PushAPIKey})
	emailAdapter := email.New(email.Config{APIKey: cfg.EmailAPIKey, FromAddress: cfg.EmailFromAddress})

	limiter := ratelimit.New(ratelimit.Config{
		MinInterval:          cfg.RateLimitInterval,
		MaxRequestsPerMinute: cfg.RateLimitRPM,
	})
	fetcher := scraper.New(config.DefaultScrapeTimeout)

	sched := scheduler.New(repo, fetcher, limiter, broker, cfg)
	worker := dispatch.New(repo, pushAdapter, emailAdapter, broker, cfg)
	health := healthcheck.New(healthcheck.NewRepositoryChecker(repo))
	activity := newActivityFeed(broker)

	return &Engine{
		Repo:      repo,
		Broker:    broker,
		push:      pushAdapter,
		email:     emailAdapter,
		scheduler: sched,
		dispatch:  worker,
		health:    health,
		activity:  activity,
		cfg:       cfg,
	}
}

// Start launches the broker, scheduler, and dispatch worker goroutines.
func (e *Engine) Start() {
	e.Broker.Start()
	e.scheduler.Start()
	e.dispatch.Start()
	log.WithComponent("engine").Info().Msg("engine started")
}

// Stop signals the scheduler, dispatch worker and broker goroutines to
// exit; the activity feed's reader goroutine stays blocked on its broker
// subscription. It does not close the repository — the caller does that
// once Stop returns.
func (e *Engine) Stop() {
	e.scheduler.Stop()
	e.dispatch.Stop()
	e.Broker.Stop()
}

// Healthcheck runs every registered readiness check.
func (e *Engine) Healthcheck(ctx context.Context) (bool, []healthcheck.Result) {
	return e.health.Run(ctx)
}

// Subscribe registers userID's interest in numero's opening. When the
// event is not yet tracked it first creates the event record with its
// public URL, so the scheduler polls it from its next tick; it does not
// scrape the event page itself.
func (e *Engine) Subscribe(ctx context.Context, userID string, numero int) error {
	if userID == "" {
		return fmt.Errorf("engine: user id is required")
	}
	if _, ok, err := e.Repo.GetEvent(ctx, numero); err != nil {
		return err
	} else if !ok {
		url := e.cfg.EventURL(numero)
		if _, err := e.Repo.UpsertEvent(ctx, numero, domain.EventPatch{URL: &url}); err != nil {
			return err
		}
	}
	return e.Repo.Subscribe(ctx, userID, numero)
}

// Unsubscribe removes userID's interest in numero, reporting whether a
// row actually existed.
func (e *Engine) Unsubscribe(ctx context.Context, userID string, numero int) (bool, error) {
	return e.Repo.Unsubscribe(ctx, userID, numero)
}

// TestPush sends a synthetic push notification to userID's profile, for
// admin-triggered channel verification.
func (e *Engine) TestPush(ctx context.Context, userID string) (bool, string, error) {
	profile, ok, err := e.Repo.GetUserProfile(ctx, userID)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "", fmt.Errorf("engine: unknown user %q", userID)
	}
	return e.push.SendTest(ctx, profile)
}

// TestEmail sends a synthetic email notification to userID's profile.
func (e *Engine) TestEmail(ctx context.Context, userID string) (bool, string, error) {
	profile, ok, err := e.Repo.GetUserProfile(ctx, userID)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "", fmt.Errorf("engine: unknown user %q", userID)
	}
	return e.email.SendTest(ctx, profile)
}

// Event loads one tracked event by its external numero.
func (e *Engine) Event(ctx context.Context, numero int) (domain.Event, bool, error) {
	return e.Repo.GetEvent(ctx, numero)
}

// QueueDepth reports the number of not-yet-sent queue entries, for the
// admin status endpoint.
func (e *Engine) QueueDepth(ctx context.Context) (int, error) {
	return e.Repo.QueueDepth(ctx)
}

// RecentActivity returns the most recently published broker events,
// oldest first, for the admin "recent activity" endpoint.
func (e *Engine) RecentActivity() []events.Event {
	return e.activity.Recent()
}
