// Package repository defines the capability interface every durable
// store (SQL, key-value, in-memory) implements, grounded on the
// teacher's pkg/storage.Store interface: one method per entity
// operation, plain concrete domain types in, plain concrete domain
// types and a single error out. The repository is the only shared
// mutable resource in the engine (spec.md §5); every other component
// mutates state only through these calls.
package repository

import (
	"context"
	"time"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
)

// Repository is the durable persistence boundary for events,
// subscriptions, the delayed-notification queue, and the audit log.
// Implementations must make every method atomic with respect to
// concurrent callers (spec.md §4.1).
type Repository interface {
	// Init creates the schema on first run and performs idempotent
	// migrations (e.g. adding columns the stored schema lacks).
	Init(ctx context.Context) error
	// Close releases any held resources (connections, file handles).
	Close() error
	// Ping verifies the store is reachable, for the admin healthcheck.
	Ping(ctx context.Context) error

	// UpsertEvent inserts or updates an event; only non-nil fields in
	// patch overwrite existing values. Returns the post-image.
	UpsertEvent(ctx context.Context, numero int, patch domain.EventPatch) (domain.Event, error)
	GetEvent(ctx context.Context, numero int) (domain.Event, bool, error)
	ListEventsWhereClosed(ctx context.Context) ([]domain.Event, error)
	ListEventsInDateRange(ctx context.Context, start, end time.Time) ([]domain.Event, error)
	// SetEventStatus is a single-row write; openedAt is non-nil only on
	// the closed->open transition and is never cleared once set.
	SetEventStatus(ctx context.Context, numero int, status domain.Status, isOpen bool, openedAt *time.Time) error

	// Subscribe is idempotent: a duplicate (user, numero) pair is a
	// no-op success, not an error.
	Subscribe(ctx context.Context, userID string, numero int) error
	// Unsubscribe reports whether a row was actually removed.
	Unsubscribe(ctx context.Context, userID string, numero int) (bool, error)
	// ListSubscribersUnnotified returns the joined subscription+profile
	// view the queue planner consumes, filtered to notified=false.
	ListSubscribersUnnotified(ctx context.Context, numero int) ([]SubscriberProfile, error)
	// ResetNotified clears notified=false for every subscription on an
	// event, called when the event transitions back to closed so the
	// next opening can re-notify the same subscribers.
	ResetNotified(ctx context.Context, numero int) error
	// MarkNotified flips notified=true for one subscription after it
	// has been enqueued.
	MarkNotified(ctx context.Context, userID string, numero int, at time.Time) error

	GetUserProfile(ctx context.Context, userID string) (domain.UserProfile, bool, error)

	// Enqueue inserts a queue row. Returns the created entry's ID.
	Enqueue(ctx context.Context, userID string, numero int, plan domain.Plan, sendAt time.Time) (string, error)
	// ClaimDueQueueEntries atomically selects and marks up to limit
	// rows with sent=false and send_at<=now, preventing two callers
	// from claiming (and therefore delivering) the same row.
	ClaimDueQueueEntries(ctx context.Context, now time.Time, limit int) ([]domain.ClaimedQueueEntry, error)
	// MarkEntrySent is a terminal, one-time update.
	MarkEntrySent(ctx context.Context, id string, sentAt time.Time) error
	// QueueDepth returns the count of entries with sent=false, for the
	// queue_depth gauge.
	QueueDepth(ctx context.Context) (int, error)

	RecordCheck(ctx context.Context, rec domain.CheckRecord) error
	RecordOpening(ctx context.Context, rec domain.OpeningEvent) error
	RecordNotification(ctx context.Context, rec domain.NotificationLog) error
}

// SubscriberProfile is the joined view ListSubscribersUnnotified
// returns: a subscription row plus its owning user's profile.
type SubscriberProfile struct {
	Subscription domain.Subscription
	Profile      domain.UserProfile
}
