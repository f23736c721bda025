// Package domain defines the explicit record types shared by every
// component of the surveillance and dispatch engine. Nothing here
// carries behavior beyond small, obviously-correct helpers — state
// transitions live in the packages that own them (detector, planner,
// dispatch).
package domain

import "time"

// Status is the closed enumeration of event lifecycle states. The
// repository implementations store whatever Status they are given;
// none of them rejects a value outside this enumeration.
type Status string

const (
	StatusPrevisional Status = "previsional"
	StatusEngagement  Status = "engagement"
	StatusDemande     Status = "demande"
	StatusCloture     Status = "cloture"
	StatusInProgress  Status = "in_progress"
	StatusFinished    Status = "finished"
	StatusCancelled   Status = "cancelled"
	StatusClosed      Status = "closed"
)

// ValidStatuses enumerates every status of the enumeration above. No
// repository implementation checks writes against it.
var ValidStatuses = map[Status]bool{
	StatusPrevisional: true,
	StatusEngagement:  true,
	StatusDemande:     true,
	StatusCloture:     true,
	StatusInProgress:  true,
	StatusFinished:    true,
	StatusCancelled:   true,
	StatusClosed:      true,
}

// IsOpenStatus reports whether status counts as "open for enrollment".
func IsOpenStatus(s Status) bool {
	return s == StatusEngagement || s == StatusDemande
}

// Plan is a subscriber tier determining notification delay.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

// Event is an external competition page watched by the system.
type Event struct {
	Numero        int
	Name          string
	Venue         string
	StartDate     string // ISO YYYY-MM-DD, empty if unknown
	EndDate       string
	Discipline    string
	Status        Status
	IsOpen        bool
	LastCheckedAt time.Time
	OpenedAt      *time.Time
	URL           string
	OrganizerName string
	ContactEmail  string
	EntryFeeCents int
	// MaxParticipants is 0 when not extracted from the page.
	MaxParticipants int
}

// EventPatch carries only the fields to overwrite on upsert; nil/zero
// fields leave the prior value untouched per spec's upsert_event rule.
type EventPatch struct {
	Name            *string
	Venue           *string
	StartDate       *string
	EndDate         *string
	Discipline      *string
	URL             *string
	OrganizerName   *string
	ContactEmail    *string
	EntryFeeCents   *int
	MaxParticipants *int
}

// Subscription links a user to an event they want to be notified about.
type Subscription struct {
	UserID                 string
	EventNumero            int
	Notified               bool
	CreatedAt              time.Time
	LastNotifiedOpeningAt  *time.Time
}

// UserProfile is the read-only view the dispatcher consumes.
type UserProfile struct {
	ID           string
	Email        string
	Plan         Plan
	PushToken    string
	PushEnabled  bool
	EmailEnabled bool
	Locale       string
}

// QueueEntry is a scheduled future notification for one subscriber about
// one opening.
type QueueEntry struct {
	ID          string
	UserID      string
	EventNumero int
	Plan        Plan
	SendAt      time.Time
	Sent        bool
	SentAt      *time.Time
}

// ClaimedQueueEntry is the joined view returned by claiming due entries:
// the queue row plus the subscriber profile and event snapshot needed to
// deliver without a second round trip.
type ClaimedQueueEntry struct {
	Entry   QueueEntry
	Profile UserProfile
	Event   Event
}

// CheckRecord is one append-only row of the polling audit log.
type CheckRecord struct {
	EventNumero     int
	CheckedAt       time.Time
	StatusBefore    Status
	StatusAfter     Status
	ResponseTimeMS  int64
	Success         bool
}

// OpeningEvent is one append-only row per closed->open transition.
type OpeningEvent struct {
	EventNumero        int
	OpenedAt           time.Time
	Status             Status
	NotificationSentAt *time.Time
}

// Channel is a specific outbound delivery medium.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// NotificationLog is one append-only row per successful channel send.
type NotificationLog struct {
	UserID       string
	EventNumero  int
	Channel      Channel
	Plan         Plan
	DelaySeconds int
	SentAt       time.Time
}

// Snapshot is the scraper's structured extraction of one event page.
type Snapshot struct {
	Name            string
	Venue           string
	StartDate       string
	EndDate         string
	Discipline      string
	Status          Status
	IsOpen          bool
	OrganizerName   string
	ContactEmail    string
	EntryFeeCents   int
	MaxParticipants int
}

// Empty reports whether the scraper failed to extract anything useful —
// the "empty snapshot with is_open=false" spec.md mandates on failure.
func (s Snapshot) Empty() bool {
	return s.Name == "" && s.Venue == "" && s.StartDate == "" && s.EndDate == "" && !s.IsOpen
}
