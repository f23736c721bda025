// Package memstore is an in-memory Repository implementation used by
// unit and integration tests, grounded on the teacher's in-memory test
// doubles: a single mutex guarding plain Go maps, no persistence.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
)

// Store is a mutex-guarded in-memory Repository.
type Store struct {
	mu sync.Mutex

	events        map[int]domain.Event
	subscriptions map[string]domain.Subscription // key: userID+"|"+numero
	profiles      map[string]domain.UserProfile
	queue         map[string]domain.QueueEntry

	checks        []domain.CheckRecord
	openings      []domain.OpeningEvent
	notifications []domain.NotificationLog
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		events:        make(map[int]domain.Event),
		subscriptions: make(map[string]domain.Subscription),
		profiles:      make(map[string]domain.UserProfile),
		queue:         make(map[string]domain.QueueEntry),
	}
}

var _ repository.Repository = (*Store)(nil)

func subKey(userID string, numero int) string {
	return fmt.Sprintf("%s|%d", userID, numero)
}

func (s *Store) Init(ctx context.Context) error  { return nil }
func (s *Store) Close() error                    { return nil }
func (s *Store) Ping(ctx context.Context) error  { return nil }

// PutProfile is a test helper seeding a user profile; it has no
// equivalent in the Repository interface because profile creation is
// out of this engine's scope (spec.md Non-goals).
func (s *Store) PutProfile(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *Store) UpsertEvent(ctx context.Context, numero int, patch domain.EventPatch) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[numero]
	if !ok {
		ev = domain.Event{Numero: numero, Status: domain.StatusPrevisional}
	}
	if patch.Name != nil {
		ev.Name = *patch.Name
	}
	if patch.Venue != nil {
		ev.Venue = *patch.Venue
	}
	if patch.StartDate != nil {
		ev.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		ev.EndDate = *patch.EndDate
	}
	if patch.Discipline != nil {
		ev.Discipline = *patch.Discipline
	}
	if patch.URL != nil {
		ev.URL = *patch.URL
	}
	if patch.OrganizerName != nil {
		ev.OrganizerName = *patch.OrganizerName
	}
	if patch.ContactEmail != nil {
		ev.ContactEmail = *patch.ContactEmail
	}
	if patch.EntryFeeCents != nil {
		ev.EntryFeeCents = *patch.EntryFeeCents
	}
	if patch.MaxParticipants != nil {
		ev.MaxParticipants = *patch.MaxParticipants
	}
	ev.LastCheckedAt = time.Now()
	s.events[numero] = ev
	return ev, nil
}

func (s *Store) GetEvent(ctx context.Context, numero int) (domain.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[numero]
	return ev, ok, nil
}

func (s *Store) ListEventsWhereClosed(ctx context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, ev := range s.events {
		if !ev.IsOpen {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

func (s *Store) ListEventsInDateRange(ctx context.Context, start, end time.Time) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, ev := range s.events {
		if ev.StartDate == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", ev.StartDate)
		if err != nil {
			continue
		}
		if (d.Equal(start) || d.After(start)) && (d.Equal(end) || d.Before(end)) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

func (s *Store) SetEventStatus(ctx context.Context, numero int, status domain.Status, isOpen bool, openedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[numero]
	if !ok {
		return fmt.Errorf("memstore: event %d not found", numero)
	}
	ev.Status = status
	ev.IsOpen = isOpen
	if openedAt != nil {
		ev.OpenedAt = openedAt
	}
	s.events[numero] = ev
	return nil
}

func (s *Store) Subscribe(ctx context.Context, userID string, numero int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey(userID, numero)
	if _, ok := s.subscriptions[key]; ok {
		return nil
	}
	s.subscriptions[key] = domain.Subscription{
		UserID:      userID,
		EventNumero: numero,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (s *Store) Unsubscribe(ctx context.Context, userID string, numero int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey(userID, numero)
	if _, ok := s.subscriptions[key]; !ok {
		return false, nil
	}
	delete(s.subscriptions, key)
	return true, nil
}

func (s *Store) ListSubscribersUnnotified(ctx context.Context, numero int) ([]repository.SubscriberProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.SubscriberProfile
	for _, sub := range s.subscriptions {
		if sub.EventNumero != numero || sub.Notified {
			continue
		}
		profile := s.profiles[sub.UserID]
		out = append(out, repository.SubscriberProfile{Subscription: sub, Profile: profile})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subscription.UserID < out[j].Subscription.UserID })
	return out, nil
}

func (s *Store) ResetNotified(ctx context.Context, numero int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sub := range s.subscriptions {
		if sub.EventNumero == numero {
			sub.Notified = false
			s.subscriptions[key] = sub
		}
	}
	return nil
}

func (s *Store) MarkNotified(ctx context.Context, userID string, numero int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey(userID, numero)
	sub, ok := s.subscriptions[key]
	if !ok {
		return fmt.Errorf("memstore: subscription %s not found", key)
	}
	sub.Notified = true
	sub.LastNotifiedOpeningAt = &at
	s.subscriptions[key] = sub
	return nil
}

func (s *Store) GetUserProfile(ctx context.Context, userID string) (domain.UserProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok, nil
}

func (s *Store) Enqueue(ctx context.Context, userID string, numero int, plan domain.Plan, sendAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.queue[id] = domain.QueueEntry{
		ID:          id,
		UserID:      userID,
		EventNumero: numero,
		Plan:        plan,
		SendAt:      sendAt,
	}
	return id, nil
}

func (s *Store) ClaimDueQueueEntries(ctx context.Context, now time.Time, limit int) ([]domain.ClaimedQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, e := range s.queue {
		if !e.Sent && !e.SendAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.queue[ids[i]].SendAt.Before(s.queue[ids[j]].SendAt) })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]domain.ClaimedQueueEntry, 0, len(ids))
	for _, id := range ids {
		e := s.queue[id]
		e.Sent = true // claimed: prevents a second caller from re-claiming
		s.queue[id] = e

		profile := s.profiles[e.UserID]
		ev := s.events[e.EventNumero]
		out = append(out, domain.ClaimedQueueEntry{Entry: e, Profile: profile, Event: ev})
	}
	return out, nil
}

func (s *Store) MarkEntrySent(ctx context.Context, id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue[id]
	if !ok {
		return fmt.Errorf("memstore: queue entry %s not found", id)
	}
	e.Sent = true
	e.SentAt = &sentAt
	s.queue[id] = e
	return nil
}

func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.queue {
		if !e.Sent {
			n++
		}
	}
	return n, nil
}

func (s *Store) RecordCheck(ctx context.Context, rec domain.CheckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, rec)
	return nil
}

func (s *Store) RecordOpening(ctx context.Context, rec domain.OpeningEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openings = append(s.openings, rec)
	return nil
}

func (s *Store) RecordNotification(ctx context.Context, rec domain.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, rec)
	return nil
}
