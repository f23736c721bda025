// Package boltstore implements repository.Repository on top of
// go.etcd.io/bbolt, adapted from the teacher's pkg/storage.BoltStore:
// one bucket per entity, JSON-encoded values keyed by a natural or
// generated ID, db.Update/db.View transactions for writes/reads.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/google/uuid"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
)

var (
	bucketEvents        = []byte("events")
	bucketSubscriptions  = []byte("subscriptions")
	bucketProfiles       = []byte("profiles")
	bucketQueue          = []byte("queue")
	bucketChecks         = []byte("checks")
	bucketOpenings       = []byte("openings")
	bucketNotifications  = []byte("notifications")
)

// Store is a bbolt-backed Repository.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file at path and ensures
// every bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketEvents, bucketSubscriptions, bucketProfiles,
			bucketQueue, bucketChecks, bucketOpenings, bucketNotifications,
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) Init(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return s.db.Close() }
func (s *Store) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

func eventKey(numero int) []byte { return []byte(strconv.Itoa(numero)) }

func subKey(userID string, numero int) []byte {
	return []byte(fmt.Sprintf("%s|%d", userID, numero))
}

func (s *Store) UpsertEvent(ctx context.Context, numero int, patch domain.EventPatch) (domain.Event, error) {
	var out domain.Event
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		key := eventKey(numero)

		var ev domain.Event
		if data := b.Get(key); data != nil {
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
		} else {
			ev = domain.Event{Numero: numero, Status: domain.StatusPrevisional}
		}

		applyPatch(&ev, patch)
		ev.LastCheckedAt = time.Now()

		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		out = ev
		return b.Put(key, data)
	})
	return out, err
}

func applyPatch(ev *domain.Event, patch domain.EventPatch) {
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
}

func (s *Store) GetEvent(ctx context.Context, numero int) (domain.Event, bool, error) {
	var ev domain.Event
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketEvents).Get(eventKey(numero))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &ev)
	})
	return ev, found, err
}

func (s *Store) ListEventsWhereClosed(ctx context.Context) ([]domain.Event, error) {
	var out []domain.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var ev domain.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			if !ev.IsOpen {
				out = append(out, ev)
			}
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, err
}

func (s *Store) ListEventsInDateRange(ctx context.Context, start, end time.Time) ([]domain.Event, error) {
	var out []domain.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var ev domain.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			if ev.StartDate == "" {
				return nil
			}
			d, perr := time.Parse("2006-01-02", ev.StartDate)
			if perr != nil {
				return nil
			}
			if (d.Equal(start) || d.After(start)) && (d.Equal(end) || d.Before(end)) {
				out = append(out, ev)
			}
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, err
}

func (s *Store) SetEventStatus(ctx context.Context, numero int, status domain.Status, isOpen bool, openedAt *time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		key := eventKey(numero)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("boltstore: event %d not found", numero)
		}
		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		ev.Status = status
		ev.IsOpen = isOpen
		if openedAt != nil {
			ev.OpenedAt = openedAt
		}
		out, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})
}

func (s *Store) Subscribe(ctx context.Context, userID string, numero int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubscriptions)
		key := subKey(userID, numero)
		if b.Get(key) != nil {
			return nil
		}
		sub := domain.Subscription{UserID: userID, EventNumero: numero, CreatedAt: time.Now()}
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *Store) Unsubscribe(ctx context.Context, userID string, numero int) (bool, error) {
	removed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubscriptions)
		key := subKey(userID, numero)
		if b.Get(key) == nil {
			return nil
		}
		removed = true
		return b.Delete(key)
	})
	return removed, err
}

func (s *Store) ListSubscribersUnnotified(ctx context.Context, numero int) ([]repository.SubscriberProfile, error) {
	var out []repository.SubscriberProfile
	err := s.db.View(func(tx *bolt.Tx) error {
		subs := tx.Bucket(bucketSubscriptions)
		profiles := tx.Bucket(bucketProfiles)
		return subs.ForEach(func(k, v []byte) error {
			var sub domain.Subscription
			if err := json.Unmarshal(v, &sub); err != nil {
				return err
			}
			if sub.EventNumero != numero || sub.Notified {
				return nil
			}
			var profile domain.UserProfile
			if data := profiles.Get([]byte(sub.UserID)); data != nil {
				if err := json.Unmarshal(data, &profile); err != nil {
					return err
				}
			}
			out = append(out, repository.SubscriberProfile{Subscription: sub, Profile: profile})
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Subscription.UserID < out[j].Subscription.UserID })
	return out, err
}

func (s *Store) ResetNotified(ctx context.Context, numero int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubscriptions)
		return b.ForEach(func(k, v []byte) error {
			var sub domain.Subscription
			if err := json.Unmarshal(v, &sub); err != nil {
				return err
			}
			if sub.EventNumero != numero {
				return nil
			}
			sub.Notified = false
			data, err := json.Marshal(sub)
			if err != nil {
				return err
			}
			return b.Put(k, data)
		})
	})
}

func (s *Store) MarkNotified(ctx context.Context, userID string, numero int, at time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubscriptions)
		key := subKey(userID, numero)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("boltstore: subscription %s not found", key)
		}
		var sub domain.Subscription
		if err := json.Unmarshal(data, &sub); err != nil {
			return err
		}
		sub.Notified = true
		sub.LastNotifiedOpeningAt = &at
		out, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})
}

func (s *Store) GetUserProfile(ctx context.Context, userID string) (domain.UserProfile, bool, error) {
	var profile domain.UserProfile
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketProfiles).Get([]byte(userID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &profile)
	})
	return profile, found, err
}

func (s *Store) Enqueue(ctx context.Context, userID string, numero int, plan domain.Plan, sendAt time.Time) (string, error) {
	id := uuid.NewString()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketQueue)
		entry := domain.QueueEntry{ID: id, UserID: userID, EventNumero: numero, Plan: plan, SendAt: sendAt}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
	return id, err
}

// ClaimDueQueueEntries runs in a single db.Update transaction, so the
// scan-and-flip is atomic with respect to other callers: two dispatch
// workers racing on the same bucket cannot both observe sent=false for
// the same row.
func (s *Store) ClaimDueQueueEntries(ctx context.Context, now time.Time, limit int) ([]domain.ClaimedQueueEntry, error) {
	var out []domain.ClaimedQueueEntry
	err := s.db.Update(func(tx *bolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		profiles := tx.Bucket(bucketProfiles)
		events := tx.Bucket(bucketEvents)

		type candidate struct {
			key   []byte
			entry domain.QueueEntry
		}
		var candidates []candidate

		err := queue.ForEach(func(k, v []byte) error {
			var e domain.QueueEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if !e.Sent && !e.SendAt.After(now) {
				keyCopy := append([]byte(nil), k...)
				candidates = append(candidates, candidate{key: keyCopy, entry: e})
			}
			return nil
		})
		if err != nil {
			return err
		}

		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].entry.SendAt.Before(candidates[j].entry.SendAt)
		})
		if limit > 0 && len(candidates) > limit {
			candidates = candidates[:limit]
		}

		for _, c := range candidates {
			c.entry.Sent = true
			data, err := json.Marshal(c.entry)
			if err != nil {
				return err
			}
			if err := queue.Put(c.key, data); err != nil {
				return err
			}

			var profile domain.UserProfile
			if data := profiles.Get([]byte(c.entry.UserID)); data != nil {
				if err := json.Unmarshal(data, &profile); err != nil {
					return err
				}
			}
			var ev domain.Event
			if data := events.Get(eventKey(c.entry.EventNumero)); data != nil {
				if err := json.Unmarshal(data, &ev); err != nil {
					return err
				}
			}
			out = append(out, domain.ClaimedQueueEntry{Entry: c.entry, Profile: profile, Event: ev})
		}
		return nil
	})
	return out, err
}

func (s *Store) MarkEntrySent(ctx context.Context, id string, sentAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketQueue)
		key := []byte(id)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("boltstore: queue entry %s not found", id)
		}
		var e domain.QueueEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		e.Sent = true
		e.SentAt = &sentAt
		out, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})
}

func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(k, v []byte) error {
			var e domain.QueueEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if !e.Sent {
				n++
			}
			return nil
		})
	})
	return n, err
}

func (s *Store) RecordCheck(ctx context.Context, rec domain.CheckRecord) error {
	return appendRecord(s.db, bucketChecks, rec)
}

func (s *Store) RecordOpening(ctx context.Context, rec domain.OpeningEvent) error {
	return appendRecord(s.db, bucketOpenings, rec)
}

func (s *Store) RecordNotification(ctx context.Context, rec domain.NotificationLog) error {
	return appendRecord(s.db, bucketNotifications, rec)
}

func appendRecord(db *bolt.DB, bucket []byte, rec interface{}) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(strconv.FormatUint(id, 10)), data)
	})
}
