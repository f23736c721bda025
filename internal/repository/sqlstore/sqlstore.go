// Package sqlstore implements repository.Repository on top of GORM and
// the pure-Go glebarez/sqlite driver (no cgo), giving the engine a
// relational backend alongside boltstore's key-value one. Grounded on
// the teacher's boltstore for method shape and the "one bucket per
// entity" decomposition, translated to "one table per entity".
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
)

// Store is a GORM-backed Repository.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if absent) the SQLite file at dsn and runs
// AutoMigrate for every row model.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dsn, err)
	}

	if err := db.AutoMigrate(
		&eventRow{}, &subscriptionRow{}, &profileRow{}, &queueEntryRow{},
		&checkRecordRow{}, &openingEventRow{}, &notificationLogRow{},
	); err != nil {
		return nil, fmt.Errorf("sqlstore: automigrate: %w", err)
	}

	return &Store{db: db}, nil
}

var _ repository.Repository = (*Store)(nil)

// Init re-runs AutoMigrate for every row model, creating any missing
// table or column; it is idempotent.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&eventRow{}, &subscriptionRow{}, &profileRow{}, &queueEntryRow{},
		&checkRecordRow{}, &openingEventRow{}, &notificationLogRow{},
	); err != nil {
		return fmt.Errorf("sqlstore: automigrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) UpsertEvent(ctx context.Context, numero int, patch domain.EventPatch) (domain.Event, error) {
	var out eventRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row eventRow
		err := tx.First(&row, "numero = ?", numero).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			row = eventRow{Numero: numero, Status: string(domain.StatusPrevisional)}
		case err != nil:
			return err
		}

		applyPatch(&row, patch)
		row.LastCheckedAt = time.Now()

		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		out = row
		return nil
	})
	return rowToEvent(out), err
}

func applyPatch(row *eventRow, patch domain.EventPatch) {
	if patch.Name != nil {
		row.Name = *patch.Name
	}
	if patch.Venue != nil {
		row.Venue = *patch.Venue
	}
	if patch.StartDate != nil {
		row.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		row.EndDate = *patch.EndDate
	}
	if patch.Discipline != nil {
		row.Discipline = *patch.Discipline
	}
	if patch.URL != nil {
		row.URL = *patch.URL
	}
	if patch.OrganizerName != nil {
		row.OrganizerName = *patch.OrganizerName
	}
	if patch.ContactEmail != nil {
		row.ContactEmail = *patch.ContactEmail
	}
	if patch.EntryFeeCents != nil {
		row.EntryFeeCents = *patch.EntryFeeCents
	}
	if patch.MaxParticipants != nil {
		row.MaxParticipants = *patch.MaxParticipants
	}
}

func rowToEvent(r eventRow) domain.Event {
	return domain.Event{
		Numero:          r.Numero,
		Name:            r.Name,
		Venue:           r.Venue,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		Discipline:      r.Discipline,
		Status:          domain.Status(r.Status),
		IsOpen:          r.IsOpen,
		LastCheckedAt:   r.LastCheckedAt,
		OpenedAt:        r.OpenedAt,
		URL:             r.URL,
		OrganizerName:   r.OrganizerName,
		ContactEmail:    r.ContactEmail,
		EntryFeeCents:   r.EntryFeeCents,
		MaxParticipants: r.MaxParticipants,
	}
}

func (s *Store) GetEvent(ctx context.Context, numero int) (domain.Event, bool, error) {
	var row eventRow
	err := s.db.WithContext(ctx).First(&row, "numero = ?", numero).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, err
	}
	return rowToEvent(row), true, nil
}

func (s *Store) ListEventsWhereClosed(ctx context.Context) ([]domain.Event, error) {
	var rows []eventRow
	if err := s.db.WithContext(ctx).Where("is_open = ?", false).Order("numero").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Event, len(rows))
	for i, r := range rows {
		out[i] = rowToEvent(r)
	}
	return out, nil
}

func (s *Store) ListEventsInDateRange(ctx context.Context, start, end time.Time) ([]domain.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("start_date <> '' AND start_date >= ? AND start_date <= ?",
			start.Format("2006-01-02"), end.Format("2006-01-02")).
		Order("numero").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, len(rows))
	for i, r := range rows {
		out[i] = rowToEvent(r)
	}
	return out, nil
}

func (s *Store) SetEventStatus(ctx context.Context, numero int, status domain.Status, isOpen bool, openedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":  string(status),
		"is_open": isOpen,
	}
	if openedAt != nil {
		updates["opened_at"] = *openedAt
	}
	res := s.db.WithContext(ctx).Model(&eventRow{}).Where("numero = ?", numero).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sqlstore: event %d not found", numero)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, userID string, numero int) error {
	row := subscriptionRow{UserID: userID, EventNumero: numero, CreatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Where(subscriptionRow{UserID: userID, EventNumero: numero}).
		FirstOrCreate(&row).Error
}

func (s *Store) Unsubscribe(ctx context.Context, userID string, numero int) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND event_numero = ?", userID, numero).
		Delete(&subscriptionRow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListSubscribersUnnotified(ctx context.Context, numero int) ([]repository.SubscriberProfile, error) {
	var subs []subscriptionRow
	err := s.db.WithContext(ctx).
		Where("event_numero = ? AND notified = ?", numero, false).
		Order("user_id").Find(&subs).Error
	if err != nil {
		return nil, err
	}

	out := make([]repository.SubscriberProfile, 0, len(subs))
	for _, sub := range subs {
		var profile profileRow
		err := s.db.WithContext(ctx).First(&profile, "id = ?", sub.UserID).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		out = append(out, repository.SubscriberProfile{
			Subscription: rowToSubscription(sub),
			Profile:      rowToProfile(profile),
		})
	}
	return out, nil
}

func rowToSubscription(r subscriptionRow) domain.Subscription {
	return domain.Subscription{
		UserID:                r.UserID,
		EventNumero:           r.EventNumero,
		Notified:              r.Notified,
		CreatedAt:             r.CreatedAt,
		LastNotifiedOpeningAt: r.LastNotifiedOpeningAt,
	}
}

func rowToProfile(r profileRow) domain.UserProfile {
	return domain.UserProfile{
		ID:           r.ID,
		Email:        r.Email,
		Plan:         domain.Plan(r.Plan),
		PushToken:    r.PushToken,
		PushEnabled:  r.PushEnabled,
		EmailEnabled: r.EmailEnabled,
		Locale:       r.Locale,
	}
}

func (s *Store) ResetNotified(ctx context.Context, numero int) error {
	return s.db.WithContext(ctx).Model(&subscriptionRow{}).
		Where("event_numero = ?", numero).
		Update("notified", false).Error
}

func (s *Store) MarkNotified(ctx context.Context, userID string, numero int, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&subscriptionRow{}).
		Where("user_id = ? AND event_numero = ?", userID, numero).
		Updates(map[string]interface{}{"notified": true, "last_notified_opening_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sqlstore: subscription %s/%d not found", userID, numero)
	}
	return nil
}

func (s *Store) GetUserProfile(ctx context.Context, userID string) (domain.UserProfile, bool, error) {
	var row profileRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.UserProfile{}, false, nil
	}
	if err != nil {
		return domain.UserProfile{}, false, err
	}
	return rowToProfile(row), true, nil
}

func (s *Store) Enqueue(ctx context.Context, userID string, numero int, plan domain.Plan, sendAt time.Time) (string, error) {
	id := uuid.NewString()
	row := queueEntryRow{ID: id, UserID: userID, EventNumero: numero, Plan: string(plan), SendAt: sendAt}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return id, nil
}

// ClaimDueQueueEntries runs the select-then-mark inside one GORM
// transaction so two concurrent dispatch workers can never both claim
// the same row: the second transaction's UPDATE affects zero rows for
// any entry already flipped to sent=true by the first.
func (s *Store) ClaimDueQueueEntries(ctx context.Context, now time.Time, limit int) ([]domain.ClaimedQueueEntry, error) {
	var claimed []queueEntryRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []queueEntryRow
		q := tx.Where("sent = ? AND send_at <= ?", false, now).Order("send_at")
		if limit > 0 {
			q = q.Limit(limit)
		}
		if err := q.Find(&candidates).Error; err != nil {
			return err
		}

		for _, c := range candidates {
			res := tx.Model(&queueEntryRow{}).
				Where("id = ? AND sent = ?", c.ID, false).
				Update("sent", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				claimed = append(claimed, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.ClaimedQueueEntry, 0, len(claimed))
	for _, c := range claimed {
		var profile profileRow
		if err := s.db.WithContext(ctx).First(&profile, "id = ?", c.UserID).Error; err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		var ev eventRow
		if err := s.db.WithContext(ctx).First(&ev, "numero = ?", c.EventNumero).Error; err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		entry := domain.QueueEntry{
			ID: c.ID, UserID: c.UserID, EventNumero: c.EventNumero,
			Plan: domain.Plan(c.Plan), SendAt: c.SendAt, Sent: true,
		}
		out = append(out, domain.ClaimedQueueEntry{
			Entry:   entry,
			Profile: rowToProfile(profile),
			Event:   rowToEvent(ev),
		})
	}
	return out, nil
}

func (s *Store) MarkEntrySent(ctx context.Context, id string, sentAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&queueEntryRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"sent": true, "sent_at": sentAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sqlstore: queue entry %s not found", id)
	}
	return nil
}

func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&queueEntryRow{}).Where("sent = ?", false).Count(&count).Error
	return int(count), err
}

func (s *Store) RecordCheck(ctx context.Context, rec domain.CheckRecord) error {
	return s.db.WithContext(ctx).Create(&checkRecordRow{
		EventNumero:    rec.EventNumero,
		CheckedAt:      rec.CheckedAt,
		StatusBefore:   string(rec.StatusBefore),
		StatusAfter:    string(rec.StatusAfter),
		ResponseTimeMS: rec.ResponseTimeMS,
		Success:        rec.Success,
	}).Error
}

func (s *Store) RecordOpening(ctx context.Context, rec domain.OpeningEvent) error {
	return s.db.WithContext(ctx).Create(&openingEventRow{
		EventNumero:        rec.EventNumero,
		OpenedAt:           rec.OpenedAt,
		Status:             string(rec.Status),
		NotificationSentAt: rec.NotificationSentAt,
	}).Error
}

func (s *Store) RecordNotification(ctx context.Context, rec domain.NotificationLog) error {
	return s.db.WithContext(ctx).Create(&notificationLogRow{
		UserID:       rec.UserID,
		EventNumero:  rec.EventNumero,
		Channel:      string(rec.Channel),
		Plan:         string(rec.Plan),
		DelaySeconds: rec.DelaySeconds,
		SentAt:       rec.SentAt,
	}).Error
}
