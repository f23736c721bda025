package sqlstore

import "time"

// These are the GORM row models. They mirror internal/domain's plain
// structs field-for-field but add the tags and foreign-key shape GORM
// needs; conversion happens at the Store boundary so the rest of the
// engine never imports gorm.

type eventRow struct {
	Numero          int `gorm:"primaryKey"`
	Name            string
	Venue           string
	StartDate       string
	EndDate         string
	Discipline      string
	Status          string
	IsOpen          bool
	LastCheckedAt   time.Time
	OpenedAt        *time.Time
	URL             string
	OrganizerName   string
	ContactEmail    string
	EntryFeeCents   int
	MaxParticipants int
}

func (eventRow) TableName() string { return "events" }

type subscriptionRow struct {
	UserID                string `gorm:"primaryKey"`
	EventNumero           int    `gorm:"primaryKey;index"`
	Notified              bool
	CreatedAt             time.Time
	LastNotifiedOpeningAt *time.Time
}

func (subscriptionRow) TableName() string { return "subscriptions" }

type profileRow struct {
	ID           string `gorm:"primaryKey"`
	Email        string
	Plan         string
	PushToken    string
	PushEnabled  bool
	EmailEnabled bool
	Locale       string
}

func (profileRow) TableName() string { return "user_profiles" }

type queueEntryRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	EventNumero int    `gorm:"index"`
	Plan        string
	SendAt      time.Time `gorm:"index"`
	Sent        bool      `gorm:"index"`
	SentAt      *time.Time
}

func (queueEntryRow) TableName() string { return "queue_entries" }

type checkRecordRow struct {
	ID             uint `gorm:"primaryKey;autoIncrement"`
	EventNumero    int  `gorm:"index"`
	CheckedAt      time.Time
	StatusBefore   string
	StatusAfter    string
	ResponseTimeMS int64
	Success        bool
}

func (checkRecordRow) TableName() string { return "check_records" }

type openingEventRow struct {
	ID                 uint `gorm:"primaryKey;autoIncrement"`
	EventNumero        int  `gorm:"index"`
	OpenedAt           time.Time
	Status             string
	NotificationSentAt *time.Time
}

func (openingEventRow) TableName() string { return "opening_events" }

type notificationLogRow struct {
	ID           uint `gorm:"primaryKey;autoIncrement"`
	UserID       string `gorm:"index"`
	EventNumero  int    `gorm:"index"`
	Channel      string
	Plan         string
	DelaySeconds int
	SentAt       time.Time
}

func (notificationLogRow) TableName() string { return "notification_logs" }
