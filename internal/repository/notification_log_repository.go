package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationLogModel is the GORM model for the notification_logs table.
// Rows are append-only; nothing in the service updates or deletes them.
type NotificationLogModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID        uuid.UUID `gorm:"type:uuid;index;not null"`
	Channel          string    `gorm:"not null;size:30"`
	RecipientMode    string    `gorm:"not null;size:10"`
	Recipient        string    `gorm:"size:64"`
	Kind             string    `gorm:"not null;size:30"`
	Body             string    `gorm:"size:1000"`
	Outcome          string    `gorm:"not null;size:20"`
	ProviderStatus   int       `gorm:""`
	ProviderResponse string    `gorm:"size:4096"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

// GormNotificationLogRepository is the GORM-based implementation of
// notification.LogRepository.
type GormNotificationLogRepository struct {
	db *gorm.DB
}

// NewGormNotificationLogRepository creates a new GormNotificationLogRepository.
func NewGormNotificationLogRepository(db *gorm.DB) *GormNotificationLogRepository {
	return &GormNotificationLogRepository{db: db}
}

// Append durably records one dispatch attempt.
func (r *GormNotificationLogRepository) Append(ctx context.Context, entry *notification.LogEntry) error {
	model := &NotificationLogModel{
		ID:               entry.ID,
		BookingID:        entry.BookingID,
		Channel:          entry.Channel,
		RecipientMode:    string(entry.RecipientMode),
		Recipient:        entry.Recipient,
		Kind:             string(entry.Kind),
		Body:             entry.Body,
		Outcome:          string(entry.Outcome),
		ProviderStatus:   entry.ProviderStatus,
		ProviderResponse: entry.ProviderResponse,
		CreatedAt:        entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}
	return nil
}

// FindByBookingID returns all dispatch attempts for a booking, oldest first.
func (r *GormNotificationLogRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*notification.LogEntry, error) {
	var models []NotificationLogModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find notification logs: %w", err)
	}

	entries := make([]*notification.LogEntry, len(models))
	for i, m := range models {
		entries[i] = &notification.LogEntry{
			ID:               m.ID,
			BookingID:        m.BookingID,
			Channel:          m.Channel,
			RecipientMode:    notification.RecipientMode(m.RecipientMode),
			Recipient:        m.Recipient,
			Kind:             notification.TransitionKind(m.Kind),
			Body:             m.Body,
			Outcome:          notification.Outcome(m.Outcome),
			ProviderStatus:   m.ProviderStatus,
			ProviderResponse: m.ProviderResponse,
			CreatedAt:        m.CreatedAt,
		}
	}
	return entries, nil
}
