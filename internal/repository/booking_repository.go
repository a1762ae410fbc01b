package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Klinik-Sehat/service-appointment/internal/domain/apperror"
	bookingDomain "github.com/Klinik-Sehat/service-appointment/internal/domain/booking"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// activeSlotIndex is the partial unique index that closes the create/create
// race on a shared slot at the store level. Cancelled and checked-out
// bookings fall outside the predicate and free the slot.
const activeSlotIndex = "uniq_active_booking_slot"

const activeSlotIndexSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_booking_slot
ON bookings (appointment_date, appointment_time)
WHERE status IN ('pending', 'confirmed', 'checked_in')`

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingCode     string     `gorm:"uniqueIndex;not null;size:20"`
	CustomerID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	PatientName     string     `gorm:"not null;size:120"`
	ContactPhone    string     `gorm:"size:32"`
	ChatUserID      string     `gorm:"size:64"`
	AppointmentDate time.Time  `gorm:"type:date;not null;index:idx_booking_slot"`
	AppointmentTime string     `gorm:"not null;size:5;index:idx_booking_slot"`
	Notes           string     `gorm:"size:1000"`
	Status          string     `gorm:"not null;size:30;index"`
	ConfirmedBy     *uuid.UUID `gorm:"type:uuid"`
	CheckinBy       *uuid.UUID `gorm:"type:uuid"`
	CheckinAt       *time.Time `gorm:""`
	CheckoutAt      *time.Time `gorm:""`
	CancelledBy     *uuid.UUID `gorm:"type:uuid"`
	CancelledAt     *time.Time `gorm:""`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// EnsureSlotConstraint creates the active-slot unique index. Used on the dev
// auto-migrate path; production migrations carry the same statement.
func EnsureSlotConstraint(db *gorm.DB) error {
	if err := db.Exec(activeSlotIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create active slot index: %w", err)
	}
	return nil
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByCode retrieves a booking by its booking code.
func (r *GormBookingRepository) FindByCode(ctx context.Context, code string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("booking", code)
		}
		return nil, fmt.Errorf("failed to find booking by code: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByCustomerID retrieves bookings for a customer with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("customer_id = ?", customerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customer bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("appointment_date DESC, appointment_time DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find customer bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// SlotTaken reports whether a slot-blocking booking occupies the given slot.
func (r *GormBookingRepository) SlotTaken(ctx context.Context, date time.Time, timeOfDay string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("appointment_date = ? AND appointment_time = ?", date.Format(bookingDomain.DateLayout), timeOfDay).
		Where("status IN ?", []string{
			string(bookingDomain.StatusPending),
			string(bookingDomain.StatusConfirmed),
			string(bookingDomain.StatusCheckedIn),
		}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check slot availability: %w", err)
	}
	return count > 0, nil
}

// FindExpired returns pending or confirmed bookings whose appointment
// date/time is strictly before the given clinic-local moment.
func (r *GormBookingRepository) FindExpired(ctx context.Context, clinicNow time.Time) ([]*bookingDomain.Booking, error) {
	today := clinicNow.Format(bookingDomain.DateLayout)
	nowTime := clinicNow.Format(bookingDomain.TimeLayout)

	var models []BookingModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			string(bookingDomain.StatusPending),
			string(bookingDomain.StatusConfirmed),
		}).
		Where("appointment_date < ? OR (appointment_date = ? AND appointment_time < ?)", today, today, nowTime).
		Order("appointment_date, appointment_time").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}

	bookings, _, err := toDomainBookings(models, 0)
	return bookings, err
}

// Save persists a new booking. A unique violation on the active-slot index
// means a concurrent create won the slot.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotIndex {
			return apperror.NewSlotUnavailable(bk.DateString(), bk.AppointmentTime())
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// UpdateStatus writes the aggregate's status and transition fields, guarded
// by the status observed before the transition was applied. If the guard does
// not match, the current row is re-fetched to distinguish a missing booking
// from a lost race.
func (r *GormBookingRepository) UpdateStatus(ctx context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.Status) error {
	model := toBookingModel(bk)

	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status = ?", model.ID, string(expectedStatus)).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"confirmed_by": model.ConfirmedBy,
			"checkin_by":   model.CheckinBy,
			"checkin_at":   model.CheckinAt,
			"checkout_at":  model.CheckoutAt,
			"cancelled_by": model.CancelledBy,
			"cancelled_at": model.CancelledAt,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update booking status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var current BookingModel
		if err := r.db.WithContext(ctx).Where("id = ?", model.ID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound("booking", model.ID.String())
			}
			return fmt.Errorf("failed to re-fetch booking after conflict: %w", err)
		}
		return apperror.NewStaleTransition(current.Status)
	}
	return nil
}

// --- Conversion helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:              bk.ID(),
		BookingCode:     bk.BookingCode(),
		CustomerID:      bk.CustomerID(),
		PatientName:     bk.PatientName(),
		ContactPhone:    bk.ContactPhone(),
		ChatUserID:      bk.ChatUserID(),
		AppointmentDate: bk.AppointmentDate(),
		AppointmentTime: bk.AppointmentTime(),
		Notes:           bk.Notes(),
		Status:          string(bk.Status()),
		ConfirmedBy:     bk.ConfirmedBy(),
		CheckinBy:       bk.CheckinBy(),
		CheckinAt:       bk.CheckinAt(),
		CheckoutAt:      bk.CheckoutAt(),
		CancelledBy:     bk.CancelledBy(),
		CancelledAt:     bk.CancelledAt(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	return bookingDomain.Reconstruct(
		m.ID,
		m.BookingCode,
		m.CustomerID,
		m.PatientName,
		m.ContactPhone,
		m.ChatUserID,
		m.AppointmentDate,
		m.AppointmentTime,
		m.Notes,
		status,
		m.ConfirmedBy,
		m.CheckinBy,
		m.CheckinAt,
		m.CheckoutAt,
		m.CancelledBy,
		m.CancelledAt,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel, total int64) ([]*bookingDomain.Booking, int64, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}
