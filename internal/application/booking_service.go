package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Klinik-Sehat/service-appointment/internal/domain/apperror"
	bookingDomain "github.com/Klinik-Sehat/service-appointment/internal/domain/booking"
	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
	"github.com/Klinik-Sehat/service-appointment/internal/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher publishes lifecycle events. Publish failures never fail the
// transition that triggered them.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, env events.Envelope) error
}

// Notifier dispatches a transition notification for a booking. The dispatch
// outcome is logged by the implementation; errors returned here are only ever
// logged by the caller.
type Notifier interface {
	Notify(ctx context.Context, bk *bookingDomain.Booking, kind notification.TransitionKind) (*DispatchResult, error)
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	PatientName     string `json:"patient_name" binding:"required"`
	ContactPhone    string `json:"contact_phone"`
	ChatUserID      string `json:"chat_user_id"`
	AppointmentDate string `json:"appointment_date" binding:"required"`
	AppointmentTime string `json:"appointment_time" binding:"required"`
	Notes           string `json:"notes"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID              uuid.UUID  `json:"id"`
	BookingCode     string     `json:"booking_code"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	PatientName     string     `json:"patient_name"`
	ContactPhone    string     `json:"contact_phone,omitempty"`
	ChatUserID      string     `json:"chat_user_id,omitempty"`
	AppointmentDate string     `json:"appointment_date"`
	AppointmentTime string     `json:"appointment_time"`
	Notes           string     `json:"notes,omitempty"`
	Status          string     `json:"status"`
	ConfirmedBy     *uuid.UUID `json:"confirmed_by,omitempty"`
	CheckinBy       *uuid.UUID `json:"checkin_by,omitempty"`
	CheckinAt       *time.Time `json:"checkin_at,omitempty"`
	CheckoutAt      *time.Time `json:"checkout_at,omitempty"`
	CancelledBy     *uuid.UUID `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SweepResult summarizes one auto-cancellation sweep run.
type SweepResult struct {
	CancelledCount int         `json:"cancelled_count"`
	CancelledIDs   []uuid.UUID `json:"cancelled_ids"`
}

// PaginatedResult wraps a page of items with pagination metadata.
type PaginatedResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// BookingService is the lifecycle engine: it drives every booking through the
// guarded state machine, with all coordination state in the repository.
type BookingService struct {
	repo        bookingDomain.Repository
	notifier    Notifier
	producer    Publisher
	clinicLoc   *time.Location
	autoConfirm bool
	logger      *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.Repository,
	notifier Notifier,
	producer Publisher,
	clinicLoc *time.Location,
	autoConfirm bool,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:        repo,
		notifier:    notifier,
		producer:    producer,
		clinicLoc:   clinicLoc,
		autoConfirm: autoConfirm,
		logger:      logger,
	}
}

func (s *BookingService) clinicNow() time.Time {
	return time.Now().In(s.clinicLoc)
}

// Create creates a new booking if the requested slot is free. The
// availability pre-check fails closed; the store-level active-slot constraint
// closes the race between concurrent creates.
func (s *BookingService) Create(ctx context.Context, customerID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	clinicNow := s.clinicNow()

	bk, err := bookingDomain.NewBooking(
		customerID,
		req.PatientName,
		req.ContactPhone,
		req.ChatUserID,
		req.AppointmentDate,
		req.AppointmentTime,
		req.Notes,
		s.autoConfirm,
		clinicNow,
	)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.SlotTaken(ctx, bk.AppointmentDate(), bk.AppointmentTime())
	if err != nil {
		// Fail closed: an unreachable store must reject the create rather
		// than risk a double-booking.
		return nil, apperror.NewInternal("slot availability check failed", err)
	}
	if taken {
		return nil, apperror.NewSlotUnavailable(req.AppointmentDate, req.AppointmentTime)
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, err
	}

	s.dispatch(ctx, bk, notification.KindCreated)
	s.publishTransition(ctx, bk, events.BookingCreated, nil)

	result := toBookingDTO(bk)
	return &result, nil
}

// Confirm transitions a pending booking to confirmed. Confirming an
// already-confirmed booking returns the current state without error.
func (s *BookingService) Confirm(ctx context.Context, bookingID, staffID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Status() == bookingDomain.StatusConfirmed {
		result := toBookingDTO(bk)
		return &result, nil
	}

	expected := bk.Status()
	if err := bk.Confirm(staffID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, bk, expected); err != nil {
		return nil, err
	}

	s.dispatch(ctx, bk, notification.KindConfirmed)
	s.publishTransition(ctx, bk, events.BookingConfirmed, &staffID)

	result := toBookingDTO(bk)
	return &result, nil
}

// CheckIn transitions a pending or confirmed booking to checked_in. The
// appointment date must not be in the past in clinic-local time. Re-invoking
// on an already-checked-in booking returns the current state without error.
func (s *BookingService) CheckIn(ctx context.Context, bookingID, staffID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Status() == bookingDomain.StatusCheckedIn {
		result := toBookingDTO(bk)
		return &result, nil
	}

	expected := bk.Status()
	if err := bk.CheckIn(staffID, s.clinicNow()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, bk, expected); err != nil {
		return nil, err
	}

	s.dispatch(ctx, bk, notification.KindCheckedIn)
	s.publishTransition(ctx, bk, events.BookingCheckedIn, &staffID)

	result := toBookingDTO(bk)
	return &result, nil
}

// CheckOut transitions a checked-in booking to checked_out. Re-invoking on an
// already-checked-out booking returns the current state without error.
func (s *BookingService) CheckOut(ctx context.Context, bookingID, staffID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Status() == bookingDomain.StatusCheckedOut {
		result := toBookingDTO(bk)
		return &result, nil
	}

	expected := bk.Status()
	if err := bk.CheckOut(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, bk, expected); err != nil {
		return nil, err
	}

	s.logger.Info("booking checked out",
		zap.String("booking_id", bk.ID().String()),
		zap.String("staff_id", staffID.String()),
	)

	s.dispatch(ctx, bk, notification.KindCheckedOut)
	s.publishTransition(ctx, bk, events.BookingCheckedOut, &staffID)

	result := toBookingDTO(bk)
	return &result, nil
}

// Cancel transitions a pending or confirmed booking to cancelled.
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Status() == bookingDomain.StatusCancelled {
		result := toBookingDTO(bk)
		return &result, nil
	}

	expected := bk.Status()
	if err := bk.Cancel(actorID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, bk, expected); err != nil {
		return nil, err
	}

	s.dispatch(ctx, bk, notification.KindCancelled)
	s.publishTransition(ctx, bk, events.BookingCancelled, &actorID)

	result := toBookingDTO(bk)
	return &result, nil
}

// SweepAutoCancel force-cancels every pending or confirmed booking whose
// appointment time has passed without a check-in. Failures on individual
// bookings are logged and do not abort the sweep; re-running after a partial
// failure only affects bookings still in a cancellable state.
func (s *BookingService) SweepAutoCancel(ctx context.Context) (*SweepResult, error) {
	clinicNow := s.clinicNow()

	expired, err := s.repo.FindExpired(ctx, clinicNow)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}

	result := &SweepResult{CancelledIDs: []uuid.UUID{}}
	for _, bk := range expired {
		expected := bk.Status()
		if err := bk.AutoCancel(clinicNow); err != nil {
			s.logger.Warn("skipping booking during sweep",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.repo.UpdateStatus(ctx, bk, expected); err != nil {
			// Lost a race to a user-triggered transition, or the store
			// hiccuped. Either way the next sweep re-evaluates this booking.
			s.logger.Warn("failed to auto-cancel booking",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}

		s.dispatch(ctx, bk, notification.KindAutoCancelled)
		s.publishTransition(ctx, bk, events.BookingAutoCancelled, nil)

		result.CancelledCount++
		result.CancelledIDs = append(result.CancelledIDs, bk.ID())
	}

	if result.CancelledCount > 0 {
		s.publishEvent(ctx, events.SweepCompleted, "sweep", events.SweepCompletedEvent{
			CancelledCount: result.CancelledCount,
			CancelledIDs:   result.CancelledIDs,
			OccurredAt:     time.Now().UTC(),
		})
	}

	s.logger.Info("auto-cancel sweep completed",
		zap.Int("cancelled", result.CancelledCount),
		zap.Int("examined", len(expired)),
	)
	return result, nil
}

// Notify dispatches (or re-dispatches) a notification for a booking, e.g. a
// reminder. The dispatch outcome is always logged.
func (s *BookingService) Notify(ctx context.Context, bookingID uuid.UUID, kind notification.TransitionKind) (*DispatchResult, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	res, err := s.notifier.Notify(ctx, bk, kind)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Get retrieves a single booking by ID.
func (s *BookingService) Get(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetByCode retrieves a single booking by its booking code.
func (s *BookingService) GetByCode(ctx context.Context, code string) (*BookingDTO, error) {
	bk, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetCustomerBookings retrieves paginated bookings for a customer.
func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID uuid.UUID, page, limit int) (*PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		return nil, err
	}
	return paginate(bookings, total, page, limit), nil
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) (*PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return paginate(bookings, total, page, limit), nil
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// --- Helpers ---

// dispatch sends a transition notification. The booking's state change is
// already durable at this point; a channel failure is logged by the
// dispatcher and never surfaces to the transition caller.
func (s *BookingService) dispatch(ctx context.Context, bk *bookingDomain.Booking, kind notification.TransitionKind) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, bk, kind); err != nil {
		s.logger.Error("notification dispatch failed",
			zap.String("booking_id", bk.ID().String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (s *BookingService) publishTransition(ctx context.Context, bk *bookingDomain.Booking, eventType string, staffID *uuid.UUID) {
	s.publishEvent(ctx, eventType, bk.ID().String(), events.BookingEvent{
		BookingID:       bk.ID(),
		BookingCode:     bk.BookingCode(),
		CustomerID:      bk.CustomerID(),
		Status:          string(bk.Status()),
		AppointmentDate: bk.DateString(),
		AppointmentTime: bk.AppointmentTime(),
		StaffID:         staffID,
		OccurredAt:      time.Now().UTC(),
	})
}

func (s *BookingService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	if s.producer == nil {
		return
	}
	env, err := events.NewEnvelope("service-appointment", eventType, data)
	if err != nil {
		s.logger.Error("failed to create event envelope",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	if err := s.producer.Publish(ctx, events.TopicBookingEvents, key, env); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func paginate(bookings []*bookingDomain.Booking, total int64, page, limit int) *PaginatedResult[BookingDTO] {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return &PaginatedResult[BookingDTO]{Items: dtos, Total: total, Page: page, Limit: limit}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:              bk.ID(),
		BookingCode:     bk.BookingCode(),
		CustomerID:      bk.CustomerID(),
		PatientName:     bk.PatientName(),
		ContactPhone:    bk.ContactPhone(),
		ChatUserID:      bk.ChatUserID(),
		AppointmentDate: bk.DateString(),
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
