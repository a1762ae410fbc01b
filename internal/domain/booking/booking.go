package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Klinik-Sehat/service-appointment/internal/domain/apperror"
	"github.com/google/uuid"
)

const bookingCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DateLayout is the calendar-date format for appointment dates.
const DateLayout = "2006-01-02"

// TimeLayout is the time-of-day format for appointment slots.
const TimeLayout = "15:04"

// Booking is the aggregate root for the appointment booking domain. A slot is
// one (appointment_date, appointment_time) pair in clinic-local time; at most
// one booking in a slot-blocking status may occupy it.
type Booking struct {
	id          uuid.UUID
	bookingCode string
	customerID  uuid.UUID
	patientName string

	// Contact channel references used as notification recipients. Presence is
	// checked at dispatch time, not here.
	contactPhone string
	chatUserID   string

	appointmentDate time.Time // calendar date, clinic-local, midnight UTC
	appointmentTime string    // "15:04"
	notes           string

	status      Status
	confirmedBy *uuid.UUID
	checkinBy   *uuid.UUID
	checkinAt   *time.Time
	checkoutAt  *time.Time
	cancelledBy *uuid.UUID
	cancelledAt *time.Time

	createdAt time.Time
	updatedAt time.Time
}

// generateBookingCode creates a display-only booking code in the format "AP-XXXXXX".
func generateBookingCode() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingCodeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking code: %w", err)
		}
		result[i] = bookingCodeChars[n.Int64()]
	}
	return "AP-" + string(result), nil
}

// NewBooking creates a new Booking aggregate. The initial status is pending,
// or confirmed under the clinic's auto-confirm policy. clinicNow is the
// current wall-clock time in the clinic's timezone.
func NewBooking(
	customerID uuid.UUID,
	patientName string,
	contactPhone string,
	chatUserID string,
	appointmentDate string,
	appointmentTime string,
	notes string,
	autoConfirm bool,
	clinicNow time.Time,
) (*Booking, error) {
	if customerID == uuid.Nil {
		return nil, apperror.NewValidation("customer ID is required")
	}
	if patientName == "" {
		return nil, apperror.NewValidation("patient name is required")
	}
	date, err := time.ParseInLocation(DateLayout, appointmentDate, time.UTC)
	if err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid appointment date: %s", appointmentDate))
	}
	parsedTime, err := time.Parse(TimeLayout, appointmentTime)
	if err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid appointment time: %s", appointmentTime))
	}
	// Store the zero-padded form. The parser accepts "9:00", but slot equality
	// and the expiry cutoff compare time strings, so "9:00" and "09:00" must
	// not name different slots.
	appointmentTime = parsedTime.Format(TimeLayout)
	if appointmentDate < clinicNow.Format(DateLayout) {
		return nil, apperror.NewValidation("appointment date cannot be in the past")
	}

	code, err := generateBookingCode()
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if autoConfirm {
		status = StatusConfirmed
	}

	now := time.Now().UTC()
	return &Booking{
		id:              uuid.New(),
		bookingCode:     code,
		customerID:      customerID,
		patientName:     patientName,
		contactPhone:    contactPhone,
		chatUserID:      chatUserID,
		appointmentDate: date,
		appointmentTime: appointmentTime,
		notes:           notes,
		status:          status,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	bookingCode string,
	customerID uuid.UUID,
	patientName string,
	contactPhone string,
	chatUserID string,
	appointmentDate time.Time,
	appointmentTime string,
	notes string,
	status Status,
	confirmedBy *uuid.UUID,
	checkinBy *uuid.UUID,
	checkinAt *time.Time,
	checkoutAt *time.Time,
	cancelledBy *uuid.UUID,
	cancelledAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		bookingCode:     bookingCode,
		customerID:      customerID,
		patientName:     patientName,
		contactPhone:    contactPhone,
		chatUserID:      chatUserID,
		appointmentDate: appointmentDate,
		appointmentTime: appointmentTime,
		notes:           notes,
		status:          status,
		confirmedBy:     confirmedBy,
		checkinBy:       checkinBy,
		checkinAt:       checkinAt,
		checkoutAt:      checkoutAt,
		cancelledBy:     cancelledBy,
		cancelledAt:     cancelledAt,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingCode returns the human-facing booking code.
func (b *Booking) BookingCode() string { return b.bookingCode }

// CustomerID returns the customer's identity reference.
func (b *Booking) CustomerID() uuid.UUID { return b.customerID }

// PatientName returns the patient's display name.
func (b *Booking) PatientName() string { return b.patientName }

// ContactPhone returns the patient's phone number, possibly empty.
func (b *Booking) ContactPhone() string { return b.contactPhone }

// ChatUserID returns the patient's messaging-user identifier, possibly empty.
func (b *Booking) ChatUserID() string { return b.chatUserID }

// AppointmentDate returns the appointment calendar date.
func (b *Booking) AppointmentDate() time.Time { return b.appointmentDate }

// DateString returns the appointment date formatted as "2006-01-02".
func (b *Booking) DateString() string { return b.appointmentDate.Format(DateLayout) }

// AppointmentTime returns the appointment time-of-day as "15:04".
func (b *Booking) AppointmentTime() string { return b.appointmentTime }

// Notes returns any additional notes for the booking.
func (b *Booking) Notes() string { return b.notes }

// Status returns the current booking status.
func (b *Booking) Status() Status { return b.status }

// ConfirmedBy returns the staff member who confirmed the booking, or nil.
func (b *Booking) ConfirmedBy() *uuid.UUID { return b.confirmedBy }

// CheckinBy returns the staff member who checked the patient in, or nil.
func (b *Booking) CheckinBy() *uuid.UUID { return b.checkinBy }

// CheckinAt returns the check-in timestamp, or nil.
func (b *Booking) CheckinAt() *time.Time { return b.checkinAt }

// CheckoutAt returns the check-out timestamp, or nil.
func (b *Booking) CheckoutAt() *time.Time { return b.checkoutAt }

// CancelledBy returns the actor who cancelled the booking, or nil.
func (b *Booking) CancelledBy() *uuid.UUID { return b.cancelledBy }

// CancelledAt returns the cancellation timestamp, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Confirm transitions the booking from pending to confirmed.
func (b *Booking) Confirm(staffID uuid.UUID) error {
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return apperror.NewInvalidTransition(string(b.status), string(StatusConfirmed))
	}
	b.status = StatusConfirmed
	b.confirmedBy = &staffID
	b.updatedAt = time.Now().UTC()
	return nil
}

// CheckIn transitions the booking to checked_in. clinicNow is the current
// wall-clock time in the clinic's timezone; check-in on a past-dated
// appointment is rejected.
func (b *Booking) CheckIn(staffID uuid.UUID, clinicNow time.Time) error {
	if !b.status.CanTransitionTo(StatusCheckedIn) {
		return apperror.NewInvalidTransition(string(b.status), string(StatusCheckedIn))
	}
	if b.DateString() < clinicNow.Format(DateLayout) {
		return apperror.NewAppointmentExpired(b.DateString())
	}
	now := time.Now().UTC()
	b.status = StatusCheckedIn
	b.checkinBy = &staffID
	b.checkinAt = &now
	b.updatedAt = now
	return nil
}

// CheckOut transitions the booking from checked_in to checked_out.
func (b *Booking) CheckOut() error {
	if !b.status.CanTransitionTo(StatusCheckedOut) {
		return apperror.NewInvalidTransition(string(b.status), string(StatusCheckedOut))
	}
	now := time.Now().UTC()
	b.status = StatusCheckedOut
	b.checkoutAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to cancelled by an explicit actor.
func (b *Booking) Cancel(cancelledBy uuid.UUID) error {
	if !b.status.CanTransitionTo(StatusCancelled) {
		return apperror.NewInvalidTransition(string(b.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancelledBy = &cancelledBy
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// AutoCancel transitions the booking to auto_cancelled. The booking must have
// expired without a check-in.
func (b *Booking) AutoCancel(clinicNow time.Time) error {
	if !b.status.CanTransitionTo(StatusAutoCancelled) {
		return apperror.NewInvalidTransition(string(b.status), string(StatusAutoCancelled))
	}
	if !b.Expired(clinicNow) {
		return apperror.NewValidation("appointment has not yet passed")
	}
	now := time.Now().UTC()
	b.status = StatusAutoCancelled
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// Expired reports whether the appointment's date and time are strictly before
// clinicNow (clinic-local wall clock).
func (b *Booking) Expired(clinicNow time.Time) bool {
	today := clinicNow.Format(DateLayout)
	if b.DateString() != today {
		return b.DateString() < today
	}
	return b.appointmentTime < clinicNow.Format(TimeLayout)
}
