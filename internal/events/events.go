package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicBookingEvents carries every booking lifecycle event.
const TopicBookingEvents = "appointment.booking.events"

// Event type names, one per lifecycle transition.
const (
	BookingCreated       = "booking.created"
	BookingConfirmed     = "booking.confirmed"
	BookingCheckedIn     = "booking.checked_in"
	BookingCheckedOut    = "booking.checked_out"
	BookingCancelled     = "booking.cancelled"
	BookingAutoCancelled = "booking.auto_cancelled"
)

// BookingEvent is the payload published for every lifecycle transition.
// StaffID is set only for staff-driven transitions.
type BookingEvent struct {
	BookingID       uuid.UUID  `json:"booking_id"`
	BookingCode     string     `json:"booking_code"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	Status          string     `json:"status"`
	AppointmentDate string     `json:"appointment_date"`
	AppointmentTime string     `json:"appointment_time"`
	StaffID         *uuid.UUID `json:"staff_id,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// SweepCompletedEvent summarizes one auto-cancellation sweep run.
type SweepCompletedEvent struct {
	CancelledCount int         `json:"cancelled_count"`
	CancelledIDs   []uuid.UUID `json:"cancelled_ids"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// SweepCompleted is the event type for sweep summaries.
const SweepCompleted = "booking.sweep_completed"
