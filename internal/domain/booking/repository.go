package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for booking aggregates.
//
// UpdateStatus is the sole mutation path for lifecycle transitions: it must
// atomically verify that the stored status still equals expectedStatus before
// writing the aggregate's transition fields, and report a stale-transition
// conflict otherwise.
type Repository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByCode retrieves a booking by its human-facing booking code.
	FindByCode(ctx context.Context, code string) (*Booking, error)

	// FindByCustomerID retrieves bookings belonging to a customer with pagination.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// SlotTaken reports whether an existing booking in a slot-blocking status
	// occupies the given (date, time) slot. Implementations must fail closed:
	// an error here rejects the create.
	SlotTaken(ctx context.Context, date time.Time, timeOfDay string) (bool, error)

	// FindExpired returns bookings still in pending or confirmed whose
	// appointment date/time is strictly before the given clinic-local moment.
	FindExpired(ctx context.Context, clinicNow time.Time) ([]*Booking, error)

	// Save persists a new booking. A store-level constraint on active-status
	// slots closes the create/create race; a violation surfaces as a
	// slot-unavailable error.
	Save(ctx context.Context, bk *Booking) error

	// UpdateStatus writes the aggregate's status and transition fields,
	// guarded by the status observed before the transition was applied.
	UpdateStatus(ctx context.Context, bk *Booking, expectedStatus Status) error
}
