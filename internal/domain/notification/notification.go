package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransitionKind names the booking lifecycle transition a notification is
// tied to. It selects the message template.
type TransitionKind string

const (
	KindCreated       TransitionKind = "created"
	KindConfirmed     TransitionKind = "confirmed"
	KindCheckedIn     TransitionKind = "checked_in"
	KindCheckedOut    TransitionKind = "checked_out"
	KindCancelled     TransitionKind = "cancelled"
	KindAutoCancelled TransitionKind = "auto_cancelled"
	KindReminder      TransitionKind = "reminder"
)

// IsValid returns true if the kind is recognized.
func (k TransitionKind) IsValid() bool {
	switch k {
	case KindCreated, KindConfirmed, KindCheckedIn, KindCheckedOut,
		KindCancelled, KindAutoCancelled, KindReminder:
		return true
	}
	return false
}

// ParseKind converts a string to a TransitionKind.
func ParseKind(s string) (TransitionKind, error) {
	kind := TransitionKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid transition kind: %s", s)
	}
	return kind, nil
}

// RecipientMode selects which booking contact field is used as the recipient.
type RecipientMode string

const (
	ModePhone RecipientMode = "phone"
	ModeChat  RecipientMode = "chat"
)

// Outcome is the recorded result of one dispatch attempt.
type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeFailed      Outcome = "failed"
	OutcomeNoRecipient Outcome = "no_recipient"
)

// LogEntry is an immutable audit record of one dispatch attempt. Exactly one
// entry is appended per attempt, whether or not the send succeeded.
type LogEntry struct {
	ID               uuid.UUID
	BookingID        uuid.UUID
	Channel          string
	RecipientMode    RecipientMode
	Recipient        string
	Kind             TransitionKind
	Body             string
	Outcome          Outcome
	ProviderStatus   int
	ProviderResponse string
	CreatedAt        time.Time
}

// NewLogEntry creates a LogEntry for a dispatch attempt that just happened.
func NewLogEntry(
	bookingID uuid.UUID,
	channel string,
	mode RecipientMode,
	recipient string,
	kind TransitionKind,
	body string,
	outcome Outcome,
	providerStatus int,
	providerResponse string,
) *LogEntry {
	return &LogEntry{
		ID:               uuid.New(),
		BookingID:        bookingID,
		Channel:          channel,
		RecipientMode:    mode,
		Recipient:        recipient,
		Kind:             kind,
		Body:             body,
		Outcome:          outcome,
		ProviderStatus:   providerStatus,
		ProviderResponse: providerResponse,
		CreatedAt:        time.Now().UTC(),
	}
}

// SendReceipt is the channel's raw response to a send attempt.
type SendReceipt struct {
	StatusCode int
	Body       string
}

// Channel is the opaque "send message" capability. Implementations wrap a
// messaging provider; the wire format is theirs alone.
type Channel interface {
	// Name identifies the channel in log entries.
	Name() string

	// Send delivers body to the recipient. The receipt is recorded even when
	// err is non-nil.
	Send(ctx context.Context, recipient, body string) (SendReceipt, error)
}

// LogRepository persists dispatch audit records. Entries are append-only.
type LogRepository interface {
	// Append durably records one dispatch attempt.
	Append(ctx context.Context, entry *LogEntry) error

	// FindByBookingID returns all dispatch attempts for a booking, oldest first.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*LogEntry, error)
}
