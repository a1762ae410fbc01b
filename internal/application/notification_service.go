package application

import (
	"context"
	"fmt"

	bookingDomain "github.com/Klinik-Sehat/service-appointment/internal/domain/booking"
	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DispatchResult reports what happened to one notification dispatch. Logged
// is always true when the dispatcher returns without error: every attempt
// appends exactly one audit entry, delivered or not.
type DispatchResult struct {
	Logged  bool                 `json:"logged"`
	Sent    bool                 `json:"sent"`
	Outcome notification.Outcome `json:"outcome"`
}

// NotificationService renders a lifecycle transition into a human-readable
// message, sends it through the configured channel, and durably records the
// attempt. A failed or impossible send is recovered locally; it never
// invalidates the transition that triggered it.
type NotificationService struct {
	logs    notification.LogRepository
	channel notification.Channel
	mode    notification.RecipientMode
	logger  *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	logs notification.LogRepository,
	channel notification.Channel,
	mode notification.RecipientMode,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		logs:    logs,
		channel: channel,
		mode:    mode,
		logger:  logger,
	}
}

// Notify dispatches one notification for the booking's transition kind. The
// returned error only signals a failure to write the audit entry; a channel
// failure is recorded in the entry and reported through the result.
func (s *NotificationService) Notify(ctx context.Context, bk *bookingDomain.Booking, kind notification.TransitionKind) (*DispatchResult, error) {
	body := renderMessage(bk, kind)
	recipient := s.recipientOf(bk)

	if recipient == "" {
		// No contact channel on file. The transition already happened; record
		// the condition and report success-of-process.
		entry := notification.NewLogEntry(
			bk.ID(), s.channel.Name(), s.mode, "", kind, body,
			notification.OutcomeNoRecipient, 0, "",
		)
		if err := s.logs.Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to append notification log: %w", err)
		}
		s.logger.Warn("notification skipped: no recipient",
			zap.String("booking_id", bk.ID().String()),
			zap.String("kind", string(kind)),
		)
		return &DispatchResult{Logged: true, Sent: false, Outcome: notification.OutcomeNoRecipient}, nil
	}

	receipt, sendErr := s.channel.Send(ctx, recipient, body)

	outcome := notification.OutcomeSent
	if sendErr != nil {
		outcome = notification.OutcomeFailed
	}

	entry := notification.NewLogEntry(
		bk.ID(), s.channel.Name(), s.mode, recipient, kind, body,
		outcome, receipt.StatusCode, receipt.Body,
	)
	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append notification log: %w", err)
	}

	if sendErr != nil {
		s.logger.Error("notification send failed",
			zap.String("booking_id", bk.ID().String()),
			zap.String("kind", string(kind)),
			zap.Int("provider_status", receipt.StatusCode),
			zap.Error(sendErr),
		)
		return &DispatchResult{Logged: true, Sent: false, Outcome: notification.OutcomeFailed}, nil
	}

	s.logger.Info("notification sent",
		zap.String("booking_id", bk.ID().String()),
		zap.String("kind", string(kind)),
	)
	return &DispatchResult{Logged: true, Sent: true, Outcome: notification.OutcomeSent}, nil
}

// History returns all dispatch attempts for a booking, oldest first.
func (s *NotificationService) History(ctx context.Context, bookingID uuid.UUID) ([]*notification.LogEntry, error) {
	return s.logs.FindByBookingID(ctx, bookingID)
}

func (s *NotificationService) recipientOf(bk *bookingDomain.Booking) string {
	if s.mode == notification.ModeChat {
		return bk.ChatUserID()
	}
	return bk.ContactPhone()
}

// renderMessage selects the template for the transition kind and fills it
// from the booking's subject and scheduling attributes.
func renderMessage(bk *bookingDomain.Booking, kind notification.TransitionKind) string {
	when := fmt.Sprintf("%s at %s", bk.DateString(), bk.AppointmentTime())

	switch kind {
	case notification.KindCreated:
		return fmt.Sprintf("Hello %s, your appointment %s is booked for %s. We look forward to seeing you.",
			bk.PatientName(), bk.BookingCode(), when)
	case notification.KindReminder:
		return fmt.Sprintf("Hello %s, this is a reminder of your appointment %s on %s.",
			bk.PatientName(), bk.BookingCode(), when)
	case notification.KindConfirmed:
		return fmt.Sprintf("Hello %s, your appointment %s on %s has been confirmed.",
			bk.PatientName(), bk.BookingCode(), when)
	case notification.KindCheckedIn:
		return fmt.Sprintf("Hello %s, you are checked in for appointment %s. Please take a seat.",
			bk.PatientName(), bk.BookingCode())
	case notification.KindCheckedOut:
		return fmt.Sprintf("Hello %s, your visit for appointment %s is complete. Get well soon.",
			bk.PatientName(), bk.BookingCode())
	case notification.KindCancelled:
		return fmt.Sprintf("Hello %s, your appointment %s on %s has been cancelled.",
			bk.PatientName(), bk.BookingCode(), when)
	case notification.KindAutoCancelled:
		return fmt.Sprintf("Hello %s, your appointment %s on %s was cancelled because it was not attended.",
			bk.PatientName(), bk.BookingCode(), when)
	default:
		return fmt.Sprintf("Hello %s, the status of your appointment %s is now %s.",
			bk.PatientName(), bk.BookingCode(), bk.Status())
	}
}
