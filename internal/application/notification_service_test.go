package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Klinik-Sehat/service-appointment/internal/application"
	bookingDomain "github.com/Klinik-Sehat/service-appointment/internal/domain/booking"
	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
)

// fakeLogRepo is an in-memory append-only notification.LogRepository.
type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*notification.LogEntry
	err     error
}

func (r *fakeLogRepo) Append(_ context.Context, entry *notification.LogEntry) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLogRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*notification.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.LogEntry
	for _, e := range r.entries {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeChannel returns a canned receipt and error.
type fakeChannel struct {
	receipt notification.SendReceipt
	err     error
	sent    []string
}

func (c *fakeChannel) Name() string { return "fake" }

func (c *fakeChannel) Send(_ context.Context, recipient, _ string) (notification.SendReceipt, error) {
	c.sent = append(c.sent, recipient)
	return c.receipt, c.err
}

func notifyBooking(phone, chatUserID string) *bookingDomain.Booking {
	now := time.Now().UTC()
	date := now.AddDate(0, 0, 1)
	return bookingDomain.Reconstruct(
		uuid.New(), "AP-7KX2QD", uuid.New(), "Aisha Rahman",
		phone, chatUserID,
		time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		"09:00", "", bookingDomain.StatusConfirmed,
		nil, nil, nil, nil, nil, nil, now, now,
	)
}

func TestNotifySuccess(t *testing.T) {
	logs := &fakeLogRepo{}
	ch := &fakeChannel{receipt: notification.SendReceipt{StatusCode: 200, Body: "ok"}}
	svc := application.NewNotificationService(logs, ch, notification.ModePhone, zap.NewNop())
	bk := notifyBooking("+60123456789", "")

	res, err := svc.Notify(context.Background(), bk, notification.KindConfirmed)
	require.NoError(t, err)
	assert.True(t, res.Logged)
	assert.True(t, res.Sent)
	assert.Equal(t, notification.OutcomeSent, res.Outcome)
	assert.Equal(t, []string{"+60123456789"}, ch.sent)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, bk.ID(), entry.BookingID)
	assert.Equal(t, notification.KindConfirmed, entry.Kind)
	assert.Equal(t, notification.OutcomeSent, entry.Outcome)
	assert.Equal(t, 200, entry.ProviderStatus)
	assert.Contains(t, entry.Body, "AP-7KX2QD")
	assert.Contains(t, entry.Body, "confirmed")
}

func TestNotifyChannelFailureIsRecorded(t *testing.T) {
	logs := &fakeLogRepo{}
	ch := &fakeChannel{
		receipt: notification.SendReceipt{StatusCode: 502, Body: "bad gateway"},
		err:     errors.New("provider rejected the message"),
	}
	svc := application.NewNotificationService(logs, ch, notification.ModePhone, zap.NewNop())
	bk := notifyBooking("+60123456789", "")

	res, err := svc.Notify(context.Background(), bk, notification.KindCheckedOut)
	require.NoError(t, err, "a channel failure is recovered locally")
	assert.True(t, res.Logged)
	assert.False(t, res.Sent)
	assert.Equal(t, notification.OutcomeFailed, res.Outcome)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, notification.OutcomeFailed, entry.Outcome)
	assert.Equal(t, 502, entry.ProviderStatus)
	assert.Equal(t, "bad gateway", entry.ProviderResponse)
}

func TestNotifyNoRecipient(t *testing.T) {
	logs := &fakeLogRepo{}
	ch := &fakeChannel{}
	svc := application.NewNotificationService(logs, ch, notification.ModePhone, zap.NewNop())
	bk := notifyBooking("", "chat-123")

	res, err := svc.Notify(context.Background(), bk, notification.KindReminder)
	require.NoError(t, err)
	assert.True(t, res.Logged)
	assert.False(t, res.Sent)
	assert.Equal(t, notification.OutcomeNoRecipient, res.Outcome)
	assert.Empty(t, ch.sent, "nothing reaches the channel without a recipient")

	require.Len(t, logs.entries, 1)
	assert.Equal(t, notification.OutcomeNoRecipient, logs.entries[0].Outcome)
	assert.Empty(t, logs.entries[0].Recipient)
}

func TestNotifyChatRecipientMode(t *testing.T) {
	logs := &fakeLogRepo{}
	ch := &fakeChannel{receipt: notification.SendReceipt{StatusCode: 200}}
	svc := application.NewNotificationService(logs, ch, notification.ModeChat, zap.NewNop())
	bk := notifyBooking("+60123456789", "chat-123")

	res, err := svc.Notify(context.Background(), bk, notification.KindCreated)
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Equal(t, []string{"chat-123"}, ch.sent)
	assert.Equal(t, "chat-123", logs.entries[0].Recipient)
}

func TestNotifyLogAppendFailure(t *testing.T) {
	logs := &fakeLogRepo{err: errors.New("disk full")}
	ch := &fakeChannel{receipt: notification.SendReceipt{StatusCode: 200}}
	svc := application.NewNotificationService(logs, ch, notification.ModePhone, zap.NewNop())
	bk := notifyBooking("+60123456789", "")

	_, err := svc.Notify(context.Background(), bk, notification.KindCreated)
	require.Error(t, err, "failing to write the audit entry is the one fatal outcome")
}

func TestNotifyEveryAttemptAppendsOneEntry(t *testing.T) {
	logs := &fakeLogRepo{}
	ch := &fakeChannel{receipt: notification.SendReceipt{StatusCode: 200}}
	svc := application.NewNotificationService(logs, ch, notification.ModePhone, zap.NewNop())
	bk := notifyBooking("+60123456789", "")

	for i := 0; i < 3; i++ {
		_, err := svc.Notify(context.Background(), bk, notification.KindReminder)
		require.NoError(t, err)
	}

	history, err := svc.History(context.Background(), bk.ID())
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestRenderMessagePerKind(t *testing.T) {
	logs := &fakeLogRepo{}
	ch := &fakeChannel{receipt: notification.SendReceipt{StatusCode: 200}}
	svc := application.NewNotificationService(logs, ch, notification.ModePhone, zap.NewNop())
	bk := notifyBooking("+60123456789", "")

	wantFragment := map[notification.TransitionKind]string{
		notification.KindCreated:       "is booked for",
		notification.KindConfirmed:     "has been confirmed",
		notification.KindCheckedIn:     "checked in",
		notification.KindCheckedOut:    "is complete",
		notification.KindCancelled:     "has been cancelled",
		notification.KindAutoCancelled: "not attended",
		notification.KindReminder:      "reminder",
	}

	for kind, fragment := range wantFragment {
		_, err := svc.Notify(context.Background(), bk, kind)
		require.NoError(t, err)
		entry := logs.entries[len(logs.entries)-1]
		assert.Truef(t, strings.Contains(entry.Body, fragment),
			"message for %s should mention %q, got %q", kind, fragment, entry.Body)
		assert.Contains(t, entry.Body, bk.PatientName())
	}
}
