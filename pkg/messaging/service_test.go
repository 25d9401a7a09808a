package messaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubSender delivers everything except recipients containing "555", which it rejects.
type stubSender struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (s *stubSender) Name() string { return "stub" }

func (s *stubSender) Send(_ context.Context, msg notification.Message) (*notification.Delivery, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	n := len(s.sent)
	s.mu.Unlock()

	d := &notification.Delivery{
		Provider:   "stub",
		ExternalID: fmt.Sprintf("stub_%d", n),
		Status:     notification.StatusDelivered,
		SentAt:     time.Now().UTC(),
	}
	if strings.Contains(msg.To, "555") {
		d.Status = notification.StatusFailed
		d.Error = "rejected by carrier"
	}
	if msg.Channel == notification.ChannelVoice {
		d.Answered = true
		d.DurationSeconds = 45
	}
	return d, nil
}

func (s *stubSender) messages() []notification.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Message(nil), s.sent...)
}

type fixture struct {
	svc    *Service
	repo   *repository.MessagesRepository
	sender *stubSender
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := repotest.NewDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	sender := &stubSender{}
	n := notification.New(notification.Config{Seed: 1}, discardLogger)
	for _, ch := range []string{notification.ChannelEmail, notification.ChannelSMS, notification.ChannelVoice, notification.ChannelWhatsApp} {
		n.Register(ch, sender)
	}
	repo := repository.NewMessagesRepository(db)
	svc := NewService(repo, n, Config{MaxBulkRecipients: 5, Concurrency: 3}, nil, discardLogger)
	return fixture{svc: svc, repo: repo, sender: sender}
}

func TestService_Send_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   SendInput
		msg  string
	}{
		{"missing channel", SendInput{Recipient: "+94771234567", Content: "hi"}, "channel is required"},
		{"missing recipient", SendInput{Channel: "sms", Content: "hi"}, "recipient is required"},
		{"missing content", SendInput{Channel: "sms", Recipient: "+94771234567"}, "message_content is required"},
		{"bad channel", SendInput{Channel: "fax", Recipient: "+94771234567", Content: "hi"}, "Invalid communication channel"},
		{"bad phone", SendInput{Channel: "whatsapp", Recipient: "0771234567", Content: "hi"}, "Invalid phone number format"},
		{"bad country plan", SendInput{Channel: "sms", Recipient: "+9477123", Country: "LK", Content: "hi"}, "Invalid phone number format"},
		{"bad email", SendInput{Channel: "email", Recipient: "nimal@", Content: "hi"}, "Invalid email address format"},
		{"too long", SendInput{Channel: "voice", Recipient: "+94771234567", Content: strings.Repeat("x", 301)}, "Message too long. Maximum 300 characters for voice"},
		{"too long sms", SendInput{Channel: "sms", Recipient: "+94771234567", Content: strings.Repeat("x", 161)}, "Message too long. Maximum 160 characters for sms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(context.Background(), uuid.New(), uuid.New(), tt.in)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
	assert.Empty(t, f.sender.messages())
}

func TestService_Send(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	m, err := f.svc.Send(ctx, tenantID, userID, SendInput{Channel: "WhatsApp", Recipient: "+91 98765 43210", Message: "Namaste"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageDelivered, m.Status)
	assert.Equal(t, "+919876543210", m.Recipient)
	assert.Equal(t, "Namaste", m.Content)
	assert.Equal(t, "IN", m.Country)
	assert.Equal(t, "stub", m.Provider)
	assert.False(t, m.Simulated)
	assert.InDelta(t, 0.004, m.Cost, 1e-9)
	require.NotNil(t, m.DeliveredAt)

	failed, err := f.svc.Send(ctx, tenantID, userID, SendInput{Channel: "sms", Recipient: "+94775550000", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageFailed, failed.Status)
	assert.Equal(t, "rejected by carrier", failed.ErrorMessage)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Zero(t, failed.Cost)

	items, pg, err := f.svc.ListMessages(ctx, tenantID, repository.MessageFilter{Status: domain.MessageFailed}, domain.NewPage(1, 20, 20))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), pg.Total)
}

func TestService_Send_ScheduledThenDispatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	at := time.Now().Add(time.Hour)
	m, err := f.svc.Send(ctx, tenantID, userID, SendInput{Channel: "email", Recipient: "nimal@acme.lk", Subject: "Hi", Content: "Hello", ScheduledAt: &at})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageQueued, m.Status)
	assert.Empty(t, f.sender.messages())

	n, err := f.svc.DispatchDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.DispatchDue(ctx, at.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.repo.Get(ctx, tenantID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageDelivered, stored.Status)
	require.Len(t, f.sender.messages(), 1)
	assert.Equal(t, "Hi", f.sender.messages()[0].Subject)
}

func TestService_DispatchDue_RetriesProviderFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	m, err := f.svc.Send(ctx, tenantID, uuid.New(), SendInput{Channel: "sms", Recipient: "+94775550000", Content: "hi"})
	require.NoError(t, err)
	require.Equal(t, 1, m.RetryCount)

	for i := 0; i < 5; i++ {
		_, err := f.svc.DispatchDue(ctx, time.Now(), 10)
		require.NoError(t, err)
	}

	stored, err := f.repo.Get(ctx, tenantID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageFailed, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
	assert.Len(t, f.sender.messages(), 3)
}

// acceptingSender answers like Twilio does for calls: accepted, delivery pending.
type acceptingSender struct {
	calls int
}

func (s *acceptingSender) Name() string { return "accepting" }

func (s *acceptingSender) Send(_ context.Context, _ notification.Message) (*notification.Delivery, error) {
	s.calls++
	return &notification.Delivery{
		Provider:   "accepting",
		ExternalID: fmt.Sprintf("CA%d", s.calls),
		Status:     notification.StatusQueued,
		SentAt:     time.Now().UTC(),
	}, nil
}

func TestService_DispatchDue_SkipsProviderAcceptedMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	sender := &acceptingSender{}
	n := notification.New(notification.Config{Seed: 1}, discardLogger)
	n.Register(notification.ChannelVoice, sender)
	n.Register(notification.ChannelSMS, sender)
	svc := NewService(f.repo, n, Config{MaxBulkRecipients: 5, Concurrency: 1, MaxRetries: 3}, nil, discardLogger)

	voice, err := svc.Send(ctx, tenantID, uuid.New(), SendInput{Channel: "voice", Recipient: "+94771234567", Content: "Your order is ready"})
	require.NoError(t, err)
	sms, err := svc.Send(ctx, tenantID, uuid.New(), SendInput{Channel: "sms", Recipient: "+94771234567", Content: "hi"})
	require.NoError(t, err)
	require.Equal(t, 2, sender.calls)

	for i := 0; i < 3; i++ {
		handled, err := svc.DispatchDue(ctx, time.Now(), 10)
		require.NoError(t, err)
		assert.Zero(t, handled)
	}
	assert.Equal(t, 2, sender.calls)

	for _, id := range []uuid.UUID{voice.ID, sms.ID} {
		stored, err := f.repo.Get(ctx, tenantID, id)
		require.NoError(t, err)
		assert.Equal(t, domain.MessageSent, stored.Status)
		assert.Equal(t, notification.StatusQueued, stored.Metadata["provider_status"])
		assert.NotEmpty(t, stored.ExternalID)
	}
}

func TestService_BulkSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	res, err := f.svc.BulkSend(ctx, tenantID, userID, BulkInput{
		Channel:    "sms",
		Recipients: []string{"+94771234567", "+919876543210", "+94775550000", "bogus"},
		Content:    "Sale today",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalSent)
	assert.Equal(t, 2, res.TotalFailed)
	assert.InDelta(t, 0.036, res.TotalCost, 1e-9)

	failures := map[string]string{}
	for _, fl := range res.Failed {
		failures[fl.Recipient] = fl.Error
	}
	assert.Equal(t, "rejected by carrier", failures["+94775550000"])
	assert.Equal(t, "Invalid phone number format", failures["bogus"])

	_, err = f.svc.BulkSend(ctx, tenantID, userID, BulkInput{})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.BulkSend(ctx, tenantID, userID, BulkInput{
		Channel:    "sms",
		Recipients: []string{"+94771234561", "+94771234562", "+94771234563", "+94771234564", "+94771234565", "+94771234566"},
		Content:    "x",
	})
	assert.EqualError(t, err, "at most 5 messages per bulk send")

	mixed, err := f.svc.BulkSend(ctx, tenantID, userID, BulkInput{Messages: []SendInput{
		{Channel: "email", Recipient: "nimal@acme.lk", Content: "hello"},
		{Channel: "whatsapp", Recipient: "+94771234567", Content: "hello"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, mixed.TotalSent)
}

func TestService_SendTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendTemplate(ctx, uuid.New(), uuid.New(), TemplateSendInput{TemplateID: "nope", Recipient: "+94771234567"})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	_, err = f.svc.SendTemplate(ctx, uuid.New(), uuid.New(), TemplateSendInput{TemplateID: "order_confirmation", Recipient: "+94771234567", Parameters: []string{"42"}})
	assert.EqualError(t, err, "template order_confirmation needs 3 parameters")

	m, err := f.svc.SendTemplate(ctx, uuid.New(), uuid.New(), TemplateSendInput{
		TemplateName: "welcome_message",
		Recipient:    "+94771234567",
		Parameters:   []string{"Lanka Tea"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Lanka Tea! We're excited to serve you. Reply STOP to opt out.", m.Content)
	assert.Equal(t, "welcome_message", m.TemplateID)
	assert.Equal(t, "template", m.MessageType)

	sent := f.sender.messages()
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Template)
	assert.Equal(t, []string{"Lanka Tea"}, sent[0].Template.Parameters)
}

func TestService_EmailSMSAndVoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	_, err := f.svc.SendEmail(ctx, tenantID, userID, EmailInput{ToEmail: "nimal@acme.lk", Content: "x"})
	assert.EqualError(t, err, "subject is required")

	email, err := f.svc.SendEmail(ctx, tenantID, userID, EmailInput{Recipient: "nimal@acme.lk", Subject: "Offer", Content: "Hello there"})
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelEmail, email.Channel)
	assert.NotEmpty(t, f.sender.messages()[0].HTML)

	sms, err := f.svc.SendSMS(ctx, tenantID, userID, SMSInput{ToNumber: "+94771234567", Message: strings.Repeat("a", 160)})
	require.NoError(t, err)
	assert.InDelta(t, 0.02, sms.Cost, 1e-9)

	_, err = f.svc.Call(ctx, tenantID, userID, CallInput{Recipient: "+94771234567"})
	assert.EqualError(t, err, "message_content is required")

	call, err := f.svc.Call(ctx, tenantID, userID, CallInput{Recipient: "+94771234567", Message: "Your order is ready"})
	require.NoError(t, err)
	assert.Equal(t, domain.CallCompleted, call.Status)
	assert.True(t, call.Answered)
	assert.Equal(t, 45, call.DurationSeconds)
	assert.Equal(t, "alice", f.sender.messages()[2].Voice)
	require.NotNil(t, call.EndedAt)

	calls, err := f.svc.ListCalls(ctx, tenantID, 10)
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestService_Campaigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	_, err := f.svc.CreateCampaign(ctx, tenantID, userID, CampaignInput{Name: "Launch", Channel: "sms", MessageContent: "Hi"})
	assert.EqualError(t, err, "Recipients must be a non-empty array")

	c, err := f.svc.CreateCampaign(ctx, tenantID, userID, CampaignInput{
		Name:           "Launch",
		Channel:        "sms",
		MessageContent: "New menu this week",
		Recipients:     []string{"+94771234567", "+919876543210", "+94775550000"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignDraft, c.Status)
	assert.InDelta(t, 0.056, c.EstimatedCost, 1e-9)

	sent, res, err := f.svc.SendCampaign(ctx, tenantID, userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignCompleted, sent.Status)
	assert.Equal(t, 2, sent.TotalSent)
	assert.Equal(t, 2, sent.TotalDelivered)
	assert.Equal(t, 1, sent.TotalFailed)
	assert.Equal(t, 2, res.TotalSent)

	items, _, err := f.svc.ListMessages(ctx, tenantID, repository.MessageFilter{CampaignID: &c.ID}, domain.NewPage(1, 20, 20))
	require.NoError(t, err)
	assert.Len(t, items, 3)

	_, _, err = f.svc.SendCampaign(ctx, tenantID, userID, c.ID)
	assert.ErrorIs(t, err, domain.ErrCampaignSent)

	later := time.Now().Add(24 * time.Hour)
	scheduled, err := f.svc.CreateCampaign(ctx, tenantID, userID, CampaignInput{
		Name: "Later", Channel: "email", MessageContent: "Soon", Recipients: []string{"a@b.lk"}, ScheduledAt: &later,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignScheduled, scheduled.Status)

	list, err := f.svc.ListCampaigns(ctx, tenantID, "sms")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_Analytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	for _, r := range []string{"+94771234567", "+94771234568", "+94775550000"} {
		_, err := f.svc.Send(ctx, tenantID, userID, SendInput{Channel: "whatsapp", Recipient: r, Content: "hi"})
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, tenantID, userID, SendInput{Channel: "email", Recipient: "a@b.lk", Content: "hi"})
	require.NoError(t, err)

	a, err := f.svc.Analytics(ctx, tenantID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "whatsapp"}, a.Channels)

	wa := a.ChannelBreakdown["whatsapp"]
	assert.Equal(t, int64(3), wa.Messages)
	assert.Equal(t, int64(2), wa.Delivered)
	assert.Equal(t, int64(1), wa.Failed)
	assert.InDelta(t, 66.67, wa.DeliveryRate, 1e-9)
	assert.InDelta(t, 0.01, wa.Cost, 1e-9)

	assert.Equal(t, int64(4), a.Overview.TotalMessages)
	assert.InDelta(t, 75, a.Overview.DeliveryRate, 1e-9)
	assert.InDelta(t, 0.011, a.Overview.TotalCost, 1e-9)

	_, err = f.svc.Analytics(ctx, tenantID, 400)
	assert.True(t, domain.IsValidation(err))
}
