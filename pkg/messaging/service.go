// Package messaging sends messages over whatsapp, email, sms and voice, keeps
// their delivery history and runs campaigns.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/metrics"
	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
)

// Config tunes the messaging service.
type Config struct {
	MaxBulkRecipients int
	Concurrency       int
	MaxRetries        int
}

// Service implements the communication use cases.
type Service struct {
	repo     *repository.MessagesRepository
	notifier *notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

// NewService creates a messaging service.
func NewService(repo *repository.MessagesRepository, notifier *notification.Notifier, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	if cfg.MaxBulkRecipients <= 0 {
		cfg.MaxBulkRecipients = 1000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendInput describes one outbound message. Message is accepted as an alias of
// message_content.
type SendInput struct {
	Channel     string         `json:"channel"`
	Recipient   string         `json:"recipient"`
	Content     string         `json:"message_content"`
	Message     string         `json:"message"`
	Subject     string         `json:"subject"`
	HTML        string         `json:"html_content"`
	MessageType string         `json:"message_type"`
	Country     string         `json:"country"`
	ScheduledAt *time.Time     `json:"scheduled_time"`
	Metadata    domain.JSONMap `json:"metadata"`

	campaignID *uuid.UUID
	template   *notification.Template
}

func (in *SendInput) normalize() {
	in.Channel = strings.ToLower(strings.TrimSpace(in.Channel))
	in.Recipient = strings.TrimSpace(in.Recipient)
	if in.Content == "" {
		in.Content = in.Message
	}
	if in.Channel != domain.ChannelEmail {
		if clean := CleanPhone(in.Recipient); clean != "" {
			in.Recipient = clean
		}
	}
}

func (in *SendInput) validate() error {
	switch {
	case in.Channel == "":
		return domain.Required("channel")
	case in.Recipient == "":
		return domain.Required("recipient")
	case strings.TrimSpace(in.Content) == "" && in.template == nil:
		return domain.Required("message_content")
	}
	ch, ok := Channels[in.Channel]
	if !ok {
		return domain.NewValidationError("channel", "Invalid communication channel")
	}
	if err := validateRecipient(in.Channel, in.Recipient, in.Country); err != nil {
		return err
	}
	if n := len([]rune(in.Content)); n > ch.MaxMessageLength {
		return domain.NewValidationError("message_content", "Message too long. Maximum %d characters for %s", ch.MaxMessageLength, in.Channel)
	}
	return nil
}

func (s *Service) newMessage(tenantID, userID uuid.UUID, in *SendInput) *domain.Message {
	messageType := in.MessageType
	if messageType == "" {
		messageType = "text"
	}
	country := strings.ToUpper(in.Country)
	if country == "" {
		country = CountryOf(in.Recipient)
	}
	m := &domain.Message{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		UserID:       userID,
		CampaignID:   in.campaignID,
		Channel:      in.Channel,
		MessageType:  messageType,
		Recipient:    in.Recipient,
		Subject:      in.Subject,
		Content:      in.Content,
		Status:       domain.MessageQueued,
		Country:      country,
		Metadata:     in.Metadata,
	}
	if in.template != nil {
		m.TemplateID = in.template.Name
		m.MessageType = "template"
	}
	if in.HTML != "" {
		if m.Metadata == nil {
			m.Metadata = domain.JSONMap{}
		}
		m.Metadata["html_content"] = in.HTML
	}
	return m
}

// Send validates and sends one message. A future scheduled_time stores the
// message as queued for the dispatcher instead.
func (s *Service) Send(ctx context.Context, tenantID, userID uuid.UUID, in SendInput) (*domain.Message, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	m := s.newMessage(tenantID, userID, &in)
	if in.ScheduledAt != nil && in.ScheduledAt.After(s.now()) {
		at := in.ScheduledAt.UTC()
		m.ScheduledAt = &at
		if err := s.repo.Create(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to queue message: %w", err)
		}
		s.logger.InfoContext(ctx, "message scheduled", "message_id", m.ID, "channel", m.Channel, "scheduled_at", at)
		return m, nil
	}

	s.deliver(ctx, m, in.HTML, in.template)
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	return m, nil
}

// deliver hands m to the notifier and records the outcome on m.
func (s *Service) deliver(ctx context.Context, m *domain.Message, html string, tmpl *notification.Template) {
	d := s.notifier.Send(ctx, notification.Message{
		Channel:  m.Channel,
		To:       m.Recipient,
		Subject:  m.Subject,
		Text:     m.Content,
		HTML:     html,
		Template: tmpl,
	})

	m.Provider = d.Provider
	m.Simulated = d.Simulated
	m.ExternalID = d.ExternalID
	sentAt := d.SentAt
	m.SentAt = &sentAt
	switch d.Status {
	case notification.StatusFailed:
		m.Status = domain.MessageFailed
		m.ErrorMessage = d.Error
		if m.ErrorMessage == "" {
			m.ErrorMessage = fmt.Sprintf("Failed to deliver via %s", m.Channel)
		}
		m.RetryCount++
	case notification.StatusDelivered:
		m.Status = domain.MessageDelivered
		m.DeliveredAt = &sentAt
		m.ErrorMessage = ""
	case notification.StatusQueued:
		// The provider owns the message from here; queued rows are for the dispatcher.
		m.Status = domain.MessageSent
		m.ErrorMessage = ""
		if m.Metadata == nil {
			m.Metadata = domain.JSONMap{}
		}
		m.Metadata["provider_status"] = d.Status
	default:
		m.Status = domain.MessageSent
		m.ErrorMessage = ""
	}
	if m.Status != domain.MessageFailed {
		m.Cost = Cost(m.Channel, m.Recipient, m.Content)
	}
	if d.SimulationReason != "" {
		if m.Metadata == nil {
			m.Metadata = domain.JSONMap{}
		}
		m.Metadata["simulation_reason"] = d.SimulationReason
	}

	s.metrics.MessageSent(m.Channel, m.Status, m.Simulated)
	s.logger.InfoContext(ctx, "message delivered",
		"channel", m.Channel,
		"status", m.Status,
		"provider", m.Provider,
		"simulated", m.Simulated)
}

// BulkInput is a bulk send. Either a list of full messages or one message for a
// list of recipients.
type BulkInput struct {
	Messages   []SendInput `json:"messages"`
	Channel    string      `json:"channel"`
	Recipients []string    `json:"recipients"`
	Content    string      `json:"message_content"`
	Message    string      `json:"message"`
	Subject    string      `json:"subject"`
}

func (in BulkInput) expand() []SendInput {
	if len(in.Messages) > 0 {
		return in.Messages
	}
	out := make([]SendInput, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		out = append(out, SendInput{
			Channel:   in.Channel,
			Recipient: r,
			Content:   in.Content,
			Message:   in.Message,
			Subject:   in.Subject,
		})
	}
	return out
}

// BulkFailure is a message of a bulk send that did not go out.
type BulkFailure struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel,omitempty"`
	Error     string `json:"error"`
}

// BulkResult summarizes a bulk send.
type BulkResult struct {
	Sent        []domain.Message `json:"sent_messages"`
	Failed      []BulkFailure    `json:"failed_messages"`
	TotalSent   int              `json:"total_sent"`
	TotalFailed int              `json:"total_failed"`
	TotalCost   float64          `json:"total_cost"`
}

// BulkSend sends every message of in through a bounded worker pool. One bad
// message never stops the others.
func (s *Service) BulkSend(ctx context.Context, tenantID, userID uuid.UUID, in BulkInput) (*BulkResult, error) {
	msgs := in.expand()
	if len(msgs) == 0 {
		return nil, domain.NewValidationError("messages", "messages or recipients are required")
	}
	if len(msgs) > s.cfg.MaxBulkRecipients {
		return nil, domain.NewValidationError("messages", "at most %d messages per bulk send", s.cfg.MaxBulkRecipients)
	}
	return s.sendAll(ctx, tenantID, userID, msgs), nil
}

func (s *Service) sendAll(ctx context.Context, tenantID, userID uuid.UUID, msgs []SendInput) *BulkResult {
	type outcome struct {
		msg *domain.Message
		err error
	}
	outcomes := make([]outcome, len(msgs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.cfg.Concurrency)
	for i := range msgs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			in := msgs[idx]
			in.ScheduledAt = nil
			m, err := s.Send(ctx, tenantID, userID, in)
			outcomes[idx] = outcome{msg: m, err: err}
		}(i)
	}
	wg.Wait()

	res := &BulkResult{Sent: []domain.Message{}, Failed: []BulkFailure{}}
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			res.Failed = append(res.Failed, BulkFailure{Recipient: msgs[i].Recipient, Channel: msgs[i].Channel, Error: o.err.Error()})
		case o.msg.Status == domain.MessageFailed:
			res.Failed = append(res.Failed, BulkFailure{Recipient: o.msg.Recipient, Channel: o.msg.Channel, Error: o.msg.ErrorMessage})
		default:
			res.Sent = append(res.Sent, *o.msg)
			res.TotalCost += o.msg.Cost
		}
	}
	res.TotalSent = len(res.Sent)
	res.TotalFailed = len(res.Failed)
	res.TotalCost = roundCost(res.TotalCost)
	return res
}

// ListMessages returns a page of the tenant's messages.
func (s *Service) ListMessages(ctx context.Context, tenantID uuid.UUID, f repository.MessageFilter, page domain.Page) ([]domain.Message, domain.Pagination, error) {
	items, total, err := s.repo.List(ctx, tenantID, f, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(page, total), nil
}

// DispatchDue delivers queued messages whose time has come and retries provider
// failures. It returns how many messages were handled.
func (s *Service) DispatchDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.repo.Due(ctx, now, s.cfg.MaxRetries, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load due messages: %w", err)
	}
	for i := range due {
		m := &due[i]
		html, _ := m.Metadata["html_content"].(string)
		var tmpl *notification.Template
		if m.TemplateID != "" {
			tmpl = &notification.Template{Name: m.TemplateID, Language: "en", Parameters: stringList(m.Metadata["parameters"])}
		}
		s.deliver(ctx, m, html, tmpl)
		if err := s.repo.SaveDelivery(ctx, m); err != nil {
			s.logger.ErrorContext(ctx, "failed to save delivery", "message_id", m.ID, "error", err)
			s.metrics.DispatcherHandled("message", "error")
			continue
		}
		s.metrics.DispatcherHandled("message", m.Status)
	}
	return len(due), nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			out = append(out, fmt.Sprint(x))
		}
		return out
	default:
		return nil
	}
}

func roundCost(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}
