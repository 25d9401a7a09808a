package messaging

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// CampaignInput describes a new campaign.
type CampaignInput struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Channel        string     `json:"channel"`
	Subject        string     `json:"subject"`
	MessageContent string     `json:"message_content"`
	Recipients     []string   `json:"recipients"`
	ScheduledAt    *time.Time `json:"scheduled_time"`
}

// CreateCampaign stores a campaign with its estimated cost. A scheduled campaign
// waits for its time; otherwise it is a draft until sent.
func (s *Service) CreateCampaign(ctx context.Context, tenantID, userID uuid.UUID, in CampaignInput) (*domain.Campaign, error) {
	channel := strings.ToLower(strings.TrimSpace(in.Channel))
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, domain.Required("name")
	case channel == "":
		return nil, domain.Required("channel")
	case strings.TrimSpace(in.MessageContent) == "":
		return nil, domain.Required("message_content")
	case len(in.Recipients) == 0:
		return nil, domain.NewValidationError("recipients", "Recipients must be a non-empty array")
	}
	if _, ok := Channels[channel]; !ok {
		return nil, domain.NewValidationError("channel", "Invalid communication channel")
	}
	if len(in.Recipients) > s.cfg.MaxBulkRecipients {
		return nil, domain.NewValidationError("recipients", "at most %d recipients per campaign", s.cfg.MaxBulkRecipients)
	}

	c := &domain.Campaign{
		TenantScoped:   domain.TenantScoped{TenantID: tenantID},
		UserID:         userID,
		Name:           auth.CleanText(in.Name),
		Description:    in.Description,
		Channel:        channel,
		Subject:        in.Subject,
		MessageContent: in.MessageContent,
		Recipients:     in.Recipients,
		Status:         domain.CampaignDraft,
	}
	for _, r := range in.Recipients {
		c.EstimatedCost += Cost(channel, r, in.MessageContent)
	}
	c.EstimatedCost = roundCost(c.EstimatedCost)
	if in.ScheduledAt != nil && in.ScheduledAt.After(s.now()) {
		at := in.ScheduledAt.UTC()
		c.ScheduledAt = &at
		c.Status = domain.CampaignScheduled
	}

	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns returns the tenant's campaigns, optionally on one channel.
func (s *Service) ListCampaigns(ctx context.Context, tenantID uuid.UUID, channel string) ([]domain.Campaign, error) {
	return s.repo.ListCampaigns(ctx, tenantID, channel)
}

// SendCampaign sends a campaign to all its recipients now.
func (s *Service) SendCampaign(ctx context.Context, tenantID, userID, id uuid.UUID) (*domain.Campaign, *BulkResult, error) {
	c, err := s.repo.GetCampaign(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	switch c.Status {
	case domain.CampaignSending, domain.CampaignSent, domain.CampaignCompleted:
		return nil, nil, domain.ErrCampaignSent
	}

	c.Status = domain.CampaignSending
	if err := s.repo.SaveCampaign(ctx, c); err != nil {
		return nil, nil, err
	}

	msgs := make([]SendInput, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		msgs = append(msgs, SendInput{
			Channel:    c.Channel,
			Recipient:  r,
			Subject:    c.Subject,
			Content:    c.MessageContent,
			campaignID: &c.ID,
		})
	}
	res := s.sendAll(ctx, tenantID, userID, msgs)

	now := s.now()
	c.SentAt = &now
	c.TotalSent = res.TotalSent
	c.TotalFailed = res.TotalFailed
	c.TotalCost = res.TotalCost
	for _, m := range res.Sent {
		if m.Status == domain.MessageDelivered {
			c.TotalDelivered++
		}
	}
	c.Status = domain.CampaignCompleted
	if res.TotalSent == 0 {
		c.Status = domain.CampaignFailed
	}
	if err := s.repo.SaveCampaign(ctx, c); err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "campaign sent",
		"campaign_id", c.ID,
		"sent", c.TotalSent,
		"failed", c.TotalFailed)
	return c, res, nil
}

// ChannelAnalytics holds delivery numbers of one channel.
type ChannelAnalytics struct {
	Messages     int64   `json:"messages"`
	Delivered    int64   `json:"delivered"`
	Failed       int64   `json:"failed"`
	Queued       int64   `json:"queued"`
	DeliveryRate float64 `json:"delivery_rate"`
	Cost         float64 `json:"cost"`
}

// AnalyticsOverview totals every channel.
type AnalyticsOverview struct {
	TotalMessages         int64   `json:"total_messages"`
	DeliveredMessages     int64   `json:"delivered_messages"`
	FailedMessages        int64   `json:"failed_messages"`
	DeliveryRate          float64 `json:"delivery_rate"`
	TotalCost             float64 `json:"total_cost"`
	AverageCostPerMessage float64 `json:"average_cost_per_message"`
}

// Analytics is the communication report of a period.
type Analytics struct {
	Overview         AnalyticsOverview           `json:"overview"`
	ChannelBreakdown map[string]ChannelAnalytics `json:"channel_breakdown"`
	Channels         []string                    `json:"channels"`
	From             time.Time                   `json:"from"`
	To               time.Time                   `json:"to"`
}

// delivered counts statuses that reached the recipient.
func delivered(status string) bool {
	switch status {
	case domain.MessageSent, domain.MessageDelivered, domain.MessageOpened, domain.MessageClicked, domain.MessageReplied:
		return true
	}
	return false
}

// Analytics reports per channel delivery over the last days days.
func (s *Service) Analytics(ctx context.Context, tenantID uuid.UUID, days int) (*Analytics, error) {
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		return nil, domain.NewValidationError("days", "days must be at most 365")
	}
	now := s.now()
	since := now.AddDate(0, 0, -days)
	rows, err := s.repo.ChannelStats(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate messages: %w", err)
	}

	a := &Analytics{ChannelBreakdown: make(map[string]ChannelAnalytics), From: since, To: now}
	for _, r := range rows {
		ch := a.ChannelBreakdown[r.Channel]
		ch.Messages += r.Count
		ch.Cost += r.Cost
		switch {
		case delivered(r.Status):
			ch.Delivered += r.Count
		case r.Status == domain.MessageQueued:
			ch.Queued += r.Count
		default:
			ch.Failed += r.Count
		}
		a.ChannelBreakdown[r.Channel] = ch
	}

	ov := &a.Overview
	for name, ch := range a.ChannelBreakdown {
		ch.DeliveryRate = rate(ch.Delivered, ch.Messages)
		ch.Cost = roundCost(ch.Cost)
		a.ChannelBreakdown[name] = ch
		a.Channels = append(a.Channels, name)

		ov.TotalMessages += ch.Messages
		ov.DeliveredMessages += ch.Delivered
		ov.FailedMessages += ch.Failed
		ov.TotalCost += ch.Cost
	}
	sort.Strings(a.Channels)
	ov.DeliveryRate = rate(ov.DeliveredMessages, ov.TotalMessages)
	ov.TotalCost = roundCost(ov.TotalCost)
	if ov.TotalMessages > 0 {
		ov.AverageCostPerMessage = roundCost(ov.TotalCost / float64(ov.TotalMessages))
	}
	return a, nil
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
