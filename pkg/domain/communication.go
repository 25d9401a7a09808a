package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channels
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelVoice    = "voice"
)

// Message statuses
const (
	MessageQueued    = "queued"
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageFailed    = "failed"
	MessageBounced   = "bounced"
	MessageOpened    = "opened"
	MessageClicked   = "clicked"
	MessageReplied   = "replied"
)

// Message records one outbound message on any channel.
type Message struct {
	TenantScoped
	UserID       uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	CampaignID   *uuid.UUID `gorm:"type:uuid;index" json:"campaign_id,omitempty"`
	Channel      string     `gorm:"size:20;not null;index" json:"channel"`
	MessageType  string     `gorm:"size:20;default:text" json:"message_type"`
	Recipient    string     `gorm:"size:255;not null" json:"recipient"`
	Subject      string     `gorm:"size:500" json:"subject,omitempty"`
	Content      string     `gorm:"type:text;not null" json:"message_content"`
	TemplateID   string     `gorm:"size:100" json:"template_id,omitempty"`
	Status       string     `gorm:"size:20;default:queued;index" json:"status"`
	ExternalID   string     `gorm:"size:100" json:"message_id"`
	Provider     string     `gorm:"size:30" json:"provider"`
	Simulated    bool       `gorm:"default:false" json:"simulated"`
	Cost         float64    `gorm:"default:0" json:"cost"`
	Country      string     `gorm:"size:10" json:"country"`
	ScheduledAt  *time.Time `gorm:"index" json:"scheduled_time"`
	SentAt       *time.Time `json:"sent_at"`
	DeliveredAt  *time.Time `json:"delivered_at"`
	RetryCount   int        `gorm:"default:0" json:"retry_count"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	Metadata     JSONMap    `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
}

// IsDue reports whether a queued message should be delivered at now.
func (m *Message) IsDue(now time.Time) bool {
	if m.Status != MessageQueued {
		return false
	}
	return m.ScheduledAt == nil || !m.ScheduledAt.After(now)
}

// Campaign statuses
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignActive    = "active"
	CampaignSending   = "sending"
	CampaignSent      = "sent"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
	CampaignFailed    = "failed"
)

// Campaign sends one message to a list of recipients on a single channel.
type Campaign struct {
	TenantScoped
	UserID         uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Name           string     `gorm:"size:200;not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	Channel        string     `gorm:"size:20;not null" json:"channel"`
	Subject        string     `gorm:"size:500" json:"subject,omitempty"`
	MessageContent string     `gorm:"type:text;not null" json:"message_content"`
	Recipients     []string   `gorm:"serializer:json;type:text" json:"recipients"`
	Status         string     `gorm:"size:20;default:draft;index" json:"status"`
	ScheduledAt    *time.Time `json:"scheduled_time"`
	SentAt         *time.Time `json:"sent_at"`
	EstimatedCost  float64    `json:"estimated_cost"`
	TotalCost      float64    `json:"total_cost"`
	TotalSent      int        `gorm:"default:0" json:"total_sent"`
	TotalDelivered int        `gorm:"default:0" json:"total_delivered"`
	TotalFailed    int        `gorm:"default:0" json:"total_failed"`
}

// Call statuses
const (
	CallInitiated = "initiated"
	CallRinging   = "ringing"
	CallAnswered  = "answered"
	CallCompleted = "completed"
	CallFailed    = "failed"
	CallBusy      = "busy"
	CallNoAnswer  = "no_answer"
)

// CallLog records an outbound voice call.
type CallLog struct {
	TenantScoped
	UserID          uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Recipient       string     `gorm:"size:30;not null" json:"recipient"`
	MessageContent  string     `gorm:"type:text" json:"message_content"`
	VoiceType       string     `gorm:"size:30;default:text_to_speech" json:"voice_type"`
	Language        string     `gorm:"size:10;default:en" json:"language"`
	Status          string     `gorm:"size:20;default:initiated" json:"status"`
	DurationSeconds int        `gorm:"default:0" json:"call_duration"`
	Answered        bool       `json:"answered"`
	Cost            float64    `json:"cost"`
	ProviderCallID  string     `gorm:"size:100" json:"call_id"`
	Simulated       bool       `json:"simulated"`
	EndedAt         *time.Time `json:"ended_at"`
}
