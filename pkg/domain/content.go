package domain

import (
	"time"

	"github.com/google/uuid"
)

// Content statuses
const (
	ContentDraft     = "draft"
	ContentReview    = "review"
	ContentApproved  = "approved"
	ContentPublished = "published"
	ContentArchived  = "archived"
)

// Content is a piece of marketing copy, written by hand or generated.
type Content struct {
	TenantScoped
	UserID          uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Title           string     `gorm:"size:500;not null" json:"title"`
	ContentType     string     `gorm:"size:50;not null;index" json:"content_type"`
	Body            string     `gorm:"type:text;not null" json:"content_body"`
	Prompt          string     `gorm:"type:text" json:"prompt,omitempty"`
	AIModel         string     `gorm:"size:100" json:"ai_model,omitempty"`
	AIGenerated     bool       `gorm:"default:false" json:"ai_generated"`
	Tags            []string   `gorm:"serializer:json;type:text" json:"tags"`
	Keywords        []string   `gorm:"serializer:json;type:text" json:"keywords"`
	Tone            string     `gorm:"size:50" json:"tone,omitempty"`
	Language        string     `gorm:"size:10;default:en" json:"language"`
	Platform        string     `gorm:"size:50" json:"platform,omitempty"`
	Status          string     `gorm:"size:20;default:draft;index" json:"status"`
	MetaDescription string     `gorm:"size:500" json:"meta_description,omitempty"`
	PublishedAt     *time.Time `json:"published_at"`
}

// ValidContentStatus reports whether status is assignable.
func ValidContentStatus(status string) bool {
	switch status {
	case ContentDraft, ContentReview, ContentApproved, ContentPublished, ContentArchived:
		return true
	}
	return false
}

// ContentTemplate is a reusable body with {{variable}} placeholders.
type ContentTemplate struct {
	TenantScoped
	Name        string   `gorm:"size:200;not null" json:"name"`
	Description string   `gorm:"type:text" json:"description"`
	ContentType string   `gorm:"size:50;not null" json:"content_type"`
	Language    string   `gorm:"size:10;default:en" json:"language"`
	Body        string   `gorm:"type:text;not null" json:"template_body"`
	Variables   []string `gorm:"serializer:json;type:text" json:"variables"`
	UsageCount  int      `gorm:"default:0" json:"usage_count"`
	IsActive    bool     `gorm:"default:true" json:"is_active"`
}

// ContentSchedule queues a content row for publishing to a platform.
type ContentSchedule struct {
	TenantScoped
	ContentID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"content_id"`
	Platform       string     `gorm:"size:50;not null" json:"platform"`
	ScheduledAt    time.Time  `gorm:"index" json:"scheduled_at"`
	PublishedAt    *time.Time `json:"published_at"`
	Status         string     `gorm:"size:20;default:scheduled" json:"status"`
	PlatformPostID string     `gorm:"size:100" json:"platform_post_id,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount     int        `gorm:"default:0" json:"retry_count"`
	MaxRetries     int        `gorm:"default:3" json:"max_retries"`
}
