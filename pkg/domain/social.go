package domain

import (
	"time"

	"github.com/google/uuid"
)

// SocialAccount is a tenant's connection to one social platform.
// Tokens are only ever persisted encrypted. A tenant has one account per
// platform (idx_social_accounts_tenant_platform).
type SocialAccount struct {
	TenantScoped
	UserID                uuid.UUID  `gorm:"type:uuid" json:"user_id"`
	Platform              string     `gorm:"size:30;not null" json:"platform"`
	AccountID             string     `gorm:"size:100" json:"account_id"`
	AccountName           string     `gorm:"size:200" json:"account_name"`
	AccessTokenEncrypted  string     `gorm:"type:text" json:"-"`
	RefreshTokenEncrypted string     `gorm:"type:text" json:"-"`
	TokenExpiresAt        *time.Time `json:"token_expires_at"`
	Followers             int        `json:"followers"`
	Verified              bool       `json:"verified"`
	IsActive              bool       `gorm:"default:true" json:"is_active"`
	ConnectedAt           time.Time  `json:"connected_at"`
}

// Social post statuses
const (
	PostDraft     = "draft"
	PostScheduled = "scheduled"
	PostPublished = "published"
	PostPartial   = "partial"
	PostFailed    = "failed"
	PostCancelled = "cancelled"
)

// PlatformPost is the outcome of publishing a post on one platform.
type PlatformPost struct {
	Platform       string     `json:"platform"`
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	URL            string     `json:"url,omitempty"`
	Status         string     `json:"status"`
	Content        string     `json:"content,omitempty"`
	Simulated      bool       `json:"simulated"`
	Error          string     `json:"error,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

// SocialPost is content targeted at one or more platforms.
type SocialPost struct {
	TenantScoped
	UserID        uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	PostType      string         `gorm:"size:20;default:text" json:"post_type"`
	Platforms     []string       `gorm:"serializer:json;type:text" json:"platforms"`
	MediaURLs     []string       `gorm:"serializer:json;type:text" json:"media_urls"`
	Hashtags      []string       `gorm:"serializer:json;type:text" json:"hashtags"`
	Status        string         `gorm:"size:20;default:draft;index" json:"status"`
	ScheduledAt   *time.Time     `gorm:"index" json:"scheduled_time"`
	PublishedAt   *time.Time     `json:"published_at"`
	PlatformPosts []PlatformPost `gorm:"serializer:json;type:text" json:"platform_posts"`
	RetryCount    int            `gorm:"default:0" json:"retry_count"`
}

// HasPlatform reports whether the post targets platform.
func (p *SocialPost) HasPlatform(platform string) bool {
	for _, pl := range p.Platforms {
		if pl == platform {
			return true
		}
	}
	return false
}

// SocialEngagement holds engagement counters of a published post.
type SocialEngagement struct {
	TenantScoped
	PostID      uuid.UUID `gorm:"type:uuid;index;not null" json:"post_id"`
	Platform    string    `gorm:"size:30;not null" json:"platform"`
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	Shares      int       `json:"shares"`
	Reach       int       `json:"reach"`
	Impressions int       `json:"impressions"`
	Clicks      int       `json:"clicks"`
	RecordedAt  time.Time `gorm:"index" json:"recorded_at"`
}

// Total is the sum of interactions.
func (e *SocialEngagement) Total() int {
	return e.Likes + e.Comments + e.Shares + e.Clicks
}
