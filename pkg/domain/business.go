package domain

import (
	"time"

	"github.com/google/uuid"
)

// BusinessProfile is the single marketing profile of a tenant.
type BusinessProfile struct {
	Base
	TenantID                 uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"tenant_id"`
	BusinessName             string    `gorm:"size:200;not null" json:"business_name"`
	Industry                 string    `gorm:"size:100" json:"industry"`
	Description              string    `gorm:"type:text" json:"description"`
	WebsiteURL               string    `gorm:"size:255" json:"website_url"`
	Country                  string    `gorm:"size:100" json:"country"`
	City                     string    `gorm:"size:100" json:"city"`
	TargetAudience           string    `gorm:"type:text" json:"target_audience"`
	BrandVoice               string    `gorm:"size:100" json:"brand_voice"`
	UniqueSellingProposition string    `gorm:"type:text" json:"unique_selling_proposition"`
	PrimaryLanguage          string    `gorm:"size:10;default:en" json:"primary_language"`
	SecondaryLanguages       []string  `gorm:"serializer:json;type:text" json:"secondary_languages"`
	LogoURL                  string    `gorm:"size:255" json:"logo_url"`
	BrandColors              []string  `gorm:"serializer:json;type:text" json:"brand_colors"`
}

// API key statuses
const (
	APIKeyActive   = "active"
	APIKeyInactive = "inactive"
	APIKeyExpired  = "expired"
)

// APIKey is a third-party credential a tenant stores for an integration.
// The key itself is only ever persisted encrypted. Platform and key name are
// unique per tenant (idx_api_keys_tenant_platform_name).
type APIKey struct {
	TenantScoped
	Platform     string     `gorm:"size:50;not null" json:"platform"`
	KeyName      string     `gorm:"size:100;not null" json:"key_name"`
	EncryptedKey string     `gorm:"type:text;not null" json:"-"`
	Status       string     `gorm:"size:20;default:active" json:"status"`
	ExpiresAt    *time.Time `json:"expires_at"`
	LastUsedAt   *time.Time `json:"last_used_at"`
}

// IsExpired reports whether the key is past its expiry.
func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt)
}
