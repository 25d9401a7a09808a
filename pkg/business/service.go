// Package business manages the tenant's business profile and integration keys.
package business

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/cache"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
)

const analysisTTL = 24 * time.Hour

// Service handles business profiles, API keys and market analyses.
type Service struct {
	repo  *repository.BusinessRepository
	box   *auth.SecretBox
	cache cache.Cache
	now   func() time.Time
}

// NewService creates a new business service. box encrypts API keys at rest.
func NewService(repo *repository.BusinessRepository, box *auth.SecretBox, c cache.Cache) *Service {
	return &Service{repo: repo, box: box, cache: c, now: time.Now}
}

// GetProfile returns the profile of the tenant.
func (s *Service) GetProfile(ctx context.Context, tenantID uuid.UUID) (*domain.BusinessProfile, error) {
	return s.repo.GetProfile(ctx, tenantID)
}

// ProfileInput carries profile fields. Nil fields are left unchanged on update.
type ProfileInput struct {
	BusinessName             *string   `json:"business_name"`
	Industry                 *string   `json:"industry"`
	Description              *string   `json:"description"`
	WebsiteURL               *string   `json:"website_url"`
	Country                  *string   `json:"country"`
	City                     *string   `json:"city"`
	TargetAudience           *string   `json:"target_audience"`
	BrandVoice               *string   `json:"brand_voice"`
	UniqueSellingProposition *string   `json:"unique_selling_proposition"`
	PrimaryLanguage          *string   `json:"primary_language"`
	SecondaryLanguages       *[]string `json:"secondary_languages"`
	LogoURL                  *string   `json:"logo_url"`
	BrandColors              *[]string `json:"brand_colors"`
}

func (in ProfileInput) apply(p *domain.BusinessProfile) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = auth.CleanText(*src)
		}
	}
	set(&p.BusinessName, in.BusinessName)
	set(&p.Industry, in.Industry)
	set(&p.Description, in.Description)
	set(&p.Country, in.Country)
	set(&p.City, in.City)
	set(&p.TargetAudience, in.TargetAudience)
	set(&p.BrandVoice, in.BrandVoice)
	set(&p.UniqueSellingProposition, in.UniqueSellingProposition)
	set(&p.PrimaryLanguage, in.PrimaryLanguage)
	set(&p.LogoURL, in.LogoURL)
	if in.WebsiteURL != nil {
		if *in.WebsiteURL != "" {
			if _, err := normalizeURL(*in.WebsiteURL); err != nil {
				return err
			}
		}
		p.WebsiteURL = strings.TrimSpace(*in.WebsiteURL)
	}
	if in.SecondaryLanguages != nil {
		p.SecondaryLanguages = *in.SecondaryLanguages
	}
	if in.BrandColors != nil {
		p.BrandColors = *in.BrandColors
	}
	if strings.TrimSpace(p.BusinessName) == "" {
		return domain.Required("business_name")
	}
	return nil
}

// CreateProfile stores the tenant's profile. A second profile is rejected.
func (s *Service) CreateProfile(ctx context.Context, tenantID uuid.UUID, in ProfileInput) (*domain.BusinessProfile, error) {
	_, err := s.repo.GetProfile(ctx, tenantID)
	switch {
	case err == nil:
		return nil, domain.ErrProfileExists
	case !errors.Is(err, domain.ErrProfileNotFound):
		return nil, err
	}

	p := &domain.BusinessProfile{TenantID: tenantID, PrimaryLanguage: "en"}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile changes the tenant's profile.
func (s *Service) UpdateProfile(ctx context.Context, tenantID uuid.UUID, in ProfileInput) (*domain.BusinessProfile, error) {
	p, err := s.repo.GetProfile(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// APIKeyView is an API key as shown to clients: the secret is masked.
type APIKeyView struct {
	domain.APIKey
	MaskedKey string `json:"key_value"`
}

func (s *Service) view(k domain.APIKey) APIKeyView {
	masked := "********"
	if plain, err := s.box.Open(k.EncryptedKey); err == nil {
		masked = auth.Mask(plain)
	}
	return APIKeyView{APIKey: k, MaskedKey: masked}
}

// ListAPIKeys returns the tenant's keys with masked values.
func (s *Service) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]APIKeyView, error) {
	keys, err := s.repo.ListAPIKeys(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]APIKeyView, len(keys))
	for i, k := range keys {
		views[i] = s.view(k)
	}
	return views, nil
}

// CreateAPIKeyInput describes a new integration key.
type CreateAPIKeyInput struct {
	Platform  string     `json:"platform"`
	KeyName   string     `json:"key_name"`
	KeyValue  string     `json:"key_value"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// CreateAPIKey encrypts and stores a key. Platform and name are unique per tenant.
func (s *Service) CreateAPIKey(ctx context.Context, tenantID uuid.UUID, in CreateAPIKeyInput) (*APIKeyView, error) {
	switch {
	case strings.TrimSpace(in.Platform) == "":
		return nil, domain.Required("platform")
	case strings.TrimSpace(in.KeyName) == "":
		return nil, domain.Required("key_name")
	case in.KeyValue == "":
		return nil, domain.Required("key_value")
	}

	sealed, err := s.box.Seal(in.KeyValue)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}
	key := &domain.APIKey{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		Platform:     strings.ToLower(strings.TrimSpace(in.Platform)),
		KeyName:      strings.TrimSpace(in.KeyName),
		EncryptedKey: sealed,
		Status:       domain.APIKeyActive,
		ExpiresAt:    in.ExpiresAt,
	}
	if err := s.repo.CreateAPIKey(ctx, key); err != nil {
		return nil, err
	}
	v := s.view(*key)
	return &v, nil
}

// UpdateAPIKeyInput changes a key. Nil fields are kept.
type UpdateAPIKeyInput struct {
	KeyValue  *string    `json:"key_value"`
	Status    *string    `json:"status"`
	IsActive  *bool      `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// UpdateAPIKey rotates the value, status or expiry of a key.
func (s *Service) UpdateAPIKey(ctx context.Context, tenantID, id uuid.UUID, in UpdateAPIKeyInput) (*APIKeyView, error) {
	key, err := s.repo.GetAPIKey(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if in.KeyValue != nil {
		if *in.KeyValue == "" {
			return nil, domain.Required("key_value")
		}
		sealed, err := s.box.Seal(*in.KeyValue)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
		key.EncryptedKey = sealed
	}
	if in.IsActive != nil {
		key.Status = domain.APIKeyInactive
		if *in.IsActive {
			key.Status = domain.APIKeyActive
		}
	}
	if in.Status != nil {
		switch *in.Status {
		case domain.APIKeyActive, domain.APIKeyInactive, domain.APIKeyExpired:
			key.Status = *in.Status
		default:
			return nil, domain.NewValidationError("status", "invalid status %q", *in.Status)
		}
	}
	if in.ExpiresAt != nil {
		key.ExpiresAt = in.ExpiresAt
	}

	if err := s.repo.UpdateAPIKey(ctx, key); err != nil {
		return nil, err
	}
	v := s.view(*key)
	return &v, nil
}

// DeleteAPIKey removes a key.
func (s *Service) DeleteAPIKey(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.DeleteAPIKey(ctx, tenantID, id)
}

// ResolveAPIKey returns the decrypted active key a tenant stored for platform and
// records its use. Expired keys are ignored.
func (s *Service) ResolveAPIKey(ctx context.Context, tenantID uuid.UUID, platform string) (string, error) {
	key, err := s.repo.GetActiveAPIKey(ctx, tenantID, platform)
	if err != nil {
		return "", err
	}
	if key.IsExpired() {
		return "", domain.ErrAPIKeyNotFound
	}
	plain, err := s.box.Open(key.EncryptedKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt api key: %w", err)
	}
	_ = s.repo.TouchAPIKey(ctx, key.ID)
	return plain, nil
}

// WebsiteAnalysis is the result of analyzing a business website.
type WebsiteAnalysis struct {
	URL                      string    `json:"website_url"`
	Domain                   string    `json:"domain"`
	BusinessName             string    `json:"business_name"`
	Industry                 string    `json:"industry"`
	Description              string    `json:"description"`
	TargetAudience           string    `json:"target_audience"`
	BrandVoice               string    `json:"brand_voice"`
	UniqueSellingProposition string    `json:"unique_selling_proposition"`
	PrimaryLanguage          string    `json:"primary_language"`
	SEOScore                 int       `json:"seo_score"`
	PerformanceScore         int       `json:"performance_score"`
	MobileFriendly           bool      `json:"mobile_friendly"`
	SSL                      bool      `json:"ssl_enabled"`
	Recommendations          []string  `json:"recommendations"`
	ExtractedAt              time.Time `json:"extracted_at"`
}

// AnalyzeWebsite produces a deterministic profile and audit of a website.
// Results are cached per URL.
func (s *Service) AnalyzeWebsite(ctx context.Context, rawURL string) (*WebsiteAnalysis, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, domain.Required("website_url")
	}
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	return cache.Remember(ctx, s.cache, cache.Key("website", u.String()), analysisTTL, func() (*WebsiteAnalysis, error) {
		return s.analyze(u), nil
	})
}

func (s *Service) analyze(u *url.URL) *WebsiteAnalysis {
	h := fnv.New32a()
	_, _ = h.Write([]byte(u.Host))
	seed := h.Sum32()

	host := strings.TrimPrefix(u.Hostname(), "www.")
	label := host
	if i := strings.IndexByte(host, '.'); i > 0 {
		label = host[:i]
	}

	a := &WebsiteAnalysis{
		URL:                      u.String(),
		Domain:                   host,
		BusinessName:             titleWords(label),
		Industry:                 industries[seed%uint32(len(industries))],
		Description:              "AI-powered business automation platform",
		TargetAudience:           "Small to medium businesses in South Asia",
		BrandVoice:               "Professional, innovative, customer-focused",
		UniqueSellingProposition: "Complete automation from content creation to sales",
		PrimaryLanguage:          languageForTLD(host),
		SEOScore:                 55 + int(seed%40),
		PerformanceScore:         50 + int((seed>>8)%45),
		MobileFriendly:           seed%5 != 0,
		SSL:                      u.Scheme == "https",
		ExtractedAt:              s.now().UTC(),
	}

	if !a.SSL {
		a.Recommendations = append(a.Recommendations, "Enable HTTPS to protect visitors and improve search ranking")
	}
	if a.SEOScore < 75 {
		a.Recommendations = append(a.Recommendations, "Add meta descriptions and structured data to key pages")
	}
	if a.PerformanceScore < 70 {
		a.Recommendations = append(a.Recommendations, "Compress images and enable caching to speed up page loads")
	}
	if !a.MobileFriendly {
		a.Recommendations = append(a.Recommendations, "Adopt a responsive layout for mobile visitors")
	}
	a.Recommendations = append(a.Recommendations, "Publish content in local languages to reach regional audiences")
	return a
}

// Competitor is one entry of a competitor analysis.
type Competitor struct {
	Name           string   `json:"name"`
	Website        string   `json:"website"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Pricing        string   `json:"pricing"`
	TargetAudience string   `json:"target_audience"`
	MarketShare    int      `json:"estimated_market_share"`
}

// CompetitorAnalysis compares the business with its competitors.
type CompetitorAnalysis struct {
	Industry      string       `json:"industry"`
	Location      string       `json:"location,omitempty"`
	Competitors   []Competitor `json:"competitors"`
	Opportunities []string     `json:"opportunities"`
	AnalysisDate  time.Time    `json:"analysis_date"`
}

var competitorProfiles = []Competitor{
	{
		Strengths:      []string{"Strong social media presence", "Good customer reviews"},
		Weaknesses:     []string{"Limited automation features", "High pricing"},
		Pricing:        "Premium",
		TargetAudience: "Enterprise clients",
	},
	{
		Strengths:      []string{"Affordable pricing", "Easy to use"},
		Weaknesses:     []string{"Limited features", "Poor customer support"},
		Pricing:        "Budget",
		TargetAudience: "Small businesses",
	},
	{
		Strengths:      []string{"Wide product range", "Established brand"},
		Weaknesses:     []string{"No local language support", "Slow response times"},
		Pricing:        "Mid-range",
		TargetAudience: "Mid-market companies",
	},
}

// AnalyzeCompetitors builds a comparison for industry. Named competitors are used
// when given, otherwise two generic ones.
func (s *Service) AnalyzeCompetitors(ctx context.Context, industry, location string, names []string) (*CompetitorAnalysis, error) {
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return nil, domain.Required("industry")
	}
	if len(names) == 0 {
		names = []string{"Competitor 1", "Competitor 2"}
	}
	if len(names) > 10 {
		return nil, domain.NewValidationError("competitors", "at most 10 competitors can be analyzed")
	}

	key := cache.Key("competitors", strings.ToLower(industry), strings.ToLower(location), strings.Join(names, ","))
	return cache.Remember(ctx, s.cache, key, analysisTTL, func() (*CompetitorAnalysis, error) {
		out := &CompetitorAnalysis{
			Industry:     industry,
			Location:     location,
			AnalysisDate: s.now().UTC(),
			Opportunities: []string{
				"Offer native-language content for " + orDefault(location, "regional") + " customers",
				"Automate follow-ups on WhatsApp, the dominant messaging channel",
				"Bundle CRM and marketing automation to undercut premium tools",
			},
		}
		for i, name := range names {
			c := competitorProfiles[i%len(competitorProfiles)]
			c.Name = name
			c.Website = "https://" + slug(name) + ".com"
			c.MarketShare = 30 / (i + 1)
			out.Competitors = append(out.Competitors, c)
		}
		return out, nil
	})
}

var industries = []string{"Technology", "Retail", "Hospitality", "Education", "Healthcare", "Agriculture"}

func normalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, domain.NewValidationError("website_url", "invalid website URL")
	}
	u.Host = strings.ToLower(u.Host)
	return u, nil
}

var tldLanguages = map[string]string{
	".lk": "si",
	".in": "hi",
	".np": "ne",
	".bd": "bn",
	".pk": "ur",
	".th": "th",
	".mm": "my",
}

func languageForTLD(host string) string {
	for tld, lang := range tldLanguages {
		if strings.HasSuffix(host, tld) {
			return lang
		}
	}
	return "en"
}

func titleWords(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func slug(s string) string {
	return strings.Trim(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 32
		default:
			return '-'
		}
	}, s), "-")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
