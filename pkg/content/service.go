// Package content generates, optimizes and stores marketing copy.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudboost/cloudboost-api/internal/ai"
	"github.com/cloudboost/cloudboost-api/internal/catalog"
	"github.com/cloudboost/cloudboost-api/internal/metrics"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
)

// MaxBatchSize bounds a batch-generate request.
const MaxBatchSize = 10

// KeyResolver looks up a tenant's own integration key.
type KeyResolver interface {
	ResolveAPIKey(ctx context.Context, tenantID uuid.UUID, platform string) (string, error)
}

// Service handles content generation and the content library.
type Service struct {
	repo      *repository.ContentRepository
	business  *repository.BusinessRepository
	keys      KeyResolver
	generator ai.Generator
	aiConfig  ai.Config
	maxBatch  int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Config configures the content service.
type Config struct {
	AI       ai.Config
	MaxBatch int
}

// NewService creates a content service. generator serves tenants without their own
// OpenAI key. keys and m may be nil.
func NewService(
	repo *repository.ContentRepository,
	business *repository.BusinessRepository,
	keys KeyResolver,
	generator ai.Generator,
	cfg Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = MaxBatchSize
	}
	return &Service{
		repo:      repo,
		business:  business,
		keys:      keys,
		generator: generator,
		aiConfig:  cfg.AI,
		maxBatch:  cfg.MaxBatch,
		metrics:   m,
		logger:    logger,
	}
}

// GenerateInput describes a generation request.
type GenerateInput struct {
	ID          string   `json:"id,omitempty"`
	ContentType string   `json:"content_type"`
	Prompt      string   `json:"prompt"`
	Language    string   `json:"language"`
	Platform    string   `json:"platform,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Title       string   `json:"title,omitempty"`
	Save        bool     `json:"save,omitempty"`
}

func (in GenerateInput) validate() error {
	switch {
	case strings.TrimSpace(in.ContentType) == "":
		return domain.Required("content_type")
	case strings.TrimSpace(in.Prompt) == "":
		return domain.Required("prompt")
	case strings.TrimSpace(in.Language) == "":
		return domain.Required("language")
	case !catalog.IsContentType(in.ContentType):
		return domain.NewValidationError("content_type", "Invalid content type")
	case !catalog.IsLanguage(in.Language):
		return domain.NewValidationError("language", "Language not supported")
	case in.Platform != "":
		if _, ok := catalog.LookupPlatform(in.Platform); !ok {
			return domain.NewValidationError("platform", "Platform not supported")
		}
	}
	return nil
}

// Generated is the outcome of a generation.
type Generated struct {
	ID             uuid.UUID  `json:"generation_id"`
	Content        string     `json:"content"`
	Title          string     `json:"title,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	ContentType    string     `json:"content_type"`
	ContentName    string     `json:"content_type_name"`
	Language       string     `json:"language"`
	LanguageName   string     `json:"language_name"`
	Platform       string     `json:"platform,omitempty"`
	WordCount      int        `json:"word_count"`
	CharacterCount int        `json:"character_count"`
	Hashtags       []string   `json:"hashtags"`
	Keywords       []string   `json:"keywords"`
	Tone           string     `json:"tone"`
	GeneratedBy    string     `json:"generated_by"`
	Model          string     `json:"model,omitempty"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
	Optimized      bool       `json:"optimized"`
	SavedID        *uuid.UUID `json:"content_id,omitempty"`
	GeneratedAt    time.Time  `json:"generated_at"`
}

// Generate produces copy for the tenant, woven with its business profile and
// fitted to the target platform. With Save the copy is stored as a draft.
func (s *Service) Generate(ctx context.Context, tenantID, userID uuid.UUID, in GenerateInput) (*Generated, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	req := ai.Request{
		ContentType: in.ContentType,
		Prompt:      strings.TrimSpace(in.Prompt),
		Language:    in.Language,
		Platform:    in.Platform,
		Tone:        in.Tone,
		Keywords:    in.Keywords,
		Business:    s.businessContext(ctx, tenantID),
	}

	res, err := s.generatorFor(ctx, tenantID).Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	s.metrics.ContentGenerated(res.Source)

	out := &Generated{
		ID:             uuid.New(),
		Content:        res.Content,
		Title:          res.Title,
		Subject:        res.Subject,
		ContentType:    in.ContentType,
		ContentName:    catalog.ContentTypes[in.ContentType],
		Language:       in.Language,
		LanguageName:   catalog.Languages[in.Language],
		Platform:       in.Platform,
		Hashtags:       res.Hashtags,
		Keywords:       res.Keywords,
		Tone:           res.Tone,
		GeneratedBy:    res.Source,
		Model:          res.Model,
		FallbackReason: res.FallbackReason,
		GeneratedAt:    time.Now().UTC(),
	}
	if in.Platform != "" {
		optimized := FitToPlatform(out.Content, in.Platform)
		out.Optimized = optimized != out.Content
		out.Content = optimized
	}
	out.WordCount = len(strings.Fields(out.Content))
	out.CharacterCount = utf8.RuneCountInString(out.Content)

	s.logger.InfoContext(ctx, "content generated",
		"tenant_id", tenantID,
		"content_type", in.ContentType,
		"language", in.Language,
		"generated_by", res.Source,
		"characters", out.CharacterCount,
	)

	if in.Save {
		c := &domain.Content{
			TenantScoped: domain.TenantScoped{TenantID: tenantID},
			UserID:       userID,
			Title:        firstNonEmpty(in.Title, res.Title, res.Subject, ai.TitleCase(truncateWords(req.Prompt, 8))),
			ContentType:  in.ContentType,
			Body:         out.Content,
			Prompt:       req.Prompt,
			AIModel:      firstNonEmpty(res.Model, res.Source),
			AIGenerated:  true,
			Keywords:     res.Keywords,
			Tags:         res.Hashtags,
			Tone:         res.Tone,
			Language:     in.Language,
			Platform:     in.Platform,
			Status:       domain.ContentDraft,
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to save content: %w", err)
		}
		out.SavedID = &c.ID
	}
	return out, nil
}

// BatchResult is one entry of a batch generation.
type BatchResult struct {
	Success   bool       `json:"success"`
	RequestID string     `json:"request_id,omitempty"`
	Result    *Generated `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Batch is the outcome of a batch generation.
type Batch struct {
	Results               []BatchResult `json:"results"`
	TotalRequests         int           `json:"total_requests"`
	SuccessfulGenerations int           `json:"successful_generations"`
}

// GenerateBatch runs each request independently. One failure does not stop the others.
func (s *Service) GenerateBatch(ctx context.Context, tenantID, userID uuid.UUID, reqs []GenerateInput) (*Batch, error) {
	if len(reqs) == 0 {
		return nil, domain.NewValidationError("requests", "requests array is required")
	}
	if len(reqs) > s.maxBatch {
		return nil, domain.NewValidationError("requests", "at most %d requests per batch", s.maxBatch)
	}

	batch := &Batch{TotalRequests: len(reqs), Results: make([]BatchResult, 0, len(reqs))}
	for _, in := range reqs {
		res, err := s.Generate(ctx, tenantID, userID, in)
		if err != nil {
			batch.Results = append(batch.Results, BatchResult{RequestID: in.ID, Error: err.Error()})
			continue
		}
		batch.SuccessfulGenerations++
		batch.Results = append(batch.Results, BatchResult{Success: true, RequestID: in.ID, Result: res})
	}
	return batch, nil
}

// Optimization kinds
const (
	OptimizeLength     = "length"
	OptimizeEngagement = "engagement"
	OptimizeSEO        = "seo"
)

// Optimization is the result of optimizing copy for a platform.
type Optimization struct {
	OriginalContent  string   `json:"original_content"`
	OptimizedContent string   `json:"optimized_content"`
	Applied          string   `json:"optimization_applied"`
	Platform         string   `json:"platform"`
	Changes          []string `json:"changes"`
	CharacterCount   int      `json:"character_count"`
	MaxLength        int      `json:"max_length"`
}

var hashtagPattern = regexp.MustCompile(`#\S+`)

// Optimize adapts copy to a platform. Length truncates to the platform limit;
// engagement adds a call to action and hashtags; seo trims the hashtag count.
func (s *Service) Optimize(content, platform, kind string) (*Optimization, error) {
	switch {
	case strings.TrimSpace(content) == "":
		return nil, domain.Required("content")
	case platform == "":
		return nil, domain.Required("platform")
	}
	if kind == "" {
		kind = OptimizeLength
	}
	if kind != OptimizeLength && kind != OptimizeEngagement && kind != OptimizeSEO {
		return nil, domain.NewValidationError("optimization_type", "optimization_type must be length, engagement or seo")
	}

	out := &Optimization{
		OriginalContent: content,
		Applied:         kind,
		Platform:        platform,
		MaxLength:       catalog.MaxLength(platform),
		Changes:         []string{},
	}
	p, known := catalog.LookupPlatform(platform)

	optimized := content
	if known {
		switch kind {
		case OptimizeLength:
			if utf8.RuneCountInString(content) > p.MaxLength {
				optimized = catalog.Truncate(content, p.MaxLength)
				out.Changes = append(out.Changes, fmt.Sprintf("truncated to %d characters", p.MaxLength))
			}
		case OptimizeEngagement:
			if !strings.ContainsAny(content, "?!") {
				optimized = strings.TrimRight(optimized, ". ") + "! What do you think?"
				out.Changes = append(out.Changes, "added call to action")
			}
			if !strings.Contains(optimized, "#") {
				tags := hashtagsFor(content, min(p.HashtagLimit, 3))
				if tags != "" {
					optimized += " " + tags
					out.Changes = append(out.Changes, "added hashtags")
				}
			}
			optimized = catalog.Truncate(optimized, p.MaxLength)
		case OptimizeSEO:
			tags := hashtagPattern.FindAllString(optimized, -1)
			if len(tags) > p.HashtagLimit {
				for _, extra := range tags[p.HashtagLimit:] {
					optimized = strings.Replace(optimized, " "+extra, "", 1)
				}
				out.Changes = append(out.Changes, fmt.Sprintf("reduced hashtags to %d", p.HashtagLimit))
			}
			optimized = catalog.Truncate(optimized, p.MaxLength)
		}
	}

	out.OptimizedContent = optimized
	out.CharacterCount = utf8.RuneCountInString(optimized)
	return out, nil
}

// FitToPlatform truncates text to the platform's length limit.
func FitToPlatform(text, platform string) string {
	p, ok := catalog.LookupPlatform(platform)
	if !ok {
		return text
	}
	return catalog.Truncate(text, p.MaxLength)
}

// GenerateQuick serves the simple /ai/generate-content endpoint: English copy of
// contentType (blog_post by default) for prompt.
func (s *Service) GenerateQuick(ctx context.Context, tenantID, userID uuid.UUID, prompt, contentType string) (*Generated, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.NewValidationError("prompt", "Prompt is required")
	}
	if contentType == "" {
		contentType = "blog_post"
	}
	return s.Generate(ctx, tenantID, userID, GenerateInput{ContentType: contentType, Prompt: prompt, Language: "en"})
}

// List returns a page of the tenant's content.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, f repository.ContentFilter, page domain.Page) ([]domain.Content, domain.Pagination, error) {
	items, total, err := s.repo.List(ctx, tenantID, f, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(page, total), nil
}

// Get returns a content row.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Content, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// Input carries writable content fields. Nil fields are kept on update.
type Input struct {
	Title           *string   `json:"title"`
	ContentType     *string   `json:"content_type"`
	Body            *string   `json:"content_body"`
	Tags            *[]string `json:"tags"`
	Keywords        *[]string `json:"keywords"`
	Tone            *string   `json:"tone"`
	Language        *string   `json:"language"`
	Platform        *string   `json:"platform"`
	Status          *string   `json:"status"`
	MetaDescription *string   `json:"meta_description"`
}

func (in Input) apply(c *domain.Content) error {
	if in.Title != nil {
		c.Title = auth.CleanText(*in.Title)
	}
	if in.ContentType != nil {
		if !catalog.IsContentType(*in.ContentType) {
			return domain.NewValidationError("content_type", "Invalid content type")
		}
		c.ContentType = *in.ContentType
	}
	if in.Body != nil {
		c.Body = *in.Body
	}
	if in.Tags != nil {
		c.Tags = *in.Tags
	}
	if in.Keywords != nil {
		c.Keywords = *in.Keywords
	}
	if in.Tone != nil {
		c.Tone = *in.Tone
	}
	if in.Language != nil {
		if !catalog.IsLanguage(*in.Language) {
			return domain.NewValidationError("language", "Language not supported")
		}
		c.Language = *in.Language
	}
	if in.Platform != nil {
		c.Platform = *in.Platform
	}
	if in.MetaDescription != nil {
		c.MetaDescription = *in.MetaDescription
	}
	if in.Status != nil {
		if !domain.ValidContentStatus(*in.Status) {
			return domain.NewValidationError("status", "invalid status %q", *in.Status)
		}
		if *in.Status == domain.ContentPublished && c.PublishedAt == nil {
			now := time.Now()
			c.PublishedAt = &now
		}
		c.Status = *in.Status
	}

	switch {
	case strings.TrimSpace(c.Title) == "":
		return domain.Required("title")
	case strings.TrimSpace(c.ContentType) == "":
		return domain.Required("content_type")
	case strings.TrimSpace(c.Body) == "":
		return domain.Required("content_body")
	}
	return nil
}

// Create stores a hand-written content row.
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, in Input) (*domain.Content, error) {
	c := &domain.Content{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		UserID:       userID,
		Language:     "en",
		Status:       domain.ContentDraft,
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if len(c.Keywords) == 0 {
		c.Keywords = ai.ExtractKeywords(c.Body, 10)
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}
	return c, nil
}

// Update changes a content row.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in Input) (*domain.Content, error) {
	c, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a content row and its schedules.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}

func (s *Service) businessContext(ctx context.Context, tenantID uuid.UUID) *ai.Business {
	if s.business == nil {
		return nil
	}
	p, err := s.business.GetProfile(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			s.logger.WarnContext(ctx, "failed to load business profile", "tenant_id", tenantID, "error", err)
		}
		return nil
	}
	return &ai.Business{
		Name:           p.BusinessName,
		Industry:       p.Industry,
		BrandVoice:     p.BrandVoice,
		USP:            p.UniqueSellingProposition,
		TargetAudience: p.TargetAudience,
	}
}

// generatorFor prefers a tenant's own OpenAI key over the shared generator.
func (s *Service) generatorFor(ctx context.Context, tenantID uuid.UUID) ai.Generator {
	if s.keys == nil {
		return s.generator
	}
	key, err := s.keys.ResolveAPIKey(ctx, tenantID, "openai")
	if err != nil || key == "" {
		return s.generator
	}
	cfg := s.aiConfig
	cfg.APIKey = key
	return ai.NewOpenAIGenerator(cfg, s.generator, s.logger)
}

func hashtagsFor(text string, n int) string {
	words := ai.ExtractKeywords(text, n)
	tags := make([]string, len(words))
	for i, w := range words {
		tags[i] = "#" + strings.ReplaceAll(ai.TitleCase(w), " ", "")
	}
	return strings.Join(tags, " ")
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
