package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultMaxTokens = 1000

// Config configures the OpenAI generator.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// OpenAIGenerator calls the chat completions API and falls back to templates
// when the call fails.
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	maxTokens int
	fallback  Generator
	logger    *slog.Logger
}

// NewOpenAIGenerator creates an OpenAIGenerator.
func NewOpenAIGenerator(cfg Config, fallback Generator, logger *slog.Logger) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	if fallback == nil {
		fallback = NewTemplateGenerator()
	}

	return &OpenAIGenerator{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		fallback:  fallback,
		logger:    logger,
	}
}

// New returns the OpenAI generator when an API key is configured and the
// template generator otherwise.
func New(cfg Config, logger *slog.Logger) Generator {
	if cfg.APIKey == "" {
		return NewTemplateGenerator()
	}
	return NewOpenAIGenerator(cfg, NewTemplateGenerator(), logger)
}

// Name implements Generator.
func (g *OpenAIGenerator) Name() string {
	return SourceOpenAI
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(req)),
			openai.UserMessage(userPrompt(req)),
		},
		MaxCompletionTokens: openai.Int(int64(g.maxTokens)),
		Temperature:         openai.Float(0.7),
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err == nil && len(resp.Choices) == 0 {
		err = fmt.Errorf("no choices in response")
	}
	if err != nil {
		g.logger.Warn("openai generation failed, using templates", "error", err, "content_type", req.ContentType)
		res, ferr := g.fallback.Generate(ctx, req)
		if ferr != nil {
			return nil, ferr
		}
		res.FallbackReason = err.Error()
		return res, nil
	}

	g.logger.DebugContext(ctx, "openai generation completed",
		"model", g.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens,
	)

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	res := &Result{
		Content:    content,
		Hashtags:   ExtractHashtags(content),
		Keywords:   ExtractKeywords(content, 10),
		Tone:       orDefault(req.Tone, DetectTone(req.Prompt)),
		Source:     SourceOpenAI,
		Model:      g.model,
		TokensUsed: resp.Usage.TotalTokens,
	}
	switch req.ContentType {
	case "email_subject":
		res.Subject = FirstLine(content)
	case "email_body":
		if after, ok := strings.CutPrefix(content, "Subject:"); ok {
			subject, body, _ := strings.Cut(after, "\n")
			res.Subject = strings.TrimSpace(subject)
			res.Content = strings.TrimSpace(body)
		}
	case "blog_post", "landing_page", "product_description", "press_release", "newsletter":
		res.Title = FirstLine(content)
	}
	return res, nil
}

var systemPrompts = map[string]string{
	"blog_post":           "You are an expert content writer specializing in engaging, SEO-optimized blog posts that provide real value to readers.",
	"social_post":         "You are a social media expert who creates engaging content that drives engagement and conversions.",
	"email_subject":       "You are an email marketing specialist who writes subject lines that get opened.",
	"email_body":          "You are an email marketing specialist who creates compelling emails that drive opens, clicks and conversions.",
	"product_description": "You are a copywriter who creates product descriptions that convert browsers into buyers.",
	"ad_copy":             "You are an advertising copywriter who creates persuasive ads that drive clicks and conversions.",
	"press_release":       "You are a PR professional who writes newsworthy press releases that get media coverage.",
}

func systemPrompt(req Request) string {
	base, ok := systemPrompts[req.ContentType]
	if !ok {
		base = "You are a professional content writer who creates high-quality, engaging content."
	}
	return base + " Write in language code " + req.Language + ". Cultural register: " + CulturalContext(req.Language) + "."
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s about: %s\n", strings.ReplaceAll(req.ContentType, "_", " "), req.Prompt)
	if req.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s\n", req.Platform)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	if biz := req.Business; biz != nil {
		fmt.Fprintf(&b, "Business: %s\nIndustry: %s\nVoice: %s\nUSP: %s\nTarget audience: %s\n",
			biz.Name, biz.Industry, biz.BrandVoice, biz.USP, biz.TargetAudience)
	}
	return b.String()
}
