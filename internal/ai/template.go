package ai

import (
	"context"
	"fmt"
	"strings"
)

// templates maps content type to language to body. Placeholders: {prompt},
// {Prompt} (title case), {brand}, {industry}, {audience}, {usp}.
var templates = map[string]map[string]string{
	"social_post": {
		"en": "🚀 Exciting news from {brand}! {prompt} Join us and see what's possible for {audience}. #{tag} #Innovation #SouthAsia",
		"si": "🎉 සතුටුදායක ප්‍රවෘත්තියක්! {prompt} {brand} සමඟ එක්වන්න! #{tag} #නවෝත්පාදනය",
		"ta": "🌟 மகிழ்ச்சியான செய்தி! {prompt} {brand} உடன் சேருங்கள்! #{tag} #புதுமை",
		"hi": "🎊 रोमांचक समाचार! {prompt} {brand} के साथ जुड़ें! #{tag} #नवाचार",
	},
	"email_subject": {
		"en": "Transform Your Business: {prompt}",
		"si": "ඔබේ ව්‍යාපාරය වෙනස් කරන්න: {prompt}",
		"ta": "உங்கள் வணிகத்தை மாற்றுங்கள்: {prompt}",
		"hi": "अपने व्यापार को बदलें: {prompt}",
	},
	"email_body": {
		"en": `Dear Valued Customer,

We hope this message finds you well. We're excited to share {prompt} with you.

At {brand}, we understand the challenges facing {industry} businesses. We can help you:

• Save time with automation
• Stay close to your customers
• Grow your presence online
• Increase sales and engagement

{usp}

Ready to get started? Reply to this email and we'll take it from there.

Best regards,
The {brand} Team`,
		"si": `ගරු පාරිභෝගිකයා,

ඔබ සුවපත්ව සිටින බව අපි බලාපොරොත්තු වෙමු. {prompt} ඔබ සමඟ බෙදා ගැනීමට අපි සතුටු වෙමු.

ස්තුතියි,
{brand} කණ්ඩායම`,
	},
	"ad_copy": {
		"en": "🚀 Ready to revolutionize your business? {prompt} Join the {industry} businesses already working with {brand}. Start today!",
		"hi": "🚀 अपने व्यापार में क्रांति लाने के लिए तैयार हैं? {prompt} {brand} के साथ आज ही शुरू करें!",
	},
	"blog_post": {
		"en": `# {Prompt}: A Game-Changer for {industry} Businesses

## Introduction

In today's rapidly evolving digital landscape, businesses face unique challenges and opportunities. {prompt} represents a significant step forward in addressing these needs.

## Why It Matters for {audience}

Diverse markets with rich cultural heritage and fast-growing digital adoption reward businesses that adapt quickly.

## How {brand} Helps

- Content in the languages your customers speak
- Cultural sensitivity in every message
- Cost-effective tools built for growing markets

## Conclusion

{prompt} is more than a feature. It is a commitment to helping businesses succeed locally.

Ready to get started? Contact us today!`,
	},
	"landing_page": {
		"en": `# Transform Your Business with {Prompt}

## Designed for {audience}

{brand} understands the needs of businesses across Sri Lanka, India, Pakistan, Bangladesh and beyond.

### Why Choose {brand}?

✅ Multi-language support
✅ Cultural sensitivity and local compliance
✅ Affordable pricing for emerging markets

[Start Free Trial] [Contact Sales]`,
	},
	"product_description": {
		"en": `**{Prompt}**

Transform your business with {brand}'s {prompt}. Designed for {industry} teams that demand results.

**Key Features:**
✓ Advanced functionality that delivers real results
✓ User-friendly interface for easy adoption
✓ Scales with your business

{usp}`,
	},
	"press_release": {
		"en": `FOR IMMEDIATE RELEASE

{brand} Announces {Prompt}

{brand}, a {industry} business, today announced {prompt}. The launch gives {audience} new ways to get measurable results.

About {brand}
{usp}

###`,
	},
	"newsletter": {
		"en": `# {brand} Newsletter

## This Month: {Prompt}

{prompt}

Thanks for reading. See you next month!`,
	},
}

// fallbacks are used for languages without a localized template.
var fallbacks = map[string]string{
	"social_post":         "Exciting update! {prompt} #{tag} #Innovation",
	"email_subject":       "Business Transformation: {prompt}",
	"email_body":          "Dear Customer, {prompt}. Best regards, {brand} Team",
	"ad_copy":             "Transform your business with {prompt}! Try {brand} today!",
	"blog_post":           "Blog post about {prompt} for {audience}.",
	"landing_page":        "Landing page for {prompt} - {brand}",
	"product_description": "Professional product description for {prompt} optimized for the {language} market.",
	"press_release":       "Press release: {prompt} - {brand} announces new features.",
	"newsletter":          "Newsletter content about {prompt} for {brand} subscribers in {language}.",
}

// CulturalContext describes the register expected for a language.
func CulturalContext(language string) string {
	switch language {
	case "en":
		return "Professional, international business tone"
	case "si":
		return "Respectful, Buddhist cultural values, Sri Lankan context"
	case "ta":
		return "Cultural sensitivity, Tamil traditions, respectful tone"
	case "hi":
		return "Hindi cultural values, Indian business context, respectful language"
	case "ur":
		return "Islamic cultural values, Pakistani business context, formal tone"
	case "bn":
		return "Bengali cultural traditions, respectful and warm tone"
	case "te":
		return "Telugu cultural context, South Indian business traditions"
	case "ml":
		return "Malayalam cultural values, Kerala business context"
	case "gu":
		return "Gujarati business traditions, entrepreneurial spirit"
	case "mr":
		return "Marathi cultural values, Maharashtra business context"
	case "pa":
		return "Punjabi cultural traditions, energetic and warm tone"
	case "kn":
		return "Kannada cultural context, Karnataka business traditions"
	}
	return "Professional business tone"
}

// TemplateGenerator interpolates built-in templates. It never fails for a
// known content type.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a TemplateGenerator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Name implements Generator.
func (g *TemplateGenerator) Name() string {
	return SourceTemplate
}

// Generate implements Generator.
func (g *TemplateGenerator) Generate(_ context.Context, req Request) (*Result, error) {
	body, ok := templates[req.ContentType][req.Language]
	if !ok {
		body, ok = fallbacks[req.ContentType]
		if !ok {
			return nil, fmt.Errorf("unsupported content type %q", req.ContentType)
		}
	}

	keywords := req.Keywords
	if len(keywords) == 0 {
		keywords = ExtractKeywords(req.Prompt, 5)
	}
	tone := req.Tone
	if tone == "" {
		tone = DetectTone(req.Prompt)
	}

	content := strings.TrimSpace(interpolate(body, req, keywords))
	res := &Result{
		Content:  content,
		Hashtags: ExtractHashtags(content),
		Keywords: keywords,
		Tone:     tone,
		Source:   SourceTemplate,
	}
	switch req.ContentType {
	case "email_subject":
		res.Subject = content
	case "blog_post", "landing_page", "product_description", "press_release", "newsletter":
		res.Title = FirstLine(content)
	}
	return res, nil
}

func interpolate(body string, req Request, keywords []string) string {
	b := req.Business
	if b == nil {
		b = &Business{}
	}
	tag := "CloudBoostAI"
	if len(keywords) > 0 {
		tag = TitleCase(keywords[0])
		tag = strings.ReplaceAll(tag, " ", "")
	}
	r := strings.NewReplacer(
		"{prompt}", req.Prompt,
		"{Prompt}", TitleCase(req.Prompt),
		"{brand}", orDefault(b.Name, "CloudBoost AI"),
		"{industry}", orDefault(b.Industry, "growing"),
		"{audience}", orDefault(b.TargetAudience, "South Asian businesses"),
		"{usp}", b.USP,
		"{language}", req.Language,
		"{tag}", tag,
	)
	return r.Replace(body)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
