package social

import (
	"strings"
	"unicode/utf8"

	"github.com/cloudboost/cloudboost-api/internal/catalog"
)

const (
	threadMarker      = " 🧵"
	linkedInLead      = "Excited to share: "
	instagramHashtags = " #business #southasia #cloudboostai"
)

// Optimize adapts content to the length limit and conventions of platform.
func Optimize(content, platform string) string {
	max := catalog.MaxLength(platform)
	content = catalog.Truncate(content, max)

	switch platform {
	case "twitter":
		if utf8.RuneCountInString(content) > 200 {
			content = catalog.Truncate(content, max-utf8.RuneCountInString(threadMarker)) + threadMarker
		}
	case "linkedin":
		if !hasAnyPrefix(content, "Excited", "Pleased", "Proud") {
			content = catalog.Truncate(linkedInLead+content, max)
		}
	case "instagram":
		if !strings.Contains(content, "#") {
			content = catalog.Truncate(content, max-utf8.RuneCountInString(instagramHashtags)) + instagramHashtags
		}
	}
	return content
}

// WithHashtags appends tags to content, up to the hashtag limit of platform.
func WithHashtags(content string, tags []string, platform string) string {
	if len(tags) == 0 {
		return content
	}
	limit := len(tags)
	if p, ok := catalog.LookupPlatform(platform); ok && p.HashtagLimit < limit {
		limit = p.HashtagLimit
	}

	var b strings.Builder
	b.WriteString(content)
	for _, tag := range tags[:limit] {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || strings.Contains(content, "#"+tag) {
			continue
		}
		b.WriteString(" #")
		b.WriteString(strings.ReplaceAll(tag, " ", ""))
	}
	return b.String()
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
