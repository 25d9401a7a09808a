// Package catalog holds the fixed reference data shared by the content and social
// features: supported languages, content types and platform limits.
package catalog

import (
	"sort"
	"unicode/utf8"
)

// Languages maps ISO codes to display names.
var Languages = map[string]string{
	"en": "English",
	"si": "Sinhala",
	"ta": "Tamil",
	"hi": "Hindi",
	"te": "Telugu",
	"ml": "Malayalam",
	"bn": "Bengali",
	"gu": "Gujarati",
	"mr": "Marathi",
	"pa": "Punjabi",
	"kn": "Kannada",
	"ur": "Urdu",
	"ne": "Nepali",
	"my": "Burmese",
	"th": "Thai",
}

// ContentTypes maps content type keys to display names.
var ContentTypes = map[string]string{
	"social_post":         "Social Media Post",
	"email_subject":       "Email Subject Line",
	"email_body":          "Email Body Content",
	"ad_copy":             "Advertisement Copy",
	"blog_post":           "Blog Post",
	"landing_page":        "Landing Page Copy",
	"product_description": "Product Description",
	"press_release":       "Press Release",
	"newsletter":          "Newsletter Content",
}

// Platform describes the publishing limits of a social network.
type Platform struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	APIVersion   string   `json:"api_version"`
	PostTypes    []string `json:"post_types"`
	MaxLength    int      `json:"max_length"`
	HashtagLimit int      `json:"hashtag_limit"`
}

// Platforms is keyed by platform key.
var Platforms = map[string]Platform{
	"facebook": {
		Key: "facebook", Name: "Facebook", APIVersion: "v18.0",
		PostTypes: []string{"text", "image", "video", "link", "carousel"},
		MaxLength: 2200, HashtagLimit: 30,
	},
	"instagram": {
		Key: "instagram", Name: "Instagram", APIVersion: "v18.0",
		PostTypes: []string{"image", "video", "carousel", "story", "reel"},
		MaxLength: 2200, HashtagLimit: 30,
	},
	"linkedin": {
		Key: "linkedin", Name: "LinkedIn", APIVersion: "v2",
		PostTypes: []string{"text", "image", "video", "article", "document"},
		MaxLength: 3000, HashtagLimit: 10,
	},
	"twitter": {
		Key: "twitter", Name: "Twitter/X", APIVersion: "v2",
		PostTypes: []string{"text", "image", "video", "thread"},
		MaxLength: 280, HashtagLimit: 10,
	},
	"tiktok": {
		Key: "tiktok", Name: "TikTok", APIVersion: "v1",
		PostTypes: []string{"video"},
		MaxLength: 150, HashtagLimit: 20,
	},
	"youtube": {
		Key: "youtube", Name: "YouTube", APIVersion: "v3",
		PostTypes: []string{"video", "short", "live"},
		MaxLength: 5000, HashtagLimit: 15,
	},
	"pinterest": {
		Key: "pinterest", Name: "Pinterest", APIVersion: "v5",
		PostTypes: []string{"pin", "story"},
		MaxLength: 500, HashtagLimit: 20,
	},
}

// DefaultMaxLength applies to platforms without a catalog entry.
const DefaultMaxLength = 1000

// IsLanguage reports whether code is supported.
func IsLanguage(code string) bool {
	_, ok := Languages[code]
	return ok
}

// IsContentType reports whether t is supported.
func IsContentType(t string) bool {
	_, ok := ContentTypes[t]
	return ok
}

// LookupPlatform returns the platform for key.
func LookupPlatform(key string) (Platform, bool) {
	p, ok := Platforms[key]
	return p, ok
}

// MaxLength returns the text limit of a platform, or DefaultMaxLength.
func MaxLength(platform string) int {
	if p, ok := Platforms[platform]; ok {
		return p.MaxLength
	}
	return DefaultMaxLength
}

// PlatformKeys returns the platform keys in sorted order.
func PlatformKeys() []string {
	keys := make([]string, 0, len(Platforms))
	for k := range Platforms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Truncate shortens text to max characters, ending it with "..." when cut.
// Characters are counted in runes so multi-byte scripts are never split.
func Truncate(text string, max int) string {
	if max <= 3 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-3]) + "..."
}
