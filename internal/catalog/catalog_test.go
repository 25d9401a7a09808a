package catalog

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCatalogSizes(t *testing.T) {
	assert.Len(t, Languages, 15)
	assert.Len(t, ContentTypes, 9)
	assert.Len(t, Platforms, 7)
	assert.Equal(t, []string{"facebook", "instagram", "linkedin", "pinterest", "tiktok", "twitter", "youtube"}, PlatformKeys())
}

func TestMaxLength(t *testing.T) {
	assert.Equal(t, 280, MaxLength("twitter"))
	assert.Equal(t, 500, MaxLength("pinterest"))
	assert.Equal(t, DefaultMaxLength, MaxLength("myspace"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 8, "hello..."},
		{"multibyte", "ආයුබෝවන් ලංකාව", 6, "ආයු..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.text, tt.max))
		})
	}

	long := strings.Repeat("a", 300)
	assert.Equal(t, 280, utf8.RuneCountInString(Truncate(long, MaxLength("twitter"))))
}
