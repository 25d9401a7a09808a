// Package ai generates marketing copy, through OpenAI when configured and from
// built-in templates otherwise.
package ai

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Generator sources.
const (
	SourceOpenAI   = "openai"
	SourceTemplate = "template"
)

// Business is the tenant context woven into generated copy.
type Business struct {
	Name           string
	Industry       string
	BrandVoice     string
	USP            string
	TargetAudience string
}

// Request describes one piece of copy to generate.
type Request struct {
	ContentType string
	Prompt      string
	Language    string
	Platform    string
	Tone        string
	Keywords    []string
	Business    *Business
}

// Result is generated copy plus what produced it.
type Result struct {
	Content        string   `json:"content"`
	Title          string   `json:"title,omitempty"`
	Subject        string   `json:"subject,omitempty"`
	Hashtags       []string `json:"hashtags"`
	Keywords       []string `json:"keywords"`
	Tone           string   `json:"tone"`
	Source         string   `json:"generated_by"`
	Model          string   `json:"model,omitempty"`
	TokensUsed     int64    `json:"tokens_used,omitempty"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
}

// Generator produces copy for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Name() string
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"can": {}, "shall": {}, "this": {}, "that": {}, "your": {}, "our": {}, "from": {},
}

// ExtractKeywords returns up to limit of the most frequent non-stop words longer
// than three letters, ties broken by first appearance.
func ExtractKeywords(text string, limit int) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	freq := make(map[string]int)
	var order []string
	for _, w := range words {
		if _, stop := stopWords[w]; stop || len([]rune(w)) <= 3 {
			continue
		}
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}

	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

var toneWords = []struct {
	tone  string
	words []string
}{
	{"urgent", []string{"urgent", "immediately", "asap", "quickly"}},
	{"professional", []string{"professional", "business", "corporate"}},
	{"enthusiastic", []string{"fun", "exciting", "amazing", "awesome"}},
	{"helpful", []string{"help", "support", "assist", "guide"}},
}

// DetectTone classifies text by keyword. Unmatched text is neutral.
func DetectTone(text string) string {
	lower := strings.ToLower(text)
	for _, tw := range toneWords {
		for _, w := range tw.words {
			if strings.Contains(lower, w) {
				return tw.tone
			}
		}
	}
	return "neutral"
}

// ExtractHashtags returns the #words of text in order, without duplicates.
func ExtractHashtags(text string) []string {
	seen := make(map[string]struct{})
	tags := []string{}
	for _, field := range strings.Fields(text) {
		if !strings.HasPrefix(field, "#") || len(field) < 2 {
			continue
		}
		tag := strings.TrimRightFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) && r != '_'
		})
		if _, ok := seen[tag]; ok || len(tag) < 2 {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// TitleCase upper-cases the first letter of every word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		for j := 1; j < len(r); j++ {
			r[j] = unicode.ToLower(r[j])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// FirstLine returns the first non-empty line of text without markdown heading marks.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return ""
}
