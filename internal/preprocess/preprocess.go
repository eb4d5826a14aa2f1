// Package preprocess contains pure text normalization helpers used by the
// ingestion pipeline. Nothing here touches the network or the store.
package preprocess

import (
	"html"
	"regexp"
	"strings"
)

var (
	urlRegex       = regexp.MustCompile(`https?://[^\s<>"]+`)
	spaceRunRegex  = regexp.MustCompile(`[ \t]+`)
	blankRunRegex  = regexp.MustCompile(`\n{3,}`)
	mentionRegex   = regexp.MustCompile(`(?i)/u/([A-Za-z0-9_-]+)`)
	subredditRegex = regexp.MustCompile(`(?i)/r/([A-Za-z0-9_]+)`)
	sentenceRegex  = regexp.MustCompile(`[.!?]+`)
)

var deletedMarkers = map[string]bool{
	"[deleted]":         true,
	"[removed]":         true,
	"[deleted by user]": true,
}

// CleanText decodes HTML entities, strips URLs, collapses runs of spaces and
// tabs, caps blank-line runs at two, and trims the ends. Idempotent.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = urlRegex.ReplaceAllString(text, "")
	text = spaceRunRegex.ReplaceAllString(text, " ")

	// Trim trailing spaces per line so blank-line collapsing sees true blanks.
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	text = strings.Join(lines, "\n")

	text = blankRunRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// IsDeletedContent reports whether text is one of Reddit's deletion markers.
func IsDeletedContent(text string) bool {
	return deletedMarkers[strings.ToLower(strings.TrimSpace(text))]
}

// NormalizeAuthor trims an author name. The second return is false for
// deleted-account markers.
func NormalizeAuthor(author string) (string, bool) {
	trimmed := strings.TrimSpace(author)
	switch strings.ToLower(trimmed) {
	case "", "[deleted]", "deleted", "[removed]":
		return "", false
	}
	return trimmed, true
}

// ExtractURLs returns every http(s) URL in text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlRegex.FindAllString(text, -1)
}

// ExtractMentions returns lowercased /u/ and /r/ mentions, deduplicated and
// preserving first-seen order. Usernames keep their /u/ form, subreddits /r/.
func ExtractMentions(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(prefix, name string) {
		m := prefix + strings.ToLower(name)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		add("/u/", m[1])
	}
	for _, m := range subredditRegex.FindAllStringSubmatch(text, -1) {
		add("/r/", m[1])
	}
	return out
}

// TextStats summarizes a body of text.
type TextStats struct {
	Chars      int `json:"chars"`
	Words      int `json:"words"`
	Sentences  int `json:"sentences"`
	Paragraphs int `json:"paragraphs"`
	URLs       int `json:"urls"`
}

// GetTextStats counts characters, words, sentences (split on [.!?]+),
// paragraphs (split on blank lines) and URLs.
func GetTextStats(text string) TextStats {
	stats := TextStats{
		Chars: len([]rune(text)),
		Words: len(strings.Fields(text)),
		URLs:  len(urlRegex.FindAllString(text, -1)),
	}
	for _, s := range sentenceRegex.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			stats.Sentences++
		}
	}
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			stats.Paragraphs++
		}
	}
	return stats
}
