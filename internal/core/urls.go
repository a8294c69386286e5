package core

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// CollectURLs gathers every URL in the message: plain-text matches first,
// then rich-text entities, then the link preview.
func CollectURLs(msg *InboundMessage) []ExtractedURL {
	var out []ExtractedURL

	for _, u := range urlPattern.FindAllString(msg.Text, -1) {
		out = append(out, ExtractedURL{URL: u, Provenance: ProvenanceText})
	}

	for _, e := range msg.Entities {
		var u string
		switch e.Type {
		case "url":
			u = EntityText(msg.Text, e.Offset, e.Length)
		case "text_link":
			u = e.URL
		}
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, ExtractedURL{URL: u, Provenance: ProvenanceEntity})
		}
	}

	if msg.PreviewURL != "" {
		out = append(out, ExtractedURL{URL: msg.PreviewURL, Provenance: ProvenancePreview})
	}

	return out
}

// EntityText slices text by a UTF-16 offset and length. Out of range spans
// are clamped.
func EntityText(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length <= 0 || offset >= len(units) {
		return ""
	}
	end := offset + length
	if end > len(units) {
		end = len(units)
	}
	return string(utf16.Decode(units[offset:end]))
}

// MatchKeyword keeps the URLs containing keyword, case-insensitively,
// without repeats and in first-seen order.
func MatchKeyword(urls []ExtractedURL, keyword string) []string {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil
	}

	seen := make(map[string]struct{}, len(urls))
	var matched []string
	for _, u := range urls {
		if !strings.Contains(strings.ToLower(u.URL), keyword) {
			continue
		}
		if _, ok := seen[u.URL]; ok {
			continue
		}
		seen[u.URL] = struct{}{}
		matched = append(matched, u.URL)
	}
	return matched
}

// FormatSummary renders the notification body for a matched message
func FormatSummary(text string, links []string) string {
	var b strings.Builder
	b.WriteString("Keyword detected message:\n")
	b.WriteString(text)
	b.WriteString("\n\nLinks:\n")
	b.WriteString(strings.Join(links, "\n"))
	return b.String()
}
