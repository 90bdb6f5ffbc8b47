package services

import "strings"

// headersMetadataKey holds a document's heading outline, one "H<n>: text"
// line per heading, as written by the markdown normaliser.
const headersMetadataKey = "headers"

type outlineEntry struct {
	label string // "H2: Setup"
	text  string // lower-cased heading text
}

func parseOutline(raw string) []outlineEntry {
	var outline []outlineEntry
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		_, text, ok := strings.Cut(line, ": ")
		if !ok || !strings.HasPrefix(line, "H") || strings.TrimSpace(text) == "" {
			continue
		}
		outline = append(outline, outlineEntry{label: line, text: strings.ToLower(strings.TrimSpace(text))})
	}
	return outline
}

// relevantHeaders returns the outline entries whose heading text occurs in
// content, ignoring case, in outline order.
func relevantHeaders(content string, outline []outlineEntry) []string {
	if len(outline) == 0 {
		return nil
	}
	lower := strings.ToLower(content)
	var headers []string
	for _, h := range outline {
		if strings.Contains(lower, h.text) {
			headers = append(headers, h.label)
		}
	}
	return headers
}
