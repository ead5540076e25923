package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format of due dates.
const DateLayout = "2006-01-02"

var TagSuggestions = []string{"meeting", "personal", "work", "urgent", "followup"}

// NormalizeTag trims and lowercases a tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags normalizes each tag, dropping empties and duplicates while keeping order.
// Comma separated entries are split.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, raw := range tags {
		for _, part := range strings.Split(raw, ",") {
			tag := NormalizeTag(part)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// Today returns the local calendar date of now.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
