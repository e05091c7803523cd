package console

import (
	"strings"
	"time"
)

// Optional fields are nil when absent, never "". Columns follow the same
// rule: an absent field has no key.

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func setOptional(columns map[string]interface{}, key string, value *string) {
	if value != nil {
		columns[key] = *value
	}
}

func setTime(columns map[string]interface{}, key string, value *time.Time) {
	if value != nil && !value.IsZero() {
		columns[key] = value.UTC().Format(time.RFC3339Nano)
	}
}

func stringColumn(columns map[string]interface{}, key string) string {
	s, _ := columns[key].(string)
	return s
}

func optionalColumn(columns map[string]interface{}, key string) *string {
	s, ok := columns[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func stringsColumn(columns map[string]interface{}, key string) []string {
	list, _ := columns[key].([]string)
	return append([]string{}, list...)
}

func timeColumn(columns map[string]interface{}, key string) *time.Time {
	s, ok := columns[key].(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func valueOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// NormalizeTags trims tags and drops blanks and case-insensitive duplicates,
// keeping the first spelling.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		out = append(out, tag)
	}
	return out
}
