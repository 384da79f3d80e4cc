package calculator

import (
	"fmt"
	"strings"
	"time"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	time.RFC3339,          // 2025-08-19T00:00:00-03:00, 2025-08-01T00:00:00Z
	"2006-01-02T15:04:05", // 2025-08-01T00:00:00
	"2006-01-02 15:04:05", // 2025-08-01 00:00:00
	model.DateLayout,      // 2025-08-01
}

// ParseDate parses s with the accepted layouts and returns its calendar day at
// midnight UTC. The day is the one written in s, whatever its offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Day truncates t to its calendar day in its own location, expressed in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeDate canonicalizes a date value to YYYY-MM-DD for equality
// comparison. It never fails: empty input yields "", and text that matches no
// layout is returned unchanged so that it can still match lexically.
func NormalizeDate(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format(model.DateLayout)
	case *time.Time:
		if d == nil || d.IsZero() {
			return ""
		}
		return d.Format(model.DateLayout)
	case string:
		return normalizeText(d)
	default:
		return normalizeText(fmt.Sprint(d))
	}
}

func normalizeText(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	t, err := ParseDate(trimmed)
	if err != nil {
		return s
	}
	return t.Format(model.DateLayout)
}
