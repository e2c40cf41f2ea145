package server

import (
	"strings"
	"time"
)

// parseOptionalDate accepts RFC 3339 timestamps or plain dates.
func parseOptionalDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := t.UTC()
		return &utc, nil
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}
