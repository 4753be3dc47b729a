package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault resolves a timeout, budget or TTL setting. A blank value
// takes defaultValue, normally one of the Default* constants above. Every
// such setting bounds a wait, so zero and negative durations are rejected.
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = strings.TrimSpace(defaultValue)
	}
	if raw == "" {
		return 0, fmt.Errorf("no duration set and no default")
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", raw)
	}
	return d, nil
}
