package timespec

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var dayRe = regexp.MustCompile(`^(\d+)d$`)

// Parse parses a time specification into a Unix timestamp (milliseconds).
// Supports four formats:
//   - Go duration format: "1h", "30m", "1h30m", "2h45m30s"
//   - Day shorthand: "7d" (Go durations stop at hours)
//   - Keywords: "today" (local midnight), "yesterday"
//   - RFC3339 timestamps: "2026-08-29T13:00:00Z"
//
// Duration specifications are relative to the current time (subtracted from
// now). For example, "1h" means "1 hour ago".
//
// Returns Unix timestamp in milliseconds.
func Parse(spec string) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	switch spec {
	case "today":
		return midnight(time.Now()).UnixMilli(), nil
	case "yesterday":
		return midnight(time.Now()).AddDate(0, 0, -1).UnixMilli(), nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if m := dayRe.FindStringSubmatch(spec); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return time.Now().AddDate(0, 0, -days).UnixMilli(), nil
		}
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or '7d', a keyword like 'today', or RFC3339 like '2026-08-29T13:00:00Z')", spec)
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// ParseRange parses both --since and --until flags into a time range.
// Returns (sinceTimestampMs, untilTimestampMs, error).
// Zero values indicate "no bound" for that end of the range.
//
// Validates that since < until if both are specified.
func ParseRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = Parse(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMS, err = Parse(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
