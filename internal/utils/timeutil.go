package utils

import "time"

// NormalizeTime converts any timestamp representation the store may hand
// back (time.Time, RFC 3339 string, nil) into a UTC time.Time. Every
// component that reads a timestamp field goes through this one function
// so that comparisons always happen in a single canonical zone.
func NormalizeTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return time.Now().UTC()
		}
		return t.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC()
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
		return time.Now().UTC()
	}
	return time.Now().UTC()
}

// StartOfTodayUTC returns UTC midnight of the current day. Used as the
// lower bound of the "messages today" window.
func StartOfTodayUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
