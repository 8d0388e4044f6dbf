package pipeline

import (
	"strconv"
	"strings"
	"time"
)

// parseItemTime converts a provider timestamp into unix seconds. Accepted
// forms: integer-string epoch values and ISO-8601 strings, including a
// trailing "Z" offset marker and fractional seconds, which are truncated
// to microsecond precision before parsing. Anything else yields 0 and the
// caller logs a warning; a bad timestamp never drops the item.
func parseItemTime(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return epoch, true
	}

	cleaned := raw
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		frac := cleaned[dot+1:]
		var suffix string
		for i, r := range frac {
			if r < '0' || r > '9' {
				suffix = frac[i:]
				frac = frac[:i]
				break
			}
		}
		if len(frac) > 6 {
			frac = frac[:6]
		}
		cleaned = cleaned[:dot+1] + frac + suffix
	}

	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return ts.Unix(), true
		}
	}
	return 0, false
}
