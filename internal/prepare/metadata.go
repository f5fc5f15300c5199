package prepare

import (
	"encoding/json"
	"time"
)

// Timestamp metadata keys. When createdAt/updatedAt hold a parseable
// timestamp an epoch-millisecond twin is emitted alongside, which is what
// date-bounded queries filter on.
const (
	MetaCreatedAt   = "createdAt"
	MetaUpdatedAt   = "updatedAt"
	MetaCreatedAtTs = "createdAtTs"
	MetaUpdatedAtTs = "updatedAtTs"
)

// timestampLayouts are tried in order when parsing metadata timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a metadata timestamp string. The zero time and false
// are returned when no known layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EpochMillis converts t to milliseconds since the Unix epoch.
func EpochMillis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// FlattenMetadata reduces an arbitrary value map to store-safe metadata:
// every value a string, number, or boolean.
//
//   - nil values are dropped
//   - strings are sanitized, numbers and booleans pass through
//   - arrays and objects are JSON-encoded into (sanitized) strings
//   - createdAt/updatedAt strings that parse as timestamps additionally
//     emit createdAtTs/updatedAtTs epoch-millisecond numbers
//
// Feeding the output back in is a no-op: already-flat values pass through
// and encoded JSON strings are not re-encoded.
func FlattenMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	flat := make(map[string]any, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			flat[key] = Sanitize(v)
		case bool:
			flat[key] = v
		case float64:
			flat[key] = v
		case float32:
			flat[key] = float64(v)
		case int:
			flat[key] = float64(v)
		case int32:
			flat[key] = float64(v)
		case int64:
			flat[key] = float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				flat[key] = f
			} else {
				flat[key] = Sanitize(v.String())
			}
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			flat[key] = Sanitize(string(encoded))
		}

		if key == MetaCreatedAt || key == MetaUpdatedAt {
			if s, ok := flat[key].(string); ok {
				if t, ok := ParseTimestamp(s); ok {
					flat[key+"Ts"] = EpochMillis(t)
				}
			}
		}
	}
	return flat
}
