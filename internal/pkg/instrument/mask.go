package instrument

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const maskedValue = "***"

// masker replaces the values of configured keys, matched case-insensitively,
// in log attributes, nested groups, maps and JSON encoded strings.
type masker map[string]struct{}

func newMasker(fields []string) masker {
	m := make(masker, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			m[f] = struct{}{}
		}
	}
	return m
}

func (m masker) hit(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

func (m masker) attr(a slog.Attr) slog.Attr {
	if len(m) == 0 {
		return a
	}
	if m.hit(a.Key) {
		return slog.String(a.Key, maskedValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = m.attr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if s, ok := m.json(a.Value.String()); ok {
			return slog.String(a.Key, s)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, []any:
			return slog.Any(a.Key, m.value(v))
		case map[string]string:
			conv := make(map[string]any, len(v))
			for k, s := range v {
				conv[k] = s
			}
			return slog.Any(a.Key, m.value(conv))
		case []byte:
			if s, ok := m.json(string(v)); ok {
				return slog.String(a.Key, s)
			}
		}
	}
	return a
}

func (m masker) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if m.hit(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = m.value(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = m.value(inner)
		}
		return out
	default:
		return v
	}
}

// json masks s when it holds a JSON object or array.
func (m masker) json(s string) (string, bool) {
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return "", false
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return "", false
	}
	b, err := json.Marshal(m.value(decoded))
	if err != nil {
		return "", false
	}
	return string(b), true
}
