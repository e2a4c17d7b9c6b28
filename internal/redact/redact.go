// Package redact masks credentials and recovered plaintext before they reach
// audit logs.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// NeverPersistKey names a metadata entry listing extra keys to mask.
	NeverPersistKey = "never_persist"
	Redacted        = "[REDACTED]"
)

// sensitiveKeys are always masked, whatever their value.
var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"auth_token":    {},
	"authorization": {},
	"plaintext":     {},
}

var (
	kvSecretRe = regexp.MustCompile(`(?i)((?:auth[-_]?token|token|secret|password)\s*[:=]\s*)(['"]?)([^\s'"]{4,})(['"]?)`)
	bearerRe   = regexp.MustCompile(`(?i)\b(bearer)\s+(\S+)`)
)

// IsSensitive reports whether values stored under key are always masked.
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// String masks bearer credentials and key=value secrets inside free text.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := kvSecretRe.ReplaceAllString(in, `$1$2`+Redacted+`$4`)
	return bearerRe.ReplaceAllString(masked, `$1 `+Redacted)
}

// Interface redacts recognised sensitive values within nested structures.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case fmt.Stringer:
		return String(v.String())
	case []string:
		return Slice(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map masks sensitive keys, keys listed under NeverPersistKey, and secrets
// embedded in string values. The input is not modified.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}

	extra := map[string]struct{}{}
	for _, key := range neverPersist(in[NeverPersistKey]) {
		extra[strings.ToLower(key)] = struct{}{}
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		if strings.EqualFold(k, NeverPersistKey) {
			continue
		}
		if _, listed := extra[strings.ToLower(k)]; listed || IsSensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = Interface(v)
	}
	return out
}

// Slice redacts sensitive values within a slice of strings.
func Slice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = String(v)
	}
	return out
}

func neverPersist(v any) []string {
	var keys []string
	switch list := v.(type) {
	case string:
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				keys = append(keys, part)
			}
		}
	case []string:
		keys = append(keys, list...)
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				keys = append(keys, s)
			}
		}
	}
	return keys
}
