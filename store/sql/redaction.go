package sqlstore

import "strings"

const redactedValue = "[REDACTED]"

// RedactMetadata strips credential material from access log metadata before
// it is persisted. Keys are matched case-insensitively on substrings.
func RedactMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	redacted := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if isSensitiveKey(key) {
			redacted[key] = redactedValue
			continue
		}
		switch typed := value.(type) {
		case map[string]any:
			redacted[key] = RedactMetadata(typed)
		case []any:
			items := make([]any, len(typed))
			for i := range typed {
				if nested, ok := typed[i].(map[string]any); ok {
					items[i] = RedactMetadata(nested)
					continue
				}
				items[i] = typed[i]
			}
			redacted[key] = items
		default:
			redacted[key] = value
		}
	}
	return redacted
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	for _, token := range []string{
		"password",
		"secret",
		"token",
		"authorization",
		"credential",
		"api_key",
		"apikey",
	} {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}
