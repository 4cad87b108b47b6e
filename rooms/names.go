package rooms

import "strings"

// DisplayName extracts a participant's display name from transport metadata.
// Precedence is fixed: info.userName, then user_name, then name. Values are
// whitespace-trimmed and empty strings count as missing. Only the first
// whitespace-delimited token is returned; greeting prompts address people by
// first name.
func DisplayName(info map[string]any) string {
	if info == nil {
		return ""
	}
	for _, key := range []string{"userName", "user_name", "name"} {
		v, ok := info[key].(string)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if i := strings.IndexFunc(v, isSpace); i >= 0 {
			return v[:i]
		}
		return v
	}
	return ""
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
