package audit

import (
	"regexp"
	"strings"
)

const redactionMarker = "***"

// Both parts are any run of non-delimiters, so non-ASCII and dotless
// addresses match.
var emailPattern = regexp.MustCompile(`([^\s<>"'@,;:()\[\]]+)@([^\s<>"'@,;:()\[\]]+)`)

// RedactString masks every email address in s, keeping the first two
// characters of the local part and the domain: "jane.doe@acme.com" -> "ja***@acme.com".
func RedactString(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return emailPattern.ReplaceAllStringFunc(s, func(addr string) string {
		m := emailPattern.FindStringSubmatch(addr)
		local, domain := m[1], m[2]
		keep := []rune(local)
		if len(keep) > 2 {
			keep = keep[:2]
		}
		return string(keep) + redactionMarker + "@" + domain
	})
}

// RedactDetails returns a redacted copy of details. Nested maps and slices are walked.
func RedactDetails(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return RedactString(val)
	case *string:
		if val == nil {
			return nil
		}
		return RedactString(*val)
	case map[string]interface{}:
		return RedactDetails(val)
	case map[string]string:
		out := make(map[string]interface{}, len(val))
		for k, s := range val {
			out[k] = RedactString(s)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	case []string:
		out := make([]interface{}, len(val))
		for i, s := range val {
			out[i] = RedactString(s)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, m := range val {
			out[i] = RedactDetails(m)
		}
		return out
	default:
		return v
	}
}
