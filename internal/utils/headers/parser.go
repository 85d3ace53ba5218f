// Package headers parses repeated -H "Key: Value" flag values.
package headers

import "strings"

// ParseHeaders converts "Key: Value" strings into a header map. Entries
// without a colon are skipped; keys and values are trimmed.
func ParseHeaders(flags []string) map[string]string {
	headers := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}
