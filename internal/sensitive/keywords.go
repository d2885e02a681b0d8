// Package sensitive scans sampled gateway log payloads for keywords that
// indicate sensitive data leaking into logs.
package sensitive

import (
	"os"
	"strings"
)

// DefaultKeywords is the built-in keyword list used when no keyword file is
// configured or the configured one cannot be read.
var DefaultKeywords = []string{"password", "passwd", "secret", "token", "apikey", "authorization"}

// LoadKeywords reads a keyword file from disk. The file holds either one
// keyword per line or a single comma-separated line.
func LoadKeywords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseKeywords(string(data)), nil
}

// ParseKeywords splits raw keyword-file content into a normalized list:
// comma-separated when the content contains a comma, line-separated
// otherwise. Keywords are trimmed and lower-cased; empties are dropped.
func ParseKeywords(content string) []string {
	content = strings.TrimSpace(content)
	var parts []string
	if strings.Contains(content, ",") {
		parts = strings.Split(content, ",")
	} else {
		parts = strings.Split(content, "\n")
	}
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		kw := strings.ToLower(strings.TrimSpace(p))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
