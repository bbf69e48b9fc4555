package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so a subject id containing ':' cannot address another actor's bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// BucketKey builds the store key for one identity and endpoint class.
func BucketKey(class EndpointClass, identity ...string) string {
	parts := make([]string, 0, len(identity)+2)
	parts = append(parts, "rl", string(class))
	for _, segment := range identity {
		parts = append(parts, SanitizeKeySegment(segment))
	}
	return strings.Join(parts, ":")
}
