package transcript

import "strings"

// PublicURL turns an s3://bucket/key reference into the bucket's public
// HTTPS address. Other URLs are returned unchanged.
func PublicURL(raw string) string {
	if !strings.HasPrefix(raw, "s3://") {
		return raw
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
	if !ok || bucket == "" {
		return raw
	}

	return "https://" + bucket + ".s3.amazonaws.com/" + key
}

// Filename is the last path segment of a source URL, used as its link label.
func Filename(raw string) string {
	trimmed := raw
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}

	i := strings.LastIndex(trimmed, "/")
	if i < 0 || i == len(trimmed)-1 {
		return raw
	}

	return trimmed[i+1:]
}
