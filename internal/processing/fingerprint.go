package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// NormalizeTitle lowercases the title and reduces it to letters, digits and single spaces.
func NormalizeTitle(title string) string {
	return strings.ToLower(CleanText(title))
}

// Fingerprint hashes the normalized title with the canonical URL, or with the
// source when no URL is known. It returns "" when the title normalizes to nothing.
func Fingerprint(title, rawURL, source string) string {
	norm := NormalizeTitle(title)
	if norm == "" {
		return ""
	}

	key := norm + "|url:" + strings.ToLower(CanonicalURL(rawURL))
	if strings.TrimSpace(rawURL) == "" {
		key = norm + "|src:" + strings.ToLower(SqueezeSpace(source))
	}

	s := sha1.Sum([]byte(key))
	return hex.EncodeToString(s[:])
}
