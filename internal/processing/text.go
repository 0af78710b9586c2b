package processing

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// ExtractURLs extracts all HTTP(S) URLs from the input text.
func ExtractURLs(input string) []string {
	if input == "" {
		return nil
	}
	matches := urlRegex.FindAllString(input, -1)
	if len(matches) == 0 {
		return nil
	}
	// Remove duplicates while preserving order
	seen := make(map[string]struct{})
	var urls []string
	for _, raw := range matches {
		raw = strings.TrimRight(raw, ".,;:!?")
		if _, ok := seen[raw]; !ok {
			seen[raw] = struct{}{}
			urls = append(urls, raw)
		}
	}
	return urls
}

// RemoveURLs removes all URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// CleanText strips HTML entities, punctuation, squeezes whitespace, and removes URLs.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = RemoveURLs(decoded)
	decoded = punctuation.ReplaceAllString(decoded, " ")
	decoded = whitespace.ReplaceAllString(decoded, " ")
	decoded = strings.TrimSpace(decoded)
	return decoded
}

// SqueezeSpace collapses runs of whitespace and trims the result.
func SqueezeSpace(input string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// Truncate shortens input to at most max runes, marking the cut with an ellipsis.
func Truncate(input string, max int) string {
	if max <= 0 || utf8.RuneCountInString(input) <= max {
		return input
	}
	runes := []rune(input)
	cut := strings.TrimSpace(string(runes[:max-1]))
	return cut + "…"
}

// GenerateTitleFromText creates a title from the first sentence or first N words of text.
// Returns empty string if text is empty.
func GenerateTitleFromText(text string, maxWords int) string {
	if text == "" {
		return ""
	}

	textWithoutURLs := RemoveURLs(text)

	sentenceEnd := strings.IndexAny(textWithoutURLs, ".!?")
	var firstSentence string
	if sentenceEnd > 0 {
		firstSentence = strings.TrimSpace(textWithoutURLs[:sentenceEnd])
	} else {
		firstSentence = textWithoutURLs
	}

	words := strings.Fields(firstSentence)
	if len(words) == 0 {
		return ""
	}

	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
		return strings.Join(words, " ") + "..."
	}

	return strings.Join(words, " ")
}

// CanonicalURL drops the fragment and tracking parameters and lowercases the host.
// Non-HTTP input is returned trimmed but otherwise untouched.
func CanonicalURL(raw string) string {
	str := strings.TrimSpace(raw)
	if str == "" {
		return ""
	}

	u, err := url.Parse(str)
	if err != nil {
		return str
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return str
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || strings.HasSuffix(lk, "clid") || strings.HasPrefix(lk, "mc_") || lk == "igshid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// HostOf returns the URL host without a leading "www.", or "" when raw is not a URL.
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
