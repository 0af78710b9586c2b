package processing

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/DeafMist/metals-news-radar/internal/models"
)

const titleMaxWords = 12

var (
	listMarker    = regexp.MustCompile(`^(?:[-*•+]|\d{1,3}[.)])\s+`)
	citation      = regexp.MustCompile(`\s*\[(\d{1,3})\]`)
	markdownLink  = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	boldSpan      = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	leadingParens = regexp.MustCompile(`^\s*\(([^)]*)\)`)
	sourceLabel   = regexp.MustCompile(`(?i)\b(?:source|fonte)\s*:\s*([^,;|\n()]+)`)
	dateLabel     = regexp.MustCompile(`(?i)\b(?:date|data|published)\s*:\s*(` + dateInText.String() + `)`)
	markdownNoise = regexp.MustCompile(`[*_#` + "`" + `]+`)
	leadingPunct  = regexp.MustCompile(`^[\s:;–—\-|]+`)
	// Answers say so when there is nothing to report; such blocks are not items.
	noNews        = regexp.MustCompile(`(?i)^\W*(?:there (?:is|are|was|were) )?no (?:other |recent |new |relevant |significant |further |major )*(?:news|updates|developments|articles)\b`)
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockList
	blockTableRow
)

type block struct {
	kind    blockKind
	text    string
	indent  int
	cells   []string
	columns map[string]int
}

// ExtractItems yields the candidate items found in one answer text. Citation
// markers like [2] resolve against citations (1-based). Fragments without a
// usable title are skipped. The sequence can be ranged over more than once.
func ExtractItems(text string, citations []string) iter.Seq[models.Draft] {
	return func(yield func(models.Draft) bool) {
		blocks := splitBlocks(text)

		structured := false
		for _, b := range blocks {
			if b.kind != blockParagraph {
				structured = true
				break
			}
		}

		for _, b := range blocks {
			if structured && b.kind == blockParagraph {
				continue
			}
			if b.kind != blockTableRow && noNews.MatchString(b.text) {
				continue
			}

			var (
				d  models.Draft
				ok bool
			)
			if b.kind == blockTableRow {
				d, ok = parseTableRow(b.cells, b.columns, citations)
			} else {
				d, ok = parseFreeText(b.text, citations)
			}
			if !ok {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

func splitBlocks(text string) []block {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		blocks  []block
		current *block
		columns map[string]int
		inTable bool
	)

	flush := func() {
		if current != nil && strings.TrimSpace(current.text) != "" {
			blocks = append(blocks, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "|") {
			flush()
			cells := splitRow(trimmed)
			if !inTable {
				inTable = true
				columns = headerColumns(cells)
				continue
			}
			if isSeparatorRow(cells) || columns == nil {
				continue
			}
			blocks = append(blocks, block{kind: blockTableRow, cells: cells, columns: columns})
			continue
		}
		inTable = false
		columns = nil

		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
		case listMarker.MatchString(trimmed):
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			item := listMarker.ReplaceAllString(trimmed, "")
			// Deeper bullets are details of the item above them.
			if current != nil && current.kind == blockList && indent > current.indent {
				current.text += " " + item
				break
			}
			flush()
			current = &block{kind: blockList, text: item, indent: indent}
		case current != nil:
			current.text += " " + trimmed
		default:
			current = &block{kind: blockParagraph, text: trimmed}
		}
	}
	flush()

	return blocks
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, ":- ") != "" {
			return false
		}
	}
	return true
}

var headerAliases = map[string]string{
	"title":       "title",
	"titolo":      "title",
	"headline":    "title",
	"news":        "title",
	"date":        "date",
	"data":        "date",
	"published":   "date",
	"source":      "source",
	"fonte":       "source",
	"publication": "source",
	"summary":     "summary",
	"estratto":    "summary",
	"description": "summary",
	"excerpt":     "summary",
	"url":         "url",
	"link":        "url",
}

// headerColumns maps known header names to cell positions. It returns nil for
// tables without a title column; their rows cannot produce items.
func headerColumns(cells []string) map[string]int {
	cols := make(map[string]int)
	for i, c := range cells {
		name := strings.ToLower(strings.TrimSpace(markdownNoise.ReplaceAllString(c, "")))
		if field, ok := headerAliases[name]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	if _, ok := cols["title"]; !ok {
		return nil
	}
	return cols
}

func parseTableRow(cells []string, cols map[string]int, citations []string) (models.Draft, bool) {
	cell := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	var d models.Draft
	ref := firstCitation(strings.Join(cells, " "), citations)

	title := cell("title")
	if m := markdownLink.FindStringSubmatch(title); m != nil {
		d.URL = m[2]
		title = m[1]
	}
	d.Title = cleanFragment(title)
	if d.Title == "" {
		return models.Draft{}, false
	}

	for _, field := range []string{"url", "source", "summary"} {
		if d.URL != "" {
			break
		}
		d.URL = firstURL(cell(field))
	}
	if d.URL == "" {
		d.URL = ref
	}

	d.Source = cleanFragment(RemoveURLs(markdownLink.ReplaceAllString(cell("source"), "$1")))
	if d.Source == "" {
		d.Source = HostOf(d.URL)
	}
	d.Summary = cleanFragment(RemoveURLs(markdownLink.ReplaceAllString(cell("summary"), "$1")))

	if ts, dateOnly, ok := ParseDate(cleanFragment(cell("date"))); ok {
		d.PublishedAt, d.DateOnly = ts, dateOnly
	} else if ts, dateOnly, ok := FindDate(cell("date")); ok {
		d.PublishedAt, d.DateOnly = ts, dateOnly
	}

	d.URL = CanonicalURL(d.URL)
	return d, true
}

func parseFreeText(text string, citations []string) (models.Draft, bool) {
	var d models.Draft

	ref := firstCitation(text, citations)
	text = citation.ReplaceAllString(text, "")

	var linkText string
	if m := markdownLink.FindStringSubmatch(text); m != nil {
		linkText, d.URL = m[1], m[2]
	}
	text = markdownLink.ReplaceAllString(text, "$1")

	if d.URL == "" {
		d.URL = firstURL(text)
	}
	if d.URL == "" {
		d.URL = ref
	}
	text = RemoveURLs(text)

	rest := text
	if m := boldSpan.FindStringSubmatchIndex(text); m != nil {
		var title string
		if m[2] >= 0 {
			title = text[m[2]:m[3]]
		} else {
			title = text[m[4]:m[5]]
		}
		d.Title = cleanFragment(title)
		rest = text[:m[0]] + " " + text[m[1]:]
		rest = strings.TrimSpace(rest)
	} else if linkText != "" {
		d.Title = cleanFragment(linkText)
		rest = strings.Replace(text, linkText, "", 1)
	}

	if p := leadingParens.FindStringSubmatch(rest); p != nil {
		for _, part := range strings.Split(p[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if ts, dateOnly, ok := ParseDate(part); ok && d.PublishedAt.IsZero() {
				d.PublishedAt, d.DateOnly = ts, dateOnly
				continue
			}
			if d.Source == "" && !strings.ContainsAny(part, "0123456789") {
				d.Source = cleanFragment(part)
			}
		}
		// A "(Reuters, Oct 10, 2025)" prefix splits the month/day from the year.
		if d.PublishedAt.IsZero() {
			if ts, dateOnly, ok := FindDate(p[1]); ok {
				d.PublishedAt, d.DateOnly = ts, dateOnly
			}
		}
		rest = leadingParens.ReplaceAllString(rest, "")
	}

	if m := sourceLabel.FindStringSubmatch(rest); m != nil {
		if d.Source == "" {
			d.Source = cleanFragment(m[1])
		}
		rest = strings.Replace(rest, m[0], "", 1)
	}

	// Dates only come from the attribution or an explicit label. The summary
	// itself often mentions older events.
	if m := dateLabel.FindStringSubmatch(rest); m != nil {
		if ts, dateOnly, ok := FindDate(m[1]); ok && d.PublishedAt.IsZero() {
			d.PublishedAt, d.DateOnly = ts, dateOnly
		}
		rest = strings.Replace(rest, m[0], "", 1)
	}

	d.Summary = cleanFragment(leadingPunct.ReplaceAllString(rest, ""))

	if d.Title == "" {
		d.Title = cleanFragment(GenerateTitleFromText(d.Summary, titleMaxWords))
	}
	if d.Title == "" || !hasLetter(d.Title) {
		return models.Draft{}, false
	}

	if d.Source == "" {
		d.Source = HostOf(d.URL)
	}
	d.URL = CanonicalURL(d.URL)
	return d, true
}

func firstCitation(text string, citations []string) string {
	for _, m := range citation.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(citations) {
			continue
		}
		if u := strings.TrimSpace(citations[n-1]); u != "" {
			return u
		}
	}
	return ""
}

func firstURL(text string) string {
	if m := markdownLink.FindStringSubmatch(text); m != nil {
		return m[2]
	}
	if urls := ExtractURLs(text); len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func cleanFragment(s string) string {
	s = citation.ReplaceAllString(s, "")
	s = markdownNoise.ReplaceAllString(s, "")
	s = SqueezeSpace(s)
	return strings.Trim(s, " :-–—|\"")
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
