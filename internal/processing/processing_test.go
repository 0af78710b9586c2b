package processing_test

import (
	"slices"
	"testing"
	"time"

	"github.com/DeafMist/metals-news-radar/internal/models"
	"github.com/DeafMist/metals-news-radar/internal/processing"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "punctuation", input: "Hello!!!   world", want: "Hello world"},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "remove urls", input: "Check https://example.com for info", want: "Check for info"},
		{name: "html entities", input: "Steel &amp; Aluminum", want: "Steel Aluminum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := processing.CleanText(tt.input); got != tt.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "no urls", input: "Hello world", want: nil},
		{name: "single url", input: "Check https://example.com for more", want: []string{"https://example.com"}},
		{name: "trailing period", input: "See https://example.com/a.", want: []string{"https://example.com/a"}},
		{name: "duplicate urls", input: "https://example.com and https://example.com again", want: []string{"https://example.com"}},
		{name: "inside parens", input: "(https://example.com/x)", want: []string{"https://example.com/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.ExtractURLs(tt.input))
		})
	}
}

func TestGenerateTitleFromText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWords int
		want     string
	}{
		{name: "empty", text: "", maxWords: 10, want: ""},
		{name: "single sentence", text: "Alcoa restarts a potline.", maxWords: 10, want: "Alcoa restarts a potline"},
		{name: "multiple sentences", text: "Copper hits a record! Traders cheer. More later.", maxWords: 10, want: "Copper hits a record"},
		{name: "long text truncated", text: "Nickel producers in Indonesia expand capacity again this quarter", maxWords: 5, want: "Nickel producers in Indonesia expand..."},
		{name: "unlimited words", text: "Steel demand recovers", maxWords: 0, want: "Steel demand recovers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.GenerateTitleFromText(tt.text, tt.maxWords))
		})
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", processing.Truncate("short", 10))
	require.Equal(t, "abcd…", processing.Truncate("abcdefgh", 5))
	require.Equal(t, "àèìò…", processing.Truncate("àèìòùàèìòù", 5))
	require.Equal(t, "unbounded", processing.Truncate("unbounded", 0))
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "strips tracking and fragment", in: "https://WWW.Example.com/a?utm_source=x&id=7#top", want: "https://www.example.com/a?id=7"},
		{name: "strips click ids", in: "https://example.com/a?fbclid=1", want: "https://example.com/a"},
		{name: "non http untouched", in: " mailto:desk@example.com ", want: "mailto:desk@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.CanonicalURL(tt.in))
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := processing.Fingerprint("Copper Hits Record!", "https://example.com/x?utm_source=feed", "Reuters")
	b := processing.Fingerprint("copper hits record", "https://example.com/x", "Bloomberg")
	require.NotEmpty(t, a)
	require.Equal(t, a, b, "normalized title and canonical url define identity")

	c := processing.Fingerprint("copper hits record", "https://example.com/y", "Reuters")
	require.NotEqual(t, a, c)

	noURL1 := processing.Fingerprint("Copper hits record", "", "Reuters")
	noURL2 := processing.Fingerprint("Copper hits record", "", " reuters ")
	noURL3 := processing.Fingerprint("Copper hits record", "", "Bloomberg")
	require.Equal(t, noURL1, noURL2)
	require.NotEqual(t, noURL1, noURL3)
	require.NotEqual(t, a, noURL1)

	require.Empty(t, processing.Fingerprint(" !!! ", "https://example.com", ""))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     time.Time
		dateOnly bool
		ok       bool
	}{
		{name: "rfc3339", raw: "2025-10-10T08:30:00+02:00", want: time.Date(2025, 10, 10, 6, 30, 0, 0, time.UTC), ok: true},
		{name: "legacy", raw: "2025-10-10 08:30:00", want: time.Date(2025, 10, 10, 8, 30, 0, 0, time.UTC), ok: true},
		{name: "iso date", raw: "2025-10-10", want: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), dateOnly: true, ok: true},
		{name: "long month", raw: "October 10, 2025", want: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), dateOnly: true, ok: true},
		{name: "short month", raw: "Oct 9, 2025", want: time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC), dateOnly: true, ok: true},
		{name: "slashes", raw: "2025/10/10", want: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), dateOnly: true, ok: true},
		{name: "day first", raw: "09/10/2025", want: time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC), dateOnly: true, ok: true},
		{name: "month first when day first fails", raw: "10/25/2025", want: time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC), dateOnly: true, ok: true},
		{name: "empty", raw: "", ok: false},
		{name: "garbage", raw: "yesterday", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dateOnly, ok := processing.ParseDate(tt.raw)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				require.True(t, got.IsZero())
				return
			}
			require.True(t, tt.want.Equal(got), "got %s", got)
			require.Equal(t, tt.dateOnly, dateOnly)
		})
	}
}

func TestFindDate(t *testing.T) {
	got, dateOnly, ok := processing.FindDate("Reported on OCTOBER 10, 2025 by desk")
	require.True(t, ok)
	require.True(t, dateOnly)
	require.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), got)

	_, _, ok = processing.FindDate("no dates here")
	require.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		summary string
		want    models.Category
	}{
		{name: "trade policy", title: "EU extends anti-dumping duties on Chinese aluminum", want: models.CategoryTradePolicy},
		{name: "pricing", title: "LME copper climbs to two-month high", want: models.CategoryPricing},
		{name: "production", title: "Smelter restarts second potline", want: models.CategoryProduction},
		{name: "sustainability", title: "Mill switches to hydrogen", summary: "Part of a decarbonisation plan", want: models.CategorySustainability},
		{name: "innovation", title: "New alloy patent filed", want: models.CategoryInnovation},
		{name: "other", title: "CEO appointed at steelmaker", want: models.CategoryOther},
		{name: "case insensitive", title: "TARIFF WAR ESCALATES", want: models.CategoryTradePolicy},
		{name: "priority trade over pricing", title: "Tariffs push aluminum price higher", want: models.CategoryTradePolicy},
		{name: "priority pricing over production", title: "Output cuts lift nickel price", want: models.CategoryPricing},
		{name: "summary only match", title: "Weekly roundup", summary: "Recycling rates improve", want: models.CategorySustainability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.Classify(tt.title, tt.summary))
		})
	}
}

func TestRecencyPolicy(t *testing.T) {
	now := time.Date(2025, 10, 11, 6, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	tests := []struct {
		name  string
		draft models.Draft
		want  bool
	}{
		{name: "missing date defaults to now", draft: models.Draft{}, want: true},
		{name: "exactly at cutoff", draft: models.Draft{PublishedAt: now.Add(-window)}, want: true},
		{name: "one second past cutoff", draft: models.Draft{PublishedAt: now.Add(-window - time.Second)}, want: false},
		{name: "fresh", draft: models.Draft{PublishedAt: now.Add(-time.Hour)}, want: true},
		{name: "yesterday date only", draft: models.Draft{PublishedAt: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), DateOnly: true}, want: true},
		{name: "two days ago date only", draft: models.Draft{PublishedAt: time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC), DateOnly: true}, want: false},
		{name: "future", draft: models.Draft{PublishedAt: now.Add(72 * time.Hour)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.Recent(tt.draft, now, window))
			// Fixed reference time gives the same verdict on every call.
			require.Equal(t, tt.want, processing.Recent(tt.draft, now, window))
		})
	}
}

func TestResolvePublishedAt(t *testing.T) {
	now := time.Date(2025, 10, 11, 6, 0, 0, 0, time.UTC)

	require.Equal(t, now, processing.ResolvePublishedAt(models.Draft{}, now))
	require.Equal(t, now, processing.ResolvePublishedAt(models.Draft{PublishedAt: now.Add(time.Hour)}, now))

	today := models.Draft{PublishedAt: time.Date(2025, 10, 11, 0, 0, 0, 0, time.UTC), DateOnly: true}
	require.Equal(t, now, processing.ResolvePublishedAt(today, now), "end of today is clamped to now")

	yesterday := models.Draft{PublishedAt: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), DateOnly: true}
	require.Equal(t, time.Date(2025, 10, 10, 23, 59, 59, 0, time.UTC), processing.ResolvePublishedAt(yesterday, now))
}

const listAnswer = `Here are the latest metals headlines:

1. **EU extends anti-dumping duties on aluminum foil** (Reuters, 2025-10-10): The Commission prolonged duties for five years [1].
2. **Copper climbs on supply worries** (Bloomberg, October 10, 2025): Prices rose 2% on the LME [2][3].
   - Exchange stocks fell to a two-year low.
   - Chinese buyers returned.
- [Nickel output rises in Indonesia](https://example.com/nickel?utm_source=x) - Mining.com reports higher output.
- ** ** just noise with no title [9]
`

func TestExtractItemsList(t *testing.T) {
	citations := []string{"https://reuters.com/a", "https://bloomberg.com/b", "https://ft.com/c"}
	drafts := slices.Collect(processing.ExtractItems(listAnswer, citations))

	require.Len(t, drafts, 4)

	first := drafts[0]
	require.Equal(t, "EU extends anti-dumping duties on aluminum foil", first.Title)
	require.Equal(t, "Reuters", first.Source)
	require.Equal(t, "https://reuters.com/a", first.URL)
	require.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), first.PublishedAt)
	require.True(t, first.DateOnly)
	require.Equal(t, "The Commission prolonged duties for five years.", first.Summary)

	second := drafts[1]
	require.Equal(t, "Copper climbs on supply worries", second.Title)
	require.Equal(t, "Bloomberg", second.Source)
	require.Equal(t, "https://bloomberg.com/b", second.URL)
	require.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), second.PublishedAt)
	require.Equal(t, "Prices rose 2% on the LME. Exchange stocks fell to a two-year low. Chinese buyers returned.", second.Summary,
		"indented bullets belong to the item above")

	third := drafts[2]
	require.Equal(t, "Nickel output rises in Indonesia", third.Title)
	require.Equal(t, "https://example.com/nickel", third.URL)
	require.Equal(t, "example.com", third.Source)
	require.True(t, third.PublishedAt.IsZero())

	fourth := drafts[3]
	require.Equal(t, "just noise with no title", fourth.Title)
	require.Empty(t, fourth.URL, "out of range citation is ignored")
}

func TestExtractItemsNestedBullets(t *testing.T) {
	answer := `- **Alcoa restarts potline** (Reuters, 2025-10-10): Production resumes in Spain. [1]
  - The restart adds 50kt of annual output.
  - Workers were rehired.
- **Nickel premiums ease** (Fastmarkets, 2025-10-10): Spot premiums slipped. [2]`

	drafts := slices.Collect(processing.ExtractItems(answer, []string{"https://reuters.com/a", "https://fastmarkets.com/b"}))
	require.Len(t, drafts, 2)
	require.Equal(t, "Alcoa restarts potline", drafts[0].Title)
	require.Equal(t, "Production resumes in Spain. The restart adds 50kt of annual output. Workers were rehired.", drafts[0].Summary)
	require.Equal(t, "Nickel premiums ease", drafts[1].Title)

	// Bullets at the same depth stay separate items even when the whole list is indented.
	indented := "  - **Copper output rises** (Reuters, 2025-10-10): Mines ramp up.\n  - **Zinc smelter idles** (Reuters, 2025-10-10): Power costs bite."
	require.Len(t, slices.Collect(processing.ExtractItems(indented, nil)), 2)
}

func TestExtractItemsDateSources(t *testing.T) {
	now := time.Date(2025, 10, 11, 6, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	t.Run("summary dates are not publish dates", func(t *testing.T) {
		answer := "- **Novelis opens recycling plant** (Reuters): The plant, announced on March 3, 2024, opened today. [1]"
		drafts := slices.Collect(processing.ExtractItems(answer, []string{"https://reuters.com/n"}))
		require.Len(t, drafts, 1)

		d := drafts[0]
		require.Equal(t, "Reuters", d.Source)
		require.True(t, d.PublishedAt.IsZero())
		require.False(t, d.DateOnly)
		require.Contains(t, d.Summary, "March 3, 2024")
		require.True(t, processing.Recent(d, now, window), "undated items default to now")
	})

	t.Run("date label", func(t *testing.T) {
		answer := "- **Copper smelter expands** (Mining.com) Date: 2025-10-10; capacity doubles to 200kt."
		drafts := slices.Collect(processing.ExtractItems(answer, nil))
		require.Len(t, drafts, 1)

		d := drafts[0]
		require.Equal(t, "Mining.com", d.Source)
		require.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), d.PublishedAt)
		require.True(t, d.DateOnly)
		require.Equal(t, "capacity doubles to 200kt.", d.Summary)
	})

	t.Run("italian label", func(t *testing.T) {
		answer := "- **Acciaierie riducono la produzione** Data: 09/10/2025. Fonte: Il Sole 24 Ore"
		drafts := slices.Collect(processing.ExtractItems(answer, nil))
		require.Len(t, drafts, 1)
		require.Equal(t, time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC), drafts[0].PublishedAt)
		require.Equal(t, "Il Sole 24 Ore", drafts[0].Source)
	})
}

func TestExtractItemsTable(t *testing.T) {
	answer := `| Data | Categoria | Titolo | Estratto | Fonte |
|------|-----------|--------|----------|-------|
| 2025-10-10 | Alluminio | **Alcoa restarts potline** | Restart adds 50kt | https://alcoa.com/news |
| 2025-10-10 | Acciaio |  | missing title row | Reuters |
| October 9, 2025 | Rame | Prysmian wins cable order | Order worth 1bn [1] | Il Sole 24 Ore |
`
	drafts := slices.Collect(processing.ExtractItems(answer, []string{"https://ilsole24ore.com/x"}))
	require.Len(t, drafts, 2)

	require.Equal(t, "Alcoa restarts potline", drafts[0].Title)
	require.Equal(t, "https://alcoa.com/news", drafts[0].URL)
	require.Equal(t, "alcoa.com", drafts[0].Source)
	require.Equal(t, "Restart adds 50kt", drafts[0].Summary)
	require.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), drafts[0].PublishedAt)

	require.Equal(t, "Prysmian wins cable order", drafts[1].Title)
	require.Equal(t, "Il Sole 24 Ore", drafts[1].Source)
	require.Equal(t, "https://ilsole24ore.com/x", drafts[1].URL)
	require.Equal(t, "Order worth 1bn", drafts[1].Summary)
}

func TestExtractItemsParagraphFallback(t *testing.T) {
	answer := "Steel demand in Europe weakened further this week. Analysts expect cuts.\n\nNo other significant news."
	drafts := slices.Collect(processing.ExtractItems(answer, nil))
	require.Len(t, drafts, 1, "no-news remarks are not items")
	require.Equal(t, "Steel demand in Europe weakened further this week", drafts[0].Title)
}

func TestExtractItemsRestartableAndStoppable(t *testing.T) {
	seq := processing.ExtractItems(listAnswer, nil)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Equal(t, first, second)

	count := 0
	for range seq {
		count++
		break
	}
	require.Equal(t, 1, count)
}

func TestExtractItemsEmpty(t *testing.T) {
	require.Empty(t, slices.Collect(processing.ExtractItems("", nil)))
	require.Empty(t, slices.Collect(processing.ExtractItems("   \n\n ### \n", nil)))
	require.Empty(t, slices.Collect(processing.ExtractItems("No recent news.", nil)))
	require.Empty(t, slices.Collect(processing.ExtractItems("- There is no new news about nickel today.", nil)))
}
