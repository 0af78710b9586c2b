package processing

import (
	"strings"

	"github.com/DeafMist/metals-news-radar/internal/models"
)

type categoryRule struct {
	category models.Category
	keywords []string
}

// categoryRules is checked top to bottom; the first rule with a matching keyword wins.
var categoryRules = []categoryRule{
	{models.CategoryTradePolicy, []string{
		"tariff", "anti-dumping", "antidumping", "countervailing", "sanction", "quota",
		"trade war", "trade deal", "trade policy", "section 232", "cbam", "embargo",
		"import duty", "import duties", "export ban", "customs", "safeguard",
	}},
	{models.CategoryPricing, []string{
		"price", "lme", "comex", "shfe", "per tonne", "per ton", "$/t", "premium",
		"futures", "rally", "slump", "valuation", "spread",
	}},
	{models.CategoryProduction, []string{
		"production", "output", "capacity", "smelter", "steel mill", "rolling mill",
		"plant", "mining", "refinery", "furnace", "shipments", "restart", "curtail",
		"supply", "inventor", "stockpile",
	}},
	{models.CategorySustainability, []string{
		"sustainab", "green", "low-carbon", "low carbon", "decarbon", "emission",
		"carbon footprint", "recycl", "renewable", "net zero", "net-zero", "esg",
		"hydrogen", "circular",
	}},
	{models.CategoryInnovation, []string{
		"innovat", "technology", "patent", "research", "r&d", "breakthrough",
		"alloy", "digital", "automation", "startup", "pilot", "prototype",
	}},
}

// Classify returns the first category whose keywords occur in title or summary,
// or CategoryOther when none do.
func Classify(title, summary string) models.Category {
	text := strings.ToLower(title + " " + summary)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return models.CategoryOther
}
