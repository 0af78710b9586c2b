package config

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// MaxQueryLength is the longest query accepted by the answer API.
const MaxQueryLength = 1000

// DefaultQueries is used when no QUERIES_FILE is configured.
var DefaultQueries = []string{
	"aluminum prices and market trends",
	"aluminum production and capacity",
	"aluminum technology innovation sustainability",
	"steel prices and market trends",
	"steel production and capacity",
	"steel technology innovation sustainability",
	"copper prices and market trends",
	"copper production and capacity",
	"copper technology innovation sustainability",
	"nickel prices and market trends",
	"nickel production and capacity",
	"nickel technology innovation sustainability",
	"Cogne Acciai Speciali news aluminum steel italy",
	"Tenaris news steel italy",
	"Prysmian news copper cables italy",
	"Enel X news energy storage metals italy",
	"Italbronze news bronze copper italy",
	"Acciai Speciali Terni news steel italy",
	"Arvedi news steel italy",
	"Danieli news steel plants italy",
	"Ilva Acciaierie d'Italia news steel italy",
	"KME Italy news copper italy",
}

// QueryFile is the TOML layout of QUERIES_FILE.
type QueryFile struct {
	Queries []string `toml:"queries"`
}

// LoadQueries reads and validates a TOML query list.
func LoadQueries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries file: %w", err)
	}

	var qf QueryFile
	if err := toml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parse queries file: %w", err)
	}

	queries := make([]string, 0, len(qf.Queries))
	for _, q := range qf.Queries {
		queries = append(queries, strings.TrimSpace(q))
	}

	if err := ValidateQueries(queries); err != nil {
		return nil, err
	}
	return queries, nil
}

// ValidateQueries enforces a non-empty list of non-empty queries under the length limit.
func ValidateQueries(queries []string) error {
	if len(queries) == 0 {
		return fmt.Errorf("query list must not be empty")
	}
	for i, q := range queries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("query %d is empty", i)
		}
		if utf8.RuneCountInString(q) > MaxQueryLength {
			return fmt.Errorf("query %d exceeds %d characters", i, MaxQueryLength)
		}
	}
	return nil
}
