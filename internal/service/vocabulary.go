package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MonthName maps a month word or abbreviation to its two-digit number.
type MonthName struct {
	Name   string `yaml:"name"`
	Number string `yaml:"number"`
}

// KeywordCategory is emitted when any of its terms appears in a query.
type KeywordCategory struct {
	Category string   `yaml:"category"`
	Terms    []string `yaml:"terms"`
}

// Expansion appends domain context to queries mentioning Term.
type Expansion struct {
	Term      string `yaml:"term"`
	Expansion string `yaml:"expansion"`
}

// Vocabulary holds the fixed tables used for query analysis and enhancement.
type Vocabulary struct {
	Months     []MonthName       `yaml:"months"`
	Keywords   []KeywordCategory `yaml:"keywords"`
	Expansions []Expansion       `yaml:"expansions"`
}

// DefaultVocabulary returns the built-in tables. Month order matters: it is
// the scan order used when two names start at the same position.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Months: []MonthName{
			{"january", "01"}, {"jan", "01"},
			{"february", "02"}, {"feb", "02"},
			{"march", "03"}, {"mar", "03"},
			{"april", "04"}, {"apr", "04"},
			{"may", "05"},
			{"june", "06"}, {"jun", "06"},
			{"july", "07"}, {"jul", "07"},
			{"august", "08"}, {"aug", "08"},
			{"september", "09"}, {"sep", "09"},
			{"october", "10"}, {"oct", "10"},
			{"november", "11"}, {"nov", "11"},
			{"december", "12"}, {"dec", "12"},
		},
		Keywords: []KeywordCategory{
			{"product", []string{"product"}},
			{"update", []string{"update", "updates"}},
			{"release", []string{"release", "releases", "released"}},
			{"changelog", []string{"changelog", "change log"}},
			{"announcement", []string{"announcement", "announce"}},
			{"whats-new", []string{"what's new", "whats new", "new features"}},
			{"feature", []string{"feature", "features"}},
		},
		Expansions: []Expansion{
			{"project", "project creation setup workspace"},
			{"annotation", "annotation labeling tool feature"},
			{"export", "export data download format"},
			{"upload", "upload data import dataset"},
			{"review", "review quality control workflow"},
			{"label", "labeling annotation process"},
			{"dataset", "dataset management data"},
			{"workspace", "workspace management team"},
			{"sdk", "SDK API integration development"},
			{"ml", "machine learning AI model"},
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Sections missing from the
// file keep their built-in defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return vocab, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var fromFile Vocabulary
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return vocab, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	if len(fromFile.Months) > 0 {
		vocab.Months = fromFile.Months
	}
	if len(fromFile.Keywords) > 0 {
		vocab.Keywords = fromFile.Keywords
	}
	if len(fromFile.Expansions) > 0 {
		vocab.Expansions = fromFile.Expansions
	}
	return vocab, nil
}
