package guidance

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// FuzzyThreshold is the share of an element's words that must appear in the
// content for the element to count as present.
const FuzzyThreshold = 0.6

// ElementCoverage reports how much of one required element was found.
type ElementCoverage struct {
	Element  string  `json:"element"`
	Coverage float64 `json:"coverage"`
	Present  bool    `json:"present"`
}

// FuzzyResult is the advisory outcome of FuzzyValidate. Valid carries no
// enforcement power.
type FuzzyResult struct {
	Valid       bool              `json:"valid"`
	Missing     []string          `json:"missing"`
	Suggestions []string          `json:"suggestions"`
	Elements    []ElementCoverage `json:"elements"`
}

// wordHits counts the element words found as substrings of content, compared
// after Unicode case folding.
func wordHits(content, element string) (hits, words int) {
	fold := cases.Fold()
	haystack := fold.String(content)
	for _, word := range strings.Fields(fold.String(element)) {
		words++
		if strings.Contains(haystack, word) {
			hits++
		}
	}
	return hits, words
}

// Coverage returns the fraction of element words present in content. An
// element without words is fully covered.
func Coverage(content, element string) float64 {
	hits, words := wordHits(content, element)
	if words == 0 {
		return 1
	}
	return float64(hits) / float64(words)
}

// ConceptPresent reports whether element reaches threshold coverage.
func ConceptPresent(content, element string, threshold float64) bool {
	return Coverage(content, element) >= threshold
}

// FuzzyValidate checks that every must-have element of the command's spec is
// loosely present in content.
func (e *Engine) FuzzyValidate(id, content string) FuzzyResult {
	spec := e.table.For(id)
	result := FuzzyResult{Valid: true, Missing: []string{}, Suggestions: []string{}}
	for _, element := range spec.MinimalConstraints.MustHave {
		coverage := Coverage(content, element)
		present := coverage >= FuzzyThreshold
		result.Elements = append(result.Elements, ElementCoverage{Element: element, Coverage: coverage, Present: present})
		if !present {
			result.Valid = false
			result.Missing = append(result.Missing, element)
		}
	}
	if !result.Valid {
		result.Suggestions = append(result.Suggestions, fmt.Sprintf(
			"The document is missing some core elements: %s. Consider adding them in whatever form suits the project.",
			strings.Join(result.Missing, ", "),
		))
	}
	e.logger.Debug("fuzzy validation", "command", id, "valid", result.Valid, "missing", len(result.Missing))
	return result
}
