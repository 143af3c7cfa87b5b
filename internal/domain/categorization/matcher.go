// Package categorization assigns categories to merchants using keyword rules.
//
// Rules are evaluated in the order given; callers pass them already sorted by
// descending priority with a deterministic tie-break. The first rule whose
// keyword is contained in the merchant wins.
package categorization

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
)

// Fold normalizes text for keyword comparison. NFKC maps full-width Latin and
// half-width katakana to their canonical forms before Unicode case folding.
func Fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// MatchIndex returns the index of the first rule whose keyword is contained in
// merchant, or -1. Rules with a blank keyword never match.
func MatchIndex(merchant string, rules []repository.CategoryRule) int {
	folded := Fold(merchant)
	for i := range rules {
		keyword := Fold(rules[i].Keyword)
		if strings.TrimSpace(keyword) == "" {
			continue
		}
		if strings.Contains(folded, keyword) {
			return i
		}
	}
	return -1
}

// Match returns the category ID of the first matching rule, or nil.
func Match(merchant string, rules []repository.CategoryRule) *uuid.UUID {
	idx := MatchIndex(merchant, rules)
	if idx < 0 {
		return nil
	}
	categoryID := rules[idx].CategoryID
	return &categoryID
}
