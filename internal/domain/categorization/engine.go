package categorization

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
)

// Engine compiles an ordered rule set into an Aho-Corasick automaton so every
// keyword is searched in a single pass over the merchant. Results are the same
// as Match over the same rules.
type Engine struct {
	rules     []repository.CategoryRule
	matcher   *ahocorasick.Matcher
	firstRule []int // lowest rule index per pattern
}

// NewEngine creates an engine for rules, which must already be in match order.
// Rules sharing a folded keyword collapse into one pattern owned by the
// earliest of them.
func NewEngine(rules []repository.CategoryRule) *Engine {
	e := &Engine{rules: append([]repository.CategoryRule(nil), rules...)}

	var patterns [][]byte
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		keyword := Fold(rules[i].Keyword)
		if strings.TrimSpace(keyword) == "" || seen[keyword] {
			continue
		}
		seen[keyword] = true
		patterns = append(patterns, []byte(keyword))
		e.firstRule = append(e.firstRule, i)
	}

	if len(patterns) > 0 {
		e.matcher = ahocorasick.NewMatcher(patterns)
	}
	return e
}

// MatchIndex returns the index of the winning rule for merchant, or -1.
func (e *Engine) MatchIndex(merchant string) int {
	if e.matcher == nil {
		return -1
	}

	best := -1
	for _, p := range e.matcher.MatchThreadSafe([]byte(Fold(merchant))) {
		if p < 0 || p >= len(e.firstRule) {
			continue
		}
		if idx := e.firstRule[p]; best < 0 || idx < best {
			best = idx
		}
	}
	return best
}

// MatchRule returns a copy of the winning rule, or nil.
func (e *Engine) MatchRule(merchant string) *repository.CategoryRule {
	idx := e.MatchIndex(merchant)
	if idx < 0 {
		return nil
	}
	rule := e.rules[idx]
	return &rule
}
