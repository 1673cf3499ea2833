// Package reconcile turns unreconciled staged rows into ledger movements:
// each row is matched to a bank account, checked against existing movements,
// and inserted only when unseen. Work happens in bounded batches.
package reconcile

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/ledger"
	"github.com/FACorreiaa/resto-backoffice/internal/ingest/normalizer"
)

// Strategy selects how ties between candidate accounts are broken
type Strategy string

const (
	// StrategyBestMatch ranks candidates by Levenshtein distance between the
	// stripped token and the stored number, then by account ID for stability.
	StrategyBestMatch Strategy = "best-match"
	// StrategyFirstMatch preserves the legacy behavior: the first candidate
	// in lookup order silently wins.
	StrategyFirstMatch Strategy = "first-match"
)

// Matcher resolves free-form statement account tokens to bank accounts
type Matcher struct {
	Strategy Strategy
}

// NewMatcher creates a matcher with the explicit best-match tie-break
func NewMatcher() *Matcher {
	return &Matcher{Strategy: StrategyBestMatch}
}

// Match strips leading zeros from the staged token and finds accounts whose
// stored number contains it. The chosen account and the full candidate list
// are both returned so ambiguous matches can be logged.
func (m *Matcher) Match(token string, accounts []ledger.BankAccount) (*ledger.BankAccount, []ledger.BankAccount) {
	needle := normalizer.StripLeadingZeros(token)
	if needle == "" {
		return nil, nil
	}

	var candidates []ledger.BankAccount
	for _, a := range accounts {
		if strings.Contains(a.AccountNumber, needle) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if m.Strategy == StrategyBestMatch && len(candidates) > 1 {
		sort.SliceStable(candidates, func(i, j int) bool {
			di := fuzzy.LevenshteinDistance(needle, candidates[i].AccountNumber)
			dj := fuzzy.LevenshteinDistance(needle, candidates[j].AccountNumber)
			if di != dj {
				return di < dj
			}
			return candidates[i].ID.String() < candidates[j].ID.String()
		})
	}

	chosen := candidates[0]
	return &chosen, candidates
}
