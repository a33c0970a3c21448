// Package match holds the similarity heuristics and entity grouping used
// during transaction review.
package match

import (
	"sort"
	"strings"

	"github.com/ledgerflow/importd/internal/importer"
)

// FindSimilar returns the candidates that are likely the same merchant as the
// reference. Candidates that already carry an entity attribution are never
// returned, nor is the reference itself. Two descriptions match when they are
// byte-identical, or when both reduce to the same non-empty cleaned form
// (digits stripped, whitespace collapsed, uppercased). This is a best-effort
// heuristic for "same merchant, different store number" patterns and is
// always user-confirmed before any attribution is applied.
func FindSimilar(reference importer.ProcessedTransaction, candidates []importer.ProcessedTransaction) []importer.ProcessedTransaction {
	refClean := cleanDescription(reference.Description)

	var out []importer.ProcessedTransaction
	for _, c := range candidates {
		if c.Checksum == reference.Checksum {
			continue
		}
		if c.Entity != nil && c.Entity.EntityID != "" {
			continue
		}
		if c.Description == reference.Description {
			out = append(out, c)
			continue
		}
		if refClean != "" && cleanDescription(c.Description) == refClean {
			out = append(out, c)
		}
	}
	return out
}

// cleanDescription strips digits, collapses whitespace and uppercases, so
// "WOOLWORTHS 1234 SYDNEY" and "WOOLWORTHS 5678 SYDNEY" reduce to the same key.
func cleanDescription(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(strings.Join(strings.Fields(b.String()), " "))
}

// unknownGroupKey is the bucket for transactions without an entity name.
const unknownGroupKey = "Unknown"

// GroupByEntity partitions transactions into groups keyed by suggested or
// assigned entity name. A group is flagged as AI-suggested when any member's
// attribution came from the model. Sort order: AI-suggested groups first,
// then descending by size. The grouping is a pure function of the input and
// is recomputed on every call.
func GroupByEntity(transactions []importer.ProcessedTransaction) []importer.TransactionGroup {
	index := make(map[string]int)
	var groups []importer.TransactionGroup

	for _, tx := range transactions {
		name := unknownGroupKey
		if tx.Entity != nil && tx.Entity.EntityName != "" {
			name = tx.Entity.EntityName
		}

		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, importer.TransactionGroup{EntityName: name})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
		if tx.Entity != nil && tx.Entity.MatchType == importer.MatchAI {
			groups[i].AISuggestion = true
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].AISuggestion != groups[b].AISuggestion {
			return groups[a].AISuggestion
		}
		return len(groups[a].Transactions) > len(groups[b].Transactions)
	})
	return groups
}

// ConfirmedGroup is the simpler grouping used by the tag review flow.
type ConfirmedGroup struct {
	EntityName   string                          `json:"entity_name"`
	Transactions []importer.ConfirmedTransaction `json:"transactions"`
}

// noEntityGroupKey labels confirmed transactions without an entity name.
// Confirmed transactions normally always have one; this is a display guard.
const noEntityGroupKey = "No Entity"

// GroupConfirmed groups confirmed transactions by entity name, sorted
// alphabetically. The ordering deliberately differs from GroupByEntity: tag
// review is a scan-through list, not a triage queue.
func GroupConfirmed(transactions []importer.ConfirmedTransaction) []ConfirmedGroup {
	index := make(map[string]int)
	var groups []ConfirmedGroup

	for _, tx := range transactions {
		name := tx.EntityName
		if name == "" {
			name = noEntityGroupKey
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ConfirmedGroup{EntityName: name})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}

	sort.Slice(groups, func(a, b int) bool {
		return groups[a].EntityName < groups[b].EntityName
	})
	return groups
}
