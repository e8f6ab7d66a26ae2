package search

import (
	"sort"

	"github.com/epstein-scan/epstein-scan/internal/domain"
)

// SortResults orders results by mention count, highest first. The sort
// is stable: contacts with equal counts keep their input order.
func SortResults(results []domain.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalMentions > results[j].TotalMentions
	})
}

// Summarize derives the report counts from a result set.
func Summarize(results []domain.Result) domain.Summary {
	summary := domain.Summary{TotalConnections: len(results)}
	for _, r := range results {
		if r.TotalMentions > 0 {
			summary.ConnectionsWithMentions++
		}
	}
	return summary
}
