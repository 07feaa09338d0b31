package model

import "sort"

// FactKindRanking represents how strongly an item matches a specific fact kind.
type FactKindRanking struct {
	Kind    string
	Reasons []string
	Score   float64
}

// FactKindRankings is a slice of FactKindRanking that supports sorting and utility methods.
type FactKindRankings []FactKindRanking

// Len implements sort.Interface.
func (r FactKindRankings) Len() int {
	return len(r)
}

// Less implements sort.Interface - higher scores come first.
func (r FactKindRankings) Less(i, j int) bool {
	if r[i].Score != r[j].Score {
		return r[i].Score > r[j].Score
	}
	// If scores are equal, sort by kind name for consistency
	return r[i].Kind < r[j].Kind
}

// Swap implements sort.Interface.
func (r FactKindRankings) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

// Sort sorts the rankings by score in descending order.
func (r FactKindRankings) Sort() {
	sort.Sort(r)
}

// Top returns the highest-scoring kind, or nil if empty.
func (r FactKindRankings) Top() *FactKindRanking {
	if len(r) == 0 {
		return nil
	}
	r.Sort()
	return &r[0]
}

// RunnerUp returns the second highest-scoring kind, or nil if there is none.
func (r FactKindRankings) RunnerUp() *FactKindRanking {
	if len(r) < 2 {
		return nil
	}
	r.Sort()
	return &r[1]
}

// TopN returns the N highest-scoring kinds.
func (r FactKindRankings) TopN(n int) FactKindRankings {
	if n <= 0 {
		return FactKindRankings{}
	}

	r.Sort()

	if n > len(r) {
		n = len(r)
	}

	result := make(FactKindRankings, n)
	copy(result, r[:n])
	return result
}

// AboveThreshold returns all kinds with scores at or above the given threshold.
func (r FactKindRankings) AboveThreshold(threshold float64) FactKindRankings {
	r.Sort()

	var result FactKindRankings
	for _, ranking := range r {
		if ranking.Score >= threshold {
			result = append(result, ranking)
		}
	}
	return result
}

// Kinds returns the kind names in the current order.
func (r FactKindRankings) Kinds() []string {
	kinds := make([]string, len(r))
	for i, ranking := range r {
		kinds[i] = ranking.Kind
	}
	return kinds
}

// ApplyLearningBoosts raises the score of learned kinds, capped at 1.0, and re-sorts.
func (r FactKindRankings) ApplyLearningBoosts(learned map[string]float64) {
	for i := range r {
		if boost, ok := learned[r[i].Kind]; ok {
			r[i].Score = minFloat(r[i].Score+boost, 1.0)
			r[i].Reasons = append(r[i].Reasons, "learned from earlier resolution")
		}
	}

	r.Sort()
}

// minFloat returns the smaller of two float64 values.
func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
