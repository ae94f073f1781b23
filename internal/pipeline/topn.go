package pipeline

import (
	"cmp"
	"slices"

	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
)

// TopN returns the n groups with the largest m, descending. Equal sums are
// ordered by compare on the key, so the cut at n is deterministic.
func TopN[K comparable](groups []Group[K], m dataset.Metric, n int, compare func(a, b K) int) []Group[K] {
	if n <= 0 {
		return []Group[K]{}
	}
	out := slices.Clone(groups)
	slices.SortStableFunc(out, func(a, b Group[K]) int {
		if c := cmp.Compare(b.Get(m), a.Get(m)); c != 0 {
			return c
		}
		return compare(a.Key, b.Key)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// PopularAcrossYears computes the top n keys of every distinct year and
// returns their union ordered by compare. The union can hold up to
// years*n keys when the yearly rankings do not overlap.
func PopularAcrossYears[K comparable](rows []dataset.Row, key func(dataset.Row) K, compare func(a, b K) int, m dataset.Metric, n int) []K {
	byYearRows := make(map[int][]dataset.Row)
	for _, r := range rows {
		byYearRows[r.Year] = append(byYearRows[r.Year], r)
	}

	seen := make(map[K]struct{})
	var union []K
	for _, yearRows := range byYearRows {
		for _, g := range TopN(GroupSum(yearRows, key, compare), m, n, compare) {
			if _, ok := seen[g.Key]; ok {
				continue
			}
			seen[g.Key] = struct{}{}
			union = append(union, g.Key)
		}
	}
	slices.SortFunc(union, compare)
	return union
}

// PopularAcrossMetrics returns the union of the top n keys for each metric,
// ordered by compare.
func PopularAcrossMetrics[K comparable](groups []Group[K], metrics []dataset.Metric, n int, compare func(a, b K) int) []K {
	seen := make(map[K]struct{})
	var union []K
	for _, m := range metrics {
		for _, g := range TopN(groups, m, n, compare) {
			if _, ok := seen[g.Key]; ok {
				continue
			}
			seen[g.Key] = struct{}{}
			union = append(union, g.Key)
		}
	}
	slices.SortFunc(union, compare)
	return union
}
