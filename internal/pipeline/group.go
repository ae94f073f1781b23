// Package pipeline derives the chart tables from a loaded dataset: specialty
// pairs, grouped sums, top-N rankings, pivots and funnel percentages.
//
// Every function is a pure function of its arguments; nothing here caches or
// mutates the dataset.
package pipeline

import (
	"cmp"
	"slices"

	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
)

// Totals holds the three funnel counters summed over a group.
type Totals struct {
	Wishes   int `json:"wishes"`
	Received int `json:"received"`
	Accepted int `json:"accepted"`
}

// Get returns the counter selected by m.
func (t Totals) Get(m dataset.Metric) int {
	switch m {
	case dataset.Received:
		return t.Received
	case dataset.Accepted:
		return t.Accepted
	default:
		return t.Wishes
	}
}

func (t *Totals) add(r dataset.Row) {
	t.Wishes += r.Wishes
	t.Received += r.Received
	t.Accepted += r.Accepted
}

// Group is one row of a grouped-sum table.
type Group[K comparable] struct {
	Key K `json:"key"`
	Totals
}

// GroupSum sums every metric per distinct key. Keys without rows do not
// appear. The result is ordered by compare on the key.
func GroupSum[K comparable](rows []dataset.Row, key func(dataset.Row) K, compare func(a, b K) int) []Group[K] {
	index := make(map[K]int)
	groups := make([]Group[K], 0)
	for _, r := range rows {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K]{Key: k})
		}
		groups[i].add(r)
	}
	slices.SortFunc(groups, func(a, b Group[K]) int {
		return compare(a.Key, b.Key)
	})
	return groups
}

// Keys returns the group keys in order.
func Keys[K comparable](groups []Group[K]) []K {
	out := make([]K, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

// Common key extractors.

func byFormation(r dataset.Row) string   { return r.Formation }
func bySpecialties(r dataset.Row) string { return r.Specialties }
func byYear(r dataset.Row) int           { return r.Year }

type yearSpecialty struct {
	Year      int
	Specialty string
}

func compareYearSpecialty(a, b yearSpecialty) int {
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	return cmp.Compare(a.Specialty, b.Specialty)
}

func filterRows(rows []dataset.Row, keep func(dataset.Row) bool) []dataset.Row {
	out := make([]dataset.Row, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
