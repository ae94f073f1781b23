// Package dataset loads the Parcoursup admissions export and splits it into
// the summary partition (aggregate rows flagged by SummaryFormation) and the
// detail partition (one row per formation, year and specialty combination).
//
// A Dataset is immutable once built: accessors hand out copies, so it can be
// shared across request goroutines without locking.
package dataset

import (
	"slices"
	"sort"
	"strings"
)

// specialtySuffix is stripped from summary specialty labels.
const specialtySuffix = " Spécialité"

// Report summarises a load.
type Report struct {
	Rows         int `json:"rows"`
	Summary      int `json:"summary"`
	Detail       int `json:"detail"`
	Inconsistent int `json:"inconsistent"`
}

// Dataset is the immutable handle every aggregation receives.
type Dataset struct {
	summary []Row
	detail  []Row
	report  Report
}

// New partitions rows and normalises the summary specialty labels. The input
// slice is not retained.
func New(rows []Row) *Dataset {
	summary, detail := Partition(rows)
	for i := range summary {
		summary[i].Specialties = StripSpecialtySuffix(summary[i].Specialties)
	}

	report := Report{Rows: len(rows), Summary: len(summary), Detail: len(detail)}
	for _, r := range rows {
		if !r.Consistent() {
			report.Inconsistent++
		}
	}
	return &Dataset{summary: summary, detail: detail, report: report}
}

// Partition splits rows on the Formation sentinel. Both outputs keep input
// order and are fresh slices.
func Partition(rows []Row) (summary, detail []Row) {
	summary = make([]Row, 0, len(rows)/8)
	detail = make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.IsSummary() {
			summary = append(summary, r)
		} else {
			detail = append(detail, r)
		}
	}
	return summary, detail
}

// StripSpecialtySuffix removes every " Spécialité" occurrence.
func StripSpecialtySuffix(s string) string {
	return strings.ReplaceAll(s, specialtySuffix, "")
}

// Summary returns a copy of the summary partition.
func (d *Dataset) Summary() []Row {
	return slices.Clone(d.summary)
}

// Detail returns a copy of the detail partition.
func (d *Dataset) Detail() []Row {
	return slices.Clone(d.detail)
}

// Report returns the load counters.
func (d *Dataset) Report() Report {
	return d.report
}

// Years returns the distinct years of the summary partition, ascending.
func (d *Dataset) Years() []int {
	seen := make(map[int]struct{})
	for _, r := range d.summary {
		seen[r.Year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Formations returns the distinct formations of the detail partition, ascending.
func (d *Dataset) Formations() []string {
	seen := make(map[string]struct{})
	for _, r := range d.detail {
		seen[r.Formation] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
