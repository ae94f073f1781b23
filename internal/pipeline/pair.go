package pipeline

import (
	"fmt"
	"strings"

	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
)

// SingleSubject stands in for the second subject of a one-subject row.
const SingleSubject = "Single"

// Pair is a specialty combination split into its two subjects.
type Pair struct {
	Subject1 string `json:"subject1"`
	Subject2 string `json:"subject2"`
}

func (p Pair) String() string {
	return p.Subject1 + " / " + p.Subject2
}

// ComparePairs orders pairs by Subject1 then Subject2.
func ComparePairs(a, b Pair) int {
	if c := strings.Compare(a.Subject1, b.Subject1); c != 0 {
		return c
	}
	return strings.Compare(a.Subject2, b.Subject2)
}

// MalformedFieldError reports a specialty field that cannot be split.
type MalformedFieldError struct {
	Formation string
	Year      int
	Value     string
}

func (e *MalformedFieldError) Error() string {
	if e.Formation == "" && e.Year == 0 {
		return fmt.Sprintf("malformed specialty field %q", e.Value)
	}
	return fmt.Sprintf("malformed specialty field %q (formation %q, year %d)", e.Value, e.Formation, e.Year)
}

// SplitSpecialties splits "A,B" into (A, B) and "A" into (A, Single).
// Subjects past the second are dropped.
func SplitSpecialties(field string) (Pair, error) {
	parts := strings.SplitN(field, ",", 3)
	first := strings.TrimSpace(parts[0])
	if first == "" {
		return Pair{}, &MalformedFieldError{Value: field}
	}

	p := Pair{Subject1: first, Subject2: SingleSubject}
	if len(parts) > 1 {
		if second := strings.TrimSpace(parts[1]); second != "" {
			p.Subject2 = second
		}
	}
	return p, nil
}

// GroupByPair sums rows per specialty pair. Rows whose specialty field is
// malformed are left out and returned so the caller can warn about them.
func GroupByPair(rows []dataset.Row) ([]Group[Pair], []*MalformedFieldError) {
	var skipped []*MalformedFieldError
	valid := make([]dataset.Row, 0, len(rows))
	for _, r := range rows {
		if _, err := SplitSpecialties(r.Specialties); err != nil {
			skipped = append(skipped, &MalformedFieldError{
				Formation: r.Formation,
				Year:      r.Year,
				Value:     r.Specialties,
			})
			continue
		}
		valid = append(valid, r)
	}
	return GroupSum(valid, pairOf, ComparePairs), skipped
}

// pairOf is only called on rows already validated by SplitSpecialties.
func pairOf(r dataset.Row) Pair {
	p, _ := SplitSpecialties(r.Specialties)
	return p
}
