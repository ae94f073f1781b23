// Package export flattens dashboard views into tables and writes them as CSV
// or as a spreadsheet workbook.
package export

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Zachkp/parcoursup-portfolio/internal/pipeline"
)

// ErrUnknownTable is returned when no table has the requested name.
var ErrUnknownTable = errors.New("unknown table")

// Table is a rectangular view. Cells hold int, string, pipeline.Percent or
// *int values; a nil *int is an absent pivot cell.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

var totalsHeader = []string{"Wishes", "Received", "Accepted"}

func totalsCells(t pipeline.Totals) []any {
	return []any{t.Wishes, t.Received, t.Accepted}
}

// Yearly flattens the per-year totals.
func Yearly(groups []pipeline.Group[int]) Table {
	t := Table{Name: "yearly", Header: append([]string{"Year"}, totalsHeader...)}
	for _, g := range groups {
		t.Rows = append(t.Rows, append([]any{g.Key}, totalsCells(g.Totals)...))
	}
	return t
}

func pairRows(name string, groups []pipeline.Group[pipeline.Pair]) Table {
	t := Table{Name: name, Header: append([]string{"Subject 1", "Subject 2"}, totalsHeader...)}
	for _, g := range groups {
		t.Rows = append(t.Rows, append([]any{g.Key.Subject1, g.Key.Subject2}, totalsCells(g.Totals)...))
	}
	return t
}

// Landscape flattens the subject-combination landscape.
func Landscape(l *pipeline.Landscape) Table {
	return pairRows("landscape", l.Pairs)
}

// Pairs flattens the top subject-combination ranking.
func Pairs(p *pipeline.PairRanking) Table {
	return pairRows("pairs", p.Pairs)
}

// Trends writes one row per year and one column per specialty.
func Trends(tr *pipeline.Trends) Table {
	t := Table{Name: "trends", Header: []string{"Year"}}
	for _, s := range tr.Series {
		t.Header = append(t.Header, s.Specialty)
	}
	for i, year := range tr.Years {
		row := []any{year}
		for _, s := range tr.Series {
			row = append(row, s.Values[i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func formationRows(name string, groups []pipeline.Group[string]) Table {
	t := Table{Name: name, Header: append([]string{"Formation"}, totalsHeader...)}
	for _, g := range groups {
		t.Rows = append(t.Rows, append([]any{g.Key}, totalsCells(g.Totals)...))
	}
	return t
}

// Formations flattens a top-formations ranking.
func Formations(r *pipeline.FormationRanking) Table {
	return formationRows("formations", r.Formations)
}

// Totals flattens the multi-metric formation comparison.
func Totals(ft *pipeline.FormationTotals) Table {
	return formationRows("totals", ft.Formations)
}

// Rates flattens the per-formation funnel percentages.
func Rates(rates []pipeline.Rate) Table {
	t := Table{
		Name: "rates",
		Header: append(append([]string{"Formation"}, totalsHeader...),
			"% Received", "% Accepted", "% Accepted of received"),
	}
	for _, r := range rates {
		row := append([]any{r.Formation}, totalsCells(r.Totals)...)
		t.Rows = append(t.Rows, append(row, r.PctReceived, r.PctAccepted, r.PctAcceptedOfReceived))
	}
	return t
}

// Funnel writes the admission stages of one formation.
func Funnel(f *pipeline.Funnel) Table {
	return Table{
		Name:   "funnel",
		Header: []string{"Stage", "Candidates", "% of wishes"},
		Rows: [][]any{
			{"Wishes", f.Wishes, pipeline.Percentage(f.Wishes, f.Wishes)},
			{"Proposals Received", f.Received, f.PctReceived},
			{"Student Admitted", f.Accepted, f.PctAccepted},
			{"Proposal never received", f.NeverReceived, pipeline.Percentage(f.NeverReceived, f.Wishes)},
			{"Refused Admissions", f.Refused, pipeline.Percentage(f.Refused, f.Wishes)},
		},
	}
}

// FromDashboard returns every table present in d, in chapter order.
func FromDashboard(d *pipeline.Dashboard) []Table {
	var out []Table
	if d.Landscape != nil {
		out = append(out, Landscape(d.Landscape))
	}
	if d.Pairs != nil {
		out = append(out, Pairs(d.Pairs))
	}
	if d.Trends != nil {
		out = append(out, Trends(d.Trends))
	}
	if d.TopFormations != nil {
		out = append(out, Formations(d.TopFormations))
	}
	if d.Totals != nil {
		out = append(out, Totals(d.Totals))
	}
	out = append(out, Rates(d.Rates))
	if d.Funnel != nil {
		out = append(out, Funnel(d.Funnel))
	}
	out = append(out, Yearly(d.Yearly))
	return out
}

// Find returns the table called name.
func Find(tables []Table, name string) (Table, error) {
	for _, t := range tables {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, name)
}

// Records renders the table as strings, header first.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellString(v)
		}
		out = append(out, rec)
	}
	return out
}

func cellString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case *int:
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	case pipeline.Percent:
		if !v.Defined {
			return ""
		}
		return strconv.FormatFloat(v.Value, 'f', 2, 64)
	default:
		return fmt.Sprint(v)
	}
}

// cellValue converts v to what the spreadsheet should store. Absent values
// become empty cells and percentages are rounded to two decimals.
func cellValue(v any) any {
	switch v := v.(type) {
	case *int:
		if v == nil {
			return nil
		}
		return *v
	case pipeline.Percent:
		if !v.Defined {
			return nil
		}
		return math.Round(v.Value*100) / 100
	default:
		return v
	}
}
