package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
)

// ErrUnknownYear is returned when a year has no summary rows.
var ErrUnknownYear = errors.New("unknown year")

// Landscape backs the subject-combination sunburst of one year.
type Landscape struct {
	Year      int           `json:"year"`
	MinWishes int           `json:"min_wishes"`
	Pairs     []Group[Pair] `json:"pairs"`
	Skipped   int           `json:"skipped"`
}

// PairRanking backs the top subject-combinations table of one year.
type PairRanking struct {
	Year    int           `json:"year"`
	Pairs   []Group[Pair] `json:"pairs"`
	Skipped int           `json:"skipped"`
}

// TrendSeries is one specialty line of the trend chart.
type TrendSeries struct {
	Specialty string `json:"specialty"`
	Values    []*int `json:"values"`
}

// Trends backs the year-over-year line chart of popular specialties.
// Values are aligned with Years; nil means the specialty had no row that year.
type Trends struct {
	Years  []int         `json:"years"`
	Series []TrendSeries `json:"series"`
}

// FormationRanking backs a top-formations bar chart.
type FormationRanking struct {
	Metric     string          `json:"metric"`
	Formations []Group[string] `json:"formations"`
}

// FormationTotals backs the multi-metric comparison of popular formations.
type FormationTotals struct {
	N          int             `json:"n"`
	Formations []Group[string] `json:"formations"`
}

func requireYear(ds *dataset.Dataset, year int) error {
	if !slices.Contains(ds.Years(), year) {
		return fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}
	return nil
}

func summaryOfYear(ds *dataset.Dataset, year int) []dataset.Row {
	return filterRows(ds.Summary(), func(r dataset.Row) bool { return r.Year == year })
}

// LandscapeView groups the summary rows of year by specialty pair, keeping
// only rows with at least minWishes confirmed wishes.
func LandscapeView(ds *dataset.Dataset, year, minWishes int) (*Landscape, error) {
	if err := requireYear(ds, year); err != nil {
		return nil, err
	}
	rows := filterRows(summaryOfYear(ds, year), func(r dataset.Row) bool { return r.Wishes >= minWishes })
	pairs, skipped := GroupByPair(rows)
	return &Landscape{Year: year, MinWishes: minWishes, Pairs: pairs, Skipped: len(skipped)}, nil
}

// TopPairsView ranks the specialty pairs of year by confirmed wishes.
func TopPairsView(ds *dataset.Dataset, year, n int) (*PairRanking, error) {
	if err := requireYear(ds, year); err != nil {
		return nil, err
	}
	pairs, skipped := GroupByPair(summaryOfYear(ds, year))
	return &PairRanking{
		Year:    year,
		Pairs:   TopN(pairs, dataset.Wishes, n, ComparePairs),
		Skipped: len(skipped),
	}, nil
}

// TrendsView follows, year by year, the wishes of every specialty
// combination that reached the top n of at least one year.
func TrendsView(ds *dataset.Dataset, n int) (*Trends, error) {
	summary := ds.Summary()
	popular := PopularAcrossYears(summary, bySpecialties, strings.Compare, dataset.Wishes, n)

	keep := make(map[string]bool, len(popular))
	for _, s := range popular {
		keep[s] = true
	}
	rows := filterRows(summary, func(r dataset.Row) bool { return keep[r.Specialties] })

	grouped := GroupSum(rows, func(r dataset.Row) yearSpecialty {
		return yearSpecialty{Year: r.Year, Specialty: r.Specialties}
	}, compareYearSpecialty)

	cells := make([]Cell[int, string], len(grouped))
	for i, g := range grouped {
		cells[i] = Cell[int, string]{Row: g.Key.Year, Col: g.Key.Specialty, Value: g.Wishes}
	}

	wide, err := Pivot(cells, cmp.Compare[int], strings.Compare)
	if err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}

	t := &Trends{Years: wide.Rows, Series: make([]TrendSeries, len(wide.Cols))}
	if t.Years == nil {
		t.Years = []int{}
	}
	for i, c := range wide.Cols {
		t.Series[i] = TrendSeries{Specialty: c, Values: wide.Column(c)}
	}
	return t, nil
}

// FormationGroups sums the detail partition per formation.
func FormationGroups(ds *dataset.Dataset) []Group[string] {
	return GroupSum(ds.Detail(), byFormation, strings.Compare)
}

// TopFormationsView ranks formations by metric m.
func TopFormationsView(ds *dataset.Dataset, m dataset.Metric, n int) *FormationRanking {
	return &FormationRanking{
		Metric:     m.String(),
		Formations: TopN(FormationGroups(ds), m, n, strings.Compare),
	}
}

// FormationTotalsView returns the totals of every formation ranked in the
// top n for at least one metric.
func FormationTotalsView(ds *dataset.Dataset, n int) *FormationTotals {
	groups := FormationGroups(ds)
	popular := PopularAcrossMetrics(groups, dataset.Metrics, n, strings.Compare)

	keep := make(map[string]bool, len(popular))
	for _, f := range popular {
		keep[f] = true
	}
	out := make([]Group[string], 0, len(popular))
	for _, g := range groups {
		if keep[g.Key] {
			out = append(out, g)
		}
	}
	return &FormationTotals{N: n, Formations: out}
}

// RatesView derives the funnel percentages of every formation.
func RatesView(ds *dataset.Dataset) []Rate {
	return DeriveRates(FormationGroups(ds))
}

// FunnelView derives the funnel of one formation.
func FunnelView(ds *dataset.Dataset, formation string) (*Funnel, error) {
	f, err := FunnelFor(FormationGroups(ds), formation)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// YearlyView sums the summary partition per year.
func YearlyView(ds *dataset.Dataset) []Group[int] {
	return GroupSum(ds.Summary(), byYear, cmp.Compare[int])
}
