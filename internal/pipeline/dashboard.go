package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
)

// Params are the user-selected inputs of one dashboard pass.
type Params struct {
	Year        int            `json:"year"`
	MinWishes   int            `json:"min_wishes"`
	PairsN      int            `json:"pairs_n"`
	TrendsN     int            `json:"trends_n"`
	FormationsN int            `json:"formations_n"`
	TotalsN     int            `json:"totals_n"`
	Metric      dataset.Metric `json:"-"`
	Formation   string         `json:"formation,omitempty"`
}

// DefaultParams mirrors the defaults of the published dashboard.
func DefaultParams() Params {
	return Params{
		MinWishes:   1000,
		PairsN:      10,
		TrendsN:     10,
		FormationsN: 10,
		TotalsN:     15,
		Metric:      dataset.Wishes,
	}
}

// Dashboard holds every derived table for one parameter set.
type Dashboard struct {
	Params        Params            `json:"params"`
	Years         []int             `json:"years"`
	Landscape     *Landscape        `json:"landscape,omitempty"`
	Pairs         *PairRanking      `json:"pairs,omitempty"`
	Trends        *Trends           `json:"trends"`
	TopFormations *FormationRanking `json:"top_formations"`
	Totals        *FormationTotals  `json:"totals"`
	Rates         []Rate            `json:"rates"`
	Funnel        *Funnel           `json:"funnel,omitempty"`
	Yearly        []Group[int]      `json:"yearly"`
}

// BuildDashboard computes every view of p concurrently. A zero Year selects
// the latest year of the dataset; an empty Formation skips the funnel.
func BuildDashboard(ctx context.Context, ds *dataset.Dataset, p Params) (*Dashboard, error) {
	years := ds.Years()
	if p.Year == 0 && len(years) > 0 {
		p.Year = years[len(years)-1]
	}

	d := &Dashboard{Params: p, Years: years}
	g, ctx := errgroup.WithContext(ctx)

	step := func(name string, fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	if len(years) > 0 {
		step("landscape", func() (err error) {
			d.Landscape, err = LandscapeView(ds, p.Year, p.MinWishes)
			return err
		})
		step("pairs", func() (err error) {
			d.Pairs, err = TopPairsView(ds, p.Year, p.PairsN)
			return err
		})
	}
	step("trends", func() (err error) {
		d.Trends, err = TrendsView(ds, p.TrendsN)
		return err
	})
	step("top formations", func() error {
		d.TopFormations = TopFormationsView(ds, p.Metric, p.FormationsN)
		return nil
	})
	step("totals", func() error {
		d.Totals = FormationTotalsView(ds, p.TotalsN)
		return nil
	})
	step("rates", func() error {
		d.Rates = RatesView(ds)
		return nil
	})
	if p.Formation != "" {
		step("funnel", func() (err error) {
			d.Funnel, err = FunnelView(ds, p.Formation)
			return err
		})
	}
	step("yearly", func() error {
		d.Yearly = YearlyView(ds)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
