package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
)

func sampleDataset() *dataset.Dataset {
	s := dataset.SummaryFormation
	return dataset.New([]dataset.Row{
		{Formation: s, Year: 2021, Specialties: "Maths Spécialité,Physique Spécialité", Wishes: 1200, Received: 900, Accepted: 700},
		{Formation: s, Year: 2021, Specialties: "Maths Spécialité", Wishes: 300, Received: 200, Accepted: 150},
		{Formation: s, Year: 2021, Specialties: "SES Spécialité,HGGSP Spécialité", Wishes: 800, Received: 600, Accepted: 500},
		{Formation: s, Year: 2021, Specialties: "", Wishes: 50, Received: 40, Accepted: 30},
		{Formation: s, Year: 2022, Specialties: "Maths Spécialité,Physique Spécialité", Wishes: 1100, Received: 850, Accepted: 640},
		{Formation: s, Year: 2022, Specialties: "SES Spécialité,HGGSP Spécialité", Wishes: 1500, Received: 1000, Accepted: 800},
		{Formation: s, Year: 2022, Specialties: "LLCER Spécialité", Wishes: 90, Received: 80, Accepted: 70},
		{Formation: "BUT - Informatique", Year: 2021, Specialties: "Maths Spécialité", Wishes: 450, Received: 300, Accepted: 120},
		{Formation: "BUT - Informatique", Year: 2022, Specialties: "Maths Spécialité", Wishes: 380, Received: 260, Accepted: 110},
		{Formation: "Licence - Droit", Year: 2022, Specialties: "SES Spécialité", Wishes: 800, Received: 500, Accepted: 250},
		{Formation: "CPGE - MPSI", Year: 2021, Specialties: "Maths Spécialité", Wishes: 200, Received: 150, Accepted: 100},
		{Formation: "Licence - Vide", Year: 2022, Specialties: "SES Spécialité", Wishes: 0, Received: 0, Accepted: 0},
	})
}

func TestLandscapeView(t *testing.T) {
	t.Parallel()
	ds := sampleDataset()

	l, err := LandscapeView(ds, 2021, 1000)
	require.NoError(t, err)
	assert.Equal(t, []Group[Pair]{
		{Key: Pair{"Maths", "Physique"}, Totals: Totals{Wishes: 1200, Received: 900, Accepted: 700}},
	}, l.Pairs)
	assert.Equal(t, 0, l.Skipped)

	l, err = LandscapeView(ds, 2021, 0)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"Maths", "Physique"}, {"Maths", "Single"}, {"SES", "HGGSP"}}, Keys(l.Pairs))
	assert.Equal(t, 1, l.Skipped)

	_, err = LandscapeView(ds, 1999, 0)
	assert.ErrorIs(t, err, ErrUnknownYear)
}

func TestTopPairsView(t *testing.T) {
	t.Parallel()

	r, err := TopPairsView(sampleDataset(), 2021, 2)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"Maths", "Physique"}, {"SES", "HGGSP"}}, Keys(r.Pairs))
	assert.Equal(t, 1, r.Skipped)
}

func TestTrendsView(t *testing.T) {
	t.Parallel()
	ds := sampleDataset()

	tr, err := TrendsView(ds, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2022}, tr.Years)
	require.Len(t, tr.Series, 2)
	assert.Equal(t, "Maths,Physique", tr.Series[0].Specialty)
	assert.Equal(t, []int{1200, 1100}, derefAll(t, tr.Series[0].Values))
	assert.Equal(t, "SES,HGGSP", tr.Series[1].Specialty)
	assert.Equal(t, []int{800, 1500}, derefAll(t, tr.Series[1].Values))

	tr, err = TrendsView(ds, 3)
	require.NoError(t, err)
	var names []string
	for _, s := range tr.Series {
		names = append(names, s.Specialty)
	}
	assert.Equal(t, []string{"LLCER", "Maths", "Maths,Physique", "SES,HGGSP"}, names)

	llcer := tr.Series[0].Values
	assert.Nil(t, llcer[0], "LLCER had no 2021 row")
	require.NotNil(t, llcer[1])
	assert.Equal(t, 90, *llcer[1])
}

func TestTopFormationsView(t *testing.T) {
	t.Parallel()
	ds := sampleDataset()

	r := TopFormationsView(ds, dataset.Wishes, 2)
	assert.Equal(t, "wishes", r.Metric)
	assert.Equal(t, []string{"BUT - Informatique", "Licence - Droit"}, Keys(r.Formations))
	assert.Equal(t, 830, r.Formations[0].Wishes)

	r = TopFormationsView(ds, dataset.Accepted, 2)
	assert.Equal(t, []string{"Licence - Droit", "BUT - Informatique"}, Keys(r.Formations))
}

func TestFormationTotalsView(t *testing.T) {
	t.Parallel()

	r := FormationTotalsView(sampleDataset(), 1)
	assert.Equal(t, []string{"BUT - Informatique", "Licence - Droit"}, Keys(r.Formations))
	assert.Equal(t, Totals{Wishes: 830, Received: 560, Accepted: 230}, r.Formations[0].Totals)
}

func TestRatesView(t *testing.T) {
	t.Parallel()

	rates := RatesView(sampleDataset())
	require.Len(t, rates, 4)
	assert.Equal(t, "BUT - Informatique", rates[0].Formation)
	assert.InDelta(t, 67.4698, rates[0].PctReceived.Value, 1e-3)
	assert.Equal(t, []string{"Licence - Vide"}, Undefined(rates))
}

func TestFunnelView(t *testing.T) {
	t.Parallel()
	ds := sampleDataset()

	f, err := FunnelView(ds, "BUT - Informatique")
	require.NoError(t, err)
	assert.Equal(t, 270, f.NeverReceived)
	assert.Equal(t, 330, f.Refused)

	_, err = FunnelView(ds, "Nowhere")
	assert.ErrorIs(t, err, ErrUnknownFormation)
}

func TestYearlyView(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Group[int]{
		{Key: 2021, Totals: Totals{Wishes: 2350, Received: 1740, Accepted: 1380}},
		{Key: 2022, Totals: Totals{Wishes: 2690, Received: 1930, Accepted: 1510}},
	}, YearlyView(sampleDataset()))
}

func TestBuildDashboard(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Formation = "Licence - Droit"

	d, err := BuildDashboard(context.Background(), sampleDataset(), p)
	require.NoError(t, err)

	assert.Equal(t, 2022, d.Params.Year, "zero year selects the latest")
	require.NotNil(t, d.Landscape)
	assert.Equal(t, []Pair{{"Maths", "Physique"}, {"SES", "HGGSP"}}, Keys(d.Landscape.Pairs))
	require.NotNil(t, d.Funnel)
	assert.Equal(t, 300, d.Funnel.NeverReceived)
	assert.Len(t, d.Yearly, 2)
	assert.Len(t, d.Rates, 4)
	assert.Len(t, d.TopFormations.Formations, 4)
}

func TestBuildDashboard_Errors(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Formation = "Nowhere"
	_, err := BuildDashboard(context.Background(), sampleDataset(), p)
	assert.ErrorIs(t, err, ErrUnknownFormation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BuildDashboard(ctx, sampleDataset(), DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildDashboard_EmptyDataset(t *testing.T) {
	t.Parallel()

	d, err := BuildDashboard(context.Background(), dataset.New(nil), DefaultParams())
	require.NoError(t, err)
	assert.Nil(t, d.Landscape)
	assert.Empty(t, d.Trends.Series)
	assert.Equal(t, []int{}, d.Trends.Years)
}

func derefAll(t *testing.T, vals []*int) []int {
	t.Helper()
	out := make([]int, len(vals))
	for i, v := range vals {
		require.NotNil(t, v, "index %d", i)
		out[i] = *v
	}
	return out
}
