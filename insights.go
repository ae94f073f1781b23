package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
	"github.com/Zachkp/parcoursup-portfolio/internal/export"
	"github.com/Zachkp/parcoursup-portfolio/internal/logging"
	"github.com/Zachkp/parcoursup-portfolio/internal/pipeline"
)

var errBadRequest = errors.New("bad request")

// insightsQuery is the union of the query parameters the insight routes
// accept. Zero values fall back to the configured defaults.
type insightsQuery struct {
	Year      int    `form:"year" binding:"omitempty,gt=0"`
	MinWishes *int   `form:"min" binding:"omitempty,gte=0"`
	N         int    `form:"n" binding:"omitempty,gt=0,lte=1000"`
	Metric    string `form:"metric"`
	Formation string `form:"formation"`
}

// chartResponse pairs a derived table with the text shown around its chart.
type chartResponse struct {
	Chart Chart `json:"chart"`
	Data  any   `json:"data"`
}

func (s *server) bindQuery(c *gin.Context) (insightsQuery, error) {
	var q insightsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return q, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return q, nil
}

// year resolves the requested year, defaulting to the latest one.
func (s *server) year(q insightsQuery) (int, error) {
	if q.Year != 0 {
		return q.Year, nil
	}
	years := s.data.Years()
	if len(years) == 0 {
		return 0, fmt.Errorf("%w: dataset has no summary rows", pipeline.ErrUnknownYear)
	}
	return years[len(years)-1], nil
}

func nOr(q insightsQuery, def int) int {
	if q.N > 0 {
		return q.N
	}
	return def
}

// params merges q onto the configured dashboard defaults.
func (s *server) params(q insightsQuery) (pipeline.Params, error) {
	d := s.cfg.Insights
	p := pipeline.Params{
		Year:        q.Year,
		MinWishes:   d.MinWishes,
		PairsN:      d.PairsN,
		TrendsN:     d.TrendsN,
		FormationsN: d.FormationsN,
		TotalsN:     d.TotalsN,
		Formation:   q.Formation,
	}
	if q.MinWishes != nil {
		p.MinWishes = *q.MinWishes
	}
	if q.N > 0 {
		p.PairsN, p.TrendsN, p.FormationsN, p.TotalsN = q.N, q.N, q.N, q.N
	}
	m, err := dataset.ParseMetric(q.Metric)
	if err != nil {
		return p, err
	}
	p.Metric = m
	return p, nil
}

// fail maps err to a JSON error body and status code.
func (s *server) fail(c *gin.Context, err error) {
	status, code, msg := http.StatusInternalServerError, "internal", "internal error"
	switch {
	case errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, dataset.ErrUnknownMetric):
		status, code = http.StatusBadRequest, "unknown_metric"
	case errors.Is(err, pipeline.ErrUnknownYear):
		status, code = http.StatusNotFound, "unknown_year"
	case errors.Is(err, pipeline.ErrUnknownFormation):
		status, code = http.StatusNotFound, "unknown_formation"
	case errors.Is(err, export.ErrUnknownTable):
		status, code = http.StatusNotFound, "unknown_view"
	}
	if status != http.StatusInternalServerError {
		msg = err.Error()
	} else {
		logging.FromContext(c, s.logger).Error("insight failed", "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func (s *server) warnSkipped(c *gin.Context, year, skipped int) {
	if skipped > 0 {
		logging.FromContext(c, s.logger).Warn("skipped rows with malformed specialties",
			"year", year, "skipped", skipped)
	}
}

func (s *server) years(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"years": s.data.Years()})
}

func (s *server) formations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formations": s.data.Formations()})
}

func (s *server) landscape(c *gin.Context) {
	q, err := s.bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	year, err := s.year(q)
	if err != nil {
		s.fail(c, err)
		return
	}
	minWishes := s.cfg.Insights.MinWishes
	if q.MinWishes != nil {
		minWishes = *q.MinWishes
	}

	l, err := pipeline.LandscapeView(s.data, year, minWishes)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.warnSkipped(c, year, l.Skipped)
	c.JSON(http.StatusOK, chartResponse{Chart: landscapeChart(year, minWishes), Data: l})
}

func (s *server) pairs(c *gin.Context) {
	q, err := s.bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	year, err := s.year(q)
	if err != nil {
		s.fail(c, err)
		return
	}
	n := nOr(q, s.cfg.Insights.PairsN)

	r, err := pipeline.TopPairsView(s.data, year, n)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.warnSkipped(c, year, r.Skipped)
	c.JSON(http.StatusOK, chartResponse{Chart: pairsChart(year, n), Data: r})
}

func (s *server) trends(c *gin.Context) {
	q, err := s.bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	tr, err := pipeline.TrendsView(s.data, nOr(q, s.cfg.Insights.TrendsN))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chartResponse{Chart: trendsChart(), Data: tr})
}

func (s *server) topFormations(c *gin.Context) {
	q, err := s.bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	m, err := dataset.ParseMetric(q.Metric)
	if err != nil {
		s.fail(c, err)
		return
	}
	n := nOr(q, s.cfg.Insights.FormationsN)
	c.JSON(http.StatusOK, chartResponse{
		Chart: topFormationsChart(m.String(), n),
		Data:  pipeline.TopFormationsView(s.data, m, n),
	})
}

func (s *server) formationTotals(c *gin.Context) {
	q, err := s.bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chartResponse{
		Chart: totalsChart(),
		Data:  pipeline.FormationTotalsView(s.data, nOr(q, s.cfg.Insights.TotalsN)),
	})
}

func (s *server) rates(c *gin.Context) {
	rates := pipeline.RatesView(s.data)
	if undefined := pipeline.Undefined(rates); len(undefined) > 0 {
		logging.FromContext(c, s.logger).Debug("formations without wishes", "formations", undefined)
	}
	c.JSON(http.StatusOK, chartResponse{Chart: ratesChart(), Data: rates})
}

func (s *server) funnel(c *gin.Context) {
	q, err := s.bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if q.Formation == "" {
		s.fail(c, fmt.Errorf("%w: formation is required", errBadRequest))
		return
	}
	f, err := pipeline.FunnelView(s.data, q.Formation)
	if err != nil {
		s.fail(c, err)
		return
	}
	if f.Inconsistent {
		logging.FromContext(c, s.logger).Warn("funnel counters are not monotonic", "formation", f.Formation)
	}
	c.JSON(http.StatusOK, chartResponse{Chart: funnelChart(f.Summary()), Data: f})
}

func (s *server) yearly(c *gin.Context) {
	c.JSON(http.StatusOK, chartResponse{Chart: yearlyChart(), Data: pipeline.YearlyView(s.data)})
}

// dashboardCharts titles every table of d, keyed like the export tables.
func dashboardCharts(d *pipeline.Dashboard) map[string]Chart {
	p := d.Params
	charts := map[string]Chart{
		"trends":     trendsChart(),
		"formations": topFormationsChart(p.Metric.String(), p.FormationsN),
		"totals":     totalsChart(),
		"rates":      ratesChart(),
		"yearly":     yearlyChart(),
	}
	if d.Landscape != nil {
		charts["landscape"] = landscapeChart(p.Year, p.MinWishes)
	}
	if d.Pairs != nil {
		charts["pairs"] = pairsChart(p.Year, p.PairsN)
	}
	if d.Funnel != nil {
		charts["funnel"] = funnelChart(d.Funnel.Summary())
	}
	return charts
}

func (s *server) buildDashboard(c *gin.Context) (*pipeline.Dashboard, error) {
	q, err := s.bindQuery(c)
	if err != nil {
		return nil, err
	}
	p, err := s.params(q)
	if err != nil {
		return nil, err
	}
	return pipeline.BuildDashboard(c.Request.Context(), s.data, p)
}

func (s *server) dashboard(c *gin.Context) {
	d, err := s.buildDashboard(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"charts": dashboardCharts(d), "data": d})
}

func (s *server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"source":     s.cfg.Data.CSVPath,
		"loaded_at":  s.loadedAt.UTC().Format(time.RFC3339),
		"report":     s.data.Report(),
		"years":      s.data.Years(),
		"formations": len(s.data.Formations()),
		"tracking":   s.tracker != nil,
	})
}
