// Command insights prints the admissions views from the terminal and exports
// them to CSV or a spreadsheet workbook.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/Zachkp/parcoursup-portfolio/internal/config"
	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
	"github.com/Zachkp/parcoursup-portfolio/internal/export"
	"github.com/Zachkp/parcoursup-portfolio/internal/logging"
	"github.com/Zachkp/parcoursup-portfolio/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	dataPath string
	cfg      *config.AppConfig
	logger   *slog.Logger
	ds       *dataset.Dataset
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "insights",
		Short:        "Explore the Parcoursup admissions export",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.dataPath, "data", "", "admissions export (defaults to data.csv_path)")

	root.AddCommand(
		a.yearsCmd(),
		a.pairsCmd(),
		a.trendsCmd(),
		a.formationsCmd(),
		a.totalsCmd(),
		a.ratesCmd(),
		a.funnelCmd(),
		a.yearlyCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Logging, cmd.ErrOrStderr())

	path := a.dataPath
	if path == "" {
		path = cfg.Data.CSVPath
	}
	a.ds, err = dataset.Load(path)
	if err != nil {
		return err
	}
	if r := a.ds.Report(); r.Inconsistent > 0 {
		a.logger.Warn("rows with non-monotonic counters", "rows", r.Inconsistent)
	}
	return nil
}

// latestYear resolves a zero year to the most recent one in the dataset.
func (a *app) latestYear(year int) int {
	if year != 0 {
		return year
	}
	if years := a.ds.Years(); len(years) > 0 {
		return years[len(years)-1]
	}
	return 0
}

func printTable(w io.Writer, t export.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range t.Records() {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	return tw.Flush()
}

func (a *app) yearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List the baccalaureate years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, y := range a.ds.Years() {
				fmt.Fprintln(cmd.OutOrStdout(), y)
			}
			return nil
		},
	}
}

func (a *app) pairsCmd() *cobra.Command {
	var year, n int
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Rank subject combinations by confirmed wishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n == 0 {
				n = a.cfg.Insights.PairsN
			}
			year = a.latestYear(year)
			r, err := pipeline.TopPairsView(a.ds, year, n)
			if err != nil {
				return err
			}
			if r.Skipped > 0 {
				a.logger.Warn("skipped rows with malformed specialties", "year", year, "skipped", r.Skipped)
			}
			return printTable(cmd.OutOrStdout(), export.Pairs(r))
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "baccalaureate year (default latest)")
	cmd.Flags().IntVarP(&n, "n", "n", 0, "number of combinations (default insights.pairs_n)")
	return cmd
}

func (a *app) trendsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Follow the most popular specialties year over year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n == 0 {
				n = a.cfg.Insights.TrendsN
			}
			tr, err := pipeline.TrendsView(a.ds, n)
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), export.Trends(tr))
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 0, "top specialties per year (default insights.trends_n)")
	return cmd
}

func (a *app) formationsCmd() *cobra.Command {
	var (
		metric string
		n      int
	)
	cmd := &cobra.Command{
		Use:   "formations",
		Short: "Rank formations by wishes, proposals or admissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := dataset.ParseMetric(metric)
			if err != nil {
				return err
			}
			if n == 0 {
				n = a.cfg.Insights.FormationsN
			}
			return printTable(cmd.OutOrStdout(), export.Formations(pipeline.TopFormationsView(a.ds, m, n)))
		},
	}
	cmd.Flags().StringVar(&metric, "metric", "wishes", "wishes, received or accepted")
	cmd.Flags().IntVarP(&n, "n", "n", 0, "number of formations (default insights.formations_n)")
	return cmd
}

func (a *app) totalsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Totals of the formations popular on any metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n == 0 {
				n = a.cfg.Insights.TotalsN
			}
			return printTable(cmd.OutOrStdout(), export.Totals(pipeline.FormationTotalsView(a.ds, n)))
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 0, "top formations per metric (default insights.totals_n)")
	return cmd
}

func (a *app) ratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Proposal and admission rates per formation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printTable(cmd.OutOrStdout(), export.Rates(pipeline.RatesView(a.ds)))
		},
	}
}

func (a *app) funnelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "funnel FORMATION",
		Short: "Break one formation's wishes down into admission stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := pipeline.FunnelView(a.ds, args[0])
			if err != nil {
				return err
			}
			if f.Inconsistent {
				a.logger.Warn("funnel counters are not monotonic", "formation", f.Formation)
			}
			out := cmd.OutOrStdout()
			if err := printTable(out, export.Funnel(f)); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, f.Summary())
			return err
		},
	}
}

func (a *app) yearlyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "yearly",
		Short: "Wishes, proposals and admissions per year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printTable(cmd.OutOrStdout(), export.Yearly(pipeline.YearlyView(a.ds)))
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var (
		out, table, metric string
		p                  = pipeline.DefaultParams()
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard as a workbook, or one table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if table == "" && out == "" {
				return errors.New("--out is required for a workbook export")
			}
			if p.Metric, err = dataset.ParseMetric(metric); err != nil {
				return err
			}
			ins := a.cfg.Insights
			if !cmd.Flags().Changed("min") {
				p.MinWishes = ins.MinWishes
			}
			p.PairsN, p.TrendsN, p.FormationsN, p.TotalsN = ins.PairsN, ins.TrendsN, ins.FormationsN, ins.TotalsN

			d, err := pipeline.BuildDashboard(cmd.Context(), a.ds, p)
			if err != nil {
				return err
			}
			tables := export.FromDashboard(d)

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}

			if table != "" {
				t, err := export.Find(tables, table)
				if err != nil {
					return err
				}
				return export.WriteCSV(w, t)
			}
			if err := export.WriteXLSX(w, tables); err != nil {
				return err
			}
			a.logger.Info("workbook written", "path", out, "sheets", len(tables))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (CSV defaults to stdout)")
	cmd.Flags().StringVar(&table, "table", "", "export only this table as CSV")
	cmd.Flags().IntVar(&p.Year, "year", 0, "baccalaureate year (default latest)")
	cmd.Flags().IntVar(&p.MinWishes, "min", p.MinWishes, "landscape wish threshold")
	cmd.Flags().StringVar(&metric, "metric", "wishes", "formation ranking metric: wishes, received or accepted")
	cmd.Flags().StringVar(&p.Formation, "formation", "", "include the funnel of this formation")
	return cmd
}
