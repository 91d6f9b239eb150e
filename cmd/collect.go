package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TextQLLabs/market-cap-tracker/internal/collect"
	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/reconcile"
	"github.com/TextQLLabs/market-cap-tracker/internal/report"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
	"github.com/TextQLLabs/market-cap-tracker/internal/store"
	"github.com/TextQLLabs/market-cap-tracker/internal/validate"
)

var collectCmd = &cobra.Command{
	Use:   "collect [TICKER...]",
	Short: "Collect missing market cap years and merge them into the dataset",
	Long: "Fetches the requested years (default: every year without a numeric value) for each ticker, " +
		"validates the results and merges them by source priority. With no tickers every company in the dataset is processed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		yearsFlag, _ := cmd.Flags().GetString("years")
		through, _ := cmd.Flags().GetInt("through")
		cik, _ := cmd.Flags().GetString("cik")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noRunLog, _ := cmd.Flags().GetBool("no-run-log")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		years, err := parseYears(yearsFlag)
		if err != nil {
			return err
		}
		if cik != "" && len(args) != 1 {
			return eris.New("--cik requires exactly one ticker")
		}
		if through == 0 {
			through = time.Now().Year()
		}

		data := initDataset()
		ds, err := data.Load(ctx)
		if err != nil {
			return err
		}
		jobs, err := planJobs(ds, args, years, through, cik)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			zap.L().Info("nothing to collect")
			return nil
		}

		limiter := newLimiter(cfg)
		p, err := buildProviders(ctx, cfg, limiter)
		if err != nil {
			return err
		}

		c := &collector{
			orch:   collect.New(p.registry, limiter, collect.WithChains(p.chains)),
			engine: reconcile.NewEngine(data),
			manual: p.manual,
			dryRun: dryRun,
		}
		if !noRunLog && !dryRun {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			c.runs = st
		}

		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentCompanies
		}
		results, err := c.runBatch(ctx, jobs, concurrency)
		formatCollectSummary(os.Stdout, results)
		if open := p.breakers.Open(); len(open) > 0 {
			zap.L().Warn("providers with open circuits", zap.Strings("sources", open))
		}
		return err
	},
}

func init() {
	collectCmd.Flags().String("years", "", "years to collect, e.g. 2010,2012-2014 (default: missing years)")
	collectCmd.Flags().Int("through", 0, "last year considered when computing missing years (default: current year)")
	collectCmd.Flags().String("cik", "", "SEC CIK for the filing provider (single ticker only; default from dataset)")
	collectCmd.Flags().Bool("dry-run", false, "collect and validate without writing the dataset")
	collectCmd.Flags().Bool("no-run-log", false, "do not record runs in the store")
	collectCmd.Flags().Int("concurrency", 0, "companies processed in parallel (default from config)")
	rootCmd.AddCommand(collectCmd)
}

// parseYears parses a comma separated list of years and inclusive ranges.
func parseYears(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, eris.Errorf("invalid year %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, eris.Errorf("invalid year range %q", part)
			}
		}
		for y := from; y <= to; y++ {
			if !seen[y] {
				seen[y] = true
				out = append(out, y)
			}
		}
	}
	sort.Ints(out)
	return out, nil
}

// collectJob is one company's collection request.
type collectJob struct {
	Ticker   string
	Years    []int
	FilingID string
}

// planJobs resolves tickers and years against the dataset. Explicit years
// apply to every ticker; otherwise each company gets its missing years.
func planJobs(ds *model.Dataset, tickers []string, years []int, through int, cik string) ([]collectJob, error) {
	if len(tickers) == 0 {
		tickers = ds.Tickers()
	}
	var jobs []collectJob
	for _, t := range tickers {
		rec, ok := ds.Company(t)
		if !ok {
			return nil, eris.Wrap(reconcile.ErrUnknownCompany, t)
		}
		job := collectJob{Ticker: rec.Ticker, Years: years, FilingID: rec.CIK}
		if job.Ticker == "" {
			job.Ticker = strings.ToUpper(t)
		}
		if cik != "" {
			job.FilingID = cik
		}
		if len(job.Years) == 0 {
			job.Years = report.MissingYears(rec, through)
		}
		if len(job.Years) > 0 {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// collector runs collect-validate-merge for one company at a time.
type collector struct {
	orch   *collect.Orchestrator
	engine *reconcile.Engine
	manual source.Provider
	runs   store.Store
	dryRun bool
}

// companyResult pairs a ticker with its run outcome.
type companyResult struct {
	Ticker string
	Result *model.RunResult
	Err    error
}

// runBatch processes jobs with bounded concurrency. A failed company does
// not stop the others; only context cancellation aborts the batch.
func (c *collector) runBatch(ctx context.Context, jobs []collectJob, concurrency int) ([]companyResult, error) {
	zap.L().Info("collecting",
		zap.Int("companies", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var mu sync.Mutex
	results := make([]companyResult, 0, len(jobs))
	for _, job := range jobs {
		g.Go(func() error {
			res, err := c.runCompany(gctx, job)
			mu.Lock()
			results = append(results, companyResult{Ticker: job.Ticker, Result: res, Err: err})
			mu.Unlock()
			if err != nil && gctx.Err() != nil {
				return err
			}
			return nil
		})
	}
	err := g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if err != nil {
		return results, eris.Wrap(err, "collect batch")
	}
	if failed > 0 {
		return results, eris.Errorf("collect: %d of %d companies failed", failed, len(jobs))
	}
	return results, nil
}

func (c *collector) runCompany(ctx context.Context, job collectJob) (*model.RunResult, error) {
	log := zap.L().With(zap.String("ticker", job.Ticker))

	var run *model.Run
	if c.runs != nil {
		r, err := c.runs.CreateRun(ctx, job.Ticker, job.Years)
		if err != nil {
			log.Warn("run log unavailable", zap.Error(err))
		} else {
			run = r
		}
	}
	c.setStatus(ctx, run, model.RunStatusCollecting)

	result, err := c.collectAndMerge(ctx, job, run)
	if err != nil {
		log.Error("collect failed", zap.Error(err))
		if run != nil {
			if ferr := c.runs.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
				log.Warn("failed to record run failure", zap.Error(ferr))
			}
		}
		return result, err
	}

	if run != nil {
		if cerr := c.runs.CompleteRun(ctx, run.ID, result); cerr != nil {
			log.Warn("failed to record run result", zap.Error(cerr))
		}
	}
	return result, nil
}

func (c *collector) collectAndMerge(ctx context.Context, job collectJob, run *model.Run) (*model.RunResult, error) {
	res, err := c.orch.Collect(ctx, collect.Request{Ticker: job.Ticker, Years: job.Years, FilingID: job.FilingID})
	if err != nil {
		return nil, err
	}
	c.resolveManual(ctx, job.Ticker, res)

	result := &model.RunResult{
		Collected:      len(res.Points),
		Issues:         res.Report.Issues,
		ManualResearch: res.ManualResearch,
		Unresolved:     res.Unresolved,
		Calls:          res.Calls,
	}
	if c.dryRun || len(res.Points) == 0 {
		return result, nil
	}

	c.setStatus(ctx, run, model.RunStatusMerging)
	out, err := c.engine.Apply(ctx, job.Ticker, res.Points)
	if out != nil {
		result.BackupPath = out.BackupPath
		result.Stats = out.Stats
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// resolveManual answers pre-filing-era years from operator research when
// the manual provider is configured, then revalidates.
func (c *collector) resolveManual(ctx context.Context, ticker string, res *collect.Result) {
	if c.manual == nil || len(res.ManualResearch) == 0 {
		return
	}
	var still []int
	for _, year := range res.ManualResearch {
		p := c.manual.Fetch(ctx, source.Query{Symbol: ticker, Year: year})
		if p == nil {
			still = append(still, year)
			continue
		}
		res.Points = append(res.Points, *p)
	}
	if len(still) == len(res.ManualResearch) {
		return
	}
	res.ManualResearch = still
	sort.Slice(res.Points, func(i, j int) bool { return res.Points[i].Year < res.Points[j].Year })
	res.Report = validate.Validate(res.Points)
}

func (c *collector) setStatus(ctx context.Context, run *model.Run, status model.RunStatus) {
	if run == nil {
		return
	}
	if err := c.runs.UpdateRunStatus(ctx, run.ID, status); err != nil {
		zap.L().Warn("failed to update run status",
			zap.String("run_id", run.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// formatCollectSummary writes one row per company and the years left for
// manual research.
func formatCollectSummary(out io.Writer, results []companyResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TICKER\tCOLLECTED\tADDED\tREPLACED\tKEPT\tISSUES\tUNRESOLVED\tSTATUS")
	_, _ = fmt.Fprintln(w, "------\t---------\t-----\t--------\t----\t------\t----------\t------")

	var manual []string
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed"
		}
		res := r.Result
		if res == nil {
			res = &model.RunResult{}
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.Ticker,
			res.Collected,
			res.Stats.Added,
			res.Stats.Replaced,
			res.Stats.Kept,
			len(res.Issues),
			joinYears(res.Unresolved),
			status,
		)
		if len(res.ManualResearch) > 0 {
			manual = append(manual, fmt.Sprintf("%s: %s", r.Ticker, joinYears(res.ManualResearch)))
		}
	}
	_ = w.Flush()

	if len(manual) > 0 {
		_, _ = fmt.Fprintln(out, "\nManual historical research needed:")
		for _, m := range manual {
			_, _ = fmt.Fprintln(out, "  "+m)
		}
	}
}

func joinYears(years []int) string {
	if len(years) == 0 {
		return "-"
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}
