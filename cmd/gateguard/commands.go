package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gateguard/gateguard/internal/archive"
	"github.com/gateguard/gateguard/internal/config"
	"github.com/gateguard/gateguard/internal/engine"
	"github.com/gateguard/gateguard/internal/httpapi"
	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/output"
	"github.com/gateguard/gateguard/internal/providers/elastic"
	"github.com/gateguard/gateguard/internal/providers/mongo"
	"github.com/gateguard/gateguard/internal/report"
	"github.com/gateguard/gateguard/internal/scoring"
	"github.com/gateguard/gateguard/internal/sensitive"
	"github.com/gateguard/gateguard/internal/version"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnvironment(v)

	var cfgFile string
	root := &cobra.Command{
		Use:   "gateguard",
		Short: "GateGuard — security scoring and traffic analysis for gateway APIs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/gateguard/config.yaml)")
	root.PersistentFlags().String("mongo-uri", "", "MongoDB connection string")
	root.PersistentFlags().String("mongo-db", "", "MongoDB database name")
	root.PersistentFlags().String("es", "", "Elasticsearch connection name from the configuration store")
	_ = v.BindPFlag(config.KeyMongoURI, root.PersistentFlags().Lookup("mongo-uri"))
	_ = v.BindPFlag(config.KeyMongoDatabase, root.PersistentFlags().Lookup("mongo-db"))
	_ = v.BindPFlag(config.KeyDefaultConnection, root.PersistentFlags().Lookup("es"))

	root.AddCommand(
		newScoreCmd(v),
		newTrafficCmd(v),
		newSensitiveCmd(v),
		newOverviewCmd(v),
		newReportCmd(v),
		newComplianceCmd(v),
		newServeCmd(v),
		newDoctorCmd(v),
		newVersionCmd(),
	)
	return root
}

// backends bundles the live connections a command run needs.
type backends struct {
	settings config.Settings
	store    *mongo.Store
	logs     *elastic.Registry
	keywords []string
	scorer   *scoring.Scorer
}

// openBackends resolves settings from v, dials the configuration store and
// prepares the log-store registry. The returned close function releases the
// store connection.
func openBackends(ctx context.Context, v *viper.Viper) (*backends, func(), error) {
	settings := config.Load(v)

	store, err := mongo.Connect(ctx, settings.Mongo.URI, settings.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("closing configuration store: %v", err)
		}
	}

	keywords, err := sensitive.LoadKeywords(settings.Analysis.KeywordsFile)
	if err != nil {
		log.Printf("keywords file %s unavailable, using the built-in list: %v", settings.Analysis.KeywordsFile, err)
		keywords = nil
	}

	var weights scoring.Weights
	if settings.Analysis.WeightsFile != "" {
		weights, err = scoring.LoadWeights(settings.Analysis.WeightsFile)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		if errs := weights.Validate(); len(errs) > 0 {
			closeStore()
			return nil, nil, fmt.Errorf("weights file %s: %w", settings.Analysis.WeightsFile, errors.Join(errs...))
		}
	}

	b := &backends{
		settings: settings,
		store:    store,
		logs:     elastic.NewRegistry(store),
		keywords: keywords,
		scorer:   scoring.NewScorer(weights),
	}
	return b, closeStore, nil
}

// assessor resolves the named log store and wires a full Assessor around it.
func (b *backends) assessor(ctx context.Context, esName string) (*engine.Assessor, error) {
	client, err := b.logs.Client(ctx, esName)
	if err != nil {
		return nil, err
	}
	scanner := sensitive.NewScanner(client, b.keywords)
	return engine.NewAssessor(b.store, client, scanner, b.scorer), nil
}

func newScoreCmd(v *viper.Viper) *cobra.Command {
	var (
		startStr string
		endStr   string
		days     int
		sample   int
		format   string
		outFile  string
		colored  bool
	)

	cmd := &cobra.Command{
		Use:   "score <api-id>",
		Short: "Assess one API and print its security score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeBackends, err := openBackends(ctx, v)
			if err != nil {
				return err
			}
			defer closeBackends()

			window, err := resolveWindow(startStr, endStr, orDefault(days, b.settings.Analysis.DefaultRangeDays))
			if err != nil {
				return err
			}

			esName := b.settings.Analysis.DefaultConnection
			assessor, err := b.assessor(ctx, esName)
			if err != nil {
				return err
			}

			a, err := assessor.Assess(ctx, engine.AssessOptions{
				APIID:      args[0],
				Window:     window,
				SampleSize: orDefault(sample, b.settings.Analysis.SampleSize),
			})
			if err != nil {
				return fmt.Errorf("assessment failed: %w", err)
			}
			a.Elasticsearch = esName

			if outFile != "" {
				if err := writeReportToFile(outFile, a); err != nil {
					return err
				}
			}
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), a)
			}
			printAssessment(cmd.OutOrStdout(), a, colored)
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days when --start/--end are not given")
	cmd.Flags().IntVar(&sample, "sample", 0, "Log records to inspect for sensitive data")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().StringVar(&outFile, "output", "", "Write the full JSON assessment to this file path")
	cmd.Flags().BoolVar(&colored, "color", false, "Colorize severities in table output")

	return cmd
}

func newTrafficCmd(v *viper.Viper) *cobra.Command {
	var (
		startStr string
		endStr   string
		days     int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "traffic [api-id]",
		Short: "Show traffic statistics per API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeBackends, err := openBackends(ctx, v)
			if err != nil {
				return err
			}
			defer closeBackends()

			window, err := resolveWindow(startStr, endStr, orDefault(days, b.settings.Analysis.DefaultRangeDays))
			if err != nil {
				return err
			}

			assessor, err := b.assessor(ctx, b.settings.Analysis.DefaultConnection)
			if err != nil {
				return err
			}

			apiID := ""
			if len(args) > 0 {
				apiID = args[0]
			}
			stats, err := assessor.TrafficOverview(ctx, apiID, window)
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			printTrafficTable(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days when --start/--end are not given")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func newSensitiveCmd(v *viper.Viper) *cobra.Command {
	var (
		sample int
		format string
	)

	cmd := &cobra.Command{
		Use:   "sensitive <api-id>",
		Short: "Scan recent logs of one API for sensitive keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeBackends, err := openBackends(ctx, v)
			if err != nil {
				return err
			}
			defer closeBackends()

			client, err := b.logs.Client(ctx, b.settings.Analysis.DefaultConnection)
			if err != nil {
				return err
			}

			scanner := sensitive.NewScanner(client, b.keywords)
			exposure := scanner.Scan(ctx, args[0], orDefault(sample, b.settings.Analysis.SampleSize))

			if format == "json" {
				return printJSON(cmd.OutOrStdout(), exposure)
			}
			printExposureTable(cmd.OutOrStdout(), exposure)
			return nil
		},
	}

	cmd.Flags().IntVar(&sample, "sample", 0, "Log records to inspect")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func newOverviewCmd(v *viper.Viper) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show gateway-wide policy adoption statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeBackends, err := openBackends(ctx, v)
			if err != nil {
				return err
			}
			defer closeBackends()

			stats, err := b.store.PolicyStatistics(ctx)
			if err != nil {
				return fmt.Errorf("loading policy statistics: %w", err)
			}

			if format == "json" {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			printOverviewTable(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func newReportCmd(v *viper.Viper) *cobra.Command {
	var (
		startStr string
		endStr   string
		days     int
		sample   int
		format   string
		outFile  string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Assess every API and print the executive summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeBackends, err := openBackends(ctx, v)
			if err != nil {
				return err
			}
			defer closeBackends()

			window, err := resolveWindow(startStr, endStr, orDefault(days, b.settings.Analysis.DefaultRangeDays))
			if err != nil {
				return err
			}

			assessor, err := b.assessor(ctx, b.settings.Analysis.DefaultConnection)
			if err != nil {
				return err
			}
			assessments, err := assessor.AssessAll(ctx, window, orDefault(sample, b.settings.Analysis.SampleSize))
			if err != nil {
				return fmt.Errorf("fleet assessment failed: %w", err)
			}
			coverage, err := b.store.PolicyStatistics(ctx)
			if err != nil {
				return fmt.Errorf("loading policy statistics: %w", err)
			}

			summary := report.BuildExecutiveSummary(*coverage, assessments)

			if outFile != "" {
				if err := writeReportToFile(outFile, summary); err != nil {
					return err
				}
			}
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			printSummaryTable(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days when --start/--end are not given")
	cmd.Flags().IntVar(&sample, "sample", 0, "Log records to inspect per API")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().StringVar(&outFile, "output", "", "Write the full JSON summary to this file path")

	return cmd
}

func newComplianceCmd(v *viper.Viper) *cobra.Command {
	var (
		startStr string
		endStr   string
		days     int
		sample   int
		format   string
		outFile  string
	)

	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Check every API against the fixed compliance controls",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeBackends, err := openBackends(ctx, v)
			if err != nil {
				return err
			}
			defer closeBackends()

			window, err := resolveWindow(startStr, endStr, orDefault(days, b.settings.Analysis.DefaultRangeDays))
			if err != nil {
				return err
			}

			assessor, err := b.assessor(ctx, b.settings.Analysis.DefaultConnection)
			if err != nil {
				return err
			}
			assessments, err := assessor.AssessAll(ctx, window, orDefault(sample, b.settings.Analysis.SampleSize))
			if err != nil {
				return fmt.Errorf("fleet assessment failed: %w", err)
			}

			compliance := report.BuildComplianceReport(assessments)

			if outFile != "" {
				if err := writeReportToFile(outFile, compliance); err != nil {
					return err
				}
			}
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), compliance)
			}
			printComplianceTable(cmd.OutOrStdout(), compliance)
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days when --start/--end are not given")
	cmd.Flags().IntVar(&sample, "sample", 0, "Log records to inspect per API")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().StringVar(&outFile, "output", "", "Write the full JSON report to this file path")

	return cmd
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, closeBackends, err := openBackends(ctx, v)
			if err != nil {
				return err
			}
			defer closeBackends()

			opts := httpapi.Options{
				Store:             b.store,
				Logs:              httpapi.RegistryResolver{Registry: b.logs},
				Scorer:            b.scorer,
				Keywords:          b.keywords,
				DefaultConnection: b.settings.Analysis.DefaultConnection,
				DefaultRangeDays:  b.settings.Analysis.DefaultRangeDays,
				MaxRangeDays:      b.settings.Analysis.MaxRangeDays,
				SampleSize:        b.settings.Analysis.SampleSize,
			}
			if b.settings.Archive.Bucket != "" {
				archiver, err := archive.NewS3Archiver(ctx, b.settings.Archive.Bucket, b.settings.Archive.Region, b.settings.Archive.LinkTTL)
				if err != nil {
					return fmt.Errorf("configure report sharing: %w", err)
				}
				opts.Archiver = archiver
			}

			return httpapi.NewServer(opts).Serve(ctx, b.settings.Server.Listen)
		},
	}

	cmd.Flags().String("listen", "", `Listen address (default ":8080")`)
	_ = v.BindPFlag(config.KeyListenAddr, cmd.Flags().Lookup("listen"))

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// orDefault returns fallback when value is zero or negative.
func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// resolveWindow builds the observation window. Explicit --start/--end win;
// otherwise the window is the last days days ending now.
func resolveWindow(start, end string, days int) (models.DateRange, error) {
	now := time.Now().UTC()
	window := models.DateRange{Start: now.AddDate(0, 0, -days), End: now}
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("invalid --start %q (want YYYY-MM-DD)", start)
		}
		window.Start = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("invalid --end %q (want YYYY-MM-DD)", end)
		}
		window.End = t
	}
	if window.End.Before(window.Start) {
		return models.DateRange{}, fmt.Errorf("--end precedes --start")
	}
	return window, nil
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReportToFile serialises v as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

// printAssessment renders one assessment: header, component score table,
// recommendations and a one-line traffic summary.
func printAssessment(w io.Writer, a *models.Assessment, colored bool) {
	fmt.Fprintf(w, "API:     %s (%s)\n", a.APIName, a.APIID)
	fmt.Fprintf(w, "Window:  %s to %s\n",
		a.DateRange.Start.Format("2006-01-02"), a.DateRange.End.Format("2006-01-02"))
	if a.Elasticsearch != "" {
		fmt.Fprintf(w, "Logs:    %s\n", a.Elasticsearch)
	}
	fmt.Fprintln(w)

	output.RenderScoreTable(w, a.Score, a.Weights)

	if a.Score != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recommendations")
		output.RenderRecommendations(w, a.Score.Recommendations, output.TableOptions{
			Colored:       colored,
			IncludeAction: true,
		})
	}

	if a.TrafficStats != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Traffic: %d requests, %d unique IPs, error rate %.2f%%\n",
			a.TrafficStats.TotalRequests, a.TrafficStats.UniqueIPs, a.TrafficStats.ErrorRate)
	}
}

// printTrafficTable renders per-API traffic rows, sorted by API name for
// stable output.
func printTrafficTable(w io.Writer, stats map[string]*models.TrafficStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No traffic in the window.")
		return
	}
	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats[ids[i]].APIName < stats[ids[j]].APIName
	})

	fmt.Fprintf(w, "%-32s  %10s  %10s  %12s  %8s\n", "API", "REQUESTS", "UNIQUE IPS", "AVG REQ/HR", "ERR %")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, id := range ids {
		s := stats[id]
		name := s.APIName
		if name == "" {
			name = id
		}
		fmt.Fprintf(w, "%-32s  %10d  %10d  %12.2f  %8.2f\n",
			name, s.TotalRequests, s.UniqueIPs, s.AvgRequestsPerHour, s.ErrorRate)
	}
}

// printExposureTable renders the sensitive-keyword scan result.
func printExposureTable(w io.Writer, exposure *models.SensitiveExposure) {
	if exposure.Error != "" {
		fmt.Fprintf(w, "Scan degraded: %s\n", exposure.Error)
		return
	}
	fmt.Fprintf(w, "Checked %d records.\n", exposure.TotalLogsChecked)
	if !exposure.HasSensitiveData {
		fmt.Fprintln(w, "No sensitive keywords found.")
		return
	}

	keywords := make([]string, 0, len(exposure.SensitiveKeywords))
	for kw := range exposure.SensitiveKeywords {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-24s  %8s  %8s  %8s  %8s\n", "KEYWORD", "COUNT", "PCT", "HEADERS", "BODY")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for _, kw := range keywords {
		info := exposure.SensitiveKeywords[kw]
		fmt.Fprintf(w, "%-24s  %8d  %7.2f%%  %8d  %8d\n",
			kw, info.Count, info.Percentage, info.InHeaders, info.InBody)
	}
}

// printOverviewTable renders gateway-wide policy adoption.
func printOverviewTable(w io.Writer, stats *models.PolicyStatistics) {
	fmt.Fprintf(w, "Total APIs:  %d\n", stats.TotalAPIs)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-16s  %6s  %8s\n", "POLICY", "APIS", "COVERAGE")
	fmt.Fprintln(w, strings.Repeat("-", 34))
	fmt.Fprintf(w, "%-16s  %6d  %7.1f%%\n", "Security", stats.WithSecurity, stats.SecurityPercentage)
	fmt.Fprintf(w, "%-16s  %6d  %7.1f%%\n", "Throttling", stats.WithThrottling, stats.ThrottlingPercentage)
	fmt.Fprintf(w, "%-16s  %6d  %7.1f%%\n", "Authentication", stats.WithAuth, stats.AuthPercentage)
}

// printSummaryTable renders the executive summary: fleet totals, security
// level breakdown, and the top critical issues.
func printSummaryTable(w io.Writer, s *models.ExecutiveSummary) {
	fmt.Fprintf(w, "APIs Assessed:  %d of %d\n", s.AssessedAPIs, s.TotalAPIs)
	fmt.Fprintf(w, "Average Score:  %.1f\n", s.AverageSecurityScore)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Security Levels")
	fmt.Fprintf(w, "  %-10s  %d\n", "EXCELLENT", s.APIsByLevel.Excellent)
	fmt.Fprintf(w, "  %-10s  %d\n", "GOOD", s.APIsByLevel.Good)
	fmt.Fprintf(w, "  %-10s  %d\n", "FAIR", s.APIsByLevel.Fair)
	fmt.Fprintf(w, "  %-10s  %d\n", "POOR", s.APIsByLevel.Poor)
	fmt.Fprintf(w, "  %-10s  %d\n", "CRITICAL", s.APIsByLevel.Critical)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Recommendations:  %d total, %d critical, %d high\n",
		s.TotalRecommendations, s.CriticalIssues, s.HighPriorityIssues)

	if len(s.TopIssues.Critical) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Top Critical Issues")
	for _, issue := range s.TopIssues.Critical {
		fmt.Fprintf(w, "  %-28s  %s\n", issue.APIName, issue.Message)
	}
}

// printComplianceTable renders the compliance control results.
func printComplianceTable(w io.Writer, r *models.ComplianceReport) {
	fmt.Fprintf(w, "APIs Checked:  %d\n", r.TotalAPIs)
	fmt.Fprintf(w, "Compliance:    %.1f%% (%d of %d checks passed)\n",
		r.CompliancePercentage, r.TotalPassed, r.TotalChecks)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-26s  %6s  %6s\n", "CHECK", "PASS", "FAIL")
	fmt.Fprintln(w, strings.Repeat("-", 42))
	for _, c := range r.Checks {
		fmt.Fprintf(w, "%-26s  %6d  %6d\n", c.Name, c.Passed, c.Failed)
	}
}
