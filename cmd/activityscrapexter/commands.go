// cmd/activityscrapexter/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/valpere/ActivityScrapexter/internal/config"
	"github.com/valpere/ActivityScrapexter/internal/monitoring"
	"github.com/valpere/ActivityScrapexter/internal/output"
	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/report"
	"github.com/valpere/ActivityScrapexter/internal/server"
	"github.com/valpere/ActivityScrapexter/internal/session"
)

// rangeFlags override the configured date range and export target.
type rangeFlags struct {
	start    string
	end      string
	format   string
	file     string
	headless bool
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "first day to keep (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "last day to keep (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "export format: json, csv, xlsx, yaml, sqlite")
	cmd.Flags().StringVarP(&f.file, "output", "o", "", "export file")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "run the browser without a window")
}

func (f *rangeFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("start") {
		cfg.Range.Start = f.start
	}
	if cmd.Flags().Changed("end") {
		cfg.Range.End = f.end
	}
	if f.format != "" {
		format, err := output.ParseFormat(f.format)
		if err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}
		cfg.Output.Format = string(format)
	}
	if f.file != "" {
		cfg.Output.File = f.file
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	return cfg.Validate()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		overrides rangeFlags
		noReport  bool
		twelve    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scroll the history once, export the entries in range and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if err := overrides.apply(cmd, cfg); err != nil {
				return err
			}

			logger := newLogger(flags, cfg, cmd.ErrOrStderr())
			svc := newErrorService(flags, cfg, logger)
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			rng, err := cfg.DateRange(loc)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			metrics := monitoring.NewMetricsManager(cfg.Metrics)
			bs, err := openSession(ctx, cfg, loc, metrics, svc, logger)
			if err != nil {
				return err
			}
			defer bs.Close()

			res, err := collect(ctx, bs.controller, rng)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Status)
			if res.Warning != "" {
				fmt.Fprintf(out, "warning: %s\n", res.Warning)
			}

			manager, err := output.NewManager(&cfg.Output)
			if err != nil {
				return err
			}
			written, err := manager.WithMetrics(metrics).WithLogger(logger).Write(res.Records, rng)
			if err != nil {
				return fmt.Errorf("output write failed: %w", err)
			}
			fmt.Fprintf(out, "Saved %d records to %s\n", written.Records, written.File)

			if !noReport {
				opts := report.DefaultRenderOptions()
				opts.Twelve = twelve
				report.Render(out, report.Compute(res.Records), res.Records, opts)
			}
			return nil
		},
	}

	overrides.register(cmd)
	cmd.Flags().BoolVar(&noReport, "no-report", false, "skip the statistics report")
	cmd.Flags().BoolVar(&twelve, "12h", false, "show hours on a 12-hour clock")
	return cmd
}

// collect runs one scroll session and waits for its extraction.
func collect(ctx context.Context, ctrl *session.Controller, rng record.DateRange) (*session.Result, error) {
	results, ok := ctrl.Start(ctx, rng)
	if !ok {
		return nil, fmt.Errorf("a scroll session is already running")
	}
	select {
	case res, ok := <-results:
		if !ok || res == nil {
			return nil, fmt.Errorf("scroll session ended without a result")
		}
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var overrides rangeFlags
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the history page and control scroll sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if err := overrides.apply(cmd, cfg); err != nil {
				return err
			}

			logger := newLogger(flags, cfg, cmd.ErrOrStderr())
			svc := newErrorService(flags, cfg, logger)
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			rng, err := cfg.DateRange(loc)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			metrics := monitoring.NewMetricsManager(cfg.Metrics)
			bs, err := openSession(ctx, cfg, loc, metrics, svc, logger)
			if err != nil {
				return err
			}
			defer bs.Close()

			health := monitoring.NewHealthManager(version)
			health.RegisterCheck(bs.healthCheck())
			health.RegisterCheck(monitoring.GoroutineHealthCheck(1000))

			srv := server.New(bs.controller, server.Options{
				Config:   cfg.Server,
				Range:    rng,
				Location: loc,
				Metrics:  metrics,
				Health:   health,
				Logger:   logger,
				Version:  version,
				Context:  ctx,
			})

			if flags.configFile != "" {
				watcher, err := config.NewConfigWatcher(flags.configFile, logger)
				if err != nil {
					return err
				}
				defer watcher.Close()
				watcher.OnChange(func(updated *config.Config) {
					bs.apply(updated)
					if r, err := updated.DateRange(loc); err == nil {
						srv.SetRange(r)
					}
					logger.Info("configuration reloaded for the next session")
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Control API on http://%s/api/v1\n", cfg.Server.Listen)
			return srv.ListenAndServe(ctx)
		},
	}

	overrides.register(cmd)
	cmd.Flags().StringVar(&listen, "listen", "", "address for the control API")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		input  string
		table  string
		start  string
		end    string
		latest int
		asJSON bool
		twelve bool
		tz     string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print statistics for an exported file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}

			loc := time.Local
			if tz != "" {
				var err error
				if loc, err = time.LoadLocation(tz); err != nil {
					return fmt.Errorf("invalid timezone %q: %w", tz, err)
				}
			}

			records, err := output.Load(input, table)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}
			if start != "" || end != "" {
				rng, err := record.ParseDateRange(start, end, loc)
				if err != nil {
					return err
				}
				records = record.Filter(records, rng, loc)
			}

			stats := report.Compute(records)
			out := cmd.OutOrStdout()
			if asJSON {
				return writeStatsJSON(out, stats)
			}

			opts := report.DefaultRenderOptions()
			opts.Latest = latest
			opts.Twelve = twelve
			report.Render(out, stats, records, opts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "exported file (json, csv, xlsx, yaml, db)")
	cmd.Flags().StringVar(&table, "table", "", "table name for sqlite input")
	cmd.Flags().StringVar(&start, "start", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().IntVar(&latest, "latest", 10, "number of latest entries to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	cmd.Flags().BoolVar(&twelve, "12h", false, "show hours on a 12-hour clock")
	cmd.Flags().StringVar(&tz, "timezone", "", "IANA timezone for date filtering")
	return cmd
}

func writeStatsJSON(w io.Writer, stats report.Stats) error {
	data, err := sonic.ConfigDefault.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config.yaml]",
		Short: "Validate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("configuration file required")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %w", err)
			}
			cfg, err := config.LoadFromBytes(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := cfg.ValidateWithDetails()
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "⚠ %s\n", w)
			}
			if flags.verbose {
				fmt.Fprintf(out, "Configuration details:\n")
				fmt.Fprintf(out, "  Target: %s\n", cfg.Target.URL)
				fmt.Fprintf(out, "  Range: %s – %s\n", valueOr(cfg.Range.Start, "…"), valueOr(cfg.Range.End, "…"))
				fmt.Fprintf(out, "  Output format: %s\n", cfg.Output.Format)
				for _, s := range config.GetValidationSuggestions(result) {
					fmt.Fprintf(out, "  - %s\n", s)
				}
			}
			fmt.Fprintf(out, "✓ Configuration file '%s' is valid\n", path)
			return nil
		},
	}
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func newTemplateCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a configuration template",
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl := config.GenerateTemplate(kind)
			return config.SaveToWriter(&tmpl, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "basic", "template type: basic or headless")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ActivityScrapexter %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}
