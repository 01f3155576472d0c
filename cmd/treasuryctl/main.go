// treasuryctl resolves prices, maintains the price ledger and prints
// concentration statistics from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codyseavey/treasury-tracker/internal/analytics"
	"github.com/codyseavey/treasury-tracker/internal/app"
	"github.com/codyseavey/treasury-tracker/internal/config"
	"github.com/codyseavey/treasury-tracker/internal/cronrunner"
	"github.com/codyseavey/treasury-tracker/internal/logger"
	"github.com/codyseavey/treasury-tracker/internal/models"
)

var (
	cfg config.Config
	log *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "treasuryctl",
	Short:         "Crypto treasury tracker tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		envOnly, _ := cmd.Flags().GetBool("env-only")

		var err error
		cfg, err = config.Load(configFile, envOnly)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Log.Level = level
		}
		// stdout carries the command's tables
		if cfg.Log.Output == "stdout" {
			cfg.Log.Output = "stderr"
		}
		cfg.Log.Service = "treasuryctl"

		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", os.Getenv("CTT_CONFIG"), "config file path")
	rootCmd.PersistentFlags().Bool("env-only", false, "ignore config files and read CTT_* variables only")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(concentrationCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// --- Prices Command ---

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Resolve the current price of every supported asset",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, log, false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		res := a.Resolver.Resolve(ctx)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "ASSET\tUSD\n")
		for _, asset := range a.Catalog.Assets() {
			fmt.Fprintf(w, "%s\t%.2f\n", asset, res.Prices[asset])
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nsource: %s (resolved %s)\n", res.Source, res.ResolvedAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

// --- Ledger Command ---

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Maintain the local price ledger",
}

var ledgerUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch live prices and append them to the ledger",
	Long: `Fetch live prices for every supported asset and append one row per asset
to the SQLite price ledger. With --schedule the update repeats on a cron
schedule (six-field spec or descriptor such as "@every 10m") until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule, _ := cmd.Flags().GetString("schedule")

		a, err := app.New(cfg, log, true)
		if err != nil {
			return err
		}
		defer a.Close()

		worker, err := a.PriceWorker()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		if schedule == "" {
			n, err := worker.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d ledger rows\n", n)
			return nil
		}

		runner := cronrunner.New(log.Named("cron"), ctx)
		if _, err := runner.Add(schedule, func(ctx context.Context) {
			if n, err := worker.RunOnce(ctx); err != nil {
				log.Warn("ledger update failed", zap.Error(err))
			} else {
				log.Info("ledger updated", zap.Int("rows", n))
			}
		}); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}
		runner.Start()
		<-ctx.Done()
		runner.Stop()

		status := worker.GetStatus()
		log.Info("ledger updater stopped",
			zap.Int("runs", status.Runs),
			zap.Int("rows_written", status.RowsWrittenTotal),
		)
		return nil
	},
}

func init() {
	ledgerUpdateCmd.Flags().String("schedule", "", `cron schedule, e.g. "@every 10m" (default: run once)`)
	ledgerCmd.AddCommand(ledgerUpdateCmd)
}

// --- Concentration Command ---

var concentrationCmd = &cobra.Command{
	Use:   "concentration",
	Short: "Print concentration statistics of the current holdings",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawGroupBy, _ := cmd.Flags().GetString("group-by")
		rawMeasure, _ := cmd.Flags().GetString("measure")
		topN, _ := cmd.Flags().GetInt("top-n")
		assets, _ := cmd.Flags().GetStringSlice("asset")

		groupBy, ok := models.ParseGroupBy(rawGroupBy)
		if !ok {
			return fmt.Errorf("invalid --group-by %q: want entity, country or entity_type", rawGroupBy)
		}
		measure, ok := models.ParseMeasure(rawMeasure)
		if !ok {
			return fmt.Errorf("invalid --measure %q: want usd or units", rawMeasure)
		}

		a, err := app.New(cfg, log, false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		snap, err := a.Snapshots.Snapshot(ctx)
		if err != nil {
			return err
		}
		filter := models.HoldingFilter{}
		for _, s := range assets {
			filter.Assets = append(filter.Assets, models.NormalizeAsset(s))
		}
		rows := snap.Filter(filter).Holdings

		dist := analytics.BuildDistribution(rows, groupBy, measure)
		report, err := analytics.Analyze(dist, topN)
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	},
}

func init() {
	concentrationCmd.Flags().String("group-by", string(models.GroupByEntity), "entity, country or entity_type")
	concentrationCmd.Flags().String("measure", string(models.MeasureUSD), "usd or units")
	concentrationCmd.Flags().Int("top-n", analytics.DefaultTopN, "rows in the top table")
	concentrationCmd.Flags().StringSlice("asset", nil, "restrict to assets (repeatable or comma separated)")
}

func printReport(cmd *cobra.Command, r models.ConcentrationReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "group by %s, measure %s, %d holders, total %.2f\n", r.GroupBy, r.Measure, r.Count, r.Total)
	fmt.Fprintf(out, "top %d share: %.2f%%\n", r.TopN, r.TopShare*100)
	fmt.Fprintf(out, "HHI: %.4f (%.0f points)\n", r.HHI, r.HHIPoints)
	fmt.Fprintf(out, "Gini: %.4f\n\n", r.Gini)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "#\tHOLDER\tWEIGHT\tSHARE\n")
	for i, row := range r.Top {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f%%\n", i+1, row.Key, row.Weight, row.Share*100)
	}
	return w.Flush()
}
