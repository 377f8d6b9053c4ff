package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/newthinker/retsign/internal/app"
	"github.com/newthinker/retsign/internal/collector/synthetic"
	"github.com/newthinker/retsign/internal/collector/yahoo"
	"github.com/newthinker/retsign/internal/config"
	"github.com/newthinker/retsign/internal/metrics"
	"github.com/newthinker/retsign/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	searchTrials int
	searchSeed   uint64
	searchSymbol string
	searchSource string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a hyperparameter search, refit the best model and report",
	Example: `  retsign search --source synthetic --trials 20
  retsign search -c configs/retsign.yaml --symbol AAPL --source yahoo`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTrials, "trials", 0, "number of search trials (overrides config)")
	searchCmd.Flags().Uint64Var(&searchSeed, "seed", 0, "search seed (overrides config)")
	searchCmd.Flags().StringVar(&searchSymbol, "symbol", "", "symbol to fetch (overrides config)")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "data source: yahoo or synthetic (overrides config)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySearchFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	a := app.New(cfg, log)
	a.RegisterCollector(yahoo.New())
	a.RegisterCollector(synthetic.New(synthetic.Config{
		Length:     cfg.Data.Synthetic.Length,
		Drift:      cfg.Data.Synthetic.Drift,
		Volatility: cfg.Data.Synthetic.Volatility,
		Seed:       cfg.Data.Synthetic.Seed,
	}))

	reports, err := openReports(cfg, log)
	if err != nil {
		return err
	}
	a.SetArchive(reports)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		a.SetMetrics(reg)
		shutdown := serveMetrics(cfg.Metrics, reg, log)
		defer shutdown()
	}

	log.Info("starting search",
		zap.String("source", cfg.Data.Source),
		zap.String("symbol", cfg.Data.Symbol),
		zap.Int("trials", cfg.Search.Trials),
		zap.Uint64("seed", cfg.Search.Seed),
	)

	rep, err := a.Run(ctx)
	if rep != nil {
		printReport(cmd.OutOrStdout(), rep)
	}
	return err
}

func applySearchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("trials") {
		cfg.Search.Trials = searchTrials
	}
	if flags.Changed("seed") {
		cfg.Search.Seed = searchSeed
	}
	if flags.Changed("symbol") {
		cfg.Data.Symbol = searchSymbol
	}
	if flags.Changed("source") {
		cfg.Data.Source = searchSource
	}
}

// serveMetrics exposes the registry over HTTP until the returned func runs.
func serveMetrics(cfg config.MetricsConfig, reg *metrics.Registry, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, reg.Handler())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics server listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("metrics server shutdown", zap.Error(err))
		}
	}
}

func printReport(w io.Writer, rep *report.Report) {
	fmt.Fprintln(w, "=== retsign search ===")
	fmt.Fprintf(w, "Run:      %s\n", rep.RunID)
	fmt.Fprintf(w, "Data:     %s %s (%d windows, %d train / %d valid)\n",
		rep.Data.Source, rep.Data.Symbol, rep.Data.Windows, rep.Data.TrainWindows, rep.Data.ValidWindows)
	fmt.Fprintf(w, "Trials:   %d", len(rep.Trials))
	if rep.Truncated {
		fmt.Fprint(w, " (stopped early)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Best trial %d, validation AUC %.4f\n", rep.BestTrial, rep.BestScore)
	keys := make([]string, 0, len(rep.BestConfig))
	for k := range rep.BestConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-14s %v\n", k, rep.BestConfig[k])
	}
	fmt.Fprintf(w, "Final AUC after refit: %.4f\n", rep.FinalScore)

	if bt := rep.Backtest; bt != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Backtest (validation windows)")
		fmt.Fprintf(w, "  Hit rate:      %.2f%%\n", bt.HitRate)
		fmt.Fprintf(w, "  Exposure:      %.2f%%\n", bt.Exposure)
		fmt.Fprintf(w, "  Trades:        %d (%d won, %d lost)\n", bt.TotalTrades, bt.WinningTrades, bt.LosingTrades)
		fmt.Fprintf(w, "  Total return:  %.2f%%\n", bt.TotalReturn)
		fmt.Fprintf(w, "  Max drawdown:  %.2f%%\n", bt.MaxDrawdown)
		fmt.Fprintf(w, "  Sharpe ratio:  %.2f\n", bt.SharpeRatio)
	}
}
