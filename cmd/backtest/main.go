// Package main provides the entry point for the quantbench CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/quantbench/internal/backtest"
	"github.com/yourusername/quantbench/internal/config"
	"github.com/yourusername/quantbench/internal/database"
	"github.com/yourusername/quantbench/internal/feed"
	"github.com/yourusername/quantbench/internal/logger"
	"github.com/yourusername/quantbench/internal/metrics"
	"github.com/yourusername/quantbench/internal/models"
	"github.com/yourusername/quantbench/internal/repository"
	"github.com/yourusername/quantbench/internal/scheduler"
	"github.com/yourusername/quantbench/internal/strategy"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile   string
	strategyFlag string
	symbolFlag   string
	startFlag    string
	endFlag      string
	outputFlag   string
	persistFlag  bool
	replaceFlag  bool

	log   *logrus.Logger
	cfg   *config.Config
	db    *database.DB
	repos *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&strategyFlag, "strategy", "", "Strategy name override")
	rootCmd.PersistentFlags().StringVar(&symbolFlag, "symbol", "", "Symbol override")
	rootCmd.PersistentFlags().StringVar(&startFlag, "start-date", "", "Start date override (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&endFlag, "end-date", "", "End date override (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Report output directory override")
	rootCmd.PersistentFlags().BoolVar(&persistFlag, "persist", false, "Persist results to the database")

	ingestCmd.Flags().BoolVar(&replaceFlag, "replace", false, "Delete existing bars for the symbol before inserting")

	rootCmd.AddCommand(runCmd, walkForwardCmd, reportCmd, scheduleCmd, ingestCmd, recordCmd, symbolsCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "quantbench",
	Short: "Backtest trading strategies and run walk-forward optimization",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest with the configured parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBacktest(cmd.Context())
	},
}

var walkForwardCmd = &cobra.Command{
	Use:   "walkforward",
	Short: "Run walk-forward optimization over the configured grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWalkForward(cmd.Context())
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Print a stored run result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showReport(cmd.Context(), args[0])
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run periodic walk-forward re-optimization until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduled(cmd.Context())
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch bars from the configured feed and store them in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context())
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record live bars from the websocket stream until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecord(cmd.Context())
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List symbols with stored bars",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listSymbols(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quantbench %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyOverrides()

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	log = logger.NewLogger(cfg.App.LogLevel)

	if cfg.Database.Enabled {
		db, err = database.NewDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		repos, err = repository.NewRepositories(db)
		if err != nil {
			return err
		}
	}

	if cfg.Metrics.Enabled {
		startMetricsServer()
	}
	return nil
}

func applyOverrides() {
	if strategyFlag != "" {
		cfg.Backtest.Strategy = strategyFlag
	}
	if symbolFlag != "" {
		cfg.Backtest.Symbol = symbolFlag
	}
	if startFlag != "" {
		cfg.Backtest.StartDate = startFlag
	}
	if endFlag != "" {
		cfg.Backtest.EndDate = endFlag
	}
	if outputFlag != "" {
		cfg.Report.OutputDir = outputFlag
	}
}

func startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Warnf("Metrics server stopped: %v", err)
		}
	}()
	log.Infof("Metrics server listening on %s%s", addr, cfg.Metrics.Path)
}

// configuredRange resolves the backtest date range, defaulting the end to now.
func configuredRange() (time.Time, time.Time, error) {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := time.Time{}, time.Now().UTC()
	if btConfig.StartDate != nil {
		start = *btConfig.StartDate
	}
	if btConfig.EndDate != nil {
		end = *btConfig.EndDate
	}
	return start, end, nil
}

// newFeedSource builds the configured external bar source: a CSV file when a
// path is set, otherwise the HTTP API.
func newFeedSource() (feed.BarSource, error) {
	if cfg.Feed.CSVPath != "" {
		return feed.NewCSVSource(cfg.Feed.CSVPath, log)
	}
	httpCfg := feed.DefaultHTTPClientConfig()
	if cfg.Feed.TimeoutSeconds > 0 {
		httpCfg.Timeout = time.Duration(cfg.Feed.TimeoutSeconds) * time.Second
	}
	if cfg.Feed.RetryAttempts > 0 {
		httpCfg.MaxRetries = cfg.Feed.RetryAttempts
	}
	if cfg.Feed.RateLimitPerSecond > 0 {
		httpCfg.RateLimit = float64(cfg.Feed.RateLimitPerSecond)
	}
	return feed.NewAPIClient(feed.APIClientConfig{
		BaseURL:  cfg.Feed.APIURL,
		APIKey:   cfg.Feed.APIKey,
		CacheTTL: time.Duration(cfg.Feed.CacheTTLSeconds) * time.Second,
		HTTP:     httpCfg,
	}, log)
}

// loadBars picks the configured bar source: the database when enabled,
// otherwise the external feed.
func loadBars(ctx context.Context) ([]*models.PriceBar, error) {
	start, end, err := configuredRange()
	if err != nil {
		return nil, err
	}

	if repos != nil {
		return repos.Bars.GetBySymbolAndRange(ctx, cfg.Backtest.Symbol, start, end)
	}

	source, err := newFeedSource()
	if err != nil {
		return nil, err
	}
	return source.FetchBars(ctx, cfg.Backtest.Symbol, start, end)
}

func runIngest(ctx context.Context) error {
	if repos == nil {
		return fmt.Errorf("%w: the ingest command requires the database to be enabled", models.ErrInvalidConfig)
	}
	source, err := newFeedSource()
	if err != nil {
		return err
	}
	start, end, err := configuredRange()
	if err != nil {
		return err
	}

	count, err := ingestBars(ctx, repos.Bars, source, cfg.Backtest.Symbol, start, end, replaceFlag)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"symbol": cfg.Backtest.Symbol,
		"bars":   count,
	}).Info("Ingest complete")
	return nil
}

// ingestBars fetches bars from source and stores them. With replace set the
// symbol's existing bars are deleted first.
func ingestBars(ctx context.Context, repo repository.BarRepository, source feed.BarSource, symbol string, start, end time.Time, replace bool) (int, error) {
	bars, err := source.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: no bars available for %s", models.ErrNotFound, symbol)
	}

	if replace {
		if err := repo.DeleteBySymbol(ctx, symbol); err != nil {
			return 0, err
		}
	}
	if err := repo.InsertBatch(ctx, bars); err != nil {
		return 0, err
	}
	return len(bars), nil
}

func runRecord(ctx context.Context) error {
	stream, err := feed.NewStreamClient(cfg.Feed.StreamURL, cfg.Feed.APIKey, feed.DefaultReconnectConfig(), log)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Connect(ctx, []string{cfg.Backtest.Symbol}); err != nil {
		return err
	}

	var repo repository.BarRepository
	if repos != nil {
		repo = repos.Bars
	} else {
		log.Warn("Database disabled, streamed bars will be logged but not stored")
	}

	err = stream.Listen(ctx, recordBar(ctx, repo, log))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// recordBar persists streamed bars when a repository is available and logs
// them otherwise.
func recordBar(ctx context.Context, repo repository.BarRepository, log *logrus.Logger) feed.BarHandler {
	return func(bar *models.PriceBar) error {
		if repo == nil {
			log.WithFields(logrus.Fields{
				"symbol": bar.Symbol,
				"time":   bar.Timestamp.Format(time.RFC3339),
				"close":  bar.Close.String(),
			}).Info("Received bar")
			return nil
		}
		return repo.InsertBatch(ctx, []*models.PriceBar{bar})
	}
}

func listSymbols(ctx context.Context) error {
	if repos == nil {
		return fmt.Errorf("%w: the symbols command requires the database to be enabled", models.ErrInvalidConfig)
	}
	symbols, err := repos.Bars.GetSymbols(ctx)
	if err != nil {
		return err
	}
	for _, symbol := range symbols {
		fmt.Println(symbol)
	}
	return nil
}

func runBacktest(ctx context.Context) error {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return err
	}
	factory, err := strategy.Resolve(cfg.Backtest.Strategy)
	if err != nil {
		return err
	}
	strat, err := factory(uuid.New(), nil)
	if err != nil {
		return err
	}

	bars, err := loadBars(ctx)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars available for %s", models.ErrNotFound, cfg.Backtest.Symbol)
	}

	engine, err := backtest.NewEngine(btConfig, log)
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, strat, bars)
	if err != nil {
		return err
	}

	fmt.Print(backtest.GenerateConsoleReport(result))
	if err := writeReports(result); err != nil {
		return err
	}
	if persistFlag {
		return persistResult(ctx, result)
	}
	return nil
}

func runWalkForward(ctx context.Context) error {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return err
	}
	wfConfig, err := backtest.WalkForwardFromConfig(&cfg.WalkForward)
	if err != nil {
		return err
	}
	factory, err := strategy.Resolve(cfg.Backtest.Strategy)
	if err != nil {
		return err
	}

	bars, err := loadBars(ctx)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars available for %s", models.ErrNotFound, cfg.Backtest.Symbol)
	}

	wfEngine, err := backtest.NewWalkForwardEngine(btConfig, log, cfg.WalkForward.Workers)
	if err != nil {
		return err
	}

	result, err := wfEngine.Run(ctx, factory, nil, bars, wfConfig)
	if err != nil {
		return err
	}

	fmt.Print(backtest.GenerateWalkForwardConsoleReport(result))
	outputDir := cfg.Report.OutputDir
	if outputDir != "" {
		path := filepath.Join(outputDir, "walkforward.json")
		if err := backtest.GenerateWalkForwardJSONReport(result, path); err != nil {
			return err
		}
		log.Infof("Wrote walk-forward report to %s", path)
	}
	if persistFlag {
		return persistWalkForward(ctx, result, btConfig)
	}
	return nil
}

func showReport(ctx context.Context, runID string) error {
	if repos == nil {
		return fmt.Errorf("%w: the report command requires the database to be enabled", models.ErrInvalidConfig)
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	record, err := repos.Results.GetByID(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runScheduled(ctx context.Context) error {
	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("%w: scheduler is not enabled", models.ErrInvalidConfig)
	}

	sched := scheduler.NewScheduler(log)
	err := sched.ScheduleReoptimization(cfg.Scheduler.CronSpec, cfg.Backtest.Strategy, func(jobCtx context.Context) error {
		return runWalkForward(jobCtx)
	})
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	log.Infof("Scheduler running, next run at %s", sched.GetNextRun().Format(time.RFC3339))
	<-ctx.Done()
	return sched.Stop()
}

func writeReports(result *backtest.Result) error {
	outputDir := cfg.Report.OutputDir
	if outputDir == "" {
		return nil
	}
	base := filepath.Join(outputDir, result.RunID.String())
	if err := backtest.GenerateJSONReport(result, base+".json"); err != nil {
		return err
	}
	if cfg.Report.HTML {
		if err := backtest.GenerateHTMLReport(result, base+".html"); err != nil {
			return err
		}
	}
	if cfg.Report.CSV {
		if err := backtest.GenerateTradesCSV(result, base+"_trades.csv"); err != nil {
			return err
		}
	}
	log.Infof("Wrote reports to %s", outputDir)
	return nil
}

func persistResult(ctx context.Context, result *backtest.Result) error {
	if repos == nil {
		return fmt.Errorf("%w: persistence requires the database to be enabled", models.ErrInvalidConfig)
	}
	record, err := buildRecord(result, models.RunTypeBacktest)
	if err != nil {
		return err
	}
	if err := repos.Results.Save(ctx, record); err != nil {
		return err
	}
	log.Infof("Persisted result %s", record.ID)
	return nil
}

func persistWalkForward(ctx context.Context, result *backtest.WalkForwardResult, btConfig backtest.BacktestConfig) error {
	if repos == nil {
		return fmt.Errorf("%w: persistence requires the database to be enabled", models.ErrInvalidConfig)
	}
	full, err := json.Marshal(result)
	if err != nil {
		return err
	}

	initialCapital, _ := btConfig.InitialCapital.Float64()
	record := &models.ResultRecord{
		ID:             uuid.New(),
		RunType:        models.RunTypeWalkForward,
		StrategyName:   result.StrategyName,
		Symbol:         cfg.Backtest.Symbol,
		InitialCapital: initialCapital,
		TotalReturnPct: result.AggregatedMetrics.TotalReturnPct,
		SharpeRatio:    result.AggregatedMetrics.SharpeRatio,
		MaxDrawdownPct: result.AggregatedMetrics.MaxDrawdownPct,
		TotalTrades:    result.AggregatedMetrics.TotalTrades,
		WinRate:        result.AggregatedMetrics.WinRate,
		ProfitFactor:   result.AggregatedMetrics.ProfitFactor,
		FullResults:    full,
		CreatedAt:      time.Now().UTC(),
	}
	if len(result.Windows) > 0 {
		record.StartDate = result.Windows[0].Window.InSampleStart
		record.EndDate = result.Windows[len(result.Windows)-1].Window.OutOfSampleEnd
	}
	if len(result.AggregatedEquityCurve) > 0 {
		record.FinalEquity, _ = result.AggregatedEquityCurve[len(result.AggregatedEquityCurve)-1].Equity.Float64()
	}

	if err := repos.Results.Save(ctx, record); err != nil {
		return err
	}
	log.Infof("Persisted walk-forward result %s", record.ID)
	return nil
}

func buildRecord(result *backtest.Result, runType models.RunType) (*models.ResultRecord, error) {
	full, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(result.Metadata)
	if err != nil {
		return nil, err
	}

	initialCapital, _ := result.Config.InitialCapital.Float64()
	return &models.ResultRecord{
		ID:             result.RunID,
		RunType:        runType,
		StrategyName:   result.StrategyName,
		Symbol:         result.Config.Symbol,
		StartDate:      result.StartTime,
		EndDate:        result.EndTime,
		InitialCapital: initialCapital,
		FinalEquity:    result.FinalEquity(),
		TotalReturnPct: result.Metrics.TotalReturnPct,
		SharpeRatio:    result.Metrics.SharpeRatio,
		MaxDrawdownPct: result.Metrics.MaxDrawdownPct,
		TotalTrades:    result.Metrics.TotalTrades,
		WinRate:        result.Metrics.WinRate,
		ProfitFactor:   result.Metrics.ProfitFactor,
		Params:         params,
		FullResults:    full,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
