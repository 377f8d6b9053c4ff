// Package app wires data collection, search, refit, backtest and report
// archiving into one pipeline run.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/retsign/internal/backtest"
	"github.com/newthinker/retsign/internal/collector"
	"github.com/newthinker/retsign/internal/config"
	"github.com/newthinker/retsign/internal/core"
	"github.com/newthinker/retsign/internal/dataset"
	"github.com/newthinker/retsign/internal/metrics"
	"github.com/newthinker/retsign/internal/report"
	"github.com/newthinker/retsign/internal/search"
	"github.com/newthinker/retsign/internal/storage/archive"
	"github.com/newthinker/retsign/internal/train"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	windows    dataset.Provider
	metrics    *metrics.Registry
	observer   search.Observer
	reports    *archive.Reports
	newRunID   func() string
	now        func() time.Time

	mu      sync.Mutex
	running bool
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		windows:    dataset.Windower{},
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
}

// RegisterCollector adds a data source to the app
func (a *App) RegisterCollector(c collector.Collector) {
	a.collectors.Register(c)
}

// SetMetrics attaches a metrics registry; nil disables metrics.
func (a *App) SetMetrics(m *metrics.Registry) {
	a.metrics = m
}

// SetObserver attaches an extra search progress observer alongside metrics.
func (a *App) SetObserver(o search.Observer) {
	a.observer = o
}

// SetArchive attaches a report archive; nil disables archiving.
func (a *App) SetArchive(r *archive.Reports) {
	a.reports = r
}

// Run executes one full pipeline: fetch prices, build windows, search,
// refit the best configuration, backtest it and archive the report. When
// only archiving fails the report is returned along with the error.
func (a *App) Run(ctx context.Context) (*report.Report, error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil, fmt.Errorf("app already running")
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	rep, err := a.run(ctx)
	if a.metrics != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		a.metrics.RecordRun(status)
	}
	return rep, err
}

func (a *App) run(ctx context.Context) (*report.Report, error) {
	started := a.now()
	runID := a.newRunID()
	log := a.logger.With(zap.String("run_id", runID))

	set, data, err := a.loadSamples(ctx, log)
	if err != nil {
		return nil, err
	}

	trainSet, validSet, err := dataset.Split(set, a.cfg.Search.ValidationFraction)
	if err != nil {
		return nil, err
	}
	data.TrainWindows, data.ValidWindows = trainSet.Len(), validSet.Len()
	data.ValidationFraction = a.cfg.Search.ValidationFraction
	if err := validSet.CheckScorable(); err != nil {
		return nil, fmt.Errorf("validation split (fraction %v): %w", data.ValidationFraction, err)
	}

	space := a.cfg.Search.SearchSpace()
	if err := space.CheckArchitecture(a.cfg.Model.SeqLength); err != nil {
		return nil, err
	}

	objective := search.NewCNNObjective(trainSet, validSet, train.New(a.cfg.Model.BatchSize, log.Named("train")))
	controller, err := search.NewController(space, objective, search.Options{
		Trials:     a.cfg.Search.Trials,
		Seed:       a.cfg.Search.Seed,
		Policy:     search.FailurePolicy(a.cfg.Search.FailurePolicy),
		TimeBudget: a.cfg.Search.TimeBudget,
	}, log.Named("search"))
	if err != nil {
		return nil, err
	}
	var observers search.Observers
	if a.metrics != nil {
		observers = append(observers, a.metrics)
	}
	if a.observer != nil {
		observers = append(observers, a.observer)
	}
	if len(observers) > 0 {
		controller.SetObserver(observers)
	}

	log.Info("search starting",
		zap.Int("trials", a.cfg.Search.Trials),
		zap.Uint64("seed", a.cfg.Search.Seed),
		zap.Int("train_windows", data.TrainWindows),
		zap.Int("valid_windows", data.ValidWindows),
	)
	searchStart := a.now()
	res, err := controller.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	searchTook := a.now().Sub(searchStart)
	a.recordStage("search", searchTook)

	log.Info("search finished",
		zap.Int("best_trial", res.Best.Number),
		zap.Float64("best_auc", res.Best.Score),
		zap.Any("best_params", res.Best.Params.Map()),
		zap.Bool("truncated", res.Truncated),
	)

	// A cancelled search still refits and archives its best trial.
	finishCtx := ctx
	if res.Truncated && ctx.Err() != nil {
		finishCtx = context.WithoutCancel(ctx)
		log.Warn("search cancelled, finishing with completed trials", zap.Int("completed", len(res.Trials)))
	}

	refitStart := a.now()
	fitted, err := search.Refit(finishCtx, objective, res.Best.Params, res.RefitSeed, log)
	if err != nil {
		return nil, err
	}
	refitTook := a.now().Sub(refitStart)
	a.recordStage("refit", refitTook)
	if a.metrics != nil {
		a.metrics.SetFinalScore(fitted.Score)
	}

	rep := report.New(runID, a.now(), data, space, res, fitted, res.RefitSeed, validSet.Labels)
	if a.cfg.Report.Backtest {
		bt, err := backtest.New(a.cfg.Report.Threshold).Run(fitted.Probs, validSet.Next)
		if err != nil {
			return nil, fmt.Errorf("backtest: %w", err)
		}
		rep.AttachBacktest(bt.Stats)
		log.Info("backtest complete",
			zap.Float64("hit_rate", bt.Stats.HitRate),
			zap.Float64("total_return", bt.Stats.TotalReturn),
			zap.Float64("sharpe", bt.Stats.SharpeRatio),
		)
	}
	rep.Timings = report.Timings{
		Search: searchTook,
		Refit:  refitTook,
		Total:  a.now().Sub(started),
	}

	if a.reports != nil {
		if _, err := a.reports.Save(finishCtx, rep); err != nil {
			log.Error("archiving report failed", zap.Error(err))
			return rep, err
		}
	}
	return rep, nil
}

// loadSamples fetches the configured series and turns it into windows.
func (a *App) loadSamples(ctx context.Context, log *zap.Logger) (*dataset.Set, report.Data, error) {
	dc := a.cfg.Data
	data := report.Data{Source: dc.Source, Symbol: dc.Symbol, SeqLen: a.cfg.Model.SeqLength}

	src, err := a.collectors.MustGet(dc.Source)
	if err != nil {
		return nil, data, err
	}
	from, to, err := dc.Range(a.now())
	if err != nil {
		return nil, data, err
	}

	fetchStart := a.now()
	bars, err := src.FetchHistory(ctx, dc.Symbol, from, to, dc.Interval)
	if err != nil {
		return nil, data, err
	}
	a.recordStage("fetch", a.now().Sub(fetchStart))
	if len(bars) == 0 {
		return nil, data, core.WrapError(core.ErrNoData, fmt.Errorf("%s returned no bars for %s", dc.Source, dc.Symbol))
	}
	data.Closes = len(bars)

	returns, err := dataset.Returns(core.Closes(bars))
	if err != nil {
		return nil, data, err
	}
	set, err := a.windows.Build(returns, a.cfg.Model.SeqLength)
	if err != nil {
		return nil, data, err
	}
	if set.Len() == 0 {
		return nil, data, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%d returns cannot fill one window of %d", len(returns), a.cfg.Model.SeqLength))
	}
	data.Windows = set.Len()
	data.Positives = set.Positives()

	log.Info("samples built",
		zap.String("source", dc.Source),
		zap.String("symbol", dc.Symbol),
		zap.Int("bars", len(bars)),
		zap.Int("windows", set.Len()),
		zap.Int("positives", set.Positives()),
	)
	return set, data, nil
}

func (a *App) recordStage(stage string, d time.Duration) {
	if a.metrics != nil {
		a.metrics.RecordStage(stage, d)
	}
}
