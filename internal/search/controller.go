package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/newthinker/retsign/internal/core"
	"go.uber.org/zap"
)

// DefaultTrials is the reference trial budget.
const DefaultTrials = 50

// FailurePolicy decides what a trial-local failure does to the search.
type FailurePolicy string

const (
	// PolicyRecord logs the failed trial with score 0 and keeps searching.
	PolicyRecord FailurePolicy = "record"
	// PolicyAbort stops the search at the first failed trial.
	PolicyAbort FailurePolicy = "abort"
)

// TrialStatus is the outcome of one trial.
type TrialStatus string

const (
	StatusComplete TrialStatus = "complete"
	StatusFailed   TrialStatus = "failed"
)

// Trial is one evaluated configuration.
type Trial struct {
	Number    int           `json:"number" msgpack:"number"`
	Params    HyperParams   `json:"params" msgpack:"params"`
	Seed      uint64        `json:"seed" msgpack:"seed"`
	Score     float64       `json:"score" msgpack:"score"`
	Status    TrialStatus   `json:"status" msgpack:"status"`
	Error     string        `json:"error,omitempty" msgpack:"error,omitempty"`
	FinalLoss float64       `json:"final_loss" msgpack:"final_loss"`
	Duration  time.Duration `json:"duration" msgpack:"duration"`
}

// Observer receives search progress. Implementations must be safe to call
// from the controller goroutine.
type Observer interface {
	ObserveTrial(t Trial)
	ObserveBest(t Trial)
}

// Observers fans progress out to each observer in order.
type Observers []Observer

func (obs Observers) ObserveTrial(t Trial) {
	for _, o := range obs {
		o.ObserveTrial(t)
	}
}

func (obs Observers) ObserveBest(t Trial) {
	for _, o := range obs {
		o.ObserveBest(t)
	}
}

// Options configures a search run.
type Options struct {
	Trials     int
	Seed       uint64
	Policy     FailurePolicy
	TimeBudget time.Duration // 0 disables the wall-clock budget
}

// Result is the outcome of a search.
type Result struct {
	Best      Trial   `json:"best" msgpack:"best"`
	Trials    []Trial `json:"trials" msgpack:"trials"`
	Truncated bool    `json:"truncated" msgpack:"truncated"`
	// RefitSeed is drawn from the controller stream after the last trial.
	RefitSeed uint64 `json:"refit_seed" msgpack:"refit_seed"`
}

// Controller runs a sequential random search. It owns the trial history
// and the best-so-far record; the objective only reports scores.
type Controller struct {
	space     Space
	objective Objective
	opts      Options
	rng       *rand.Rand
	logger    *zap.Logger
	observer  Observer
	now       func() time.Time

	history []Trial
	best    int
	ran     bool
}

// NewController validates space and opts and returns a controller ready to
// run once.
func NewController(space Space, objective Objective, opts Options, logger *zap.Logger) (*Controller, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if objective == nil {
		return nil, core.WrapError(core.ErrConfigInvalid, errors.New("search objective is nil"))
	}
	if opts.Trials < 1 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("trial budget must be positive, got %d", opts.Trials))
	}
	switch opts.Policy {
	case "":
		opts.Policy = PolicyRecord
	case PolicyRecord, PolicyAbort:
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown failure policy %q", opts.Policy))
	}
	if opts.TimeBudget < 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, errors.New("time budget must not be negative"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		space:     space,
		objective: objective,
		opts:      opts,
		rng:       rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
		logger:    logger,
		now:       time.Now,
		best:      -1,
	}, nil
}

// SetObserver attaches a progress observer.
func (c *Controller) SetObserver(o Observer) {
	c.observer = o
}

// Run executes up to Trials trials. Cancellation and the time budget are
// checked between trials; a search stopped early returns the trials it
// finished with Truncated set.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if c.ran {
		return nil, errors.New("search controller already ran")
	}
	c.ran = true

	start := c.now()
	var stopped error
	for n := 1; n <= c.opts.Trials; n++ {
		if err := ctx.Err(); err != nil {
			stopped = err
			break
		}
		if c.opts.TimeBudget > 0 && c.now().Sub(start) >= c.opts.TimeBudget {
			stopped = fmt.Errorf("time budget %s spent after %d trials", c.opts.TimeBudget, n-1)
			break
		}

		hp := c.space.Sample(c.rng)
		seed := c.rng.Uint64()
		if err := c.runTrial(ctx, n, hp, seed); err != nil {
			if interrupted(ctx, err) {
				stopped = ctx.Err()
				break
			}
			return nil, err
		}
	}

	if c.best < 0 {
		if stopped != nil {
			return nil, core.WrapError(core.ErrBudgetExhausted, stopped)
		}
		return nil, core.WrapError(core.ErrNoSuccessfulTrial, fmt.Errorf("all %d trials failed", len(c.history)))
	}

	if stopped != nil {
		c.logger.Warn("search stopped early",
			zap.Int("completed", len(c.history)),
			zap.Int("budget", c.opts.Trials),
			zap.Error(stopped),
		)
	}

	return &Result{
		Best:      c.history[c.best],
		Trials:    c.History(),
		Truncated: stopped != nil,
		RefitSeed: c.rng.Uint64(),
	}, nil
}

func (c *Controller) runTrial(ctx context.Context, n int, hp HyperParams, seed uint64) error {
	began := c.now()
	fitted, err := c.objective.Fit(ctx, hp, seed)
	trial := Trial{
		Number:   n,
		Params:   hp,
		Seed:     seed,
		Status:   StatusComplete,
		Duration: c.now().Sub(began),
	}

	if err != nil {
		if interrupted(ctx, err) {
			c.logger.Warn("trial interrupted", zap.Int("trial", n), zap.Error(err))
			return err
		}
		if !trialLocal(err) || c.opts.Policy == PolicyAbort {
			c.logger.Error("trial aborted search",
				zap.Int("trial", n),
				zap.Any("params", hp.Map()),
				zap.Error(err),
			)
			return fmt.Errorf("trial %d: %w", n, err)
		}
		trial.Status = StatusFailed
		trial.Error = err.Error()
		c.logger.Warn("trial failed",
			zap.Int("trial", n),
			zap.Any("params", hp.Map()),
			zap.Error(err),
		)
	} else {
		trial.Score = fitted.Score
		trial.FinalLoss = fitted.History.Final()
		c.logger.Info("trial complete",
			zap.Int("trial", n),
			zap.Any("params", hp.Map()),
			zap.Float64("auc", trial.Score),
			zap.Float64("loss", trial.FinalLoss),
			zap.Duration("elapsed", trial.Duration),
		)
	}

	c.history = append(c.history, trial)
	if c.observer != nil {
		c.observer.ObserveTrial(trial)
	}

	// Ties keep the earlier trial.
	if trial.Status == StatusComplete && (c.best < 0 || trial.Score > c.history[c.best].Score) {
		c.best = len(c.history) - 1
		c.logger.Info("new best trial",
			zap.Int("trial", n),
			zap.Float64("auc", trial.Score),
		)
		if c.observer != nil {
			c.observer.ObserveBest(trial)
		}
	}
	return nil
}

// History returns a copy of the trials run so far, in order.
func (c *Controller) History() []Trial {
	out := make([]Trial, len(c.history))
	copy(out, c.history)
	return out
}

// Best returns the best completed trial so far.
func (c *Controller) Best() (Trial, bool) {
	if c.best < 0 {
		return Trial{}, false
	}
	return c.history[c.best], true
}

// trialLocal reports whether err is a failure of one configuration rather
// than of the search setup.
func trialLocal(err error) bool {
	return errors.Is(err, core.ErrDegenerateEvaluation) || errors.Is(err, core.ErrNonFiniteOutput)
}

// interrupted reports whether err is ctx ending mid-trial. Such a trial is
// dropped from the history and stops the search like a cancel between
// trials.
func interrupted(ctx context.Context, err error) bool {
	cerr := ctx.Err()
	return cerr != nil && errors.Is(err, cerr)
}
