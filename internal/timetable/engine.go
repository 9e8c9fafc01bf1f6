package timetable

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Strategy names a solving algorithm.
type Strategy string

const (
	StrategyGreedy       Strategy = "greedy"
	StrategyBacktracking Strategy = "backtracking"
	StrategyGenetic      Strategy = "genetic"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{StrategyGreedy, StrategyBacktracking, StrategyGenetic}

// ParseStrategy maps a strategy name to its tag. An empty name selects greedy.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyGreedy:
		return StrategyGreedy, nil
	case StrategyBacktracking:
		return StrategyBacktracking, nil
	case StrategyGenetic:
		return StrategyGenetic, nil
	default:
		return "", inputError("strategy", "unknown strategy %q", name)
	}
}

// Solver fills a grid in place.
type Solver interface {
	Strategy() Strategy
	Solve(ctx context.Context, g *Grid) error
}

// Options carries per-solve tuning. Zero values select defaults.
type Options struct {
	// Timeout bounds backtracking (default 5s) and, when set, the genetic search.
	Timeout         time.Duration
	PopulationSize  int
	Generations     int
	MutationRate    float64
	Seed            int64
	FillFreePeriods bool
}

// Input is everything one solve needs. Busy may be shared between concurrent solves.
type Input struct {
	ClassID  string
	Catalog  []CatalogRow
	Days     []Day
	Periods  []Period
	Busy     *BusySet
	Limits   *ConstraintLimits
	Strategy Strategy
	Options  Options
	Now      func() time.Time
}

// Engine runs solves. It holds no per-solve state and is safe for concurrent use.
type Engine struct {
	logger *zap.Logger
}

// New builds an engine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.With(zap.String("component", "timetable"))}
}

// NewSolver builds the solver for a strategy.
func (e *Engine) NewSolver(strategy Strategy, opts Options) (Solver, error) {
	switch strategy {
	case StrategyGreedy:
		return NewGreedySolver(opts.FillFreePeriods, e.logger), nil
	case StrategyBacktracking:
		return NewBacktrackingSolver(opts.Timeout, e.logger), nil
	case StrategyGenetic:
		params := DefaultGeneticParams()
		params.PopulationSize = opts.PopulationSize
		params.Generations = opts.Generations
		params.MutationRate = opts.MutationRate
		params.Timeout = opts.Timeout
		params.Seed = opts.Seed
		return NewGeneticSolver(params, e.logger), nil
	default:
		return nil, inputError("strategy", "unknown strategy %q", string(strategy))
	}
}

// Solve validates the input, builds the grid, runs the selected solver and assembles
// the result. InputError is returned before any placement; NoSolutionError when a
// complete solver gives up.
func (e *Engine) Solve(ctx context.Context, in Input) (*SuggestionResult, error) {
	strategy, err := ParseStrategy(string(in.Strategy))
	if err != nil {
		return nil, err
	}
	days := in.Days
	if len(days) == 0 {
		days = Weekdays
	}
	if days, err = normalizeDays(days); err != nil {
		return nil, err
	}
	limits := DefaultLimits().Merge(in.Limits)
	if err := limits.validate(); err != nil {
		return nil, err
	}

	reqs, err := BuildRequirements(in.Catalog, len(days), limits)
	if err != nil {
		return nil, err
	}
	grid, err := NewGrid(days, in.Periods, reqs, in.Busy, limits)
	if err != nil {
		return nil, err
	}
	solver, err := e.NewSolver(strategy, in.Options)
	if err != nil {
		return nil, err
	}

	now := in.Now
	if now == nil {
		now = time.Now
	}
	log := e.logger.With(zap.String("class_id", in.ClassID), zap.String("strategy", string(strategy)))
	log.Debug("solving timetable",
		zap.Int("subjects", len(reqs)),
		zap.Int("demand", totalDemand(grid.reqs)),
		zap.Int("assignable", len(grid.days)*len(grid.assignable)),
		zap.Int("busy", grid.busy.Len()),
	)

	started := time.Now()
	if err := solver.Solve(ctx, grid); err != nil {
		log.Info("timetable solve failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return nil, err
	}

	report := Validate(grid)
	result := Assemble(in.ClassID, strategy, grid, report, now())
	log.Info("timetable solved",
		zap.Float64("score", result.OptimizationScore),
		zap.Int("filled", result.FilledPeriods),
		zap.Int("unmet", result.UnmetSubjectPeriods),
		zap.Int("violations", len(result.Violations)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
