// Package generator runs solves with a retry policy over derived seeds,
// checking for cancellation between observations and reporting progress.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/tiledwfc/internal/logger"
	"github.com/lawnchairsociety/tiledwfc/internal/metrics"
	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

var (
	ErrNoSolution    = errors.New("generator: no solution found")
	ErrInvalidConfig = errors.New("generator: invalid config")
)

// Config contains parameters for a generation run
type Config struct {
	Width         int  `yaml:"width"`
	Height        int  `yaml:"height"`
	Limit         int  `yaml:"limit"`          // observations per attempt, negative for no limit
	MaxAttempts   int  `yaml:"max_attempts"`   // seeds tried before giving up
	Periodic      bool `yaml:"periodic"`       // wrap neighbors around the edges
	ProgressEvery int  `yaml:"progress_every"` // report every N observations, 0 disables
}

// DefaultConfig returns reasonable defaults for a run
func DefaultConfig() Config {
	return Config{
		Width:       20,
		Height:      20,
		Limit:       -1,
		MaxAttempts: 10,
	}
}

// Validate checks the grid size and attempt count.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("%w: progress_every %d", ErrInvalidConfig, c.ProgressEvery)
	}
	return nil
}

// Progress is a snapshot reported while an attempt is running.
type Progress struct {
	Attempt   int `json:"attempt"`
	Step      int `json:"step"`
	Collapsed int `json:"collapsed"`
	Cells     int `json:"cells"`
}

// Outcome is the accepted attempt of a run.
type Outcome struct {
	Result   *wfc.Result
	Attempts int
	Seed     wfc.Seed
}

// Generator handles generation runs for one compiled tileset
type Generator struct {
	// OnProgress, when set, is called every ProgressEvery observations.
	OnProgress func(Progress)
	// Metrics may be nil.
	Metrics *metrics.Metrics

	name   string
	model  *wfc.Model
	config Config
}

// New creates a generator. name labels logs and metrics.
func New(name string, model *wfc.Model, config Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Generator{name: name, model: model, config: config}, nil
}

// Config returns the run parameters.
func (g *Generator) Config() Config {
	return g.config
}

// Generate tries seed, then seed.Derive(1), seed.Derive(2) and so on until
// an attempt finishes without a contradiction. Resolved and incomplete
// attempts are both accepted.
func (g *Generator) Generate(ctx context.Context, seed wfc.Seed) (*Outcome, error) {
	solver, err := wfc.NewSolver(g.model, wfc.Grid{
		Width:    g.config.Width,
		Height:   g.config.Height,
		Periodic: g.config.Periodic,
	})
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
		attemptSeed := seed.Derive(attempt)

		start := time.Now()
		status, err := g.solve(ctx, solver, attempt, attemptSeed)
		if err != nil {
			if ctx.Err() != nil {
				g.Metrics.ObserveGeneration(g.name, "cancelled", attempt+1)
				logger.Info("Generation cancelled", "tileset", g.name, "attempt", attempt)
			} else {
				logger.Error("Solver failed", "tileset", g.name, "attempt", attempt, "error", err)
			}
			return nil, err
		}
		g.Metrics.ObserveSolve(g.name, status, solver.Steps(), time.Since(start))

		if status == wfc.StatusContradiction {
			logger.Debug("Contradiction, retrying", "tileset", g.name, "attempt", attempt, "steps", solver.Steps())
			continue
		}

		g.Metrics.ObserveGeneration(g.name, "solved", attempt+1)
		logger.Info("Generation finished",
			"tileset", g.name,
			"status", status.String(),
			"attempts", attempt+1,
			"steps", solver.Steps(),
			"seed", attemptSeed.String())

		return &Outcome{
			Result:   solver.Result(),
			Attempts: attempt + 1,
			Seed:     attemptSeed,
		}, nil
	}

	g.Metrics.ObserveGeneration(g.name, "exhausted", g.config.MaxAttempts)
	logger.Warning("No solution", "tileset", g.name, "attempts", g.config.MaxAttempts)
	return nil, fmt.Errorf("%w after %d attempts", ErrNoSolution, g.config.MaxAttempts)
}

// solve runs one attempt step by step so the context is honored between
// observations.
func (g *Generator) solve(ctx context.Context, solver *wfc.Solver, attempt int, seed wfc.Seed) (wfc.Status, error) {
	if err := solver.Clear(seed); err != nil {
		return solver.Status(), err
	}

	cells := solver.Grid().Cells()
	limit := g.config.Limit
	for l := 0; solver.Status() == wfc.StatusRunning && (limit < 0 || l < limit); l++ {
		if err := ctx.Err(); err != nil {
			return solver.Status(), err
		}
		if _, err := solver.Step(); err != nil {
			return solver.Status(), err
		}

		every := g.config.ProgressEvery
		if g.OnProgress != nil && every > 0 && solver.Steps() > 0 && solver.Steps()%every == 0 {
			g.OnProgress(Progress{
				Attempt:   attempt,
				Step:      solver.Steps(),
				Collapsed: solver.CollapsedCount(),
				Cells:     cells,
			})
		}
	}
	return solver.Finish(), nil
}
