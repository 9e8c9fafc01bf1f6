package timetable

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
)

// GeneticParams tunes the genetic solver.
type GeneticParams struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
	EliteFraction  float64
	// AcceptScore stops evolution once the best individual reaches it.
	AcceptScore float64
	// Timeout is optional; zero means the generation count alone bounds the run.
	Timeout time.Duration
	// Seed feeds the random source; zero picks a time based seed.
	Seed int64
}

// DefaultGeneticParams returns the stock tuning.
func DefaultGeneticParams() GeneticParams {
	return GeneticParams{
		PopulationSize: 30,
		Generations:    80,
		MutationRate:   0.15,
		TournamentSize: 3,
		EliteFraction:  0.25,
		AcceptScore:    80,
	}
}

func (p GeneticParams) withDefaults() GeneticParams {
	def := DefaultGeneticParams()
	if p.PopulationSize < 2 {
		p.PopulationSize = def.PopulationSize
	}
	if p.Generations < 1 {
		p.Generations = def.Generations
	}
	if p.MutationRate <= 0 || p.MutationRate > 1 {
		p.MutationRate = def.MutationRate
	}
	if p.TournamentSize < 1 {
		p.TournamentSize = def.TournamentSize
	}
	if p.EliteFraction <= 0 || p.EliteFraction >= 1 {
		p.EliteFraction = def.EliteFraction
	}
	if p.AcceptScore <= 0 {
		p.AcceptScore = def.AcceptScore
	}
	return p
}

// GeneticSolver evolves a population of grids and keeps the fittest one.
type GeneticSolver struct {
	params GeneticParams
	rng    *rand.Rand
	logger *zap.Logger
	now    func() time.Time
}

// NewGeneticSolver builds a genetic solver. Zero-valued params fall back to defaults.
func NewGeneticSolver(params GeneticParams, logger *zap.Logger) *GeneticSolver {
	params = params.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GeneticSolver{
		params: params,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
		now:    time.Now,
	}
}

// Strategy implements Solver.
func (s *GeneticSolver) Strategy() Strategy { return StrategyGenetic }

// Params returns the effective tuning.
func (s *GeneticSolver) Params() GeneticParams { return s.params }

type individual struct {
	grid  *Grid
	score float64
}

// Solve replaces the placements of g with the best individual found.
func (s *GeneticSolver) Solve(ctx context.Context, g *Grid) error {
	var deadline time.Time
	if s.params.Timeout > 0 {
		deadline = s.now().Add(s.params.Timeout)
	}

	slots := g.AssignableSlots()
	if len(slots) == 0 {
		return nil
	}

	population := make([]individual, 0, s.params.PopulationSize)
	for len(population) < s.params.PopulationSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := g.Blank()
		if err := s.fill(child, slots); err != nil {
			return err
		}
		population = append(population, individual{grid: child, score: child.Score()})
	}
	rankPopulation(population)

	elite := int(float64(s.params.PopulationSize) * s.params.EliteFraction)
	if elite < 1 {
		elite = 1
	}

	generation := 0
	stop := "generations"
	for ; generation < s.params.Generations; generation++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if population[0].score >= s.params.AcceptScore {
			stop = "accepted"
			break
		}
		if !deadline.IsZero() && s.now().After(deadline) {
			stop = "deadline"
			break
		}

		next := make([]individual, 0, s.params.PopulationSize)
		next = append(next, population[:elite]...)
		for len(next) < s.params.PopulationSize {
			a := s.tournament(population)
			b := s.tournament(population)
			child := crossover(a.grid, b.grid)
			if s.rng.Float64() < s.params.MutationRate {
				if err := s.mutate(child); err != nil {
					return err
				}
			}
			if err := s.fill(child, slots); err != nil {
				return err
			}
			next = append(next, individual{grid: child, score: child.Score()})
		}
		rankPopulation(next)
		population = next
	}

	best := population[0]
	g.adopt(best.grid)
	s.logger.Debug("genetic search finished",
		zap.String("stop", stop),
		zap.Int("generations", generation),
		zap.Float64("best_score", best.score),
	)
	return nil
}

// fill places outstanding demand units at random slots. Draws respect the hard
// constraints and allow one period over the subject daily cap.
func (s *GeneticSolver) fill(g *Grid, slots []Slot) error {
	attempts := 2 * len(slots)
	for _, req := range g.reqs {
		for req.Remaining > 0 {
			placed := false
			for try := 0; try < attempts; try++ {
				slot := slots[s.rng.Intn(len(slots))]
				if !g.underCap(slot.Day, req, 1) || !g.CanPlace(slot.Day, slot.Period, req) {
					continue
				}
				if err := g.Place(slot.Day, slot.Period, req); err != nil {
					return err
				}
				placed = true
				break
			}
			if !placed {
				break
			}
		}
	}
	return nil
}

func (s *GeneticSolver) tournament(population []individual) individual {
	best := population[s.rng.Intn(len(population))]
	for i := 1; i < s.params.TournamentSize; i++ {
		contender := population[s.rng.Intn(len(population))]
		if contender.score > best.score {
			best = contender
		}
	}
	return best
}

// crossover takes the first half of the days from a and the rest from b. Cells are
// copied without consulting the constraints.
func crossover(a, b *Grid) *Grid {
	child := a.Blank()
	half := (len(a.days) + 1) / 2
	for _, cell := range a.Placements() {
		if a.dayIndex[cell.Day] < half {
			child.assign(cell.Slot, child.reqIndex[cell.SubjectID])
		}
	}
	for _, cell := range b.Placements() {
		if b.dayIndex[cell.Day] >= half {
			child.assign(cell.Slot, child.reqIndex[cell.SubjectID])
		}
	}
	return child
}

// mutate swaps two placed cells of different subjects. A swap that breaks a hard
// constraint is rolled back.
func (s *GeneticSolver) mutate(g *Grid) error {
	cells := g.Placements()
	if len(cells) < 2 {
		return nil
	}
	first := cells[s.rng.Intn(len(cells))]
	second := cells[s.rng.Intn(len(cells))]
	if first.SubjectID == second.SubjectID {
		return nil
	}
	reqA := g.Requirement(first.SubjectID)
	reqB := g.Requirement(second.SubjectID)

	if err := g.Unplace(first.Day, first.Period); err != nil {
		return err
	}
	if err := g.Unplace(second.Day, second.Period); err != nil {
		return err
	}

	if g.CanPlace(second.Day, second.Period, reqA) {
		if err := g.Place(second.Day, second.Period, reqA); err != nil {
			return err
		}
		if g.CanPlace(first.Day, first.Period, reqB) {
			return g.Place(first.Day, first.Period, reqB)
		}
		if err := g.Unplace(second.Day, second.Period); err != nil {
			return err
		}
	}

	g.assign(first.Slot, g.reqIndex[first.SubjectID])
	g.assign(second.Slot, g.reqIndex[second.SubjectID])
	return nil
}

func rankPopulation(population []individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].score > population[j].score
	})
}
