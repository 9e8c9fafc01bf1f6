package timetable

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// GreedySolver is the deterministic first-fit constructor.
//
// Pass 1 walks every day and non-break period in order, placing the requirement with
// the most remaining demand that fits. Pass 2 revisits free slots while demand is
// unmet, letting each subject exceed its daily cap by one. Pass 3, when enabled,
// fills whatever is still free with any subject that passes the hard constraints.
type GreedySolver struct {
	FillFreePeriods bool
	logger          *zap.Logger
}

// NewGreedySolver builds a greedy solver.
func NewGreedySolver(fillFreePeriods bool, logger *zap.Logger) *GreedySolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GreedySolver{FillFreePeriods: fillFreePeriods, logger: logger}
}

// Strategy implements Solver.
func (s *GreedySolver) Strategy() Strategy { return StrategyGreedy }

// Solve fills g in place. It never fails for lack of room; free slots stay free.
func (s *GreedySolver) Solve(ctx context.Context, g *Grid) error {
	placed, err := s.pass(ctx, g, 0, false)
	if err != nil {
		return err
	}
	s.logger.Debug("greedy pass complete", zap.Int("pass", 1), zap.Int("placed", placed))

	if unmetDemand(g) > 0 {
		placed, err = s.pass(ctx, g, 1, false)
		if err != nil {
			return err
		}
		s.logger.Debug("greedy pass complete", zap.Int("pass", 2), zap.Int("placed", placed))
	}

	if s.FillFreePeriods {
		placed, err = s.pass(ctx, g, 1, true)
		if err != nil {
			return err
		}
		s.logger.Debug("greedy pass complete", zap.Int("pass", 3), zap.Int("placed", placed))
	}
	return nil
}

// pass runs one sweep over the free slots. slack widens the subject daily cap;
// anyDemand lets exhausted requirements fill gaps.
func (s *GreedySolver) pass(ctx context.Context, g *Grid, slack int, anyDemand bool) (int, error) {
	placed := 0
	for _, day := range g.days {
		if err := ctx.Err(); err != nil {
			return placed, err
		}
		for _, period := range g.assignable {
			if _, occupied := g.subjectAt(day, period); occupied {
				continue
			}
			for _, req := range s.candidates(g, day, period, slack, anyDemand) {
				if !g.CanPlace(day, period, req) {
					continue
				}
				if err := g.Place(day, period, req); err != nil {
					return placed, err
				}
				placed++
				break
			}
		}
	}
	return placed, nil
}

// candidates orders requirements for a slot: most remaining first, ties by subject id,
// with the subject of the immediately preceding period pushed to the back.
func (s *GreedySolver) candidates(g *Grid, day Day, period int, slack int, anyDemand bool) []*SubjectRequirement {
	previous := -1
	if prev, ok := g.previousPeriod(period); ok && !prev.IsBreak {
		if idx, ok := g.subjectAt(day, prev.Number); ok {
			previous = idx
		}
	}

	type candidate struct {
		req    *SubjectRequirement
		repeat bool
	}
	list := make([]candidate, 0, len(g.reqs))
	for idx, req := range g.reqs {
		if !anyDemand && req.Remaining <= 0 {
			continue
		}
		if !g.underCap(day, req, slack) {
			continue
		}
		list = append(list, candidate{req: req, repeat: idx == previous})
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.repeat != b.repeat {
			return !a.repeat
		}
		if a.req.Remaining != b.req.Remaining {
			return a.req.Remaining > b.req.Remaining
		}
		if anyDemand && a.req.Surplus != b.req.Surplus {
			return a.req.Surplus < b.req.Surplus
		}
		return a.req.SubjectID < b.req.SubjectID
	})

	out := make([]*SubjectRequirement, len(list))
	for i, c := range list {
		out[i] = c.req
	}
	return out
}

func unmetDemand(g *Grid) int {
	unmet := 0
	for _, req := range g.reqs {
		unmet += req.Remaining
	}
	return unmet
}
