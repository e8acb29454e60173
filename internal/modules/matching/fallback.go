package matching

import (
	"context"
	"log"
)

// fallback runs one relaxed matching pass over whatever is still unassigned.
// It drops the idle-time rule but keeps the pickup window, and only adds
// assignments.
func (s *Service) fallback(ctx context.Context, c *cycle) error {
	remaining := c.remaining()
	if len(remaining) == 0 || len(c.states) == 0 {
		return nil
	}
	cm, err := buildCostMatrix(ctx, s.tt, c.states, remaining, costRules{})
	if err != nil {
		return err
	}

	added := 0
	for _, pr := range Solve(cm.cost) {
		if !cm.feasible(pr.Row, pr.Col) {
			continue
		}
		p := remaining[pr.Col]
		a := s.assign(c.states[pr.Row], p, cm.pickup[pr.Row][pr.Col], KindFallback, c.rounds+1)
		c.consumed[p.ID] = true
		c.assignments = append(c.assignments, a)
		added++
	}
	log.Printf("[MATCHING] fallback pass: %d added, %d still unassigned", added, len(remaining)-added)
	return nil
}
