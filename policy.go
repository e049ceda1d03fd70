package ccfeatures

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// evaluate probes caps through c and applies the precedence rules.
//
// Independent capabilities and precedence groups are scheduled as separate
// units, at most jobs at a time. Members of a group are probed in priority
// order and stop at the first success, so a lower alternative is only ever
// compiled when every higher one failed. The returned slice is indexed by
// Capability regardless of completion order.
func evaluate(ctx context.Context, c Compiler, caps []Capability, jobs int, log logrus.FieldLogger) ([]Result, error) {
	results := make([]Result, capabilityCount)
	for i := range results {
		results[i].Capability = Capability(i)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for _, u := range plan(caps) {
		g.Go(func() error {
			return evaluateUnit(ctx, c, u, results, log)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func evaluateUnit(ctx context.Context, c Compiler, u unit, results []Result, log logrus.FieldLogger) error {
	for i, capability := range u {
		ok, err := c.Compile(ctx, capability.Source())
		if err != nil {
			return fmt.Errorf("probe %s: %w", capability, err)
		}
		results[capability].Probed = true
		log.WithFields(logrus.Fields{
			"capability": capability.String(),
			"macro":      capability.Macro(),
			"supported":  ok,
		}).Debug("probed capability")

		if !ok {
			continue
		}
		results[capability].Supported = true
		for _, rest := range u[i+1:] {
			winner := capability
			results[rest].Preempted = &winner
			log.WithFields(logrus.Fields{
				"capability": rest.String(),
				"preempted":  winner.String(),
			}).Debug("skipped lower-priority alternative")
		}
		return nil
	}
	return nil
}
