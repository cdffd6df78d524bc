package research

import (
	"context"
	"sync"

	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/telemetry"
	"golang.org/x/sync/errgroup"
)

// FanOut runs every directive of plan concurrently against searcher and
// collects the summaries in completion order. A failing unit is logged and
// dropped; it never aborts the batch. An empty plan yields an empty slice.
func FanOut(ctx context.Context, searcher Searcher, plan *SearchPlan, log logger.Logger) []string {
	ctx, span := telemetry.StartSpan(ctx, "Search the web")
	defer span.End()

	results := []string{}
	if plan == nil || len(plan.Searches) == 0 {
		return results
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for i, d := range plan.Searches {
		g.Go(func() error {
			summary, err := searcher.Search(ctx, d)
			telemetry.RecordSearchUnit(err)
			if err != nil {
				log.Warn(ctx, "search failed", map[string]interface{}{
					"index": i,
					"query": d.Query,
					"error": err.Error(),
				})
				return nil
			}
			if summary == "" {
				return nil
			}
			mu.Lock()
			results = append(results, summary)
			mu.Unlock()
			log.Debug(ctx, "search completed", map[string]interface{}{
				"index": i,
				"query": d.Query,
			})
			return nil
		})
	}
	g.Wait()

	span.SetAttributes(telemetry.AttrSearches.Int(len(results)))
	log.Info(ctx, "searches finished", map[string]interface{}{
		"planned":   len(plan.Searches),
		"succeeded": len(results),
	})
	return results
}
