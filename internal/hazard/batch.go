package hazard

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/hazard-cli/internal/model"
)

// Job is one scenario in a batch.
type Job struct {
	Name     string
	Scenario *model.Scenario
	Seed     uint64
	Prev     *model.HazardResult
}

// Outcome pairs a Job with its result or error.
type Outcome struct {
	Job    Job
	Result *model.HazardResult
	Err    error
}

// RunBatch runs jobs with at most concurrency in flight. Every job gets its
// own rng seeded from Job.Seed. A failed job is recorded in its Outcome and
// does not stop the others; once ctx is cancelled, jobs not yet started are
// marked with ctx.Err(). Outcomes are returned in job order.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []Job, concurrency int) []Outcome {
	out := make([]Outcome, len(jobs))
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("scenarios", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	var g errgroup.Group
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, job := range jobs {
		out[i].Job = job
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			failed.Add(1)
			continue
		}
		g.Go(func() error {
			log := zap.L().With(zap.String("scenario", job.Name))
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				failed.Add(1)
				return nil
			}

			res, err := p.Run(ctx, job.Scenario, job.Prev, NewRNG(job.Seed))
			if err != nil {
				failed.Add(1)
				out[i].Err = err
				log.Error("scenario failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			out[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return out
}
