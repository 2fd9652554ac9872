// Package dispatcher fans ROI executions out to a bounded worker pool and
// collects results back into idx order (§4.5), grounded on the
// channel-based WorkerPool/job/result shape used for parallel feature
// extraction elsewhere in the retrieval pack.
package dispatcher

import (
	"context"
	"runtime"
	"sort"

	"github.com/bosocmputer/visual-inspector/internal/executor"
	"github.com/bosocmputer/visual-inspector/internal/inspection"
)

// job is one ROI task. It is queued together with its original position
// so results can be placed back in input order after concurrent
// completion, before the final sort by idx.
type job struct {
	input executor.Input
	caps  executor.Capabilities
}

type jobResult struct {
	position int
	result   inspection.ROIResult
}

// Run executes every input's ROI pipeline across a worker pool of
// min(len(inputs), maxWorkers) workers, where maxWorkers <= 0 means
// runtime.NumCPU(), then returns results stably sorted by idx
// (§4.5, §5 "ordering guarantees").
func Run(ctx context.Context, caps executor.Capabilities, inputs []executor.Input, maxWorkers int) []inspection.ROIResult {
	n := len(inputs)
	if n == 0 {
		return nil
	}

	workers := maxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan struct {
		position int
		j        job
	}, n)
	results := make(chan jobResult, n)

	for w := 0; w < workers; w++ {
		go func() {
			for item := range jobs {
				res := executor.Run(ctx, item.j.caps, item.j.input)
				results <- jobResult{position: item.position, result: res}
			}
		}()
	}

	for i, in := range inputs {
		jobs <- struct {
			position int
			j        job
		}{position: i, j: job{input: in, caps: caps}}
	}
	close(jobs)

	collected := make([]inspection.ROIResult, n)
	for i := 0; i < n; i++ {
		r := <-results
		collected[r.position] = r.result
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].RoiID < collected[j].RoiID
	})
	return collected
}
