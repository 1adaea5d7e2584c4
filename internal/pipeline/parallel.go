package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/quillscan/quillscan/internal/ingest"
)

// pageJob tags a page with its position so results can be reassembled in
// input order regardless of completion order.
type pageJob struct {
	index int
	page  ingest.Page
}

type pageOutcome struct {
	index  int
	result PageResult
}

// processPages fans pages out to a bounded worker pool and returns results
// ordered by input position. Context cancellation stops dispatch; pages
// already in flight finish as failed results when their stages observe the
// cancellation.
func (p *Pipeline) processPages(ctx context.Context, pages []ingest.Page) []PageResult {
	if len(pages) == 0 {
		return nil
	}

	workers := p.cfg.Workers
	if workers > len(pages) {
		workers = len(pages)
	}
	if workers <= 1 {
		results := make([]PageResult, 0, len(pages))
		for _, page := range pages {
			results = append(results, p.ProcessPage(ctx, page))
		}
		return results
	}

	jobs := make(chan pageJob, len(pages))
	outcomes := make(chan pageOutcome, len(pages))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.pageWorker(ctx, jobs, outcomes, &wg)
	}

	go func() {
		defer close(jobs)
		for i, page := range pages {
			select {
			case jobs <- pageJob{index: i, page: page}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	collected := make([]PageResult, 0, len(pages))
	seen := make(map[int]struct{}, len(pages))
	for outcome := range outcomes {
		collected = append(collected, outcome.result)
		seen[outcome.index] = struct{}{}
	}

	// Pages never dispatched due to cancellation still get a failed entry so
	// the output covers every input page.
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	for i, page := range pages {
		if _, ok := seen[i]; ok {
			continue
		}
		collected = append(collected, PageResult{
			Page:   page.Number,
			Failed: true,
			Error:  cause.Error(),
		})
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].Page < collected[j].Page })
	return collected
}

func (p *Pipeline) pageWorker(
	ctx context.Context,
	jobs <-chan pageJob,
	outcomes chan<- pageOutcome,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			result := p.ProcessPage(ctx, job.page)
			select {
			case outcomes <- pageOutcome{index: job.index, result: result}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
