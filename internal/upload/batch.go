package upload

import (
	"context"
	"sync"
)

// Item is one file of a batch upload
type Item struct {
	File     *File
	Progress Progress
}

// ItemResult is the outcome of one batch item
type ItemResult struct {
	Result *Result
	Err    error
}

// UploadAll runs an independent flow for every item, at most parallel at a
// time. Results are returned in item order; one failure does not stop the
// others.
func (u *Uploader) UploadAll(ctx context.Context, albumID string, items []Item, parallel int) []ItemResult {
	if parallel < 1 {
		parallel = 1
	}

	results := make([]ItemResult, len(items))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item Item) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = ItemResult{Err: &StepError{Step: StepTicket, Err: ctx.Err()}}
				return
			}
			defer func() { <-sem }()

			res, err := u.Upload(ctx, albumID, item.File, item.Progress)
			results[i] = ItemResult{Result: res, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results
}
