package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"adsdash/internal/domain"
)

// FetchFunc fetches the insight rows of one entity.
type FetchFunc func(ctx context.Context, entity domain.Entity) ([]domain.DailyDataPoint, error)

// Reconcile fetches every entity and settles each one into a BatchResult.
// The result has one entry per requested entity, in request order. A failed
// or panicking fetch only affects its own entry, and sub-requests keep
// running when the caller's context is cancelled.
func Reconcile(ctx context.Context, entities []domain.Entity, workers int, fetchOne FetchFunc) domain.BatchResults {
	return fanOut(ctx, entities, workers, func(ctx context.Context, entity domain.Entity) domain.BatchResult {
		return settle(ctx, entity, fetchOne)
	})
}

func settle(ctx context.Context, entity domain.Entity, fetchOne FetchFunc) (result domain.BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failed(entity, fmt.Errorf("%s: panic: %v", domain.MessageFetchFailed, r))
		}
	}()

	points, err := fetchOne(ctx, entity)
	if err != nil {
		return failed(entity, err)
	}

	if len(points) == 0 {
		return domain.BatchResult{
			ID:      entity.ID,
			Name:    entity.Name,
			State:   domain.StateNoData,
			Message: domain.MessageNoData,
		}
	}

	record := domain.Aggregate(points)
	return domain.BatchResult{
		ID:      entity.ID,
		Name:    entity.Name,
		State:   domain.StateSuccess,
		Success: true,
		Data:    &record,
	}
}

func failed(entity domain.Entity, err error) domain.BatchResult {
	return domain.BatchResult{
		ID:    entity.ID,
		Name:  entity.Name,
		State: domain.StateError,
		Error: errorMessage(err),
	}
}

// errorMessage prefers the message the upstream API sent.
func errorMessage(err error) string {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return domain.MessageFetchFailed
}

// fanOut runs fn over items on a fixed set of workers and waits for all of
// them. Each worker writes only the slots of the items it picked up.
// workers <= 0 means one worker per item.
func fanOut[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	ctx = context.WithoutCancel(ctx)

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range jobs {
				results[i] = fn(ctx, items[i])
			}
		})
	}
	wg.Wait()

	return results
}
